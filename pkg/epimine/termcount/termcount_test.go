package termcount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/epimine/pkg/epimine/classify"
	"github.com/cognicore/epimine/pkg/epimine/taxonomy"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"DNA Methylation, BDNF!", []string{"dna", "methylation", "bdnf"}},
		{"low-income -- families", []string{"low-income", "families"}},
		{"--edge-- a--b", []string{"edge", "a-b"}},
		{"Latino/Hispanic", []string{"latino", "hispanic"}},
		{"STRASSE Straße", []string{"strasse", "strasse"}},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Tokenize(tt.in), tt.in)
	}
}

func TestClean(t *testing.T) {
	in := "Trauma [1] affects   BDNF [2, 3].\nSee https://example.org/paper and doi:10.1000/xyz or 10.1038/nature12345 for details."
	assert.Equal(t, "Trauma affects BDNF . See and or for details.", Clean(in))
}

func TestStripMarkup(t *testing.T) {
	assert.Equal(t, "no markup here", StripMarkup("no markup here"))
	assert.Equal(t, "p < 0.05 when A<B", StripMarkup("p < 0.05 when A<B"))

	got := Clean("<p>Expression of <i>BDNF</i> &amp; FKBP5.</p><script>var x = 1;</script><p>Second.</p>")
	assert.Equal(t, "Expression of BDNF & FKBP5. Second.", got)
}

func TestCleanKeepsInequalities(t *testing.T) {
	assert.Equal(t, "Scores were lower when A<B in the cohort. PTSD was common.",
		Clean("Scores were lower when A<B in the cohort.\nPTSD was common."))
}

func TestCountDefaultTaxonomy(t *testing.T) {
	c := New(taxonomy.Default())

	got := c.Count("PTSD and anxiety co-occur. DNA methylation of FKBP5 differs; " +
		"ptsd symptoms were reported by a Black person from a low-income household. " +
		"HPA axis dysregulation was measured.")

	assert.Equal(t, classify.Counts{"PTSD": 2, "anxiety": 1}, got[taxonomy.RawMentalHealth])
	assert.Equal(t, classify.Counts{"DNA methylation": 1, "FKBP5": 1, "HPA axis dysregulation": 1}, got[taxonomy.RawEpigenetic])
	assert.Equal(t, classify.Counts{"low-income": 1}, got[taxonomy.RawSocioeconomic])
	assert.Equal(t, classify.Counts{"Black person": 1}, got[taxonomy.RawEthnographic])
}

func TestCountReportsEveryRawKey(t *testing.T) {
	c := New(taxonomy.Default())
	got := c.Count("Nothing relevant here.")

	require.Len(t, got, 4)
	for _, k := range c.RawKeys() {
		assert.Equal(t, classify.Counts{}, got[k], k)
	}
}

func TestCountLongestMatchWins(t *testing.T) {
	tax, err := taxonomy.New(taxonomy.Category{
		Name:   "Ethnographic",
		RawKey: "ethnographic terms",
		Node: taxonomy.Nested(
			taxonomy.NewSubcategory("Asian descent", "Asian person", "South Asian person"),
		),
	})
	require.NoError(t, err)

	got := New(tax).Count("A South Asian person and an Asian person.")
	assert.Equal(t, classify.Counts{"South Asian person": 1, "Asian person": 1}, got["ethnographic terms"])
}

func TestCountSynonyms(t *testing.T) {
	c := New(taxonomy.Default(),
		Synonym{Canonical: "PTSD", Variants: []string{"post-traumatic stress disorder", "posttraumatic stress disorder"}},
		Synonym{Canonical: "not a term", Variants: []string{"anything"}},
	)

	got := c.Count("Post-traumatic stress disorder (PTSD) and posttraumatic stress disorder. Anything else?")
	assert.Equal(t, classify.Counts{"PTSD": 3}, got[taxonomy.RawMentalHealth])
}

func TestCountTermInSeveralCategories(t *testing.T) {
	tax, err := taxonomy.New(
		taxonomy.Category{Name: "A", RawKey: "a terms", Node: taxonomy.Flat("stress response")},
		taxonomy.Category{Name: "B", RawKey: "b terms", Node: taxonomy.Flat("stress response", "cortisol")},
	)
	require.NoError(t, err)

	got := New(tax).Count("The stress response and cortisol.")
	assert.Equal(t, classify.Counts{"stress response": 1}, got["a terms"])
	assert.Equal(t, classify.Counts{"stress response": 1, "cortisol": 1}, got["b terms"])
}
