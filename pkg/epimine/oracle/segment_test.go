package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSegmenterSplit(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "single sentence",
			text: "PTSD and DNA methylation are discussed.",
			want: []string{"PTSD and DNA methylation are discussed."},
		},
		{
			name: "several sentences",
			text: "First one. Second one!  Third one?",
			want: []string{"First one.", "Second one!", "Third one?"},
		},
		{
			name: "trailing text without punctuation",
			text: "Done. and then some",
			want: []string{"Done.", "and then some"},
		},
		{
			name: "decimal numbers do not split",
			text: "Dose was 3.5 mg daily. Effects followed.",
			want: []string{"Dose was 3.5 mg daily.", "Effects followed."},
		},
		{
			name: "abbreviations do not split",
			text: "Smith et al. reported stress, e.g. anxiety. See Fig. 2 for details.",
			want: []string{"Smith et al. reported stress, e.g. anxiety.", "See Fig. 2 for details."},
		},
		{
			name: "closing quotes stay with the sentence",
			text: `He said "stop." Then left.`,
			want: []string{`He said "stop."`, "Then left."},
		},
		{
			name: "whitespace only",
			text: " \n\t ",
			want: nil,
		},
		{
			name: "newlines collapse",
			text: "Line one\ncontinues here.\n\nNext.",
			want: []string{"Line one continues here.", "Next."},
		},
	}

	s := NewSegmenter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Split(tt.text))
		})
	}
}

func TestSegmenterExtraAbbreviations(t *testing.T) {
	s := NewSegmenter("Suppl.")
	assert.Equal(t, []string{"See Suppl. Table 1."}, s.Split("See Suppl. Table 1."))
}

func TestSegmenterKeepsAngleBrackets(t *testing.T) {
	got := NewSegmenter().Split("Scores were lower when A<B in the cohort. PTSD was common among survivors. Anxiety followed.")
	assert.Equal(t, []string{
		"Scores were lower when A<B in the cohort.",
		"PTSD was common among survivors.",
		"Anxiety followed.",
	}, got)

	got = NewSegmenter().Split("Onset at age<Adult was rare (p<0.05). Risk was <b>high</b>.")
	assert.Equal(t, []string{"Onset at age<Adult was rare (p<0.05).", "Risk was <b>high</b>."}, got)
}
