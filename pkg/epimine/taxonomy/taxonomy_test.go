package taxonomy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/epimine/pkg/epimine/internalerr"
)

func TestFlatNodeDropsDuplicates(t *testing.T) {
	n := Flat("PTSD", "anxiety", "PTSD", "")

	assert.Equal(t, KindFlat, n.Kind())
	assert.Equal(t, []string{"PTSD", "anxiety"}, n.Terms())

	subs := n.Subcategories()
	require.Len(t, subs, 1)
	assert.Equal(t, GeneralBucket, subs[0].Name())
	assert.True(t, subs[0].Contains("PTSD"))
	assert.False(t, subs[0].Contains("ptsd"), "matching is case-sensitive")
}

func TestNestedNodeKeepsOrder(t *testing.T) {
	n := Nested(
		NewSubcategory("b", "x", "y"),
		NewSubcategory("a", "z"),
	)

	subs := n.Subcategories()
	require.Len(t, subs, 2)
	assert.Equal(t, "b", subs[0].Name())
	assert.Equal(t, "a", subs[1].Name())
	assert.Equal(t, []string{"x", "y", "z"}, n.Terms())
}

func TestSubcategoriesAreCopies(t *testing.T) {
	n := Nested(NewSubcategory("a", "x"))
	subs := n.Subcategories()
	subs[0] = NewSubcategory("mutated", "q")

	assert.Equal(t, "a", n.Subcategories()[0].Name())

	terms := n.Subcategories()[0].Terms()
	terms[0] = "mutated"
	assert.Equal(t, []string{"x"}, n.Subcategories()[0].Terms())
}

func TestNodeValidate(t *testing.T) {
	var zero Node
	assert.True(t, errors.Is(zero.Validate(), internalerr.ErrInvalidInput))

	dup := Nested(NewSubcategory("a", "x"), NewSubcategory("a", "y"))
	assert.Error(t, dup.Validate())

	unnamed := Nested(NewSubcategory(" ", "x"))
	assert.Error(t, unnamed.Validate())

	assert.NoError(t, Flat("x").Validate())
	assert.NoError(t, Nested().Validate())
}

func TestNewRejectsDuplicateCategories(t *testing.T) {
	_, err := New(
		Category{Name: "A", RawKey: "a", Node: Flat("x")},
		Category{Name: "A", RawKey: "b", Node: Flat("y")},
	)
	assert.True(t, errors.Is(err, internalerr.ErrInvalidConfig))

	_, err = New(
		Category{Name: "A", RawKey: "a", Node: Flat("x")},
		Category{Name: "B", RawKey: "a", Node: Flat("y")},
	)
	assert.True(t, errors.Is(err, internalerr.ErrInvalidConfig))

	_, err = New(Category{Name: "A", RawKey: "a"})
	assert.True(t, errors.Is(err, internalerr.ErrInvalidInput))
}

func TestDefaultTaxonomy(t *testing.T) {
	tax := Default()

	cats := tax.Categories()
	require.Len(t, cats, 4)
	assert.Equal(t, MentalHealth, cats[0].Name)
	assert.Equal(t, Epigenetic, cats[1].Name)
	assert.Equal(t, Socioeconomic, cats[2].Name)
	assert.Equal(t, Ethnographic, cats[3].Name)
	assert.Equal(t, KindNested, cats[3].Node.Kind())

	eth, ok := tax.Category(Ethnographic)
	require.True(t, ok)
	assert.Len(t, eth.Node.Subcategories(), 6)

	assert.Empty(t, tax.Duplicates())
}

func TestVocabularyIsOrderedUnion(t *testing.T) {
	tax, err := New(
		Category{Name: "A", RawKey: "a", Node: Flat("x", "y")},
		Category{Name: "B", RawKey: "b", Node: Nested(
			NewSubcategory("s1", "y", "z"),
			NewSubcategory("s2", "w"),
		)},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"x", "y", "z", "w"}, tax.Vocabulary())
	assert.Len(t, Default().Vocabulary(), 6+7+3+18)
}

func TestDuplicatesAcrossSubcategories(t *testing.T) {
	tax, err := New(Category{Name: "Eth", RawKey: "eth", Node: Nested(
		NewSubcategory("first", "shared", "only-first"),
		NewSubcategory("second", "shared"),
	)})
	require.NoError(t, err)

	dups := tax.Duplicates()
	require.Len(t, dups, 1)
	assert.Equal(t, "Eth", dups[0].Category)
	assert.Equal(t, "shared", dups[0].Term)
	assert.Equal(t, []string{"first", "second"}, dups[0].Subcategories)
}
