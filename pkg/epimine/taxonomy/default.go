package taxonomy

// Display names of the built-in top-level categories.
const (
	MentalHealth  = "Mental Health"
	Epigenetic    = "Epigenetic"
	Socioeconomic = "Socioeconomic"
	Ethnographic  = "Ethnographic"
)

// Raw term-count keys produced by the preprocessing step.
const (
	RawMentalHealth  = "mental health terms"
	RawEpigenetic    = "epigenetic terms"
	RawSocioeconomic = "socioeconomic terms"
	RawEthnographic  = "ethnographic terms"
)

// Default returns the built-in research taxonomy.
func Default() *Taxonomy {
	t, err := New(
		Category{
			Name:   MentalHealth,
			RawKey: RawMentalHealth,
			Node:   Flat("depression", "bipolar", "PTSD", "anxiety", "suicide", "generational trauma"),
		},
		Category{
			Name:   Epigenetic,
			RawKey: RawEpigenetic,
			Node:   Flat("DNA methylation", "BDNF", "SLC6A4", "FKBP5", "OXTR", "stress response", "HPA axis dysregulation"),
		},
		Category{
			Name:   Socioeconomic,
			RawKey: RawSocioeconomic,
			Node:   Flat("low-income", "middle-income", "high-income"),
		},
		Category{
			Name:   Ethnographic,
			RawKey: RawEthnographic,
			Node: Nested(
				NewSubcategory("African descent", "African person", "Black person", "African-American person"),
				NewSubcategory("Latino/Hispanic descent", "Latino person", "Hispanic person", "Latinx community"),
				NewSubcategory("Asian descent", "Asian person", "South Asian person", "East Asian person"),
				NewSubcategory("Native American descent", "Indigenous person", "Native American person", "First Nations person"),
				NewSubcategory("Arab descent", "Arab person", "Middle-Eastern person", "Muslim person"),
				NewSubcategory("European descent", "European person", "Caucasian person", "White person"),
			),
		},
	)
	if err != nil {
		panic(err)
	}
	return t
}
