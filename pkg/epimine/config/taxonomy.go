package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/epimine/pkg/epimine/internalerr"
	"github.com/cognicore/epimine/pkg/epimine/taxonomy"
)

// CategoryConfig describes one top-level category. Exactly one of Flat and
// Nested is set.
//
//	taxonomy:
//	  - name: Ethnographic
//	    raw_key: ethnographic terms
//	    nested:
//	      African descent: [African-American, Black person]
//	      Asian descent: [Asian-American]
type CategoryConfig struct {
	Name   string        `yaml:"name"`
	RawKey string        `yaml:"raw_key"`
	Flat   []string      `yaml:"flat,omitempty"`
	Nested Subcategories `yaml:"nested,omitempty"`
}

// SubcategoryConfig is one named term list of a nested category.
type SubcategoryConfig struct {
	Name  string
	Terms []string
}

// Subcategories is a YAML mapping decoded in document order.
type Subcategories []SubcategoryConfig

// UnmarshalYAML keeps the mapping order, which decides first-match wins.
func (s *Subcategories) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: nested must be a mapping of subcategory to terms", node.Line)
	}
	out := make(Subcategories, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var sub SubcategoryConfig
		if err := node.Content[i].Decode(&sub.Name); err != nil {
			return err
		}
		if err := node.Content[i+1].Decode(&sub.Terms); err != nil {
			return fmt.Errorf("subcategory %q: %w", sub.Name, err)
		}
		out = append(out, sub)
	}
	*s = out
	return nil
}

// MarshalYAML writes the subcategories back as an ordered mapping.
func (s Subcategories) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, sub := range s {
		var key, val yaml.Node
		if err := key.Encode(sub.Name); err != nil {
			return nil, err
		}
		if err := val.Encode(sub.Terms); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &key, &val)
	}
	return node, nil
}

// BuildTaxonomy returns the configured taxonomy, or the built-in one when
// none is configured.
func (c Config) BuildTaxonomy() (*taxonomy.Taxonomy, error) {
	if len(c.Taxonomy) == 0 {
		return taxonomy.Default(), nil
	}
	cats := make([]taxonomy.Category, 0, len(c.Taxonomy))
	for _, cc := range c.Taxonomy {
		node, err := cc.node()
		if err != nil {
			return nil, err
		}
		cats = append(cats, taxonomy.Category{Name: cc.Name, RawKey: cc.RawKey, Node: node})
	}
	return taxonomy.New(cats...)
}

func (cc CategoryConfig) node() (taxonomy.Node, error) {
	switch {
	case len(cc.Flat) > 0 && len(cc.Nested) > 0:
		return taxonomy.Node{}, fmt.Errorf("%w: category %q sets both flat and nested", internalerr.ErrInvalidConfig, cc.Name)
	case len(cc.Nested) > 0:
		subs := make([]taxonomy.Subcategory, len(cc.Nested))
		for i, s := range cc.Nested {
			subs[i] = taxonomy.NewSubcategory(s.Name, s.Terms...)
		}
		return taxonomy.Nested(subs...), nil
	default:
		return taxonomy.Flat(cc.Flat...), nil
	}
}

// FromTaxonomy renders tax as category configs, e.g. to dump the built-in
// taxonomy as a starting point for a custom file.
func FromTaxonomy(tax *taxonomy.Taxonomy) []CategoryConfig {
	var out []CategoryConfig
	for _, cat := range tax.Categories() {
		cc := CategoryConfig{Name: cat.Name, RawKey: cat.RawKey}
		if cat.Node.Kind() == taxonomy.KindFlat {
			cc.Flat = cat.Node.Terms()
		} else {
			for _, sub := range cat.Node.Subcategories() {
				cc.Nested = append(cc.Nested, SubcategoryConfig{Name: sub.Name(), Terms: sub.Terms()})
			}
		}
		out = append(out, cc)
	}
	return out
}

// LoadTaxonomy reads a YAML file holding a bare list of categories.
func LoadTaxonomy(path string) (*taxonomy.Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cats []CategoryConfig
	if err := yaml.Unmarshal(data, &cats); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(cats) == 0 {
		return nil, fmt.Errorf("%w: %s defines no categories", internalerr.ErrInvalidConfig, path)
	}
	return Config{Taxonomy: cats}.BuildTaxonomy()
}
