package taxonomy

import (
	"fmt"
	"strings"

	"github.com/cognicore/epimine/pkg/epimine/internalerr"
)

// GeneralBucket is the single subcategory every flat category reports into.
const GeneralBucket = "General"

// Kind tags the shape of a taxonomy node.
type Kind int

const (
	KindFlat Kind = iota + 1
	KindNested
)

func (k Kind) String() string {
	switch k {
	case KindFlat:
		return "flat"
	case KindNested:
		return "nested"
	default:
		return "invalid"
	}
}

// Subcategory is a named set of canonical terms inside a nested node.
type Subcategory struct {
	name  string
	terms []string
	set   map[string]struct{}
}

// NewSubcategory creates a subcategory. Duplicate and empty terms are dropped,
// the remaining terms keep their definition order.
func NewSubcategory(name string, terms ...string) Subcategory {
	s := Subcategory{name: name, set: make(map[string]struct{}, len(terms))}
	for _, term := range terms {
		if term == "" {
			continue
		}
		if _, ok := s.set[term]; ok {
			continue
		}
		s.set[term] = struct{}{}
		s.terms = append(s.terms, term)
	}
	return s
}

// Name returns the subcategory name.
func (s Subcategory) Name() string { return s.name }

// Terms returns a copy of the subcategory terms in definition order.
func (s Subcategory) Terms() []string {
	out := make([]string, len(s.terms))
	copy(out, s.terms)
	return out
}

// Contains reports whether term is a member. Matching is case-sensitive.
func (s Subcategory) Contains(term string) bool {
	_, ok := s.set[term]
	return ok
}

// Node is either a flat term set or an ordered map of subcategories.
// The zero Node is invalid.
type Node struct {
	kind Kind
	subs []Subcategory
}

// Flat creates a flat node. All of its terms land in GeneralBucket.
func Flat(terms ...string) Node {
	return Node{kind: KindFlat, subs: []Subcategory{NewSubcategory(GeneralBucket, terms...)}}
}

// Nested creates a nested node. Subcategory order is the match order.
func Nested(subs ...Subcategory) Node {
	cp := make([]Subcategory, len(subs))
	copy(cp, subs)
	return Node{kind: KindNested, subs: cp}
}

// Kind returns the node tag.
func (n Node) Kind() Kind { return n.kind }

// Subcategories returns the node's subcategories in match order. A flat node
// reports a single GeneralBucket subcategory.
func (n Node) Subcategories() []Subcategory {
	out := make([]Subcategory, len(n.subs))
	copy(out, n.subs)
	return out
}

// Terms returns every term of the node in definition order, de-duplicated.
func (n Node) Terms() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, sub := range n.subs {
		for _, term := range sub.terms {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			out = append(out, term)
		}
	}
	return out
}

// Validate checks the node tag and subcategory names.
func (n Node) Validate() error {
	switch n.kind {
	case KindFlat:
		if len(n.subs) != 1 || n.subs[0].name != GeneralBucket {
			return fmt.Errorf("%w: malformed flat node", internalerr.ErrInvalidInput)
		}
	case KindNested:
		names := make(map[string]struct{}, len(n.subs))
		for _, sub := range n.subs {
			if strings.TrimSpace(sub.name) == "" {
				return fmt.Errorf("%w: nested subcategory without a name", internalerr.ErrInvalidInput)
			}
			if _, ok := names[sub.name]; ok {
				return fmt.Errorf("%w: duplicate subcategory %q", internalerr.ErrInvalidInput, sub.name)
			}
			names[sub.name] = struct{}{}
		}
	default:
		return fmt.Errorf("%w: node kind %s", internalerr.ErrInvalidInput, n.kind)
	}
	return nil
}

// Category is a top-level taxonomy entry. RawKey names the bucket of the
// upstream term counts that feeds it (e.g. "mental health terms").
type Category struct {
	Name   string
	RawKey string
	Node   Node
}

// Taxonomy is an ordered, read-only list of top-level categories. It is
// safe for concurrent use.
type Taxonomy struct {
	categories []Category
}

// New builds a taxonomy. Category names and raw keys must be unique.
func New(categories ...Category) (*Taxonomy, error) {
	names := make(map[string]struct{}, len(categories))
	keys := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.RawKey) == "" {
			return nil, fmt.Errorf("%w: category needs a name and raw key", internalerr.ErrInvalidConfig)
		}
		if _, ok := names[c.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate category %q", internalerr.ErrInvalidConfig, c.Name)
		}
		if _, ok := keys[c.RawKey]; ok {
			return nil, fmt.Errorf("%w: duplicate raw key %q", internalerr.ErrInvalidConfig, c.RawKey)
		}
		if err := c.Node.Validate(); err != nil {
			return nil, fmt.Errorf("category %q: %w", c.Name, err)
		}
		names[c.Name] = struct{}{}
		keys[c.RawKey] = struct{}{}
	}

	cp := make([]Category, len(categories))
	copy(cp, categories)
	return &Taxonomy{categories: cp}, nil
}

// Categories returns the top-level categories in definition order.
func (t *Taxonomy) Categories() []Category {
	out := make([]Category, len(t.categories))
	copy(out, t.categories)
	return out
}

// Category looks up a top-level category by display name.
func (t *Taxonomy) Category(name string) (Category, bool) {
	for _, c := range t.categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// Vocabulary is the union of every category's terms, in definition order.
// It is the candidate label set handed to the oracle.
func (t *Taxonomy) Vocabulary() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range t.categories {
		for _, term := range c.Node.Terms() {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			out = append(out, term)
		}
	}
	return out
}

// Duplicate describes a term listed under more than one subcategory of the
// same nested category. Only the first subcategory ever receives its counts.
type Duplicate struct {
	Category      string
	Term          string
	Subcategories []string
}

// Duplicates reports terms that appear in several subcategories of one
// nested category.
func (t *Taxonomy) Duplicates() []Duplicate {
	var out []Duplicate
	for _, c := range t.categories {
		if c.Node.Kind() != KindNested {
			continue
		}
		owners := make(map[string][]string)
		var order []string
		for _, sub := range c.Node.subs {
			for _, term := range sub.terms {
				if _, ok := owners[term]; !ok {
					order = append(order, term)
				}
				owners[term] = append(owners[term], sub.name)
			}
		}
		for _, term := range order {
			if len(owners[term]) > 1 {
				out = append(out, Duplicate{Category: c.Name, Term: term, Subcategories: owners[term]})
			}
		}
	}
	return out
}
