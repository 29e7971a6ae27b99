// Package classify buckets counted terms into taxonomy subcategories.
package classify

import (
	"fmt"

	"github.com/cognicore/epimine/pkg/epimine/internalerr"
	"github.com/cognicore/epimine/pkg/epimine/taxonomy"
)

// Counts maps a term, case-sensitive as supplied, to its occurrence count.
type Counts map[string]int

// Clone returns an independent copy.
func (c Counts) Clone() Counts {
	out := make(Counts, len(c))
	for term, n := range c {
		out[term] = n
	}
	return out
}

// Merge returns the counter sum of a and b. Terms whose summed count is not
// positive are dropped. Neither input is modified.
func Merge(a, b Counts) Counts {
	out := make(Counts, len(a)+len(b))
	for term, n := range a {
		out[term] += n
	}
	for term, n := range b {
		out[term] += n
	}
	for term, n := range out {
		if n <= 0 {
			delete(out, term)
		}
	}
	return out
}

// Buckets maps subcategory name to term counts.
type Buckets map[string]map[string]int

// Add accumulates other into b.
func (b Buckets) Add(other Buckets) {
	for sub, terms := range other {
		for term, n := range terms {
			b.add(sub, term, n)
		}
	}
}

func (b Buckets) add(sub, term string, n int) {
	terms, ok := b[sub]
	if !ok {
		terms = make(map[string]int)
		b[sub] = terms
	}
	terms[term] += n
}

// Classify buckets counts against one taxonomy node. Terms the node does not
// know are dropped.
func Classify(counts Counts, node taxonomy.Node) (Buckets, error) {
	out := make(Buckets)
	if err := ClassifyInto(out, counts, node); err != nil {
		return nil, err
	}
	return out, nil
}

// ClassifyInto is Classify accumulating into an existing result. Counts for
// a term already present in dst are added, never overwritten.
//
// Flat nodes report into taxonomy.GeneralBucket. Nested nodes are scanned in
// subcategory definition order and the first subcategory containing the term
// wins.
func ClassifyInto(dst Buckets, counts Counts, node taxonomy.Node) error {
	if dst == nil {
		return fmt.Errorf("%w: nil destination buckets", internalerr.ErrInvalidInput)
	}
	if err := node.Validate(); err != nil {
		return err
	}

	subs := node.Subcategories()
	switch node.Kind() {
	case taxonomy.KindFlat:
		general := subs[0]
		for term, n := range counts {
			if general.Contains(term) {
				dst.add(taxonomy.GeneralBucket, term, n)
			}
		}
	case taxonomy.KindNested:
		for term, n := range counts {
			for _, sub := range subs {
				if sub.Contains(term) {
					dst.add(sub.Name(), term, n)
					break
				}
			}
		}
	}
	return nil
}
