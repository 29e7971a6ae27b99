// Package termcount produces the raw per-category term counts for a paper:
// occurrences of every taxonomy term in the paper text, found by greedy
// longest match over case-folded tokens.
package termcount

import (
	"strings"

	"github.com/cognicore/epimine/pkg/epimine/classify"
	"github.com/cognicore/epimine/pkg/epimine/taxonomy"
)

// Synonym maps spelling variants to a canonical taxonomy term.
type Synonym struct {
	Canonical string
	Variants  []string
}

type entry struct {
	canonical string
	rawKeys   []string
}

// Counter counts taxonomy terms in text. It is read-only after New and safe
// for concurrent use.
type Counter struct {
	phrases map[string]entry // folded phrase -> canonical term
	rawKeys []string
	maxLen  int
}

// New builds a Counter for every term of tax. Synonym variants count towards
// their canonical term; synonyms whose canonical term is not in tax are
// ignored.
func New(tax *taxonomy.Taxonomy, synonyms ...Synonym) *Counter {
	c := &Counter{phrases: make(map[string]entry), maxLen: 1}

	owners := make(map[string][]string)
	var order []string
	for _, cat := range tax.Categories() {
		c.rawKeys = append(c.rawKeys, cat.RawKey)
		for _, term := range cat.Node.Terms() {
			if _, ok := owners[term]; !ok {
				order = append(order, term)
			}
			owners[term] = appendUnique(owners[term], cat.RawKey)
		}
	}

	for _, term := range order {
		c.add(term, entry{canonical: term, rawKeys: owners[term]})
	}
	for _, s := range synonyms {
		keys, ok := owners[s.Canonical]
		if !ok {
			continue
		}
		for _, v := range s.Variants {
			c.add(v, entry{canonical: s.Canonical, rawKeys: keys})
		}
	}
	return c
}

// add registers phrase unless an earlier phrase already claimed the same
// folded spelling.
func (c *Counter) add(phrase string, e entry) {
	tokens := Tokenize(phrase)
	if len(tokens) == 0 {
		return
	}
	key := strings.Join(tokens, " ")
	if _, exists := c.phrases[key]; exists {
		return
	}
	c.phrases[key] = e
	if len(tokens) > c.maxLen {
		c.maxLen = len(tokens)
	}
}

// RawKeys returns the raw category keys, in taxonomy order.
func (c *Counter) RawKeys() []string {
	out := make([]string, len(c.rawKeys))
	copy(out, c.rawKeys)
	return out
}

// Count returns term counts keyed by raw category. Every raw key is present,
// possibly with an empty map. Terms are reported in their canonical
// spelling.
func (c *Counter) Count(text string) map[string]classify.Counts {
	out := make(map[string]classify.Counts, len(c.rawKeys))
	for _, k := range c.rawKeys {
		out[k] = classify.Counts{}
	}

	tokens := Tokenize(text)
	for i := 0; i < len(tokens); {
		e, n := c.match(tokens[i:])
		if n == 0 {
			i++
			continue
		}
		for _, k := range e.rawKeys {
			out[k][e.canonical]++
		}
		i += n
	}
	return out
}

// match tries the longest phrase first and returns the number of tokens
// consumed, or 0.
func (c *Counter) match(tokens []string) (entry, int) {
	maxPhrase := c.maxLen
	if maxPhrase > len(tokens) {
		maxPhrase = len(tokens)
	}
	for n := maxPhrase; n >= 1; n-- {
		if e, ok := c.phrases[strings.Join(tokens[:n], " ")]; ok {
			return e, n
		}
	}
	return entry{}, 0
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
