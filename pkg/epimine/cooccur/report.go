// Package cooccur measures how categorized terms travel together across a
// corpus: paper frequencies, pair co-occurrence, PMI and the Pearson
// correlation of per-paper counts.
package cooccur

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/cognicore/epimine/pkg/epimine/process"
)

// Term identifies a categorized term.
type Term struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Term        string `json:"term"`
}

func (t Term) key() string {
	return t.Category + "\x1f" + t.Subcategory + "\x1f" + t.Term
}

// TermStats is the corpus footprint of one term.
type TermStats struct {
	Term
	Papers      int `json:"papers"`
	Occurrences int `json:"occurrences"`
}

// Pair relates two terms found in the same papers.
type Pair struct {
	A           Term    `json:"a"`
	B           Term    `json:"b"`
	Papers      int     `json:"papers"`
	PMI         float64 `json:"pmi"`
	NPMI        float64 `json:"npmi"`
	Correlation float64 `json:"correlation"`
}

// Report is the co-occurrence analysis of a corpus result.
type Report struct {
	TotalPapers int         `json:"total_papers"`
	Terms       []TermStats `json:"terms"`
	Pairs       []Pair      `json:"pairs"`
}

// Options tunes Build.
type Options struct {
	// Epsilon is the PMI smoothing constant; zero means 1.
	Epsilon float64
	// SameCategory also pairs terms of the same top-level category.
	SameCategory bool
	// MinPapers drops pairs seen together in fewer papers; zero means 1.
	MinPapers int
}

// Build analyses records. Terms are sorted by category, subcategory and
// term; pairs by NPMI, then paper count, descending.
func Build(records []process.Record, opts Options) *Report {
	if opts.MinPapers <= 0 {
		opts.MinPapers = 1
	}
	calc := NewCalculator(opts.Epsilon)
	cnt := newCounter()

	terms := make(map[string]*TermStats)
	perPaper := make([]map[string]int, len(records))

	for i, rec := range records {
		counts := make(map[string]int)
		for cat, buckets := range rec.Categorized {
			for sub, ts := range buckets {
				for term, n := range ts {
					if n <= 0 {
						continue
					}
					t := Term{Category: cat, Subcategory: sub, Term: term}
					k := t.key()
					st, ok := terms[k]
					if !ok {
						st = &TermStats{Term: t}
						terms[k] = st
					}
					st.Occurrences += n
					counts[k] += n
				}
			}
		}
		perPaper[i] = counts

		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		cnt.addPaper(keys)
	}

	keys := make([]string, 0, len(terms))
	for k, st := range terms {
		st.Papers = cnt.nx[k]
		keys = append(keys, k)
	}
	sort.Strings(keys)

	report := &Report{TotalPapers: cnt.n, Terms: make([]TermStats, 0, len(keys)), Pairs: []Pair{}}
	index := make(map[string]int, len(keys))
	for i, k := range keys {
		report.Terms = append(report.Terms, *terms[k])
		index[k] = i
	}

	corr := correlations(perPaper, keys)

	for pk, nAB := range cnt.nxy {
		a, b := terms[pk.a].Term, terms[pk.b].Term
		if !opts.SameCategory && a.Category == b.Category {
			continue
		}
		if nAB < opts.MinPapers {
			continue
		}
		nA, nB := cnt.nx[pk.a], cnt.nx[pk.b]
		p := Pair{
			A:      a,
			B:      b,
			Papers: nAB,
			PMI:    calc.PMI(nAB, nA, nB, cnt.n),
			NPMI:   calc.NPMI(nAB, nA, nB, cnt.n),
		}
		if corr != nil {
			p.Correlation = corr.At(index[pk.a], index[pk.b])
		}
		report.Pairs = append(report.Pairs, p)
	}
	sortPairs(report.Pairs)
	return report
}

// correlations returns the Pearson correlation matrix of per-paper term
// counts, with undefined entries (constant columns) set to 0. It returns nil
// when fewer than two papers or terms exist.
func correlations(perPaper []map[string]int, keys []string) *mat.SymDense {
	if len(perPaper) < 2 || len(keys) < 2 {
		return nil
	}
	x := mat.NewDense(len(perPaper), len(keys), nil)
	for i, counts := range perPaper {
		for j, k := range keys {
			x.Set(i, j, float64(counts[k]))
		}
	}

	var corr mat.SymDense
	stat.CorrelationMatrix(&corr, x, nil)
	for i := 0; i < len(keys); i++ {
		for j := i; j < len(keys); j++ {
			if math.IsNaN(corr.At(i, j)) {
				corr.SetSym(i, j, 0)
			}
		}
	}
	return &corr
}

func sortPairs(pairs []Pair) {
	sort.Slice(pairs, func(i, j int) bool {
		pi, pj := pairs[i], pairs[j]
		if pi.NPMI != pj.NPMI {
			return pi.NPMI > pj.NPMI
		}
		if pi.Papers != pj.Papers {
			return pi.Papers > pj.Papers
		}
		if ki, kj := pi.A.key(), pj.A.key(); ki != kj {
			return ki < kj
		}
		return pi.B.key() < pj.B.key()
	})
}

// TopPairs returns up to k pairs seen together in at least minPapers
// papers, in report order. k <= 0 means no limit.
func (r *Report) TopPairs(k, minPapers int) []Pair {
	var out []Pair
	for _, p := range r.Pairs {
		if p.Papers < minPapers {
			continue
		}
		out = append(out, p)
		if k > 0 && len(out) == k {
			break
		}
	}
	return out
}

// PairFor looks up the pair of two terms in either order.
func (r *Report) PairFor(a, b Term) (Pair, bool) {
	for _, p := range r.Pairs {
		if (p.A == a && p.B == b) || (p.A == b && p.B == a) {
			return p, true
		}
	}
	return Pair{}, false
}
