package cooccur

import (
	"math"
	"sort"
)

// Calculator computes smoothed pointwise mutual information.
type Calculator struct {
	epsilon float64 // smoothing constant
}

// NewCalculator creates a calculator; epsilon <= 0 means 1.0.
func NewCalculator(epsilon float64) *Calculator {
	if epsilon <= 0 {
		epsilon = 1.0
	}
	return &Calculator{epsilon: epsilon}
}

// PMI calculates the pointwise mutual information between two terms
//
// PMI(a,b) = log((N_ab + ε) * N / ((N_a + ε)(N_b + ε)))
//
// Where:
//   - N_ab = number of papers mentioning both a and b
//   - N_a, N_b = number of papers mentioning each term
//   - N = total number of papers
func (c *Calculator) PMI(nAB, nA, nB, n int) float64 {
	if n == 0 {
		return 0
	}
	numerator := (float64(nAB) + c.epsilon) * float64(n)
	denominator := (float64(nA) + c.epsilon) * (float64(nB) + c.epsilon)
	return math.Log(numerator / denominator)
}

// NPMI is PMI normalized by -log P(a,b), clamped to [-1, 1].
func (c *Calculator) NPMI(nAB, nA, nB, n int) float64 {
	if n == 0 || nAB == 0 {
		return 0
	}
	pAB := (float64(nAB) + c.epsilon) / float64(n)
	logPAB := math.Log(pAB)
	if logPAB == 0 {
		return 0
	}
	v := c.PMI(nAB, nA, nB, n) / -logPAB
	return math.Max(-1, math.Min(1, v))
}

// counter keeps paper frequencies and pair co-occurrence counts.
type counter struct {
	n   int
	nx  map[string]int
	nxy map[pairKey]int
}

// pairKey is an ordered pair of term keys (a < b).
type pairKey struct {
	a, b string
}

func newCounter() *counter {
	return &counter{nx: make(map[string]int), nxy: make(map[pairKey]int)}
}

// addPaper updates counts for one paper's distinct term keys.
func (c *counter) addPaper(keys []string) {
	c.n++
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)

	for _, k := range sorted {
		c.nx[k]++
	}
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			c.nxy[pairKey{sorted[i], sorted[j]}]++
		}
	}
}
