package network

import (
	"context"
	"unicode/utf8"

	"github.com/agext/levenshtein"
)

// Edge connects two corpus positions whose edit distance is in range.
// Source is always less than Target.
type Edge struct {
	Source   int `json:"s"`
	Target   int `json:"t"`
	Distance int `json:"d"`
}

// Graph is the relationship graph over a corpus.
type Graph struct {
	Strings []string
	Edges   []Edge
}

// pairMatcher decides whether two strings are related.
type pairMatcher struct {
	strs  []string
	lens  []int
	minLD int
	maxLD int
}

func newPairMatcher(strs []string, minLD, maxLD int) *pairMatcher {
	lens := make([]int, len(strs))
	for i, s := range strs {
		lens[i] = utf8.RuneCountInString(s)
	}
	return &pairMatcher{
		strs:  strs,
		lens:  lens,
		minLD: minLD,
		maxLD: maxLD,
	}
}

func (m *pairMatcher) match(i, j int) (int, bool) {
	diff := m.lens[i] - m.lens[j]
	if diff > m.maxLD || -diff > m.maxLD {
		return 0, false
	}
	if m.maxLD == 0 {
		return 0, m.minLD == 0 && m.strs[i] == m.strs[j]
	}
	// Uncapped: a MaxCost result is not the true distance once the cap is hit.
	d := levenshtein.Distance(m.strs[i], m.strs[j], nil)
	return d, d >= m.minLD && d <= m.maxLD
}

// graphStripe returns the edges whose source row belongs to the stripe.
// Row i belongs to stripe i mod stripes, which spreads the triangular
// workload evenly.
func (m *pairMatcher) graphStripe(ctx context.Context, stripe, stripes int) ([]Edge, error) {
	edges := []Edge{}
	n := len(m.strs)
	for i := stripe; i < n; i += stripes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := i + 1; j < n; j++ {
			if d, ok := m.match(i, j); ok {
				edges = append(edges, Edge{Source: i, Target: j, Distance: d})
			}
		}
	}
	return edges, nil
}

// degreeStripe returns, for every corpus position, how many related pairs
// with a source row in the stripe touch it.
func (m *pairMatcher) degreeStripe(ctx context.Context, stripe, stripes int) ([]int, error) {
	n := len(m.strs)
	deg := make([]int, n)
	for i := stripe; i < n; i += stripes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := i + 1; j < n; j++ {
			if _, ok := m.match(i, j); ok {
				deg[i]++
				deg[j]++
			}
		}
	}
	return deg, nil
}
