// Package cdr3 generates synthetic CDR3 amino-acid sequences.
package cdr3

import (
	"math/rand/v2"
	"strings"
)

// AminoAcids is the alphabet interior residues are drawn from.
const AminoAcids = "ACDEFGHIKLMNPQRSTVWY"

// Generator draws random CDR3-like strings. It is not safe for concurrent use.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a Generator seeded with seed.
func NewGenerator(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Generate returns count sequences with lengths uniform in [minLen, maxLen].
// Sequences of length two or more start with C and end with F or W, the
// conserved anchors of a CDR3 junction.
func (g *Generator) Generate(count, minLen, maxLen int) []string {
	if count <= 0 {
		return []string{}
	}
	if minLen < 1 {
		minLen = 1
	}
	if maxLen < minLen {
		maxLen = minLen
	}

	out := make([]string, count)
	var sb strings.Builder
	for i := range out {
		n := minLen + g.rng.IntN(maxLen-minLen+1)
		sb.Reset()
		sb.Grow(n)
		for j := 0; j < n; j++ {
			switch {
			case n >= 2 && j == 0:
				sb.WriteByte('C')
			case n >= 2 && j == n-1:
				sb.WriteByte("FW"[g.rng.IntN(2)])
			default:
				sb.WriteByte(AminoAcids[g.rng.IntN(len(AminoAcids))])
			}
		}
		out[i] = sb.String()
	}
	return out
}
