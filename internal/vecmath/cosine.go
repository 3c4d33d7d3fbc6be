// Package vecmath holds the small set of numeric routines shared by the
// vector store adapter, the voiceprint registry and the embedding
// extractor, built on gonum's floats package rather than hand-rolled loops.
package vecmath

import (
	"gonum.org/v1/gonum/floats"

	"github.com/hoangtranvan/speaker-id-service/internal/domain/entities"
)

// ToFloat64 widens a fixed-size float32 embedding to a gonum-friendly slice.
func ToFloat64(v [entities.EmbeddingDim]float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// Cosine returns the cosine similarity of two equal-length vectors, in
// [-1, 1]. Both inputs are assumed unit-norm per the voiceprint invariant,
// but the function does not require it.
func Cosine(a, b []float64) float64 {
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

// Normalize returns v scaled to unit L2 norm. A zero vector is returned
// unchanged.
func Normalize(v [entities.EmbeddingDim]float32) [entities.EmbeddingDim]float32 {
	f := ToFloat64(v)
	n := floats.Norm(f, 2)
	if n == 0 {
		return v
	}
	var out [entities.EmbeddingDim]float32
	for i := range f {
		out[i] = float32(f[i] / n)
	}
	return out
}
