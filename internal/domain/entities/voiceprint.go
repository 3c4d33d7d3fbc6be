package entities

import "time"

// EmbeddingDim is the fixed dimensionality of every voice embedding in the
// system. C1 always returns a vector of this length.
const EmbeddingDim = 192

// Voiceprint is a named enrolled identity: the current best estimate of a
// speaker's voice, never a raw sample.
type Voiceprint struct {
	Name        string
	Embedding   [EmbeddingDim]float32
	SampleCount int
	CreatedAt   time.Time
}

// Candidate is one scored neighbor returned by a vector-store query or
// exposed to a caller for UI hinting.
type Candidate struct {
	Name  string
	Score float64
}
