// Package embedding implements C1: a deterministic stand-in for the
// production voice-embedding model. The model itself is a black box per
// the system's external-collaborator boundary; what this package owns is
// the contract around it (VAD gating, dimensionality, normalization) so
// the rest of the pipeline never has to know a real model isn't loaded.
package embedding

import (
	"math"

	"github.com/hoangtranvan/speaker-id-service/pkg/audio"
	"github.com/hoangtranvan/speaker-id-service/pkg/vad"

	"github.com/hoangtranvan/speaker-id-service/internal/domain/entities"
	"github.com/hoangtranvan/speaker-id-service/internal/vecmath"
	apperrors "github.com/hoangtranvan/speaker-id-service/errors"
)

// minSpeechMS is the floor below which a waveform cannot produce a
// meaningful embedding.
const minSpeechMS = 500

// Extract implements embed(wav16k_mono) -> vector[192]. It is a pure,
// thread-safe, idempotent function of its input.
func Extract(w audio.Waveform) ([entities.EmbeddingDim]float32, error) {
	speech := vad.StripSilence(w)
	if vad.SpeechDurationMS(speech) < minSpeechMS {
		return [entities.EmbeddingDim]float32{}, apperrors.NewInvalidInput("audio has less than 500ms of speech after VAD")
	}
	return fingerprint(speech), nil
}

// fingerprint computes a reproducible 192-dim signature from windowed
// log-energy and zero-crossing-rate features, then L2-normalizes it. It is
// deterministic so unit tests can assert exact vectors without a model
// file; a real embedding network can replace it without changing the
// contract above.
func fingerprint(w audio.Waveform) [entities.EmbeddingDim]float32 {
	var out [entities.EmbeddingDim]float32
	n := len(w.Samples)
	if n == 0 {
		return out
	}

	windows := entities.EmbeddingDim / 2
	windowLen := n / windows
	if windowLen == 0 {
		windowLen = n
	}

	for i := 0; i < windows; i++ {
		start := i * windowLen
		end := start + windowLen
		if i == windows-1 || end > n {
			end = n
		}
		if start >= end {
			continue
		}
		segment := w.Samples[start:end]

		var energy float64
		var crossings float64
		for j, s := range segment {
			energy += float64(s) * float64(s)
			if j > 0 && ((segment[j-1] < 0) != (s < 0)) {
				crossings++
			}
		}
		energy = math.Log1p(energy / float64(len(segment)))
		zcr := crossings / float64(len(segment))

		out[2*i] = float32(energy)
		out[2*i+1] = float32(zcr)
	}

	return vecmath.Normalize(out)
}
