package vad

import (
	"testing"

	"github.com/hoangtranvan/speaker-id-service/pkg/audio"
)

func loudWaveform(n int) audio.Waveform {
	samples := make([]float32, n)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 0.5
		} else {
			samples[i] = -0.5
		}
	}
	return audio.Waveform{SampleRate: audio.TargetSampleRate, Samples: samples}
}

func silentWaveform(n int) audio.Waveform {
	return audio.Waveform{SampleRate: audio.TargetSampleRate, Samples: make([]float32, n)}
}

func TestStripSilenceKeepsLoudFrames(t *testing.T) {
	w := loudWaveform(audio.TargetSampleRate)
	stripped := StripSilence(w)
	if len(stripped.Samples) != len(w.Samples) {
		t.Fatalf("expected all loud frames retained, got %d of %d", len(stripped.Samples), len(w.Samples))
	}
}

func TestStripSilenceDropsQuietFrames(t *testing.T) {
	w := silentWaveform(audio.TargetSampleRate)
	stripped := StripSilence(w)
	if len(stripped.Samples) != 0 {
		t.Fatalf("expected all-silent audio to be fully stripped, got %d samples", len(stripped.Samples))
	}
}

func TestSpeechDurationMSIsAdditiveAcrossConcatenation(t *testing.T) {
	a := loudWaveform(audio.TargetSampleRate)
	b := loudWaveform(audio.TargetSampleRate / 2)

	durA := SpeechDurationMS(a)
	durB := SpeechDurationMS(b)

	concatenated := audio.Waveform{
		SampleRate: audio.TargetSampleRate,
		Samples:    append(append([]float32{}, a.Samples...), b.Samples...),
	}
	durCombined := SpeechDurationMS(concatenated)

	if durCombined != durA+durB {
		t.Fatalf("expected additive durations %d+%d=%d, got %d", durA, durB, durA+durB, durCombined)
	}
}
