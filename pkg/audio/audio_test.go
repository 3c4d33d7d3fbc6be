package audio

import (
	"path/filepath"
	"testing"
)

func rampWaveform(n int) Waveform {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(i) / float32(n)
	}
	return Waveform{SampleRate: TargetSampleRate, Samples: samples}
}

func TestExtractFromWaveformSnapsToFrameBoundaries(t *testing.T) {
	w := rampWaveform(TargetSampleRate * 2) // 2 seconds

	seg, err := ExtractFromWaveform(w, 0, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	frameLen := TargetSampleRate * FrameMS / 1000
	if len(seg.Samples)%frameLen != 0 {
		t.Fatalf("expected a whole number of frames, got %d samples (frame len %d)", len(seg.Samples), frameLen)
	}
}

func TestExtractFromWaveformInvalidRange(t *testing.T) {
	w := rampWaveform(TargetSampleRate)
	if _, err := ExtractFromWaveform(w, 500, 500); err == nil {
		t.Fatalf("expected an error for an empty range")
	}
	if _, err := ExtractFromWaveform(w, 500, 100); err == nil {
		t.Fatalf("expected an error for an inverted range")
	}
}

func TestStitchFromWaveformConcatenatesInOrder(t *testing.T) {
	w := rampWaveform(TargetSampleRate * 3) // 3 seconds

	stitched, err := StitchFromWaveform(w, [][2]int64{{0, 1000}, {2000, 3000}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, err := ExtractFromWaveform(w, 0, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := ExtractFromWaveform(w, 2000, 3000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantLen := len(first.Samples) + len(second.Samples)
	if len(stitched.Samples) != wantLen {
		t.Fatalf("expected stitched length %d, got %d", wantLen, len(stitched.Samples))
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	w := rampWaveform(TargetSampleRate)
	path := filepath.Join(t.TempDir(), "roundtrip.wav")

	if err := Save(path, w); err != nil {
		t.Fatalf("unexpected error saving: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error loading: %v", err)
	}
	if loaded.SampleRate != w.SampleRate {
		t.Fatalf("expected sample rate %d, got %d", w.SampleRate, loaded.SampleRate)
	}
	if len(loaded.Samples) != len(w.Samples) {
		t.Fatalf("expected %d samples, got %d", len(w.Samples), len(loaded.Samples))
	}
}

func TestDurationMSComputesFromSampleCount(t *testing.T) {
	w := Waveform{SampleRate: TargetSampleRate, Samples: make([]float32, TargetSampleRate*2)}
	if got := w.DurationMS(); got != 2000 {
		t.Fatalf("expected 2000ms, got %d", got)
	}
}
