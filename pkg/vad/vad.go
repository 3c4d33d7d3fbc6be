// Package vad implements the energy-based voice-activity gate used to
// strip non-speech regions and measure speech duration. It exposes two
// plain functions, StripSilence and SpeechDurationMS, both working over
// fixed audio.FrameMS frames; there is no pluggable detector interface.
package vad

import (
	"math"

	"github.com/hoangtranvan/speaker-id-service/pkg/audio"
)

// energyThreshold is the RMS amplitude (in [0,1]) above which a frame is
// classified as speech. Chosen empirically; the system only relies on the
// properties documented on StripSilence and SpeechDurationMS, not on this
// exact value.
const energyThreshold = 0.02

// frameLen returns the number of samples in one VAD frame at sampleRate.
func frameLen(sampleRate int) int {
	n := sampleRate * audio.FrameMS / 1000
	if n <= 0 {
		n = 1
	}
	return n
}

func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSq float64
	for _, s := range samples {
		sumSq += float64(s) * float64(s)
	}
	return math.Sqrt(sumSq / float64(len(samples)))
}

// isSpeechFrame classifies one whole frame.
func isSpeechFrame(frame []float32) bool {
	return rms(frame) >= energyThreshold
}

// StripSilence returns a waveform containing only the frames classified as
// speech, in original order. The result is never longer than the input.
func StripSilence(w audio.Waveform) audio.Waveform {
	fl := frameLen(w.SampleRate)
	out := make([]float32, 0, len(w.Samples))
	for i := 0; i+fl <= len(w.Samples); i += fl {
		frame := w.Samples[i : i+fl]
		if isSpeechFrame(frame) {
			out = append(out, frame...)
		}
	}
	return audio.Waveform{SampleRate: w.SampleRate, Samples: out}
}

// SpeechDurationMS counts whole frames classified as speech and returns
// their total duration. Trailing samples shorter than one frame are
// dropped, which is what keeps speech_duration_ms additive across
// frame-aligned concatenation (see pkg/audio.Extract).
func SpeechDurationMS(w audio.Waveform) int64 {
	fl := frameLen(w.SampleRate)
	if fl == 0 {
		return 0
	}
	var speechFrames int64
	for i := 0; i+fl <= len(w.Samples); i += fl {
		if isSpeechFrame(w.Samples[i : i+fl]) {
			speechFrames++
		}
	}
	return speechFrames * audio.FrameMS
}
