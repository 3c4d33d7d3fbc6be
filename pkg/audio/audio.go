// Package audio wraps the audio container and resampling libraries behind
// the three primitives the identification pipeline needs: transcode to a
// canonical 16 kHz mono WAV, slice a time range out of one, and stitch
// several slices back into a single file. Codec and resampling math is
// delegated entirely to go-audio/wav and go-audio-resampling; this package
// only deals in time ranges and sample buffers.
package audio

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	resampling "github.com/tphakala/go-audio-resampling"
)

// TargetSampleRate is the canonical rate every waveform is converted to
// before VAD, embedding, or selection work touches it.
const TargetSampleRate = 16000

// FrameMS is the VAD analysis frame size. Extract always snaps time ranges
// to whole multiples of this so that speech_duration_ms stays additive
// under stitching (see pkg/vad).
const FrameMS = 10

// Waveform is decoded mono PCM at TargetSampleRate, held in memory as
// float32 samples in [-1, 1].
type Waveform struct {
	SampleRate int
	Samples    []float32
}

// DurationMS returns the waveform's duration rounded down to the millisecond.
func (w Waveform) DurationMS() int64 {
	if w.SampleRate == 0 {
		return 0
	}
	return int64(len(w.Samples)) * 1000 / int64(w.SampleRate)
}

// ErrNoAudioStream is returned by ToWAV16kMono when the input file carries
// no decodable audio.
var ErrNoAudioStream = fmt.Errorf("audio: input has no audio stream")

// Load decodes a WAV file into a mono Waveform, downmixing multi-channel
// audio by averaging channels.
func Load(path string) (Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return Waveform{}, fmt.Errorf("audio: open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Waveform{}, fmt.Errorf("audio: decode %s: %w", path, err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return Waveform{}, ErrNoAudioStream
	}

	return Waveform{
		SampleRate: int(dec.SampleRate),
		Samples:    downmix(buf),
	}, nil
}

func downmix(buf *goaudio.IntBuffer) []float32 {
	ch := buf.Format.NumChannels
	if ch <= 0 {
		ch = 1
	}
	n := len(buf.Data) / ch
	out := make([]float32, n)
	maxVal := float32(int(1) << uint(buf.SourceBitDepth-1))
	if maxVal == 0 {
		maxVal = 1 << 15
	}
	for i := 0; i < n; i++ {
		var sum int
		for c := 0; c < ch; c++ {
			sum += buf.Data[i*ch+c]
		}
		out[i] = float32(sum) / float32(ch) / maxVal
	}
	return out
}

// Save encodes a mono Waveform as a 16-bit PCM WAV file.
func Save(path string, w Waveform) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audio: create %s: %w", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, w.SampleRate, 16, 1, 1)
	ints := make([]int, len(w.Samples))
	for i, s := range w.Samples {
		v := int(s * 32767)
		if v > 32767 {
			v = 32767
		}
		if v < -32768 {
			v = -32768
		}
		ints[i] = v
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: w.SampleRate},
		Data:           ints,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("audio: write %s: %w", path, err)
	}
	return enc.Close()
}

// ToWAV16kMono converts an arbitrary supported container to a 16 kHz mono
// PCM WAV file, resampling and downmixing as needed.
func ToWAV16kMono(inputPath, outputPath string) error {
	w, err := Load(inputPath)
	if err != nil {
		return err
	}
	if w.SampleRate != TargetSampleRate {
		w, err = Resample(w, TargetSampleRate)
		if err != nil {
			return fmt.Errorf("audio: resample %s: %w", inputPath, err)
		}
	}
	return Save(outputPath, w)
}

// Resample converts a waveform to the target sample rate using the
// resampling library's polyphase filter.
func Resample(w Waveform, targetRate int) (Waveform, error) {
	if w.SampleRate == targetRate {
		return w, nil
	}
	in := make([]float64, len(w.Samples))
	for i, s := range w.Samples {
		in[i] = float64(s)
	}
	out, err := resampling.ResampleMono(in, float64(w.SampleRate), float64(targetRate), resampling.QualityHigh)
	if err != nil {
		return Waveform{}, err
	}
	samples := make([]float32, len(out))
	for i, s := range out {
		samples[i] = float32(s)
	}
	return Waveform{SampleRate: targetRate, Samples: samples}, nil
}

// snapToFrame rounds a sample offset down to the nearest whole VAD frame,
// at the given sample rate.
func snapToFrame(sampleOffset int64, sampleRate int) int64 {
	frameLen := int64(sampleRate) * FrameMS / 1000
	if frameLen <= 0 {
		return sampleOffset
	}
	return (sampleOffset / frameLen) * frameLen
}

// Extract produces the exclusive-end slice [t0Ms, t1Ms) of path, snapped to
// whole VAD-frame boundaries so that stitched output remains additive under
// speech_duration_ms. The slice is written to outPath.
func Extract(path string, t0Ms, t1Ms int64, outPath string) error {
	w, err := Load(path)
	if err != nil {
		return err
	}
	seg, err := ExtractFromWaveform(w, t0Ms, t1Ms)
	if err != nil {
		return err
	}
	return Save(outPath, seg)
}

// ExtractFromWaveform is the in-memory counterpart of Extract.
func ExtractFromWaveform(w Waveform, t0Ms, t1Ms int64) (Waveform, error) {
	if t1Ms <= t0Ms {
		return Waveform{}, fmt.Errorf("audio: invalid range [%d,%d)", t0Ms, t1Ms)
	}
	start := snapToFrame(t0Ms*int64(w.SampleRate)/1000, w.SampleRate)
	end := snapToFrame(t1Ms*int64(w.SampleRate)/1000, w.SampleRate)
	if start < 0 {
		start = 0
	}
	if end > int64(len(w.Samples)) {
		end = int64(len(w.Samples))
	}
	if end <= start {
		return Waveform{SampleRate: w.SampleRate, Samples: nil}, nil
	}
	out := make([]float32, end-start)
	copy(out, w.Samples[start:end])
	return Waveform{SampleRate: w.SampleRate, Samples: out}, nil
}

// Stitch concatenates the given time-range slices of path, in order, with
// no gap, writing the result to outPath.
func Stitch(path string, segments [][2]int64, outPath string) error {
	w, err := Load(path)
	if err != nil {
		return err
	}
	out, err := StitchFromWaveform(w, segments)
	if err != nil {
		return err
	}
	return Save(outPath, out)
}

// StitchFromWaveform is the in-memory counterpart of Stitch.
func StitchFromWaveform(w Waveform, segments [][2]int64) (Waveform, error) {
	result := Waveform{SampleRate: w.SampleRate}
	for _, seg := range segments {
		part, err := ExtractFromWaveform(w, seg[0], seg[1])
		if err != nil {
			return Waveform{}, err
		}
		result.Samples = append(result.Samples, part.Samples...)
	}
	return result, nil
}
