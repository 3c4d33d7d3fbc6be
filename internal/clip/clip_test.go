package clip

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/hoangtranvan/speaker-id-service/internal/domain/entities"
	"github.com/hoangtranvan/speaker-id-service/internal/sessionstore"
	"github.com/hoangtranvan/speaker-id-service/pkg/audio"
)

func loudWaveform(durationMS int64) audio.Waveform {
	n := int(durationMS) * audio.TargetSampleRate / 1000
	samples := make([]float32, n)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 0.6
		} else {
			samples[i] = -0.6
		}
	}
	return audio.Waveform{SampleRate: audio.TargetSampleRate, Samples: samples}
}

func TestBuildTruncatesToMaxDuration(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "session.wav")
	if err := audio.Save(audioPath, loudWaveform(10_000)); err != nil {
		t.Fatalf("failed to write fixture audio: %v", err)
	}

	sessions := sessionstore.New(time.Hour, nil)
	defer sessions.Close()

	session := entities.NewMeetingSession("meeting-1", "device-a")
	session.AudioPath = audioPath
	session.SpeakerSegments["A"] = []entities.Segment{{StartMS: 0, EndMS: 9_000}}
	sessions.Create("device-a", session)

	outPath := filepath.Join(dir, "clip.wav")
	if err := Build(sessions, "meeting-1", "A", outPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clip, err := audio.Load(outPath)
	if err != nil {
		t.Fatalf("failed to load produced clip: %v", err)
	}
	if clip.DurationMS() > MaxDurationMS {
		t.Fatalf("expected clip duration <= %dms, got %dms", MaxDurationMS, clip.DurationMS())
	}
}

func TestBuildMissingSessionErrors(t *testing.T) {
	sessions := sessionstore.New(time.Hour, nil)
	defer sessions.Close()

	if err := Build(sessions, "no-such-meeting", "A", filepath.Join(t.TempDir(), "clip.wav")); err == nil {
		t.Fatalf("expected an error for an unknown meeting")
	}
}

func TestBuildMissingSpeakerSegmentsErrors(t *testing.T) {
	sessions := sessionstore.New(time.Hour, nil)
	defer sessions.Close()

	session := entities.NewMeetingSession("meeting-1", "device-a")
	session.AudioPath = filepath.Join(t.TempDir(), "session.wav")
	sessions.Create("device-a", session)

	if err := Build(sessions, "meeting-1", "A", filepath.Join(t.TempDir(), "clip.wav")); err == nil {
		t.Fatalf("expected an error when the speaker has no stored segments")
	}
}
