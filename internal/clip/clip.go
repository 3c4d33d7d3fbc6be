// Package clip implements C11: building a short playback clip for one
// diarized speaker from the audio and segments retained on its session.
package clip

import (
	"fmt"

	apperrors "github.com/hoangtranvan/speaker-id-service/errors"
	"github.com/hoangtranvan/speaker-id-service/internal/sessionstore"
	"github.com/hoangtranvan/speaker-id-service/pkg/audio"
	"github.com/hoangtranvan/speaker-id-service/pkg/vad"
)

// MaxDurationMS bounds how long a clip may be.
const MaxDurationMS = 5000

// Build assembles a 16kHz mono WAV clip for label within meetingID's
// session and writes it to outPath.
func Build(sessions *sessionstore.Store, meetingID, label, outPath string) error {
	session, ok := sessions.Get(meetingID)
	if !ok {
		return apperrors.NewNotFound("meeting session")
	}
	segments, ok := session.SpeakerSegments[label]
	if !ok || len(segments) == 0 {
		return apperrors.NewNotFound("speaker clip")
	}
	if session.AudioPath == "" {
		return apperrors.NewNotFound("session audio")
	}

	full, err := audio.Load(session.AudioPath)
	if err != nil {
		return apperrors.NewNotFound("session audio")
	}

	bounds := make([][2]int64, 0, len(segments))
	for _, seg := range segments {
		bounds = append(bounds, [2]int64{seg.StartMS, seg.EndMS})
	}

	stitched, err := audio.StitchFromWaveform(full, bounds)
	if err != nil {
		return fmt.Errorf("clip: stitch: %w", err)
	}

	speech := vad.StripSilence(stitched)
	if speech.DurationMS() > MaxDurationMS {
		speech, err = audio.ExtractFromWaveform(speech, 0, MaxDurationMS)
		if err != nil {
			return fmt.Errorf("clip: truncate: %w", err)
		}
	}

	if err := audio.Save(outPath, speech); err != nil {
		return fmt.Errorf("clip: save %s: %w", outPath, err)
	}
	return nil
}
