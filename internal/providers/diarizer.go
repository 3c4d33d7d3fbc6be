// Package providers adapts the two external collaborators the pipeline
// depends on (diarization, summarization) into the small duck-typed
// interfaces the rest of the system consumes, following the teacher's
// pkg/ai minimal-client idiom but driving the real AssemblyAI SDK instead
// of a hand-rolled HTTP submission against a webhook.
package providers

import (
	"context"
	stdErrors "errors"
	"fmt"
	"os"
	"time"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"
	"github.com/cenkalti/backoff/v4"

	"github.com/hoangtranvan/speaker-id-service/internal/domain/entities"
	apperrors "github.com/hoangtranvan/speaker-id-service/errors"
	"github.com/hoangtranvan/speaker-id-service/pkg/config"
)

// DiarizationResult is what the diarization provider hands back to C9.
type DiarizationResult struct {
	Utterances []entities.Utterance
	Language   string
}

// Diarizer is the C9-facing contract for the transcription+diarization
// provider: given a local audio file, return diarized utterances.
type Diarizer interface {
	Diarize(ctx context.Context, audioPath string) (DiarizationResult, error)
}

// AssemblyAIDiarizer drives the AssemblyAI Go SDK, uploading the file and
// polling for completion.
type AssemblyAIDiarizer struct {
	client  *aai.Client
	timeout time.Duration
}

// NewAssemblyAIDiarizer constructs a Diarizer from configuration.
func NewAssemblyAIDiarizer(cfg config.DiarizerConfig) *AssemblyAIDiarizer {
	client := aai.NewClient(cfg.APIKey)
	return &AssemblyAIDiarizer{client: client, timeout: cfg.Timeout}
}

// Diarize uploads audioPath and transcribes it with speaker labels and
// language detection enabled, retrying transient failures with backoff.
func (d *AssemblyAIDiarizer) Diarize(ctx context.Context, audioPath string) (DiarizationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var transcript aai.Transcript
	operation := func() error {
		f, err := os.Open(audioPath)
		if err != nil {
			return backoff.Permanent(err)
		}
		defer f.Close()

		t, err := d.client.Transcripts.TranscribeFromReader(ctx, f, &aai.TranscriptOptionalParams{
			SpeakerLabels:     aai.Bool(true),
			LanguageDetection: aai.Bool(true),
		})
		if err != nil {
			return err
		}
		transcript = t
		return nil
	}

	policy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		if stdErrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return DiarizationResult{}, apperrors.NewProviderTimeout("assemblyai", err)
		}
		return DiarizationResult{}, apperrors.NewProviderError("assemblyai", err)
	}

	if transcript.Status == aai.TranscriptStatusError {
		msg := "diarization failed"
		if transcript.Error != nil {
			msg = *transcript.Error
		}
		return DiarizationResult{}, apperrors.NewProviderError("assemblyai", fmt.Errorf("%s", msg))
	}

	utterances := make([]entities.Utterance, 0, len(transcript.Utterances))
	for _, u := range transcript.Utterances {
		utterances = append(utterances, entities.Utterance{
			SpeakerLabel: aaiStringValue(u.Speaker),
			Text:         aaiStringValue(u.Text),
			StartMS:      aaiInt64Value(u.Start),
			EndMS:        aaiInt64Value(u.End),
		})
	}

	language := string(transcript.LanguageCode)

	return DiarizationResult{Utterances: utterances, Language: language}, nil
}

func aaiStringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func aaiInt64Value(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
