// Package summary implements §4.12: driving the structured-summary
// provider over a completed meeting session's labeled transcript, the
// way the teacher's AI usecase drives its own LLM summarization step.
package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/hoangtranvan/speaker-id-service/internal/domain/entities"
	apperrors "github.com/hoangtranvan/speaker-id-service/errors"
	"github.com/hoangtranvan/speaker-id-service/internal/providers"
	"github.com/hoangtranvan/speaker-id-service/internal/sessionstore"
)

// Service drives the summarizer provider and records the result.
type Service struct {
	summarizer providers.Summarizer
	sessions   *sessionstore.Store
}

// New constructs a summary Service.
func New(summarizer providers.Summarizer, sessions *sessionstore.Store) *Service {
	return &Service{summarizer: summarizer, sessions: sessions}
}

// Summarize builds a labeled transcript from meetingID's session,
// requests a structured summary, and attaches it to the session.
func (s *Service) Summarize(ctx context.Context, meetingID string) (entities.Summary, error) {
	session, ok := s.sessions.Get(meetingID)
	if !ok {
		return entities.Summary{}, apperrors.NewNotFound("meeting session")
	}

	transcript := labeledTranscript(session)
	result, err := s.summarizer.Summarize(ctx, transcript)
	if err != nil {
		return entities.Summary{}, err
	}

	s.sessions.SetSummary(meetingID, &result)
	s.sessions.CleanupIfComplete(meetingID)
	return result, nil
}

func labeledTranscript(session *entities.MeetingSession) string {
	var b strings.Builder
	for _, u := range session.Utterances {
		name := u.SpeakerLabel
		if mr, ok := session.Speakers[u.SpeakerLabel]; ok && mr.Confidence == entities.ConfidenceHigh && mr.AssignedName != "" {
			name = mr.AssignedName
		}
		fmt.Fprintf(&b, "%s: %s\n", name, u.Text)
	}
	return b.String()
}
