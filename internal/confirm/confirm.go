// Package confirm implements C10: the two post-identification operations
// that resolve a pending speaker label to an enrolled identity, either by
// confirming the matcher's medium-confidence guess or by enrolling a
// fresh name straight from the meeting's captured embedding.
package confirm

import (
	"context"

	"github.com/hoangtranvan/speaker-id-service/internal/domain/entities"
	apperrors "github.com/hoangtranvan/speaker-id-service/errors"
	"github.com/hoangtranvan/speaker-id-service/internal/registry"
	"github.com/hoangtranvan/speaker-id-service/internal/sessionstore"
)

// Registry is the subset of the voiceprint registry C10 depends on.
type Registry interface {
	EnrollFromMeeting(ctx context.Context, name string, emb [entities.EmbeddingDim]float32) (registry.EnrollResult, error)
}

// Service implements C10 over a session store and voiceprint registry.
type Service struct {
	sessions *sessionstore.Store
	registry Registry
}

// New constructs a confirm Service.
func New(sessions *sessionstore.Store, reg Registry) *Service {
	return &Service{sessions: sessions, registry: reg}
}

// ConfirmSpeaker implements confirm-speaker(meeting_id, label, confirmed_name, enroll).
func (s *Service) ConfirmSpeaker(ctx context.Context, meetingID, label, confirmedName string, enroll bool) error {
	session, ok := s.sessions.Get(meetingID)
	if !ok {
		return apperrors.NewNotFound("meeting session")
	}
	if !session.IsPending(label) {
		return apperrors.NewInvalidInput("speaker label is not pending confirmation")
	}
	mr, ok := session.Speakers[label]
	if !ok || mr.Confidence != entities.ConfidenceMedium {
		return apperrors.NewInvalidInput("speaker label does not have a medium-confidence match to confirm")
	}

	mr.AssignedName = confirmedName
	mr.Confidence = entities.ConfidenceHigh

	if enroll && !session.SpeakerLowQuality[label] {
		if emb, ok := session.SpeakerEmbeddings[label]; ok {
			if _, err := s.registry.EnrollFromMeeting(ctx, confirmedName, emb); err != nil {
				return err
			}
		}
	}

	s.sessions.MarkHandled(meetingID, label)
	s.sessions.CleanupIfComplete(meetingID)
	return nil
}

// EnrollFromMeeting implements enroll-from-meeting(meeting_id, label, name).
func (s *Service) EnrollFromMeeting(ctx context.Context, meetingID, label, name string) (registry.EnrollResult, error) {
	session, ok := s.sessions.Get(meetingID)
	if !ok {
		return registry.EnrollResult{}, apperrors.NewNotFound("meeting session")
	}
	if session.SpeakerLowQuality[label] {
		return registry.EnrollResult{}, apperrors.NewInsufficientSpeech("speaker audio quality is too low to enroll")
	}
	emb, ok := session.SpeakerEmbeddings[label]
	if !ok {
		return registry.EnrollResult{}, apperrors.NewNotFound("speaker embedding")
	}

	result, err := s.registry.EnrollFromMeeting(ctx, name, emb)
	if err != nil {
		return registry.EnrollResult{}, err
	}

	if mr, ok := session.Speakers[label]; ok {
		mr.AssignedName = name
		mr.Confidence = entities.ConfidenceHigh
	}
	s.sessions.MarkHandled(meetingID, label)
	s.sessions.CleanupIfComplete(meetingID)
	return result, nil
}
