package confirm

import (
	"context"
	"testing"
	"time"

	"github.com/hoangtranvan/speaker-id-service/internal/domain/entities"
	"github.com/hoangtranvan/speaker-id-service/internal/registry"
	"github.com/hoangtranvan/speaker-id-service/internal/sessionstore"
)

type fakeRegistry struct {
	calls []string
}

func (f *fakeRegistry) EnrollFromMeeting(ctx context.Context, name string, emb [entities.EmbeddingDim]float32) (registry.EnrollResult, error) {
	f.calls = append(f.calls, name)
	return registry.EnrollResult{SampleCount: 1}, nil
}

func newPendingSession(meetingID, label string, confidence entities.Confidence, lowQuality bool) *entities.MeetingSession {
	session := entities.NewMeetingSession(meetingID, "device-a")
	session.Speakers[label] = &entities.MatchResult{Confidence: confidence}
	session.SpeakerEmbeddings[label] = [entities.EmbeddingDim]float32{}
	session.SpeakerLowQuality[label] = lowQuality
	session.PendingSpeakers[label] = struct{}{}
	return session
}

func TestConfirmSpeakerPromotesMediumToHigh(t *testing.T) {
	sessions := sessionstore.New(time.Hour, nil)
	defer sessions.Close()
	session := newPendingSession("meeting-1", "A", entities.ConfidenceMedium, false)
	sessions.Create("device-a", session)

	reg := &fakeRegistry{}
	svc := New(sessions, reg)

	if err := svc.ConfirmSpeaker(context.Background(), "meeting-1", "A", "alice", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Speakers["A"].Confidence != entities.ConfidenceHigh {
		t.Fatalf("expected confidence to be promoted to high")
	}
	if session.Speakers["A"].AssignedName != "alice" {
		t.Fatalf("expected assigned name alice, got %q", session.Speakers["A"].AssignedName)
	}
	if len(reg.calls) != 0 {
		t.Fatalf("expected no enrollment call when enroll=false")
	}
}

func TestConfirmSpeakerWithEnrollCallsRegistry(t *testing.T) {
	sessions := sessionstore.New(time.Hour, nil)
	defer sessions.Close()
	session := newPendingSession("meeting-1", "A", entities.ConfidenceMedium, false)
	sessions.Create("device-a", session)

	reg := &fakeRegistry{}
	svc := New(sessions, reg)

	if err := svc.ConfirmSpeaker(context.Background(), "meeting-1", "A", "alice", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reg.calls) != 1 || reg.calls[0] != "alice" {
		t.Fatalf("expected one enrollment call for alice, got %v", reg.calls)
	}
}

func TestConfirmSpeakerRejectsNonMediumConfidence(t *testing.T) {
	sessions := sessionstore.New(time.Hour, nil)
	defer sessions.Close()
	session := newPendingSession("meeting-1", "A", entities.ConfidenceHigh, false)
	sessions.Create("device-a", session)

	svc := New(sessions, &fakeRegistry{})
	if err := svc.ConfirmSpeaker(context.Background(), "meeting-1", "A", "alice", false); err == nil {
		t.Fatalf("expected an error confirming an already-high-confidence label")
	}
}

func TestConfirmSpeakerRejectsUnknownMeeting(t *testing.T) {
	sessions := sessionstore.New(time.Hour, nil)
	defer sessions.Close()
	svc := New(sessions, &fakeRegistry{})

	if err := svc.ConfirmSpeaker(context.Background(), "no-such-meeting", "A", "alice", false); err == nil {
		t.Fatalf("expected an error for an unknown meeting")
	}
}

func TestEnrollFromMeetingRejectsLowQuality(t *testing.T) {
	sessions := sessionstore.New(time.Hour, nil)
	defer sessions.Close()
	session := newPendingSession("meeting-1", "A", entities.ConfidenceLow, true)
	sessions.Create("device-a", session)

	svc := New(sessions, &fakeRegistry{})
	if _, err := svc.EnrollFromMeeting(context.Background(), "meeting-1", "A", "alice"); err == nil {
		t.Fatalf("expected an error enrolling a low-quality speaker")
	}
}

func TestEnrollFromMeetingSucceeds(t *testing.T) {
	sessions := sessionstore.New(time.Hour, nil)
	defer sessions.Close()
	session := newPendingSession("meeting-1", "A", entities.ConfidenceLow, false)
	sessions.Create("device-a", session)

	reg := &fakeRegistry{}
	svc := New(sessions, reg)
	result, err := svc.EnrollFromMeeting(context.Background(), "meeting-1", "A", "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SampleCount != 1 {
		t.Fatalf("expected the registry's sample count to be surfaced, got %d", result.SampleCount)
	}
	if session.Speakers["A"].Confidence != entities.ConfidenceHigh {
		t.Fatalf("expected confidence promoted to high after enroll-from-meeting")
	}
	if len(reg.calls) != 1 {
		t.Fatalf("expected exactly one registry call")
	}
}
