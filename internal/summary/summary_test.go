package summary

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hoangtranvan/speaker-id-service/internal/domain/entities"
	"github.com/hoangtranvan/speaker-id-service/internal/sessionstore"
)

type fakeSummarizer struct {
	gotTranscript string
	result        entities.Summary
	err           error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, transcript string) (entities.Summary, error) {
	f.gotTranscript = transcript
	return f.result, f.err
}

func TestSummarizeUsesAssignedNameForHighConfidence(t *testing.T) {
	sessions := sessionstore.New(time.Hour, nil)
	defer sessions.Close()

	session := entities.NewMeetingSession("meeting-1", "device-a")
	session.Utterances = []entities.Utterance{
		{SpeakerLabel: "A", Text: "hello there"},
		{SpeakerLabel: "B", Text: "hi back"},
	}
	session.Speakers["A"] = &entities.MatchResult{Confidence: entities.ConfidenceHigh, AssignedName: "alice"}
	session.Speakers["B"] = &entities.MatchResult{Confidence: entities.ConfidenceMedium, AssignedName: ""}
	sessions.Create("device-a", session)

	fake := &fakeSummarizer{result: entities.Summary{Overview: "a quick chat"}}
	svc := New(fake, sessions)

	result, err := svc.Summarize(context.Background(), "meeting-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Overview != "a quick chat" {
		t.Fatalf("expected the summarizer's result to be returned, got %+v", result)
	}
	if !strings.Contains(fake.gotTranscript, "alice: hello there") {
		t.Fatalf("expected the high-confidence speaker's assigned name in the transcript, got %q", fake.gotTranscript)
	}
	if !strings.Contains(fake.gotTranscript, "B: hi back") {
		t.Fatalf("expected the raw label for a non-high-confidence speaker, got %q", fake.gotTranscript)
	}
}

func TestSummarizeUnknownMeetingErrors(t *testing.T) {
	sessions := sessionstore.New(time.Hour, nil)
	defer sessions.Close()

	svc := New(&fakeSummarizer{}, sessions)
	if _, err := svc.Summarize(context.Background(), "no-such-meeting"); err == nil {
		t.Fatalf("expected an error for an unknown meeting")
	}
}

func TestSummarizeAttachesSummaryToSession(t *testing.T) {
	sessions := sessionstore.New(time.Hour, nil)
	defer sessions.Close()

	session := entities.NewMeetingSession("meeting-1", "device-a")
	session.PendingSpeakers["A"] = struct{}{}
	sessions.Create("device-a", session)

	fake := &fakeSummarizer{result: entities.Summary{Overview: "done"}}
	svc := New(fake, sessions)

	if _, err := svc.Summarize(context.Background(), "meeting-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := sessions.Get("meeting-1")
	if !ok {
		t.Fatalf("expected the session to still exist (a speaker is still pending, so cleanup must not run)")
	}
	if got.Summary == nil || got.Summary.Overview != "done" {
		t.Fatalf("expected the summary to be attached to the session, got %+v", got.Summary)
	}
}
