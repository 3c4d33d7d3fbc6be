// Package identify implements C9: the staged, cancellable, event-streamed
// identification job. A pipeline goroutine runs the stages and writes
// Events to a channel; the HTTP handler drains that channel onto an SSE
// response, interleaving heartbeats, the same split the teacher uses
// between job execution and delivery for its async AI jobs.
package identify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hoangtranvan/speaker-id-service/internal/domain/entities"
	"github.com/hoangtranvan/speaker-id-service/internal/embedding"
	"github.com/hoangtranvan/speaker-id-service/internal/match"
	"github.com/hoangtranvan/speaker-id-service/internal/providers"
	"github.com/hoangtranvan/speaker-id-service/internal/segment"
	"github.com/hoangtranvan/speaker-id-service/internal/sessionstore"
	"github.com/hoangtranvan/speaker-id-service/pkg/audio"

	apperrors "github.com/hoangtranvan/speaker-id-service/errors"
)

// HeartbeatInterval is how often a heartbeat event is emitted during long
// stages.
const HeartbeatInterval = 15 * time.Second

// Stage names used in progress events.
const (
	StageTranscribing = "transcribing"
	StageConverting   = "converting"
	StageAnalyzing    = "analyzing"
	StageMatching     = "matching"
)

// Event is one SSE event emitted by a running job.
type Event struct {
	Type    string // "progress" | "done" | "error"; heartbeats are written by the HTTP handler, not sent as Events
	Stage   string
	Message string
	Done    *DoneResult
	Err     error
}

// DoneResult is the payload of the terminal "done" event.
type DoneResult struct {
	MeetingID       string
	Speakers        map[string]*entities.MatchResult
	Utterances      []entities.Utterance
	AudioDurationMS int64
	Language        string
}

// Job coordinates one identification run. CPU/IO-bound stages are gated
// by a bounded worker-pool semaphore so the event loop serving other
// connections stays responsive under load.
type Job struct {
	diarizer   providers.Diarizer
	matchStore match.Store
	sessions   *sessionstore.Store
	logger     *zap.Logger
	workDir    string
	workers    chan struct{}
}

// New constructs a Job coordinator with a worker pool of the given size.
func New(diarizer providers.Diarizer, matchStore match.Store, sessions *sessionstore.Store, workDir string, poolSize int, logger *zap.Logger) *Job {
	if poolSize <= 0 {
		poolSize = 1
	}
	return &Job{
		diarizer:   diarizer,
		matchStore: matchStore,
		sessions:   sessions,
		workDir:    workDir,
		logger:     logger,
		workers:    make(chan struct{}, poolSize),
	}
}

// Run executes the pipeline for deviceID against the uploaded file at
// uploadPath, streaming Events on the returned channel until it closes.
// The caller must drain the channel and interleave heartbeats; Run itself
// never sleeps for heartbeat purposes, it only reports stage transitions.
func (j *Job) Run(ctx context.Context, deviceID, uploadPath string) <-chan Event {
	events := make(chan Event, 8)

	go func() {
		defer close(events)
		defer os.Remove(uploadPath)

		select {
		case j.workers <- struct{}{}:
			defer func() { <-j.workers }()
		case <-ctx.Done():
			events <- Event{Type: "error", Err: apperrors.NewInternal(ctx.Err())}
			return
		}

		var stitchedPaths []string
		defer func() {
			for _, p := range stitchedPaths {
				os.Remove(p)
			}
		}()

		wavPath := ""
		sessionCreated := false
		defer func() {
			if wavPath != "" && !sessionCreated {
				os.Remove(wavPath)
			}
		}()

		if err := ctx.Err(); err != nil {
			events <- Event{Type: "error", Err: apperrors.NewInternal(err)}
			return
		}

		events <- Event{Type: "progress", Stage: StageTranscribing, Message: "sending audio to transcription provider"}
		diarized, err := j.diarizer.Diarize(ctx, uploadPath)
		if err != nil {
			events <- Event{Type: "error", Err: err}
			return
		}

		if ctx.Err() != nil {
			events <- Event{Type: "error", Err: apperrors.NewInternal(ctx.Err())}
			return
		}

		events <- Event{Type: "progress", Stage: StageConverting, Message: "converting audio to 16kHz mono"}
		wavPath = filepath.Join(j.workDir, uuid.NewString()+".wav")
		if err := audio.ToWAV16kMono(uploadPath, wavPath); err != nil {
			events <- Event{Type: "error", Err: apperrors.NewInvalidInput(fmt.Sprintf("could not convert audio: %v", err))}
			return
		}

		full, err := audio.Load(wavPath)
		if err != nil {
			events <- Event{Type: "error", Err: apperrors.NewInternal(err)}
			return
		}

		diarizedSpeakers := entities.GroupDiarizedSpeakers(diarized.Utterances)

		events <- Event{Type: "progress", Stage: StageAnalyzing, Message: "selecting and embedding per-speaker audio"}

		embeddings := make(map[string][entities.EmbeddingDim]float32, len(diarizedSpeakers))
		segmentsByLabel := make(map[string][]entities.Segment, len(diarizedSpeakers))
		lowQualityByLabel := make(map[string]bool, len(diarizedSpeakers))

		for label, speaker := range diarizedSpeakers {
			if ctx.Err() != nil {
				events <- Event{Type: "error", Err: apperrors.NewInternal(ctx.Err())}
				return
			}

			stitchedPath := filepath.Join(j.workDir, uuid.NewString()+"_"+label+".wav")
			selection, err := segment.Select(ctx, full, speaker.Utterances(diarized.Utterances), stitchedPath)
			if err != nil {
				if j.logger != nil {
					j.logger.Warn("identify: segment selection failed", zap.String("label", label), zap.Error(err))
				}
				lowQualityByLabel[label] = true
				continue
			}
			stitchedPaths = append(stitchedPaths, stitchedPath)
			segmentsByLabel[label] = selection.Segments
			lowQualityByLabel[label] = selection.LowQuality

			if selection.StitchedWAVPath == "" {
				continue
			}
			stitchedWave, err := audio.Load(selection.StitchedWAVPath)
			if err != nil {
				continue
			}
			emb, err := embedding.Extract(stitchedWave)
			if err != nil {
				continue
			}
			embeddings[label] = emb
		}

		events <- Event{Type: "progress", Stage: StageMatching, Message: "matching speakers against enrolled voiceprints"}
		results, err := match.Match(ctx, j.matchStore, embeddings)
		if err != nil {
			events <- Event{Type: "error", Err: err}
			return
		}

		for label := range diarizedSpeakers {
			if _, ok := results[label]; !ok {
				results[label] = entities.MatchResult{Confidence: entities.ConfidenceLow, LowQuality: true}
			}
			if mr, ok := results[label]; ok {
				mr.LowQuality = lowQualityByLabel[label]
				results[label] = mr
			}
		}

		meetingID, err := sessionstore.NewMeetingID()
		if err != nil {
			events <- Event{Type: "error", Err: apperrors.NewInternal(err)}
			return
		}

		session := entities.NewMeetingSession(meetingID, deviceID)
		session.AudioPath = wavPath
		session.Utterances = diarized.Utterances
		session.AudioDurationMS = full.DurationMS()

		for label := range diarizedSpeakers {
			mr := results[label]
			session.Speakers[label] = &mr
			session.SpeakerLowQuality[label] = lowQualityByLabel[label]
			session.SpeakerSegments[label] = segmentsByLabel[label]
			if emb, ok := embeddings[label]; ok {
				session.SpeakerEmbeddings[label] = emb
			}
			if mr.Confidence != entities.ConfidenceHigh {
				session.PendingSpeakers[label] = struct{}{}
			}
		}

		j.sessions.Create(deviceID, session)
		sessionCreated = true

		events <- Event{Type: "done", Done: &DoneResult{
			MeetingID:       meetingID,
			Speakers:        session.Speakers,
			Utterances:      session.Utterances,
			AudioDurationMS: session.AudioDurationMS,
			Language:        diarized.Language,
		}}
	}()

	return events
}
