package handler

import (
	"bufio"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	speakerdto "github.com/hoangtranvan/speaker-id-service/internal/adapter/dto/speaker"
	apperrors "github.com/hoangtranvan/speaker-id-service/errors"
	"github.com/hoangtranvan/speaker-id-service/internal/clip"
	"github.com/hoangtranvan/speaker-id-service/internal/confirm"
	"github.com/hoangtranvan/speaker-id-service/internal/domain/entities"
	"github.com/hoangtranvan/speaker-id-service/internal/identify"
	"github.com/hoangtranvan/speaker-id-service/internal/registry"
	"github.com/hoangtranvan/speaker-id-service/internal/sessionstore"
	"github.com/hoangtranvan/speaker-id-service/internal/singleflight"
	"github.com/hoangtranvan/speaker-id-service/internal/summary"
)

// Speaker wires the C1-C12 use cases into HTTP handlers.
type Speaker struct {
	registry *registry.Registry
	sessions *sessionstore.Store
	job      *identify.Job
	confirm  *confirm.Service
	summary  *summary.Service
	limiter  singleflight.Limiter
	workDir  string
	logger   *zap.Logger
}

// NewSpeaker constructs the Speaker handler.
func NewSpeaker(
	reg *registry.Registry,
	sessions *sessionstore.Store,
	job *identify.Job,
	confirmSvc *confirm.Service,
	summarySvc *summary.Service,
	limiter singleflight.Limiter,
	workDir string,
	logger *zap.Logger,
) *Speaker {
	return &Speaker{
		registry: reg,
		sessions: sessions,
		job:      job,
		confirm:  confirmSvc,
		summary:  summarySvc,
		limiter:  limiter,
		workDir:  workDir,
		logger:   logger,
	}
}

// Enroll handles POST /api/enroll.
func (h *Speaker) Enroll(c echo.Context) error {
	name := c.FormValue("name")
	if name == "" {
		return HandleError(h.logger, c, apperrors.NewInvalidInput("name is required"))
	}

	audioPath, cleanup, err := saveUpload(c, "audio", h.workDir)
	if err != nil {
		return HandleError(h.logger, c, apperrors.NewInvalidInput(fmt.Sprintf("audio upload required: %v", err)))
	}
	defer cleanup()

	result, err := h.registry.Enroll(c.Request().Context(), name, audioPath, 2)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, speakerdto.EnrollResponse{
		Speaker:      name,
		TotalSamples: result.SampleCount,
		Warning:      result.Warning,
	})
}

// EnrollFromMeeting handles POST /api/enroll-from-meeting.
func (h *Speaker) EnrollFromMeeting(c echo.Context) error {
	var req speakerdto.EnrollFromMeetingRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.NewInvalidInput("malformed request"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.NewInvalidInput(err.Error()))
	}

	result, err := h.confirm.EnrollFromMeeting(c.Request().Context(), req.MeetingID, req.SpeakerID, req.SpeakerName)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, speakerdto.EnrollResponse{
		Speaker:      req.SpeakerName,
		TotalSamples: result.SampleCount,
		Warning:      result.Warning,
	})
}

// Identify handles POST /api/identify, streaming progress via SSE.
func (h *Speaker) Identify(c echo.Context) error {
	device := deviceID(c)

	release, err := h.limiter.Acquire(c.Request().Context(), device)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	defer release()

	uploadPath, cleanup, err := saveUpload(c, "audio", h.workDir)
	if err != nil {
		cleanup()
		return HandleError(h.logger, c, apperrors.NewInvalidInput(fmt.Sprintf("audio upload required: %v", err)))
	}

	resp := c.Response()
	resp.Header().Set("Content-Type", "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	flusher, _ := resp.Writer.(http.Flusher)

	ctx := c.Request().Context()
	events := h.job.Run(ctx, device, uploadPath)

	heartbeat := time.NewTicker(identify.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			writeSSEEvent(resp.Writer, ev)
			if flusher != nil {
				flusher.Flush()
			}
			if ev.Type == "done" || ev.Type == "error" {
				return nil
			}
		case <-heartbeat.C:
			fmt.Fprint(resp.Writer, ": heartbeat\n\n")
			if flusher != nil {
				flusher.Flush()
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// MeetingSnapshot handles GET /api/meeting/{id}.
func (h *Speaker) MeetingSnapshot(c echo.Context) error {
	session, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		return HandleError(h.logger, c, apperrors.NewNotFound("meeting session"))
	}
	return HandleSuccess(h.logger, c, toSnapshot(session))
}

// SpeakerClip handles GET /api/meeting/{id}/speaker/{sid}/clip.
func (h *Speaker) SpeakerClip(c echo.Context) error {
	meetingID := c.Param("id")
	label := c.Param("sid")

	outPath := filepath.Join(h.workDir, uuid.NewString()+"_clip.wav")
	defer os.Remove(outPath)

	if err := clip.Build(h.sessions, meetingID, label, outPath); err != nil {
		return HandleError(h.logger, c, err)
	}
	return c.File(outPath)
}

// MeetingCleanup handles POST /api/meeting/{id}/cleanup.
func (h *Speaker) MeetingCleanup(c echo.Context) error {
	meetingID := c.Param("id")
	if _, ok := h.sessions.Get(meetingID); !ok {
		return HandleError(h.logger, c, apperrors.NewNotFound("meeting session"))
	}
	h.sessions.Delete(meetingID)
	return HandleSuccess(h.logger, c, speakerdto.OKResponse{OK: true})
}

// ConfirmSpeaker handles POST /api/confirm-speaker.
func (h *Speaker) ConfirmSpeaker(c echo.Context) error {
	var req speakerdto.ConfirmSpeakerRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.NewInvalidInput("malformed request"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.NewInvalidInput(err.Error()))
	}

	if err := h.confirm.ConfirmSpeaker(c.Request().Context(), req.MeetingID, req.SpeakerID, req.ConfirmedName, req.Enroll); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, speakerdto.OKResponse{OK: true})
}

// ListSpeakers handles GET /api/speakers.
func (h *Speaker) ListSpeakers(c echo.Context) error {
	list := h.registry.List()
	entries := make([]speakerdto.SpeakerListEntry, 0, len(list))
	for name, samples := range list {
		entries = append(entries, speakerdto.SpeakerListEntry{Name: name, Samples: samples})
	}
	return HandleSuccess(h.logger, c, speakerdto.SpeakerListResponse{Speakers: entries})
}

// DeleteSpeaker handles DELETE /api/speakers/{name}.
func (h *Speaker) DeleteSpeaker(c echo.Context) error {
	name := c.Param("name")
	if err := h.registry.Delete(c.Request().Context(), name); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, speakerdto.OKResponse{OK: true})
}

// SyncSpeakers handles POST /api/speakers/sync.
func (h *Speaker) SyncSpeakers(c echo.Context) error {
	count, err := h.registry.SyncFromStore(c.Request().Context())
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, speakerdto.SyncResponse{Count: count})
}

// SummarizeMeeting handles POST /api/meeting/{id}/summary.
func (h *Speaker) SummarizeMeeting(c echo.Context) error {
	meetingID := c.Param("id")
	result, err := h.summary.Summarize(c.Request().Context(), meetingID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, speakerdto.SummarizeResponse{Summary: speakerdto.SummaryResponse{
		Overview:    result.Overview,
		ActionItems: result.ActionItems,
		KeyPoints:   result.KeyPoints,
	}})
}

// Healthz handles GET /healthz.
func (h *Speaker) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func saveUpload(c echo.Context, field, workDir string) (string, func(), error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return "", func() {}, err
	}
	src, err := fileHeader.Open()
	if err != nil {
		return "", func() {}, err
	}
	defer src.Close()

	path := filepath.Join(workDir, uuid.NewString()+filepath.Ext(fileHeader.Filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", func() {}, err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", func() {}, err
	}

	return path, func() { os.Remove(path) }, nil
}

func writeSSEEvent(w io.Writer, ev identify.Event) {
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	switch ev.Type {
	case "progress":
		fmt.Fprintf(bw, "event: progress\ndata: {\"stage\":%q,\"message\":%q}\n\n", ev.Stage, ev.Message)
	case "done":
		fmt.Fprintf(bw, "event: done\ndata: %s\n\n", doneJSON(ev.Done))
	case "error":
		fmt.Fprintf(bw, "event: error\ndata: {\"message\":%q}\n\n", errorMessage(ev.Err))
	}
}

// errorMessage reports the client-safe message for a terminal job error:
// an AppError's sanitized Message, never its wrapped Raw cause.
func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr apperrors.AppError
	if stdErrors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}

func doneJSON(d *identify.DoneResult) string {
	if d == nil {
		return "{}"
	}
	speakers := make(map[string]speakerdto.MatchResultResponse, len(d.Speakers))
	for label, mr := range d.Speakers {
		speakers[label] = toMatchResultResponse(mr)
	}
	utterances := make([]speakerdto.UtteranceResponse, 0, len(d.Utterances))
	for _, u := range d.Utterances {
		utterances = append(utterances, speakerdto.UtteranceResponse{
			SpeakerLabel: u.SpeakerLabel,
			Text:         u.Text,
			StartMS:      u.StartMS,
			EndMS:        u.EndMS,
		})
	}

	b, err := json.Marshal(struct {
		MeetingID       string                                   `json:"meeting_id"`
		Speakers        map[string]speakerdto.MatchResultResponse `json:"speakers"`
		Utterances      []speakerdto.UtteranceResponse             `json:"utterances"`
		AudioDurationMS int64                                      `json:"audio_duration_ms"`
		Language        string                                     `json:"language"`
	}{
		MeetingID:       d.MeetingID,
		Speakers:        speakers,
		Utterances:      utterances,
		AudioDurationMS: d.AudioDurationMS,
		Language:        d.Language,
	})
	if err != nil {
		return "{}"
	}
	return string(b)
}

func toMatchResultResponse(mr *entities.MatchResult) speakerdto.MatchResultResponse {
	if mr == nil {
		return speakerdto.MatchResultResponse{Confidence: string(entities.ConfidenceLow)}
	}
	candidates := make([]speakerdto.CandidateResponse, 0, len(mr.Candidates))
	for _, c := range mr.Candidates {
		candidates = append(candidates, speakerdto.CandidateResponse{Name: c.Name, Score: c.Score})
	}
	return speakerdto.MatchResultResponse{
		Confidence:   string(mr.Confidence),
		AssignedName: mr.AssignedName,
		TopScore:     mr.TopScore,
		Margin:       mr.Margin,
		Candidates:   candidates,
		LowQuality:   mr.LowQuality,
	}
}

func toSnapshot(session *entities.MeetingSession) speakerdto.MeetingSnapshotResponse {
	speakers := make(map[string]speakerdto.MatchResultResponse, len(session.Speakers))
	for label, mr := range session.Speakers {
		speakers[label] = toMatchResultResponse(mr)
	}
	utterances := make([]speakerdto.UtteranceResponse, 0, len(session.Utterances))
	for _, u := range session.Utterances {
		utterances = append(utterances, speakerdto.UtteranceResponse{
			SpeakerLabel: u.SpeakerLabel,
			Text:         u.Text,
			StartMS:      u.StartMS,
			EndMS:        u.EndMS,
		})
	}
	pending := make([]string, 0, len(session.PendingSpeakers))
	for label := range session.PendingSpeakers {
		pending = append(pending, label)
	}

	var sum *speakerdto.SummaryResponse
	if session.Summary != nil {
		sum = &speakerdto.SummaryResponse{
			Overview:    session.Summary.Overview,
			ActionItems: session.Summary.ActionItems,
			KeyPoints:   session.Summary.KeyPoints,
		}
	}

	return speakerdto.MeetingSnapshotResponse{
		MeetingID:       session.MeetingID,
		AudioDurationMS: session.AudioDurationMS,
		Utterances:      utterances,
		Speakers:        speakers,
		PendingSpeakers: pending,
		Summary:         sum,
	}
}
