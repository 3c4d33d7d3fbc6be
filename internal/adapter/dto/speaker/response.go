package speaker

// EnrollResponse is the success body of POST /api/enroll and
// POST /api/enroll-from-meeting.
type EnrollResponse struct {
	Speaker      string `json:"speaker"`
	TotalSamples int    `json:"total_samples"`
	Warning      string `json:"warning,omitempty"`
}

// CandidateResponse mirrors entities.Candidate for the wire.
type CandidateResponse struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// MatchResultResponse mirrors entities.MatchResult for the wire.
type MatchResultResponse struct {
	Confidence   string              `json:"confidence"`
	AssignedName string              `json:"assigned_name,omitempty"`
	TopScore     float64             `json:"top_score"`
	Margin       float64             `json:"margin"`
	Candidates   []CandidateResponse `json:"candidates,omitempty"`
	LowQuality   bool                `json:"low_quality"`
}

// UtteranceResponse mirrors entities.Utterance for the wire.
type UtteranceResponse struct {
	SpeakerLabel string `json:"speaker_label"`
	Text         string `json:"text"`
	StartMS      int64  `json:"start_ms"`
	EndMS        int64  `json:"end_ms"`
}

// MeetingSnapshotResponse is the body of GET /api/meeting/{id}.
type MeetingSnapshotResponse struct {
	MeetingID       string                          `json:"meeting_id"`
	AudioDurationMS int64                           `json:"audio_duration_ms"`
	Utterances      []UtteranceResponse             `json:"utterances"`
	Speakers        map[string]MatchResultResponse  `json:"speakers"`
	PendingSpeakers []string                        `json:"pending_speakers"`
	Summary         *SummaryResponse                `json:"summary,omitempty"`
}

// SummaryResponse mirrors entities.Summary for the wire.
type SummaryResponse struct {
	Overview    string   `json:"overview"`
	ActionItems []string `json:"action_items"`
	KeyPoints   []string `json:"key_points"`
}

// SpeakerListEntry is one row of GET /api/speakers.
type SpeakerListEntry struct {
	Name    string `json:"name"`
	Samples int    `json:"samples"`
}

// SpeakerListResponse is the body of GET /api/speakers.
type SpeakerListResponse struct {
	Speakers []SpeakerListEntry `json:"speakers"`
}

// SyncResponse is the body of POST /api/speakers/sync.
type SyncResponse struct {
	Count int `json:"count"`
}

// OKResponse is the body of endpoints that only need to confirm success.
type OKResponse struct {
	OK bool `json:"ok"`
}

// SummarizeResponse is the body of POST /api/meeting/{id}/summary.
type SummarizeResponse struct {
	Summary SummaryResponse `json:"summary"`
}
