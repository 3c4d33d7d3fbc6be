// Package speaker holds the request/response shapes for the
// speaker-identification HTTP surface (enrollment, identification,
// session, confirmation, and summary endpoints).
package speaker

// EnrollFromMeetingRequest is the form body of POST /api/enroll-from-meeting.
type EnrollFromMeetingRequest struct {
	MeetingID   string `form:"meeting_id" validate:"required"`
	SpeakerID   string `form:"speaker_id" validate:"required"`
	SpeakerName string `form:"speaker_name" validate:"required,min=1,max=255"`
}

// ConfirmSpeakerRequest is the form body of POST /api/confirm-speaker.
type ConfirmSpeakerRequest struct {
	MeetingID     string `form:"meeting_id" validate:"required"`
	SpeakerID     string `form:"speaker_id" validate:"required"`
	ConfirmedName string `form:"confirmed_name" validate:"required,min=1,max=255"`
	Enroll        bool   `form:"enroll"`
}
