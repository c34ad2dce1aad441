package intake

import (
	"time"

	"github.com/google/uuid"
)

// AttachmentOrigin identifies how an attachment entered the case draft.
type AttachmentOrigin string

const (
	OriginPicked AttachmentOrigin = "picked"
	OriginCamera AttachmentOrigin = "camera"
)

// Attachment is a validated file accepted into the current case draft.
// Its ID is assigned at add-time and stays stable for the session.
type Attachment struct {
	ID          uuid.UUID        `json:"id"`
	FileName    string           `json:"file_name"`
	SizeBytes   int64            `json:"size_bytes"`
	ContentType string           `json:"content_type"`
	Origin      AttachmentOrigin `json:"origin"`
	Data        []byte           `json:"-"`
	AddedAt     time.Time        `json:"added_at"`
}

// TranscriptionStatus tracks the asynchronous transcription of a Recording.
type TranscriptionStatus string

const (
	TranscriptionNone    TranscriptionStatus = "none"
	TranscriptionPending TranscriptionStatus = "pending"
	TranscriptionDone    TranscriptionStatus = "done"
	TranscriptionFailed  TranscriptionStatus = "failed"
)

// Recording is a finalized audio clip produced by the voice recorder.
// At most one Recording is live per intake session; its ID doubles as the
// transcription generation, so a stale transcription result can be detected.
type Recording struct {
	ID                  uuid.UUID           `json:"id"`
	Data                []byte              `json:"-"`
	ContentType         string              `json:"content_type"`
	Duration            time.Duration       `json:"duration_ms"`
	Transcript          string              `json:"transcript,omitempty"`
	TranscriptionStatus TranscriptionStatus `json:"transcription_status"`
	RecordedAt          time.Time           `json:"recorded_at"`
}

// CaseDraft is the not-yet-persisted case being assembled by the wizard.
// CaseID stays nil until the backend confirms creation; it is set exactly once.
type CaseDraft struct {
	Classification string
	Description    string
	Expectation    string
	CaseID         *string
	Attachments    *AttachmentSet
	Recording      *Recording
}

func NewCaseDraft(limits UploadLimits) *CaseDraft {
	return &CaseDraft{
		Attachments: NewAttachmentSet(NewValidator(limits)),
	}
}

// Created reports whether the backend case record exists.
func (d *CaseDraft) Created() bool {
	return d.CaseID != nil && *d.CaseID != ""
}

// AppendExpectation merges transcribed text into the expectation narrative
// without replacing anything the user already typed.
func (d *CaseDraft) AppendExpectation(text string) {
	if text == "" {
		return
	}
	if d.Expectation == "" {
		d.Expectation = text
		return
	}
	d.Expectation = d.Expectation + "\n" + text
}
