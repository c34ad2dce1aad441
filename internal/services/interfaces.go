package services

import (
	"context"

	"lex-intake/internal/backend"
	"lex-intake/internal/domain/intake"
)

// CaseCreator is the consumed case-creation interface.
type CaseCreator interface {
	CreateCase(ctx context.Context, input backend.CreateCaseInput) (backend.CaseRecord, error)
}

// DocumentUploader is the consumed document-upload interface. It reports
// per-file results and errors; it is never all-or-nothing.
type DocumentUploader interface {
	UploadDocuments(ctx context.Context, caseID string, attachments []intake.Attachment) (backend.UploadOutcome, error)
}

// LimitsFetcher is the optional consumed upload-limits interface.
type LimitsFetcher interface {
	FetchLimits(ctx context.Context) (intake.UploadLimits, error)
}

// SpeechTranscriber is the consumed transcription interface: single-shot
// audio in, text out.
type SpeechTranscriber interface {
	Transcribe(ctx context.Context, audio []byte, fileName, contentType string) (string, error)
}

// LimitsStore caches backend-supplied limits between sessions.
type LimitsStore interface {
	Get(ctx context.Context) (*intake.UploadLimits, error)
	Set(ctx context.Context, limits intake.UploadLimits) error
}
