package backend

import "encoding/json"

// The case API returns loosely-typed JSON. Wire shapes are decoded into the
// types below at the boundary and converted to strict results before any
// internal logic touches them.

// CreateCaseInput carries the draft fields the backend needs to open a case.
type CreateCaseInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ClientNotes string `json:"client_notes,omitempty"`
}

// CaseRecord is the strict result of a successful case creation.
type CaseRecord struct {
	ID string
}

// FileResult is the per-file record the upload interface returns.
type FileResult struct {
	OriginalName string `json:"original_name"`
	StoredName   string `json:"stored_name"`
	Category     string `json:"category"`
	Status       string `json:"status"`
}

// UploadOutcome reports per-file results plus per-file error strings.
// The upload interface is never all-or-nothing: stored files stay stored
// even when others are rejected server-side.
type UploadOutcome struct {
	Files  []FileResult
	Errors []string
}

// AllStored reports whether every file made it.
func (o UploadOutcome) AllStored() bool {
	return len(o.Errors) == 0
}

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type caseWire struct {
	ID     string `json:"id"`
	CaseID string `json:"case_id"`
}

type uploadWire struct {
	Files  []FileResult `json:"files"`
	Errors []string     `json:"errors"`
}

type limitsWire struct {
	MaxFileSizeBytes  int64    `json:"max_file_size_bytes"`
	MaxFileSizeMB     int64    `json:"max_file_size_mb"`
	MaxFileCount      int      `json:"max_file_count"`
	AllowedExtensions []string `json:"allowed_extensions"`
}
