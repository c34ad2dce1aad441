package httpdto

// CreateSessionRequest is used for POST /v1/intake/sessions. The inline cap
// bounds voice recordings made from the description step.
type CreateSessionRequest struct {
	RequireClassification    *bool `json:"require_classification,omitempty"`
	AutoTranscribe           *bool `json:"auto_transcribe,omitempty"`
	InlineRecorderMaxSeconds *int  `json:"inline_recorder_max_seconds,omitempty"`
}

// CreateSessionResponse is returned after opening an intake session
type CreateSessionResponse struct {
	ID        string `json:"id"`
	State     string `json:"state"`
	Channel   string `json:"channel"`
	CreatedAt string `json:"created_at"`
}

// UpdateDraftRequest is used for PUT /v1/intake/sessions/:id/draft.
// Nil fields leave the stored value untouched.
type UpdateDraftRequest struct {
	Classification *string `json:"classification,omitempty"`
	Description    *string `json:"description,omitempty"`
	Expectation    *string `json:"expectation,omitempty"`
}

// StateResponse is returned by the advance/back transitions
type StateResponse struct {
	State string `json:"state"`
}

// AttachmentDTO represents a stored attachment in API responses
type AttachmentDTO struct {
	ID          string `json:"id"`
	FileName    string `json:"file_name"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentType string `json:"content_type"`
	Origin      string `json:"origin"`
	AddedAt     string `json:"added_at"`
}

// RejectionDTO explains why one uploaded file was not accepted
type RejectionDTO struct {
	FileName string `json:"file_name"`
	Reason   string `json:"reason"`
}

// AddDocumentsResponse is returned for multipart document uploads.
// Accepted and rejected files are reported independently.
type AddDocumentsResponse struct {
	Accepted []AttachmentDTO `json:"accepted"`
	Rejected []RejectionDTO  `json:"rejected"`
}

// CameraStartRequest is used for POST .../camera/start. PermissionDenied
// reports that the client refused device access.
type CameraStartRequest struct {
	PermissionDenied bool `json:"permission_denied"`
}

// CameraCaptureRequest is used for POST .../camera/capture
type CameraCaptureRequest struct {
	FileName    string `json:"file_name" binding:"required"`
	ContentType string `json:"content_type"`
	Frame       []byte `json:"frame" binding:"required"`
}

// VoiceStartRequest is used for POST .../voice/start
type VoiceStartRequest struct {
	ContentType      string `json:"content_type"`
	Inline           bool   `json:"inline"`
	PermissionDenied bool   `json:"permission_denied"`
}

// VoiceChunkRequest carries one chunk of recorded audio
type VoiceChunkRequest struct {
	Chunk []byte `json:"chunk" binding:"required"`
}

// RecordingDTO represents the session's voice recording
type RecordingDTO struct {
	ID                  string  `json:"id"`
	ContentType         string  `json:"content_type"`
	DurationSeconds     float64 `json:"duration_seconds"`
	Transcript          string  `json:"transcript,omitempty"`
	TranscriptionStatus string  `json:"transcription_status"`
	RecordedAt          string  `json:"recorded_at"`
}

// SubmitResponse is returned after submitting the case
type SubmitResponse struct {
	CaseID string          `json:"case_id"`
	Files  []FileResultDTO `json:"files"`
	Errors []string        `json:"errors,omitempty"`
	State  string          `json:"state"`
}

// FileResultDTO reports the backend's per-file upload outcome
type FileResultDTO struct {
	OriginalName string `json:"original_name"`
	StoredName   string `json:"stored_name,omitempty"`
	Category     string `json:"category,omitempty"`
	Status       string `json:"status"`
}

// LimitsResponse is returned by GET /v1/intake/limits
type LimitsResponse struct {
	MaxFileSizeBytes  int64    `json:"max_file_size_bytes"`
	MaxFileCount      int      `json:"max_file_count"`
	AllowedExtensions []string `json:"allowed_extensions"`
}
