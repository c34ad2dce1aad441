package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"lex-intake/internal/auth"
	"lex-intake/internal/domain/intake"
	"lex-intake/internal/media"
	"lex-intake/internal/services"
	"lex-intake/internal/transport/httpdto"
	lex_errors "lex-intake/pkg/errors"
	"lex-intake/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type IntakeHandler struct {
	sessions    *services.SessionService
	submissions *services.SubmissionService
	limits      *services.LimitsService
	defaults    services.SessionOptions
}

func NewIntakeHandler(sessions *services.SessionService, submissions *services.SubmissionService, limits *services.LimitsService, defaults services.SessionOptions) *IntakeHandler {
	return &IntakeHandler{
		sessions:    sessions,
		submissions: submissions,
		limits:      limits,
		defaults:    defaults,
	}
}

func (h *IntakeHandler) CreateSession(c *gin.Context) {
	subject, ok := auth.SubjectFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	var req httpdto.CreateSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
			return
		}
	}

	opts := h.defaults
	if req.RequireClassification != nil {
		opts.RequireClassification = *req.RequireClassification
	}
	if req.AutoTranscribe != nil {
		opts.AutoTranscribe = *req.AutoTranscribe
	}
	if req.InlineRecorderMaxSeconds != nil && *req.InlineRecorderMaxSeconds > 0 {
		opts.InlineRecorderMaxDuration = time.Duration(*req.InlineRecorderMaxSeconds) * time.Second
	}

	sess := h.sessions.Create(c.Request.Context(), subject, opts)
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.CreateSessionResponse{
		ID:        sess.ID.String(),
		State:     string(intake.StateCollectingDocuments),
		Channel:   sess.Channel(),
		CreatedAt: sess.CreatedAt.Format(time.RFC3339),
	}))
}

func (h *IntakeHandler) GetSession(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	snap, err := h.sessions.Snapshot(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(snap))
}

func (h *IntakeHandler) AbandonSession(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	if err := h.sessions.Abandon(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

// AddDocuments accepts a multipart form with one or more "files" parts. Each
// file is validated independently; accepted and rejected files come back in
// the same response.
func (h *IntakeHandler) AddDocuments(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid multipart form", "INVALID_REQUEST"))
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("no files provided", "INVALID_REQUEST"))
		return
	}

	candidates := make([]intake.Candidate, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("unreadable file part", "INVALID_REQUEST"))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("unreadable file part", "INVALID_REQUEST"))
			return
		}
		candidates = append(candidates, intake.Candidate{
			FileName:     fh.Filename,
			SizeBytes:    fh.Size,
			DeclaredType: fh.Header.Get("Content-Type"),
			Origin:       intake.OriginPicked,
			Data:         data,
		})
	}

	result, err := h.sessions.AddDocuments(id, candidates)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(toAddDocumentsResponse(result)))
}

func (h *IntakeHandler) RemoveDocument(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	attachmentID, err := uuid.Parse(c.Param("attachmentID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid attachment id", "INVALID_REQUEST"))
		return
	}
	if err := h.sessions.RemoveDocument(id, attachmentID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *IntakeHandler) UpdateDraft(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	var req httpdto.UpdateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	if err := h.sessions.UpdateDraft(id, req.Classification, req.Description, req.Expectation); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *IntakeHandler) Advance(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	state, err := h.sessions.Advance(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.StateResponse{State: string(state)}))
}

func (h *IntakeHandler) Back(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	state, err := h.sessions.Back(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.StateResponse{State: string(state)}))
}

func (h *IntakeHandler) CameraStart(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	var req httpdto.CameraStartRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
			return
		}
	}
	ctx := c.Request.Context()
	if req.PermissionDenied {
		ctx = media.WithRemoteDenied(ctx)
	}
	if err := h.sessions.CameraStart(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *IntakeHandler) CameraCapture(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	var req httpdto.CameraCaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	att, err := h.sessions.CameraCapture(id, req.FileName, req.ContentType, req.Frame)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(toAttachmentDTO(att)))
}

func (h *IntakeHandler) CameraCancel(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	if err := h.sessions.CameraCancel(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *IntakeHandler) VoiceStart(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	var req httpdto.VoiceStartRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
			return
		}
	}
	ctx := c.Request.Context()
	if req.PermissionDenied {
		ctx = media.WithRemoteDenied(ctx)
	}
	if err := h.sessions.VoiceStart(ctx, id, req.ContentType, req.Inline); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *IntakeHandler) VoiceChunk(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	var req httpdto.VoiceChunkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	if err := h.sessions.VoiceChunk(id, req.Chunk); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *IntakeHandler) VoicePause(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	if err := h.sessions.VoicePause(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *IntakeHandler) VoiceResume(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	if err := h.sessions.VoiceResume(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *IntakeHandler) VoiceStop(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	rec, err := h.sessions.VoiceStop(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(toRecordingDTO(rec)))
}

func (h *IntakeHandler) VoiceDiscard(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	if err := h.sessions.VoiceDiscard(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *IntakeHandler) Transcribe(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	if err := h.sessions.RetryTranscription(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, httpdto.NewSuccessResponse[any](nil))
}

func (h *IntakeHandler) Submit(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	sess, err := h.sessions.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	result, err := h.submissions.Submit(c.Request.Context(), sess)
	if err != nil {
		respondSubmitError(c, err)
		return
	}

	files := make([]httpdto.FileResultDTO, 0, len(result.Files))
	for _, f := range result.Files {
		files = append(files, httpdto.FileResultDTO{
			OriginalName: f.OriginalName,
			StoredName:   f.StoredName,
			Category:     f.Category,
			Status:       f.Status,
		})
	}
	snap, _ := h.sessions.Snapshot(id)
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.SubmitResponse{
		CaseID: result.CaseID,
		Files:  files,
		Errors: result.Errors,
		State:  string(snap.State),
	}))
}

func (h *IntakeHandler) Limits(c *gin.Context) {
	limits := h.limits.Effective(c.Request.Context())
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.LimitsResponse{
		MaxFileSizeBytes:  limits.MaxFileSizeBytes,
		MaxFileCount:      limits.MaxFileCount,
		AllowedExtensions: limits.AllowedExtensions,
	}))
}

// sessionID resolves the :id parameter and enforces ownership: a session is
// only visible to the user who opened it. Foreign sessions answer exactly
// like missing ones.
func (h *IntakeHandler) sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid session id", "INVALID_REQUEST"))
		return uuid.Nil, false
	}
	subject, _ := auth.SubjectFromContext(c.Request.Context())
	sess, err := h.sessions.Get(id)
	if err != nil {
		respondError(c, err)
		return uuid.Nil, false
	}
	if sess.UserID != subject {
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("session not found", "NOT_FOUND"))
		return uuid.Nil, false
	}
	ctx := context.WithValue(c.Request.Context(), logger.SessionIdKey, id.String())
	c.Request = c.Request.WithContext(ctx)
	return id, true
}

func toAttachmentDTO(a intake.Attachment) httpdto.AttachmentDTO {
	return httpdto.AttachmentDTO{
		ID:          a.ID.String(),
		FileName:    a.FileName,
		SizeBytes:   a.SizeBytes,
		ContentType: a.ContentType,
		Origin:      string(a.Origin),
		AddedAt:     a.AddedAt.Format(time.RFC3339),
	}
}

func toAddDocumentsResponse(result intake.AddResult) httpdto.AddDocumentsResponse {
	resp := httpdto.AddDocumentsResponse{
		Accepted: make([]httpdto.AttachmentDTO, 0, len(result.Accepted)),
		Rejected: make([]httpdto.RejectionDTO, 0, len(result.Rejected)),
	}
	for _, a := range result.Accepted {
		resp.Accepted = append(resp.Accepted, toAttachmentDTO(a))
	}
	for _, r := range result.Rejected {
		resp.Rejected = append(resp.Rejected, httpdto.RejectionDTO{FileName: r.FileName, Reason: r.Reason})
	}
	return resp
}

func toRecordingDTO(rec *intake.Recording) httpdto.RecordingDTO {
	return httpdto.RecordingDTO{
		ID:                  rec.ID.String(),
		ContentType:         rec.ContentType,
		DurationSeconds:     rec.Duration.Seconds(),
		Transcript:          rec.Transcript,
		TranscriptionStatus: string(rec.TranscriptionStatus),
		RecordedAt:          rec.RecordedAt.Format(time.RFC3339),
	}
}

// respondError maps domain sentinels onto HTTP statuses. Validation failures
// are client errors and never reach the backend.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, lex_errors.ErrNotFound):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse(err.Error(), "NOT_FOUND"))
	case errors.Is(err, lex_errors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "INVALID_REQUEST"))
	case errors.Is(err, lex_errors.ErrFileTooLarge):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "FILE_TOO_LARGE"))
	case errors.Is(err, lex_errors.ErrFileTypeNotAllowed):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "FILE_TYPE_NOT_ALLOWED"))
	case errors.Is(err, lex_errors.ErrTooManyFiles):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "TOO_MANY_FILES"))
	case errors.Is(err, lex_errors.ErrDeviceDenied):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse(err.Error(), "DEVICE_DENIED"))
	case errors.Is(err, lex_errors.ErrRecorderBusy):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse(err.Error(), "RECORDER_BUSY"))
	case errors.Is(err, lex_errors.ErrNoRecording):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse(err.Error(), "NO_RECORDING"))
	case errors.Is(err, lex_errors.ErrInvalidTransition):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse(err.Error(), "INVALID_TRANSITION"))
	case errors.Is(err, lex_errors.ErrSessionFinished):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse(err.Error(), "SESSION_FINISHED"))
	case errors.Is(err, lex_errors.ErrConflict):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse(err.Error(), "CONFLICT"))
	case errors.Is(err, lex_errors.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse(err.Error(), "RATE_LIMITED"))
	case errors.Is(err, lex_errors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse(err.Error(), "UNAUTHORIZED"))
	case errors.Is(err, lex_errors.ErrForbidden):
		c.JSON(http.StatusForbidden, httpdto.NewErrorResponse(err.Error(), "FORBIDDEN"))
	case errors.Is(err, lex_errors.ErrServiceUnavailable):
		c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "SERVICE_UNAVAILABLE"))
	default:
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse(err.Error(), "INTERNAL_ERROR"))
	}
}

// respondSubmitError treats unrecognized failures as backend faults: the
// session survives intact so the user can retry.
func respondSubmitError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, lex_errors.ErrNotFound),
		errors.Is(err, lex_errors.ErrInvalidInput),
		errors.Is(err, lex_errors.ErrInvalidTransition),
		errors.Is(err, lex_errors.ErrSessionFinished),
		errors.Is(err, lex_errors.ErrConflict),
		errors.Is(err, lex_errors.ErrUnauthorized):
		respondError(c, err)
	default:
		c.JSON(http.StatusBadGateway, httpdto.NewErrorResponse(err.Error(), "BACKEND_ERROR"))
	}
}
