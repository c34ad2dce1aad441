package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"lex-intake/internal/domain/intake"
	"lex-intake/internal/media"
	lex_errors "lex-intake/pkg/errors"
	"lex-intake/pkg/events"
	"lex-intake/pkg/logger"
)

// Session is one in-progress intake flow. The draft, attachment set, and
// adapters are owned exclusively by this session; every mutation goes
// through its mutex, so there are never concurrent writers.
type Session struct {
	ID        uuid.UUID
	UserID    string
	CreatedAt time.Time

	mu             sync.Mutex
	Wizard         *intake.Wizard
	Draft          *intake.CaseDraft
	Camera         *media.CameraAdapter
	Voice          *media.VoiceAdapter
	Limits         intake.UploadLimits
	AutoTranscribe bool
	submitting     bool

	inlineRecorderMax time.Duration

	// recGen counts recorder starts. A transcription result is only applied
	// while the generation it was requested under is still the latest, so a
	// clip that has already been superseded can never write into the draft.
	recGen uint64
}

// Channel is the event channel clients subscribe to for this session.
func (s *Session) Channel() string {
	return "intake:session:" + s.ID.String()
}

// SessionOptions tune a new session.
type SessionOptions struct {
	RequireClassification     bool
	AutoTranscribe            bool
	RecorderMaxDuration       time.Duration
	InlineRecorderMaxDuration time.Duration
}

// SessionSnapshot is a read-only view of a session, safe to serialize.
type SessionSnapshot struct {
	ID             uuid.UUID           `json:"id"`
	State          intake.WizardState  `json:"state"`
	Classification string              `json:"classification,omitempty"`
	Description    string              `json:"description,omitempty"`
	Expectation    string              `json:"expectation,omitempty"`
	CaseID         string              `json:"case_id,omitempty"`
	Attachments    []intake.Attachment `json:"attachments"`
	CameraState    media.CameraState   `json:"camera_state"`
	VoiceState     media.VoiceState    `json:"voice_state"`
	Recording      *intake.Recording   `json:"recording,omitempty"`
	Limits         intake.UploadLimits `json:"limits"`
}

// SessionService owns the in-memory session registry and every wizard
// operation short of submission.
type SessionService struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session

	limits         *LimitsService
	transcriptions *TranscriptionService
	publisher      events.Publisher
	logger         *logger.Logger

	opener media.Opener

	defaultRecorderMax time.Duration
	inlineRecorderMax  time.Duration
}

func NewSessionService(limits *LimitsService, transcriptions *TranscriptionService, publisher events.Publisher, l *logger.Logger, recorderMax, inlineRecorderMax time.Duration) *SessionService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &SessionService{
		sessions:           make(map[uuid.UUID]*Session),
		limits:             limits,
		transcriptions:     transcriptions,
		publisher:          publisher,
		logger:             l,
		opener:             media.RemoteOpener{},
		defaultRecorderMax: recorderMax,
		inlineRecorderMax:  inlineRecorderMax,
	}
}

// Create opens a new intake session for the user.
func (s *SessionService) Create(ctx context.Context, userID string, opts SessionOptions) *Session {
	limits := s.limits.Effective(ctx)
	draft := intake.NewCaseDraft(limits)

	recorderMax := opts.RecorderMaxDuration
	if recorderMax <= 0 {
		recorderMax = s.defaultRecorderMax
	}
	inlineMax := opts.InlineRecorderMaxDuration
	if inlineMax <= 0 {
		inlineMax = s.inlineRecorderMax
	}

	sess := &Session{
		ID:                uuid.New(),
		UserID:            userID,
		CreatedAt:         time.Now(),
		Wizard:            intake.NewWizard(draft, opts.RequireClassification),
		Draft:             draft,
		Camera:            media.NewCameraAdapter(s.opener),
		Limits:            limits,
		AutoTranscribe:    opts.AutoTranscribe,
		inlineRecorderMax: inlineMax,
	}
	sess.Voice = media.NewVoiceAdapter(s.opener, recorderMax, func(rec *intake.Recording) {
		s.handleAutoStop(sess, rec)
	})

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Infof("intake session %s opened for user %s", sess.ID, userID)
	}
	return sess
}

// Get returns the session or ErrNotFound.
func (s *SessionService) Get(id uuid.UUID) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, lex_errors.ErrNotFound
	}
	return sess, nil
}

// Abandon tears the session down. Both adapters release their streams, the
// draft is discarded, and the session disappears from the registry.
func (s *SessionService) Abandon(id uuid.UUID) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return lex_errors.ErrNotFound
	}

	sess.mu.Lock()
	sess.Camera.Release()
	sess.Voice.Release()
	sess.Draft.Recording = nil
	sess.mu.Unlock()

	s.publish(sess, events.EventTypeSessionAbandoned, map[string]string{"session_id": sess.ID.String()})
	if s.logger != nil {
		s.logger.Infof("intake session %s abandoned", sess.ID)
	}
	return nil
}

// Snapshot captures the session state for display.
func (s *SessionService) Snapshot(id uuid.UUID) (SessionSnapshot, error) {
	sess, err := s.Get(id)
	if err != nil {
		return SessionSnapshot{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	snap := SessionSnapshot{
		ID:             sess.ID,
		State:          sess.Wizard.State(),
		Classification: sess.Draft.Classification,
		Description:    sess.Draft.Description,
		Expectation:    sess.Draft.Expectation,
		Attachments:    sess.Draft.Attachments.List(),
		CameraState:    sess.Camera.State(),
		VoiceState:     sess.Voice.State(),
		Recording:      sess.Draft.Recording,
		Limits:         sess.Limits,
	}
	if sess.Draft.CaseID != nil {
		snap.CaseID = *sess.Draft.CaseID
	}
	return snap, nil
}

// AddDocuments validates and accepts a batch of picked/dropped files.
// Each candidate is checked independently; the rejected list carries the
// per-file reasons for user feedback.
func (s *SessionService) AddDocuments(id uuid.UUID, candidates []intake.Candidate) (intake.AddResult, error) {
	sess, err := s.Get(id)
	if err != nil {
		return intake.AddResult{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.Wizard.Finished() {
		return intake.AddResult{}, lex_errors.ErrSessionFinished
	}
	return sess.Draft.Attachments.Add(candidates...), nil
}

// RemoveDocument removes an attachment by its stable identity.
func (s *SessionService) RemoveDocument(id, attachmentID uuid.UUID) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if !sess.Draft.Attachments.Remove(attachmentID) {
		return fmt.Errorf("%w: attachment %s", lex_errors.ErrNotFound, attachmentID)
	}
	return nil
}

// UpdateDraft sets the free-text fields of the draft. Empty strings leave
// the corresponding field untouched.
func (s *SessionService) UpdateDraft(id uuid.UUID, classification, description, expectation *string) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.Wizard.Finished() {
		return lex_errors.ErrSessionFinished
	}
	if classification != nil {
		sess.Draft.Classification = *classification
	}
	if description != nil {
		sess.Draft.Description = *description
	}
	if expectation != nil {
		sess.Draft.Expectation = *expectation
	}
	return nil
}

// Advance moves the wizard forward. The final step is driven by Submit, not
// by Advance, so a submission can never be triggered twice from here.
func (s *SessionService) Advance(id uuid.UUID) (intake.WizardState, error) {
	sess, err := s.Get(id)
	if err != nil {
		return "", err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.Wizard.Advance(); err != nil {
		return sess.Wizard.State(), err
	}
	return sess.Wizard.State(), nil
}

// Back returns to document collection without discarding attachments.
func (s *SessionService) Back(id uuid.UUID) (intake.WizardState, error) {
	sess, err := s.Get(id)
	if err != nil {
		return "", err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.Wizard.Back(); err != nil {
		return sess.Wizard.State(), err
	}
	return sess.Wizard.State(), nil
}

// CameraStart acquires the (client-held) camera stream.
func (s *SessionService) CameraStart(ctx context.Context, id uuid.UUID) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.Camera.Start(ctx)
}

// CameraCapture validates the captured frame and, on success, adds it to the
// attachment set. Either way the camera stream is torn down.
func (s *SessionService) CameraCapture(id uuid.UUID, fileName, contentType string, frame []byte) (intake.Attachment, error) {
	sess, err := s.Get(id)
	if err != nil {
		return intake.Attachment{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.Camera.Capture(sess.Draft.Attachments, fileName, contentType, frame)
}

// CameraCancel tears the stream down without capturing.
func (s *SessionService) CameraCancel(id uuid.UUID) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.Camera.Cancel()
	return nil
}

// VoiceStart begins a new recording. Inline recordings (made while
// describing the situation) get the tighter duration cap.
func (s *SessionService) VoiceStart(ctx context.Context, id uuid.UUID, contentType string, inline bool) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	var maxDur time.Duration
	if inline {
		maxDur = sess.inlineRecorderMax
	}
	if err := sess.Voice.Start(ctx, contentType, maxDur); err != nil {
		return err
	}
	sess.recGen++
	return nil
}

// VoiceChunk appends audio to the in-progress recording.
func (s *SessionService) VoiceChunk(id uuid.UUID, chunk []byte) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	return sess.Voice.AppendChunk(chunk)
}

// VoicePause suspends the recorder without losing buffered audio.
func (s *SessionService) VoicePause(id uuid.UUID) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	return sess.Voice.Pause()
}

// VoiceResume continues the paused recording.
func (s *SessionService) VoiceResume(id uuid.UUID) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	return sess.Voice.Resume()
}

// VoiceStop finalizes the clip and, when auto-transcription is enabled,
// requests transcription exactly once.
func (s *SessionService) VoiceStop(ctx context.Context, id uuid.UUID) (*intake.Recording, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	rec, err := sess.Voice.Stop()
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.Draft.Recording = rec
	if sess.AutoTranscribe && s.transcriptions != nil {
		if reqErr := s.transcriptions.requestLocked(ctx, sess, rec); reqErr != nil && s.logger != nil {
			s.logger.Warnf("transcription request failed: %s", reqErr)
		}
	}
	return rec, nil
}

// VoiceDiscard drops the finalized recording.
func (s *SessionService) VoiceDiscard(id uuid.UUID) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.Voice.Discard(); err != nil {
		return err
	}
	sess.Draft.Recording = nil
	return nil
}

// RetryTranscription re-requests transcription after a failure. Retries are
// always user-triggered; nothing retries automatically.
func (s *SessionService) RetryTranscription(ctx context.Context, id uuid.UUID) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	rec := sess.Draft.Recording
	if rec == nil {
		return lex_errors.ErrNoRecording
	}
	if rec.TranscriptionStatus == intake.TranscriptionPending {
		return fmt.Errorf("%w: transcription in progress", lex_errors.ErrConflict)
	}
	rec.TranscriptionStatus = intake.TranscriptionNone
	return s.transcriptions.requestLocked(ctx, sess, rec)
}

// handleAutoStop runs when the duration cap fires; it mirrors VoiceStop.
func (s *SessionService) handleAutoStop(sess *Session, rec *intake.Recording) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.Draft.Recording = rec
	if sess.AutoTranscribe && s.transcriptions != nil {
		if err := s.transcriptions.requestLocked(context.Background(), sess, rec); err != nil && s.logger != nil {
			s.logger.Warnf("transcription request failed: %s", err)
		}
	}
}

func (s *SessionService) publish(sess *Session, eventType string, payload interface{}) {
	event := events.Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().Unix(),
	}
	if err := s.publisher.Publish(context.Background(), sess.Channel(), event); err != nil && s.logger != nil {
		s.logger.Warnf("publishing %s failed: %s", eventType, err)
	}
}
