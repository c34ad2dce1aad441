package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lex-intake/internal/backend"
	"lex-intake/internal/domain/intake"
	lex_errors "lex-intake/pkg/errors"
	"lex-intake/pkg/events"
	"lex-intake/pkg/logger"
)

// SubmissionResult is what the wizard reports outward: the created case
// identity plus per-file upload results and errors.
type SubmissionResult struct {
	CaseID string               `json:"case_id"`
	Files  []backend.FileResult `json:"files"`
	Errors []string             `json:"errors,omitempty"`
}

// SubmissionService sequences case creation and document upload. Creation
// happens at most once per draft: once the backend confirms a case identity
// the draft keeps it, and any retry skips straight to the upload.
type SubmissionService struct {
	creator   CaseCreator
	uploader  DocumentUploader
	publisher events.Publisher
	logger    *logger.Logger

	// progress ticker knobs; cosmetic simulated percentages, not measured bytes
	tickEvery time.Duration
	tickStep  int
}

func NewSubmissionService(creator CaseCreator, uploader DocumentUploader, publisher events.Publisher, l *logger.Logger) *SubmissionService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &SubmissionService{
		creator:   creator,
		uploader:  uploader,
		publisher: publisher,
		logger:    l,
		tickEvery: 200 * time.Millisecond,
		tickStep:  4,
	}
}

// Submit finalizes the draft: create the backend case if needed, then upload
// the attachment set in insertion order. Partial upload failures are
// surfaced per file; stored files are never rolled back. On full success the
// wizard enters its terminal state; on any failure it stays where it is so
// the user can retry without re-entering anything.
func (s *SubmissionService) Submit(ctx context.Context, sess *Session) (SubmissionResult, error) {
	sess.mu.Lock()
	if sess.Wizard.Finished() {
		sess.mu.Unlock()
		return SubmissionResult{}, lex_errors.ErrSessionFinished
	}
	if sess.Wizard.State() != intake.StateDescribingSituation {
		sess.mu.Unlock()
		return SubmissionResult{}, fmt.Errorf("%w: collect documents and describe your situation first", lex_errors.ErrInvalidTransition)
	}
	if strings.TrimSpace(sess.Draft.Description) == "" {
		sess.mu.Unlock()
		return SubmissionResult{}, fmt.Errorf("%w: describe your situation first", lex_errors.ErrInvalidTransition)
	}
	if sess.submitting {
		sess.mu.Unlock()
		return SubmissionResult{}, fmt.Errorf("%w: submission already in progress", lex_errors.ErrConflict)
	}
	sess.submitting = true

	input := backend.CreateCaseInput{
		Title:       sess.Draft.Classification,
		Description: sess.Draft.Description,
		ClientNotes: sess.Draft.Expectation,
	}
	attachments := sess.Draft.Attachments.List()
	caseID := ""
	if sess.Draft.Created() {
		caseID = *sess.Draft.CaseID
	}
	sess.mu.Unlock()

	defer func() {
		sess.mu.Lock()
		sess.submitting = false
		sess.mu.Unlock()
	}()

	if caseID == "" {
		record, err := s.creator.CreateCase(ctx, input)
		if err != nil {
			// The draft stays intact; the user decides whether to retry.
			return SubmissionResult{}, fmt.Errorf("create case: %w", err)
		}
		caseID = record.ID

		sess.mu.Lock()
		id := record.ID
		sess.Draft.CaseID = &id
		sess.mu.Unlock()

		s.publish(sess, events.EventTypeCaseCreated, map[string]string{
			"session_id": sess.ID.String(),
			"case_id":    caseID,
		})
	}

	stopProgress := s.startProgress(sess)
	outcome, err := s.uploader.UploadDocuments(ctx, caseID, attachments)
	stopProgress()

	if err != nil {
		s.publish(sess, events.EventTypeUploadFailed, uploadPayload{
			SessionID: sess.ID.String(),
			CaseID:    caseID,
			Errors:    []string{err.Error()},
		})
		return SubmissionResult{CaseID: caseID}, fmt.Errorf("upload documents: %w", err)
	}

	result := SubmissionResult{
		CaseID: caseID,
		Files:  outcome.Files,
		Errors: outcome.Errors,
	}

	if !outcome.AllStored() {
		// Some files made it, some did not. Keep the wizard open so the
		// user can re-submit the failed ones.
		s.publish(sess, events.EventTypeUploadFailed, uploadPayload{
			SessionID: sess.ID.String(),
			CaseID:    caseID,
			Percent:   100,
			Errors:    outcome.Errors,
		})
		if s.logger != nil {
			s.logger.Warnf("case %s: %d of %d documents failed to upload", caseID, len(outcome.Errors), len(attachments))
		}
		return result, nil
	}

	sess.mu.Lock()
	wizardErr := sess.Wizard.Finish()
	sess.mu.Unlock()
	if wizardErr != nil && s.logger != nil {
		s.logger.Errorf("case %s: wizard completion failed: %s", caseID, wizardErr)
	}

	s.publish(sess, events.EventTypeUploadCompleted, uploadPayload{
		SessionID: sess.ID.String(),
		CaseID:    caseID,
		Percent:   100,
	})
	if s.logger != nil {
		s.logger.Infof("case %s created with %d documents", caseID, len(outcome.Files))
	}
	return result, nil
}

// startProgress emits simulated, monotonically increasing percentages while
// the upload call is in flight. The value is capped below 100 until the call
// resolves; completion events snap it to 100.
func (s *SubmissionService) startProgress(sess *Session) func() {
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.tickEvery)
		defer ticker.Stop()

		percent := s.tickStep
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.publish(sess, events.EventTypeUploadProgress, uploadPayload{
					SessionID: sess.ID.String(),
					Percent:   percent,
				})
				if percent < 90 {
					percent += s.tickStep
					if percent > 90 {
						percent = 90
					}
				}
			}
		}
	}()

	return func() {
		close(stop)
		<-done
	}
}

func (s *SubmissionService) publish(sess *Session, eventType string, payload interface{}) {
	event := events.Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().Unix(),
	}
	if err := s.publisher.Publish(context.Background(), sess.Channel(), event); err != nil && s.logger != nil {
		s.logger.Warnf("publishing %s failed: %s", eventType, err)
	}
}

type uploadPayload struct {
	SessionID string   `json:"session_id"`
	CaseID    string   `json:"case_id,omitempty"`
	Percent   int      `json:"percent"`
	Errors    []string `json:"errors,omitempty"`
}
