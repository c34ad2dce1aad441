package services

import (
	"context"
	"time"

	"lex-intake/internal/domain/intake"
	lex_errors "lex-intake/pkg/errors"
	"lex-intake/pkg/events"
	"lex-intake/pkg/logger"
)

// TranscriptionService runs the asynchronous speech-to-text flow for a
// session's live Recording. Requests are single-flight per recording:
// a result is only applied while the recording it belongs to is still the
// session's current one. Failures are retryable by explicit user action,
// never automatically.
type TranscriptionService struct {
	transcriber SpeechTranscriber
	publisher   events.Publisher
	logger      *logger.Logger
}

func NewTranscriptionService(transcriber SpeechTranscriber, publisher events.Publisher, l *logger.Logger) *TranscriptionService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &TranscriptionService{
		transcriber: transcriber,
		publisher:   publisher,
		logger:      l,
	}
}

// Request kicks off transcription for the session's current recording.
func (s *TranscriptionService) Request(ctx context.Context, sess *Session, rec *intake.Recording) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.requestLocked(ctx, sess, rec)
}

// requestLocked starts the async transcription. The caller holds sess.mu.
func (s *TranscriptionService) requestLocked(ctx context.Context, sess *Session, rec *intake.Recording) error {
	if rec == nil || len(rec.Data) == 0 {
		return lex_errors.ErrNoRecording
	}
	if rec.TranscriptionStatus == intake.TranscriptionPending {
		return nil // already in flight
	}
	rec.TranscriptionStatus = intake.TranscriptionPending

	s.publish(sess, events.EventTypeTranscriptionStarted, transcriptionPayload{
		SessionID:   sess.ID.String(),
		RecordingID: rec.ID.String(),
	})

	go s.run(context.WithoutCancel(ctx), sess, rec, sess.recGen)
	return nil
}

func (s *TranscriptionService) run(ctx context.Context, sess *Session, rec *intake.Recording, gen uint64) {
	text, err := s.transcriber.Transcribe(ctx, rec.Data, "recording.webm", rec.ContentType)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	// Starting a newer recording, replacing the clip, or discarding it all
	// invalidate this result.
	current := sess.Draft.Recording
	if sess.recGen != gen || current == nil || current.ID != rec.ID {
		if s.logger != nil {
			s.logger.Infof("dropping stale transcription result for recording %s", rec.ID)
		}
		return
	}

	if err != nil {
		rec.TranscriptionStatus = intake.TranscriptionFailed
		if s.logger != nil {
			s.logger.Errorf("transcription failed for recording %s: %s", rec.ID, err)
		}
		s.publish(sess, events.EventTypeTranscriptionFailed, transcriptionPayload{
			SessionID:   sess.ID.String(),
			RecordingID: rec.ID.String(),
			Error:       err.Error(),
		})
		return
	}

	rec.Transcript = text
	rec.TranscriptionStatus = intake.TranscriptionDone
	sess.Draft.AppendExpectation(text)

	s.publish(sess, events.EventTypeTranscriptionCompleted, transcriptionPayload{
		SessionID:   sess.ID.String(),
		RecordingID: rec.ID.String(),
		Text:        text,
	})
}

func (s *TranscriptionService) publish(sess *Session, eventType string, payload interface{}) {
	event := events.Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().Unix(),
	}
	if err := s.publisher.Publish(context.Background(), sess.Channel(), event); err != nil && s.logger != nil {
		s.logger.Warnf("publishing %s failed: %s", eventType, err)
	}
}

type transcriptionPayload struct {
	SessionID   string `json:"session_id"`
	RecordingID string `json:"recording_id"`
	Text        string `json:"text,omitempty"`
	Error       string `json:"error,omitempty"`
}
