package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"lex-intake/internal/backend"
	"lex-intake/internal/domain/intake"
	"lex-intake/internal/media"
	lex_errors "lex-intake/pkg/errors"
	"lex-intake/pkg/events"
)

// memPublisher records published events for assertions. Safe for use from
// the transcription and progress goroutines.
type memPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *memPublisher) Publish(ctx context.Context, channel string, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *memPublisher) byType(eventType string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fakeTranscriber struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
	gate  chan struct{} // when non-nil, Transcribe blocks until closed
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, fileName, contentType string) (string, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	text, err := f.text, f.err
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return text, err
}

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCreator struct {
	mu    sync.Mutex
	calls int
	id    string
	err   error
}

func (f *fakeCreator) CreateCase(ctx context.Context, input backend.CreateCaseInput) (backend.CaseRecord, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return backend.CaseRecord{}, f.err
	}
	return backend.CaseRecord{ID: f.id}, nil
}

type fakeUploader struct {
	mu      sync.Mutex
	calls   int
	outcome backend.UploadOutcome
	err     error
	delay   time.Duration
	entered chan struct{} // when non-nil, receives once per call
	gate    chan struct{} // when non-nil, calls block until closed
}

func (f *fakeUploader) UploadDocuments(ctx context.Context, caseID string, attachments []intake.Attachment) (backend.UploadOutcome, error) {
	f.mu.Lock()
	f.calls++
	entered, gate := f.entered, f.gate
	delay := f.delay
	outcome, err := f.outcome, f.err
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return backend.UploadOutcome{}, err
	}
	return outcome, nil
}

type testEnv struct {
	sessions    *SessionService
	submissions *SubmissionService
	publisher   *memPublisher
	transcriber *fakeTranscriber
	creator     *fakeCreator
	uploader    *fakeUploader
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	pub := &memPublisher{}
	transcriber := &fakeTranscriber{text: "I want my deposit back"}
	creator := &fakeCreator{id: "case-42"}
	uploader := &fakeUploader{}

	limits := NewLimitsService(nil, nil, intake.DefaultLimits(), nil)
	transcriptions := NewTranscriptionService(transcriber, pub, nil)
	sessions := NewSessionService(limits, transcriptions, pub, nil, 5*time.Minute, 2*time.Minute)
	submissions := NewSubmissionService(creator, uploader, pub, nil)

	return &testEnv{
		sessions:    sessions,
		submissions: submissions,
		publisher:   pub,
		transcriber: transcriber,
		creator:     creator,
		uploader:    uploader,
	}
}

func (e *testEnv) newSession(t *testing.T, opts SessionOptions) *Session {
	t.Helper()
	return e.sessions.Create(context.Background(), "user-1", opts)
}

// describeReady drives a session to the describing-situation step.
func (e *testEnv) describeReady(t *testing.T, sess *Session) {
	t.Helper()
	if _, err := e.sessions.AddDocuments(sess.ID, []intake.Candidate{{FileName: "contract.pdf", SizeBytes: 100}}); err != nil {
		t.Fatalf("add documents: %v", err)
	}
	desc := "the landlord withheld the deposit"
	if err := e.sessions.UpdateDraft(sess.ID, nil, &desc, nil); err != nil {
		t.Fatalf("update draft: %v", err)
	}
	if _, err := e.sessions.Advance(sess.ID); err != nil {
		t.Fatalf("advance: %v", err)
	}
}

func TestSessionService_CreateGetAbandon(t *testing.T) {
	env := newTestEnv(t)
	sess := env.newSession(t, SessionOptions{})

	got, err := env.sessions.Get(sess.ID)
	if err != nil || got != sess {
		t.Fatalf("get: %v", err)
	}

	if err := env.sessions.Abandon(sess.ID); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if _, err := env.sessions.Get(sess.ID); !errors.Is(err, lex_errors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := env.sessions.Abandon(sess.ID); !errors.Is(err, lex_errors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double abandon, got %v", err)
	}
	if len(env.publisher.byType(events.EventTypeSessionAbandoned)) != 1 {
		t.Fatal("expected one abandoned event")
	}
}

func TestSessionService_AbandonReleasesDevices(t *testing.T) {
	env := newTestEnv(t)
	sess := env.newSession(t, SessionOptions{})

	if err := env.sessions.CameraStart(context.Background(), sess.ID); err != nil {
		t.Fatalf("camera start: %v", err)
	}
	if err := env.sessions.VoiceStart(context.Background(), sess.ID, "audio/webm", false); err != nil {
		t.Fatalf("voice start: %v", err)
	}

	if err := env.sessions.Abandon(sess.ID); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if sess.Camera.State() != media.CameraIdle {
		t.Fatalf("camera still %s after abandon", sess.Camera.State())
	}
	if sess.Voice.State() != media.VoiceIdle {
		t.Fatalf("voice still %s after abandon", sess.Voice.State())
	}
	if sess.Draft.Recording != nil {
		t.Fatal("recording survived abandon")
	}
}

func TestSessionService_Documents(t *testing.T) {
	env := newTestEnv(t)
	sess := env.newSession(t, SessionOptions{})

	t.Run("adds and lists in order", func(t *testing.T) {
		result, err := env.sessions.AddDocuments(sess.ID, []intake.Candidate{
			{FileName: "a.pdf", SizeBytes: 100},
			{FileName: "b.jpg", SizeBytes: 100},
		})
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		if len(result.Accepted) != 2 {
			t.Fatalf("expected 2 accepted, got %+v", result)
		}
	})

	t.Run("removes by id", func(t *testing.T) {
		snap, err := env.sessions.Snapshot(sess.ID)
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if err := env.sessions.RemoveDocument(sess.ID, snap.Attachments[0].ID); err != nil {
			t.Fatalf("remove: %v", err)
		}
		snap, _ = env.sessions.Snapshot(sess.ID)
		if len(snap.Attachments) != 1 || snap.Attachments[0].FileName != "b.jpg" {
			t.Fatalf("unexpected attachments: %+v", snap.Attachments)
		}
	})

	t.Run("remove of unknown id fails", func(t *testing.T) {
		err := env.sessions.RemoveDocument(sess.ID, sess.ID)
		if !errors.Is(err, lex_errors.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestSessionService_UpdateDraft(t *testing.T) {
	env := newTestEnv(t)
	sess := env.newSession(t, SessionOptions{})

	classification := "contract-dispute"
	if err := env.sessions.UpdateDraft(sess.ID, &classification, nil, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	desc := "initial description"
	if err := env.sessions.UpdateDraft(sess.ID, nil, &desc, nil); err != nil {
		t.Fatalf("update: %v", err)
	}

	snap, _ := env.sessions.Snapshot(sess.ID)
	if snap.Classification != classification || snap.Description != desc {
		t.Fatalf("nil fields overwrote values: %+v", snap)
	}
}

func TestSessionService_AdvanceAndBack(t *testing.T) {
	env := newTestEnv(t)
	sess := env.newSession(t, SessionOptions{RequireClassification: true})

	t.Run("blocked without classification and documents", func(t *testing.T) {
		if _, err := env.sessions.Advance(sess.ID); !errors.Is(err, lex_errors.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("advances once the gate is met", func(t *testing.T) {
		classification := "contract-dispute"
		if err := env.sessions.UpdateDraft(sess.ID, &classification, nil, nil); err != nil {
			t.Fatalf("update: %v", err)
		}
		if _, err := env.sessions.AddDocuments(sess.ID, []intake.Candidate{{FileName: "a.pdf", SizeBytes: 100}}); err != nil {
			t.Fatalf("add: %v", err)
		}
		state, err := env.sessions.Advance(sess.ID)
		if err != nil {
			t.Fatalf("advance: %v", err)
		}
		if state != intake.StateDescribingSituation {
			t.Fatalf("expected describing-situation, got %s", state)
		}
	})

	t.Run("submission is the only path to finished", func(t *testing.T) {
		_, err := env.sessions.Advance(sess.ID)
		if !errors.Is(err, lex_errors.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("back keeps attachments", func(t *testing.T) {
		state, err := env.sessions.Back(sess.ID)
		if err != nil {
			t.Fatalf("back: %v", err)
		}
		if state != intake.StateCollectingDocuments {
			t.Fatalf("expected collecting-documents, got %s", state)
		}
		snap, _ := env.sessions.Snapshot(sess.ID)
		if len(snap.Attachments) != 1 {
			t.Fatalf("back discarded attachments: %+v", snap.Attachments)
		}
	})
}

func TestSessionService_Camera(t *testing.T) {
	env := newTestEnv(t)
	sess := env.newSession(t, SessionOptions{})

	t.Run("denied permission surfaces and stays idle", func(t *testing.T) {
		ctx := media.WithRemoteDenied(context.Background())
		err := env.sessions.CameraStart(ctx, sess.ID)
		if !errors.Is(err, lex_errors.ErrDeviceDenied) {
			t.Fatalf("expected ErrDeviceDenied, got %v", err)
		}
	})

	t.Run("capture adds a camera attachment", func(t *testing.T) {
		if err := env.sessions.CameraStart(context.Background(), sess.ID); err != nil {
			t.Fatalf("start: %v", err)
		}
		att, err := env.sessions.CameraCapture(sess.ID, "capture.jpg", "image/jpeg", []byte("frame"))
		if err != nil {
			t.Fatalf("capture: %v", err)
		}
		if att.Origin != intake.OriginCamera {
			t.Fatalf("expected camera origin, got %s", att.Origin)
		}
		snap, _ := env.sessions.Snapshot(sess.ID)
		if snap.CameraState != media.CameraIdle {
			t.Fatalf("camera still %s after capture", snap.CameraState)
		}
	})

	t.Run("cancel is permitted when idle", func(t *testing.T) {
		if err := env.sessions.CameraCancel(sess.ID); err != nil {
			t.Fatalf("cancel: %v", err)
		}
	})
}

func TestSessionService_VoiceStopTranscribes(t *testing.T) {
	env := newTestEnv(t)
	sess := env.newSession(t, SessionOptions{AutoTranscribe: true})

	if err := env.sessions.VoiceStart(context.Background(), sess.ID, "audio/webm", false); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := env.sessions.VoiceChunk(sess.ID, []byte("audio-bytes")); err != nil {
		t.Fatalf("chunk: %v", err)
	}
	rec, err := env.sessions.VoiceStop(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if sess.Draft.Recording != rec {
		t.Fatal("stop did not attach the recording to the draft")
	}

	waitForStatus(t, env.sessions, sess.ID, intake.TranscriptionDone)

	if env.transcriber.callCount() != 1 {
		t.Fatalf("expected one transcription request, got %d", env.transcriber.callCount())
	}
	snap, _ := env.sessions.Snapshot(sess.ID)
	if snap.Expectation != "I want my deposit back" {
		t.Fatalf("transcript not appended to expectation: %q", snap.Expectation)
	}
	if len(env.publisher.byType(events.EventTypeTranscriptionCompleted)) != 1 {
		t.Fatal("expected one completed event")
	}
}

func TestSessionService_VoiceDiscard(t *testing.T) {
	env := newTestEnv(t)
	sess := env.newSession(t, SessionOptions{})

	if err := env.sessions.VoiceDiscard(sess.ID); !errors.Is(err, lex_errors.ErrNoRecording) {
		t.Fatalf("expected ErrNoRecording, got %v", err)
	}

	if err := env.sessions.VoiceStart(context.Background(), sess.ID, "audio/webm", false); err != nil {
		t.Fatalf("start: %v", err)
	}
	_ = env.sessions.VoiceChunk(sess.ID, []byte("x"))
	if _, err := env.sessions.VoiceStop(context.Background(), sess.ID); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := env.sessions.VoiceDiscard(sess.ID); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if sess.Draft.Recording != nil {
		t.Fatal("discard kept the draft recording")
	}
}

func TestSessionService_RetryTranscription(t *testing.T) {
	env := newTestEnv(t)
	env.transcriber.err = fmt.Errorf("transcoder offline")
	sess := env.newSession(t, SessionOptions{AutoTranscribe: true})

	t.Run("no recording", func(t *testing.T) {
		err := env.sessions.RetryTranscription(context.Background(), sess.ID)
		if !errors.Is(err, lex_errors.ErrNoRecording) {
			t.Fatalf("expected ErrNoRecording, got %v", err)
		}
	})

	t.Run("retry after failure succeeds", func(t *testing.T) {
		if err := env.sessions.VoiceStart(context.Background(), sess.ID, "audio/webm", false); err != nil {
			t.Fatalf("start: %v", err)
		}
		_ = env.sessions.VoiceChunk(sess.ID, []byte("audio"))
		if _, err := env.sessions.VoiceStop(context.Background(), sess.ID); err != nil {
			t.Fatalf("stop: %v", err)
		}

		waitForStatus(t, env.sessions, sess.ID, intake.TranscriptionFailed)

		env.transcriber.mu.Lock()
		env.transcriber.err = nil
		env.transcriber.mu.Unlock()

		if err := env.sessions.RetryTranscription(context.Background(), sess.ID); err != nil {
			t.Fatalf("retry: %v", err)
		}
		waitForStatus(t, env.sessions, sess.ID, intake.TranscriptionDone)
	})

	t.Run("retry while pending conflicts", func(t *testing.T) {
		env := newTestEnv(t)
		env.transcriber.gate = make(chan struct{})
		sess := env.newSession(t, SessionOptions{AutoTranscribe: true})

		if err := env.sessions.VoiceStart(context.Background(), sess.ID, "audio/webm", false); err != nil {
			t.Fatalf("start: %v", err)
		}
		_ = env.sessions.VoiceChunk(sess.ID, []byte("audio"))
		if _, err := env.sessions.VoiceStop(context.Background(), sess.ID); err != nil {
			t.Fatalf("stop: %v", err)
		}

		err := env.sessions.RetryTranscription(context.Background(), sess.ID)
		if !errors.Is(err, lex_errors.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
		close(env.transcriber.gate)
	})
}

func TestSessionService_AutoStopCapTranscribesOnce(t *testing.T) {
	env := newTestEnv(t)
	sess := env.sessions.Create(context.Background(), "user-1", SessionOptions{
		AutoTranscribe:      true,
		RecorderMaxDuration: 20 * time.Millisecond,
	})

	if err := env.sessions.VoiceStart(context.Background(), sess.ID, "audio/webm", false); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := env.sessions.VoiceChunk(sess.ID, []byte("audio")); err != nil {
		t.Fatalf("chunk: %v", err)
	}

	waitForStatus(t, env.sessions, sess.ID, intake.TranscriptionDone)

	if env.transcriber.callCount() != 1 {
		t.Fatalf("cap fired %d transcription requests, want 1", env.transcriber.callCount())
	}
	snap, _ := env.sessions.Snapshot(sess.ID)
	if snap.Recording == nil || snap.Recording.Duration > 20*time.Millisecond {
		t.Fatalf("unexpected recording after cap: %+v", snap.Recording)
	}
}

func TestSessionService_InlineCapOverride(t *testing.T) {
	env := newTestEnv(t)
	sess := env.sessions.Create(context.Background(), "user-1", SessionOptions{
		AutoTranscribe:            true,
		InlineRecorderMaxDuration: 20 * time.Millisecond,
	})

	// Inline recordings use the per-session cap, not the service default.
	if err := env.sessions.VoiceStart(context.Background(), sess.ID, "audio/webm", true); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := env.sessions.VoiceChunk(sess.ID, []byte("audio")); err != nil {
		t.Fatalf("chunk: %v", err)
	}

	waitForStatus(t, env.sessions, sess.ID, intake.TranscriptionDone)

	snap, _ := env.sessions.Snapshot(sess.ID)
	if snap.Recording == nil || snap.Recording.Duration > 20*time.Millisecond {
		t.Fatalf("inline cap not applied: %+v", snap.Recording)
	}
	if snap.VoiceState != media.VoiceIdle {
		t.Fatalf("recorder still %s after inline cap", snap.VoiceState)
	}
}

func waitForStatus(t *testing.T, sessions *SessionService, id uuid.UUID, want intake.TranscriptionStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		snap, err := sessions.Snapshot(id)
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if snap.Recording != nil && snap.Recording.TranscriptionStatus == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("recording never reached status %s", want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
