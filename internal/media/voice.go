package media

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"lex-intake/internal/domain/intake"
	lex_errors "lex-intake/pkg/errors"
)

// VoiceState models the recorder lifecycle.
type VoiceState string

const (
	VoiceIdle      VoiceState = "idle"
	VoiceRecording VoiceState = "recording"
	VoicePaused    VoiceState = "paused"
)

// VoiceAdapter records a single audio clip per session. Pausing suspends the
// recorder without releasing the stream or discarding buffered audio; the
// configured duration cap is hard and firing it behaves exactly like an
// explicit Stop. Finalized clips overwrite the previous Recording.
type VoiceAdapter struct {
	mu         sync.Mutex
	opener     Opener
	maxDur     time.Duration
	onAutoStop func(*intake.Recording)
	now        func() time.Time

	state    VoiceState
	stream   Stream
	buf      bytes.Buffer
	mimeType string

	startedAt time.Time
	elapsed   time.Duration
	curMax    time.Duration
	capTimer  *time.Timer

	last *intake.Recording
}

// NewVoiceAdapter builds a recorder with a hard duration cap. onAutoStop is
// invoked when the cap fires; an explicit Stop returns the Recording to the
// caller instead, so both paths finalize the clip exactly once.
func NewVoiceAdapter(opener Opener, maxDuration time.Duration, onAutoStop func(*intake.Recording)) *VoiceAdapter {
	return &VoiceAdapter{
		opener:     opener,
		maxDur:     maxDuration,
		onAutoStop: onAutoStop,
		now:        time.Now,
		state:      VoiceIdle,
	}
}

func (a *VoiceAdapter) State() VoiceState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Recording returns the live finalized clip, if any.
func (a *VoiceAdapter) Recording() *intake.Recording {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// Start requests an audio-only stream and begins a new clip. The previous
// clip, if any, is only replaced once this one is explicitly stopped.
// maxDuration overrides the adapter default when positive; the inline
// recorder used during case description passes a tighter cap.
func (a *VoiceAdapter) Start(ctx context.Context, contentType string, maxDuration time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != VoiceIdle {
		return fmt.Errorf("%w", lex_errors.ErrRecorderBusy)
	}
	stream, err := a.opener.Open(ctx, StreamAudio)
	if err != nil {
		return fmt.Errorf("start recorder: %w", err)
	}
	a.stream = stream
	a.state = VoiceRecording
	a.buf.Reset()
	a.mimeType = contentType
	a.elapsed = 0
	a.startedAt = a.now()
	a.curMax = a.maxDur
	if maxDuration > 0 {
		a.curMax = maxDuration
	}
	a.armCapLocked(a.curMax)
	return nil
}

// AppendChunk buffers audio while recording.
func (a *VoiceAdapter) AppendChunk(chunk []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != VoiceRecording {
		return fmt.Errorf("%w: recorder is not running", lex_errors.ErrInvalidTransition)
	}
	_, _ = a.buf.Write(chunk)
	return nil
}

// Pause suspends the recorder and the cap timer. The stream stays acquired
// and buffered audio is kept.
func (a *VoiceAdapter) Pause() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != VoiceRecording {
		return fmt.Errorf("%w: recorder is not running", lex_errors.ErrInvalidTransition)
	}
	a.elapsed += a.now().Sub(a.startedAt)
	a.disarmCapLocked()
	a.state = VoicePaused
	return nil
}

// Resume continues appending to the same clip.
func (a *VoiceAdapter) Resume() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != VoicePaused {
		return fmt.Errorf("%w: recorder is not paused", lex_errors.ErrInvalidTransition)
	}
	a.startedAt = a.now()
	a.armCapLocked(a.curMax - a.elapsed)
	a.state = VoiceRecording
	return nil
}

// Stop finalizes the clip into a Recording and releases the stream.
func (a *VoiceAdapter) Stop() (*intake.Recording, error) {
	a.mu.Lock()
	if a.state != VoiceRecording && a.state != VoicePaused {
		a.mu.Unlock()
		return nil, fmt.Errorf("%w: recorder is idle", lex_errors.ErrInvalidTransition)
	}
	rec := a.finalizeLocked()
	a.mu.Unlock()
	return rec, nil
}

// Discard drops the live Recording.
func (a *VoiceAdapter) Discard() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last == nil {
		return lex_errors.ErrNoRecording
	}
	a.last = nil
	return nil
}

// Elapsed returns recorded time excluding paused intervals.
func (a *VoiceAdapter) Elapsed() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.elapsedLocked()
}

// Release force-stops any active recording and timer. The clip in progress
// is abandoned, not finalized. Safe to call more than once.
func (a *VoiceAdapter) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.disarmCapLocked()
	a.releaseStreamLocked()
	a.state = VoiceIdle
	a.buf.Reset()
}

func (a *VoiceAdapter) elapsedLocked() time.Duration {
	if a.state == VoiceRecording {
		return a.elapsed + a.now().Sub(a.startedAt)
	}
	return a.elapsed
}

func (a *VoiceAdapter) finalizeLocked() *intake.Recording {
	elapsed := a.elapsedLocked()
	if a.curMax > 0 && elapsed > a.curMax {
		elapsed = a.curMax
	}
	a.elapsed = elapsed
	a.disarmCapLocked()
	a.releaseStreamLocked()
	a.state = VoiceIdle

	data := make([]byte, a.buf.Len())
	copy(data, a.buf.Bytes())
	a.buf.Reset()

	rec := &intake.Recording{
		ID:                  uuid.New(),
		Data:                data,
		ContentType:         a.mimeType,
		Duration:            elapsed,
		TranscriptionStatus: intake.TranscriptionNone,
		RecordedAt:          a.now(),
	}
	a.last = rec
	return rec
}

func (a *VoiceAdapter) armCapLocked(remaining time.Duration) {
	if a.curMax <= 0 {
		return
	}
	if remaining < 0 {
		remaining = 0
	}
	a.capTimer = time.AfterFunc(remaining, a.autoStop)
}

func (a *VoiceAdapter) disarmCapLocked() {
	if a.capTimer != nil {
		a.capTimer.Stop()
		a.capTimer = nil
	}
}

// autoStop fires when the duration cap is reached while recording.
func (a *VoiceAdapter) autoStop() {
	a.mu.Lock()
	if a.state != VoiceRecording {
		a.mu.Unlock()
		return
	}
	rec := a.finalizeLocked()
	a.mu.Unlock()

	if a.onAutoStop != nil {
		a.onAutoStop(rec)
	}
}

func (a *VoiceAdapter) releaseStreamLocked() {
	if a.stream != nil {
		a.stream.Stop()
		a.stream = nil
	}
}
