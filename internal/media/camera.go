package media

import (
	"context"
	"fmt"
	"sync"

	"lex-intake/internal/domain/intake"
	lex_errors "lex-intake/pkg/errors"
)

// CameraState models the still-capture lifecycle.
type CameraState string

const (
	CameraIdle      CameraState = "idle"
	CameraStreaming CameraState = "streaming"
)

// CameraAdapter turns a live video stream into still-frame attachment
// candidates. A successful capture collapses the adapter back to idle; the
// stream is never held across a capture. Every exit path releases the stream.
type CameraAdapter struct {
	mu     sync.Mutex
	opener Opener
	state  CameraState
	stream Stream
}

func NewCameraAdapter(opener Opener) *CameraAdapter {
	return &CameraAdapter{opener: opener, state: CameraIdle}
}

func (a *CameraAdapter) State() CameraState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Start requests a video-only stream. Permission refusal or a missing camera
// surfaces as ErrDeviceDenied and the adapter stays idle.
func (a *CameraAdapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == CameraStreaming {
		return fmt.Errorf("%w: camera already streaming", lex_errors.ErrConflict)
	}
	stream, err := a.opener.Open(ctx, StreamVideo)
	if err != nil {
		return fmt.Errorf("start camera: %w", err)
	}
	a.stream = stream
	a.state = CameraStreaming
	return nil
}

// Capture rasterizes the current frame into an attachment candidate and
// routes it through the set's validator. On acceptance the attachment is
// added and the stream is torn down; on rejection the stream is torn down
// as well, so the camera indicator never stays lit.
func (a *CameraAdapter) Capture(set *intake.AttachmentSet, fileName, contentType string, frame []byte) (intake.Attachment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != CameraStreaming {
		return intake.Attachment{}, fmt.Errorf("%w: camera is not streaming", lex_errors.ErrInvalidTransition)
	}
	defer a.releaseLocked()

	result := set.Add(intake.Candidate{
		FileName:     fileName,
		SizeBytes:    int64(len(frame)),
		DeclaredType: contentType,
		Origin:       intake.OriginCamera,
		Data:         frame,
	})
	if len(result.Rejected) > 0 {
		return intake.Attachment{}, fmt.Errorf("capture rejected: %s", result.Rejected[0].Reason)
	}
	return result.Accepted[0], nil
}

// Cancel tears down the stream without producing an attachment.
func (a *CameraAdapter) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releaseLocked()
}

// Release is the teardown hook; identical to Cancel and safe to call twice.
func (a *CameraAdapter) Release() {
	a.Cancel()
}

func (a *CameraAdapter) releaseLocked() {
	if a.stream != nil {
		a.stream.Stop()
		a.stream = nil
	}
	a.state = CameraIdle
}
