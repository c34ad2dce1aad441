package media

import (
	"context"
	"errors"
	"testing"

	"lex-intake/internal/domain/intake"
	lex_errors "lex-intake/pkg/errors"
)

func grantingOpener(stops *int) Opener {
	return OpenerFunc(func(ctx context.Context, kind StreamKind) (Stream, error) {
		return StreamFunc(func() { *stops++ }), nil
	})
}

func denyingOpener() Opener {
	return OpenerFunc(func(ctx context.Context, kind StreamKind) (Stream, error) {
		return nil, lex_errors.ErrDeviceDenied
	})
}

func mediaTestSet() *intake.AttachmentSet {
	return intake.NewAttachmentSet(intake.NewValidator(intake.DefaultLimits()))
}

func TestCameraAdapter_Start(t *testing.T) {
	t.Run("acquires video stream", func(t *testing.T) {
		var stops int
		cam := NewCameraAdapter(grantingOpener(&stops))
		if err := cam.Start(context.Background()); err != nil {
			t.Fatalf("start: %v", err)
		}
		if cam.State() != CameraStreaming {
			t.Fatalf("expected streaming, got %s", cam.State())
		}
	})

	t.Run("denied permission keeps adapter idle", func(t *testing.T) {
		cam := NewCameraAdapter(denyingOpener())
		err := cam.Start(context.Background())
		if !errors.Is(err, lex_errors.ErrDeviceDenied) {
			t.Fatalf("expected ErrDeviceDenied, got %v", err)
		}
		if cam.State() != CameraIdle {
			t.Fatalf("expected idle after denial, got %s", cam.State())
		}
	})

	t.Run("second start conflicts", func(t *testing.T) {
		var stops int
		cam := NewCameraAdapter(grantingOpener(&stops))
		if err := cam.Start(context.Background()); err != nil {
			t.Fatalf("start: %v", err)
		}
		if err := cam.Start(context.Background()); !errors.Is(err, lex_errors.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})
}

func TestCameraAdapter_Capture(t *testing.T) {
	t.Run("accepted capture adds attachment and stops stream", func(t *testing.T) {
		var stops int
		cam := NewCameraAdapter(grantingOpener(&stops))
		set := mediaTestSet()
		if err := cam.Start(context.Background()); err != nil {
			t.Fatalf("start: %v", err)
		}
		att, err := cam.Capture(set, "capture.jpg", "image/jpeg", []byte("frame-bytes"))
		if err != nil {
			t.Fatalf("capture: %v", err)
		}
		if att.Origin != intake.OriginCamera {
			t.Fatalf("expected camera origin, got %s", att.Origin)
		}
		if set.Len() != 1 {
			t.Fatalf("expected attachment in set, got %d", set.Len())
		}
		if cam.State() != CameraIdle {
			t.Fatalf("expected idle after capture, got %s", cam.State())
		}
		if stops != 1 {
			t.Fatalf("expected stream stopped once, got %d", stops)
		}
	})

	t.Run("rejected capture also stops stream", func(t *testing.T) {
		var stops int
		cam := NewCameraAdapter(grantingOpener(&stops))
		set := mediaTestSet()
		if err := cam.Start(context.Background()); err != nil {
			t.Fatalf("start: %v", err)
		}
		_, err := cam.Capture(set, "capture.tiff", "image/tiff", []byte("frame-bytes"))
		if err == nil {
			t.Fatal("expected rejection")
		}
		if set.Len() != 0 {
			t.Fatalf("rejected capture reached the set: %d", set.Len())
		}
		if cam.State() != CameraIdle || stops != 1 {
			t.Fatalf("camera indicator left on: state=%s stops=%d", cam.State(), stops)
		}
	})

	t.Run("capture without stream is invalid", func(t *testing.T) {
		cam := NewCameraAdapter(RemoteOpener{})
		_, err := cam.Capture(mediaTestSet(), "capture.jpg", "image/jpeg", []byte("x"))
		if !errors.Is(err, lex_errors.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})
}

func TestCameraAdapter_Release(t *testing.T) {
	var stops int
	cam := NewCameraAdapter(grantingOpener(&stops))
	if err := cam.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	cam.Release()
	cam.Release()
	cam.Cancel()

	if stops != 1 {
		t.Fatalf("expected exactly one stream stop, got %d", stops)
	}
	if cam.State() != CameraIdle {
		t.Fatalf("expected idle, got %s", cam.State())
	}
}

func TestRemoteOpener(t *testing.T) {
	t.Run("grants by default", func(t *testing.T) {
		if _, err := (RemoteOpener{}).Open(context.Background(), StreamVideo); err != nil {
			t.Fatalf("expected grant, got %v", err)
		}
	})

	t.Run("denied context refuses", func(t *testing.T) {
		ctx := WithRemoteDenied(context.Background())
		_, err := (RemoteOpener{}).Open(ctx, StreamAudio)
		if !errors.Is(err, lex_errors.ErrDeviceDenied) {
			t.Fatalf("expected ErrDeviceDenied, got %v", err)
		}
	})
}
