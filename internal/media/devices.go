package media

import (
	"context"

	lex_errors "lex-intake/pkg/errors"
)

// StreamKind selects the track type requested from a device.
type StreamKind string

const (
	StreamVideo StreamKind = "video"
	StreamAudio StreamKind = "audio"
)

// Stream is an acquired device stream. Stop releases the underlying tracks;
// it must be safe to call more than once.
type Stream interface {
	Stop()
}

// Opener acquires device streams. The HTTP layer provides an implementation
// backed by the remote client's devices; tests provide fakes that grant or
// deny access.
type Opener interface {
	Open(ctx context.Context, kind StreamKind) (Stream, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, kind StreamKind) (Stream, error)

func (f OpenerFunc) Open(ctx context.Context, kind StreamKind) (Stream, error) {
	return f(ctx, kind)
}

// StreamFunc adapts a release function to the Stream interface.
type StreamFunc func()

func (f StreamFunc) Stop() { f() }

// NopStream is a stream with no underlying resource to release.
type NopStream struct{}

func (NopStream) Stop() {}

type remoteDeniedKey struct{}

// WithRemoteDenied marks the context as carrying a client-reported permission
// refusal, so a RemoteOpener fails the way a local device would.
func WithRemoteDenied(ctx context.Context) context.Context {
	return context.WithValue(ctx, remoteDeniedKey{}, true)
}

func remoteDenied(ctx context.Context) bool {
	denied, _ := ctx.Value(remoteDeniedKey{}).(bool)
	return denied
}

// RemoteOpener represents the devices held by the remote browser client.
// The actual getUserMedia call happens client-side; the client reports the
// permission outcome and this opener mirrors it as a stream acquisition.
type RemoteOpener struct{}

func (RemoteOpener) Open(ctx context.Context, kind StreamKind) (Stream, error) {
	if remoteDenied(ctx) {
		return nil, lex_errors.ErrDeviceDenied
	}
	return NopStream{}, nil
}
