package events

import "context"

// Event types published on intake session channels.
// These follow the format: domain.action
const (
	EventTypeUploadProgress         = "upload.progress"
	EventTypeUploadCompleted        = "upload.completed"
	EventTypeUploadFailed           = "upload.failed"
	EventTypeTranscriptionStarted   = "transcription.started"
	EventTypeTranscriptionCompleted = "transcription.completed"
	EventTypeTranscriptionFailed    = "transcription.failed"
	EventTypeCaseCreated            = "case.created"
	EventTypeSessionAbandoned       = "session.abandoned"
)

type Event struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp int64       `json:"timestamp"`
}

// Handler receives one delivered event along with the channel it arrived on.
type Handler func(ctx context.Context, channel string, event Event) error

type Publisher interface {
	Publish(ctx context.Context, channel string, event Event) error
}

// Subscriber delivers events published on channels matching the pattern.
type Subscriber interface {
	Subscribe(ctx context.Context, pattern string, handler Handler) error
}

type Broker interface {
	Publisher
	Subscriber
}

// NoopPublisher discards events. Used when nothing is listening.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, Event) error { return nil }
