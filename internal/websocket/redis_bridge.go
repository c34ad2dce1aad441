package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"lex-intake/pkg/events"
)

// RedisBridge is the delivery side of the event broker: every session event
// arrives over the broker subscription, including the ones this instance
// published itself, so clients see each event exactly once. Session channels
// are pattern-subscribed so new sessions need no re-subscription.
type RedisBridge struct {
	broker events.Subscriber
	hub    *Hub
}

func NewRedisBridge(broker events.Subscriber, hub *Hub) *RedisBridge {
	return &RedisBridge{broker: broker, hub: hub}
}

// Run relays until ctx is cancelled.
func (b *RedisBridge) Run(ctx context.Context, pattern string) error {
	return b.broker.Subscribe(ctx, pattern, func(_ context.Context, channel string, event events.Event) error {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		b.hub.Broadcast(channel, payload)
		return nil
	})
}
