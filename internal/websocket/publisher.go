package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"lex-intake/pkg/events"
)

// HubPublisher delivers session events to the WebSocket clients of this
// instance. Single-instance deployments publish straight to it; with Redis
// enabled the broker takes its place and the RedisBridge feeds the hub.
type HubPublisher struct {
	hub *Hub
}

func NewHubPublisher(hub *Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(_ context.Context, channel string, event events.Event) error {
	if p.hub.SubscriberCount(channel) == 0 {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	p.hub.Broadcast(channel, payload)
	return nil
}
