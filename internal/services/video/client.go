// Package video drives the real-time video stream that renders the date.
package video

import (
	"context"
	"errors"
	"strings"

	"github.com/jwebster45206/date-engine/pkg/stream"
)

// ErrStreamDisabled is returned by every DisabledClient operation.
var ErrStreamDisabled = errors.New("video streaming is disabled")

// ErrNotStreaming is returned by Interact before a stream has started.
var ErrNotStreaming = errors.New("no active stream")

// EventType identifies a stream event.
type EventType string

const (
	EventConnected     EventType = "connected"
	EventStreamStarted EventType = "stream_started"
	EventStreamEnded   EventType = "stream_ended"
	EventInteractAck   EventType = "interact_ack"
	EventError         EventType = "error"
)

// Event is something the video service reported.
type Event struct {
	Type     EventType `json:"type"`
	StreamID string    `json:"stream_id,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	Message  string    `json:"message,omitempty"`
	Fatal    bool      `json:"fatal,omitempty"`
}

// Client is the capability surface of a video stream connection. A Client
// is single use: once disconnected it stays closed.
type Client interface {
	Connect(ctx context.Context) error
	Disconnect() error
	StartStream(ctx context.Context, prompt string) (string, error)
	Interact(ctx context.Context, prompt string) error
	Events() <-chan Event
	State() stream.State
}

// Factory creates a fresh Client for one game.
type Factory func() Client

// IsSuperseded reports whether a disconnect was caused by a newer connection
// for the same session. Those are expected and not surfaced to players.
func IsSuperseded(reason, message string) bool {
	if reason == "Connection superseded" {
		return true
	}
	return strings.Contains(strings.ToLower(message), "superseded") ||
		strings.Contains(strings.ToLower(reason), "superseded")
}

// DisabledClient is used when no video credentials are configured.
type DisabledClient struct {
	events chan Event
}

// NewDisabledClient returns a client whose event channel is already closed.
func NewDisabledClient() *DisabledClient {
	ch := make(chan Event)
	close(ch)
	return &DisabledClient{events: ch}
}

func (d *DisabledClient) Connect(ctx context.Context) error { return ErrStreamDisabled }
func (d *DisabledClient) Disconnect() error                 { return nil }
func (d *DisabledClient) StartStream(ctx context.Context, prompt string) (string, error) {
	return "", ErrStreamDisabled
}
func (d *DisabledClient) Interact(ctx context.Context, prompt string) error { return ErrStreamDisabled }
func (d *DisabledClient) Events() <-chan Event                              { return d.events }
func (d *DisabledClient) State() stream.State                               { return stream.Idle }
