package video

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/date-engine/pkg/stream"
)

// Session owns the video connection of one game. Calls are serialised;
// events from the client are relayed to onEvent from a separate goroutine.
type Session struct {
	GameID uuid.UUID

	mu       sync.Mutex
	factory  Factory
	client   Client
	streamID string
	// scene is the prompt of the last Start, replayed when a dropped
	// stream is reopened by Interact
	scene    string
	lastUsed time.Time
	onEvent  func(Event)
	logger   *slog.Logger
}

// NewSession creates a session that builds clients with factory. onEvent may
// be nil.
func NewSession(gameID uuid.UUID, factory Factory, onEvent func(Event), logger *slog.Logger) *Session {
	if onEvent == nil {
		onEvent = func(Event) {}
	}
	return &Session{
		GameID:   gameID,
		factory:  factory,
		onEvent:  onEvent,
		lastUsed: time.Now(),
		logger:   logger.With("game_id", gameID.String()),
	}
}

// LastUsed is when Start, Interact or Stop was last called.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// State is the current client's state, or Idle before the first Start.
func (s *Session) State() stream.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return stream.Idle
	}
	return s.client.State()
}

// StreamID is the id of the running stream, if any.
func (s *Session) StreamID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamID
}

// Start opens a new stream showing prompt, replacing any previous one.
func (s *Session) Start(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
	s.scene = prompt
	return s.startLocked(ctx, prompt)
}

// Interact sends prompt to the running stream. A session whose stream has
// dropped reopens it with the scene prompt of the last Start and then sends
// prompt. Without a previous Start, prompt opens the stream.
func (s *Session) Interact(ctx context.Context, prompt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()

	if s.client != nil && s.client.State().IsActive() {
		return s.client.Interact(ctx, prompt)
	}

	if s.scene == "" {
		s.logger.Info("No active stream, starting with interaction prompt")
		_, err := s.startLocked(ctx, prompt)
		return err
	}

	s.logger.Info("No active stream, restarting from scene prompt")
	if _, err := s.startLocked(ctx, s.scene); err != nil {
		return err
	}
	return s.client.Interact(ctx, prompt)
}

// Stop ends the stream. The session may be started again.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
	return s.stopLocked()
}

// startLocked replaces the client. A client that fails to start is
// disconnected before returning so its event pump ends.
func (s *Session) startLocked(ctx context.Context, prompt string) (string, error) {
	if err := s.stopLocked(); err != nil {
		s.logger.Warn("Failed to close previous video client", "error", err)
	}

	client := s.factory()
	s.client = client
	go s.pump(client)

	if err := client.Connect(ctx); err != nil {
		_ = s.stopLocked()
		return "", fmt.Errorf("connect: %w", err)
	}

	id, err := client.StartStream(ctx, prompt)
	if err != nil {
		_ = s.stopLocked()
		return "", fmt.Errorf("start stream: %w", err)
	}
	s.streamID = id
	s.logger.Info("Video stream started", "stream_id", id)
	return id, nil
}

func (s *Session) stopLocked() error {
	if s.client == nil {
		return nil
	}
	err := s.client.Disconnect()
	s.client = nil
	s.streamID = ""
	return err
}

// pump relays client events until the client's channel closes. Superseded
// disconnects are logged and dropped.
func (s *Session) pump(client Client) {
	for ev := range client.Events() {
		if (ev.Type == EventError || ev.Type == EventStreamEnded) && IsSuperseded(ev.Reason, ev.Message) {
			s.logger.Info("Video connection superseded", "reason", ev.Reason, "message", ev.Message)
			continue
		}
		s.onEvent(ev)
	}
}
