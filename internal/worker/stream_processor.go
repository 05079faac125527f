package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/date-engine/internal/logger"
	"github.com/jwebster45206/date-engine/internal/services/events"
	"github.com/jwebster45206/date-engine/internal/services/video"
	"github.com/jwebster45206/date-engine/pkg/queue"
)

const publishTimeout = 5 * time.Second

// Publisher is the part of events.Broadcaster the processor needs.
type Publisher interface {
	PublishStreamEvent(ctx context.Context, gameID uuid.UUID, requestID string, t events.EventType, data map[string]any) error
}

// StreamProcessor owns one video.Session per game and applies queued stream
// requests to it.
type StreamProcessor struct {
	factory   video.Factory
	publisher Publisher
	logger    *slog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*video.Session
}

// NewStreamProcessor creates a processor building clients with factory.
func NewStreamProcessor(factory video.Factory, publisher Publisher, logger *slog.Logger) *StreamProcessor {
	return &StreamProcessor{
		factory:   factory,
		publisher: publisher,
		logger:    logger,
		sessions:  make(map[uuid.UUID]*video.Session),
	}
}

// Process applies one request. Disabled video is not an error.
func (p *StreamProcessor) Process(ctx context.Context, req *queue.Request) error {
	log := logger.WithRequestID(logger.WithGame(p.logger, req.GameStateID), req.RequestID).With("type", req.Type)

	var err error
	switch req.Type {
	case queue.RequestTypeStreamStart:
		s := p.session(req.GameStateID)
		var streamID string
		streamID, err = s.Start(ctx, req.Prompt)
		if err == nil {
			log.Info("Stream started", "stream_id", streamID)
		} else {
			p.drop(req.GameStateID, s)
		}
	case queue.RequestTypeStreamInteract:
		err = p.session(req.GameStateID).Interact(ctx, req.Prompt)
		if err == nil {
			log.Debug("Interaction sent", "reason", req.Reason, "turn_id", req.TurnID)
		}
	case queue.RequestTypeStreamStop:
		err = p.stop(req.GameStateID)
		if err == nil {
			p.publish(req.GameStateID, req.RequestID, events.EventTypeStreamEnded, map[string]any{
				"reason": req.Reason,
			})
		}
	default:
		return fmt.Errorf("unknown request type: %s", req.Type)
	}

	if errors.Is(err, video.ErrStreamDisabled) {
		log.Debug("Video disabled, request ignored")
		return nil
	}
	if err != nil {
		p.publish(req.GameStateID, req.RequestID, events.EventTypeStreamError, map[string]any{
			"message": err.Error(),
			"reason":  req.Reason,
		})
		return fmt.Errorf("failed to process %s: %w", req.Type, err)
	}
	return nil
}

// Sessions returns the number of games with a session.
func (p *StreamProcessor) Sessions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

// Has reports whether gameID has a session.
func (p *StreamProcessor) Has(gameID uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.sessions[gameID]
	return ok
}

// Games returns the ids of every game with a session.
func (p *StreamProcessor) Games() []uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(p.sessions))
	for id := range p.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Reap stops sessions unused for longer than maxIdle, such as games that
// expired without a leave, and returns their game ids.
func (p *StreamProcessor) Reap(maxIdle time.Duration) []uuid.UUID {
	cutoff := time.Now().Add(-maxIdle)

	p.mu.Lock()
	var idle []*video.Session
	for id, s := range p.sessions {
		if s.LastUsed().Before(cutoff) {
			idle = append(idle, s)
			delete(p.sessions, id)
		}
	}
	p.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(idle))
	for _, s := range idle {
		if err := s.Stop(); err != nil {
			p.logger.Warn("Failed to stop idle video session", "game_id", s.GameID, "error", err)
		}
		p.logger.Info("Idle video session reaped", "game_id", s.GameID)
		p.publish(s.GameID, "", events.EventTypeStreamEnded, map[string]any{"reason": "idle"})
		ids = append(ids, s.GameID)
	}
	return ids
}

// Close disconnects every session.
func (p *StreamProcessor) Close() {
	p.mu.Lock()
	sessions := p.sessions
	p.sessions = make(map[uuid.UUID]*video.Session)
	p.mu.Unlock()

	for id, s := range sessions {
		if err := s.Stop(); err != nil {
			p.logger.Warn("Failed to stop video session", "game_id", id, "error", err)
		}
	}
}

func (p *StreamProcessor) session(gameID uuid.UUID) *video.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[gameID]
	if !ok {
		s = video.NewSession(gameID, p.factory, func(ev video.Event) {
			p.relay(gameID, ev)
		}, p.logger)
		p.sessions[gameID] = s
	}
	return s
}

// drop forgets s if it is still gameID's session. The failed start already
// released its client.
func (p *StreamProcessor) drop(gameID uuid.UUID, s *video.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sessions[gameID] == s {
		delete(p.sessions, gameID)
	}
}

func (p *StreamProcessor) stop(gameID uuid.UUID) error {
	p.mu.Lock()
	s, ok := p.sessions[gameID]
	delete(p.sessions, gameID)
	p.mu.Unlock()
	if !ok {
		return nil
	}
	return s.Stop()
}

// relay forwards a video service event to the game's event channel.
func (p *StreamProcessor) relay(gameID uuid.UUID, ev video.Event) {
	var t events.EventType
	switch ev.Type {
	case video.EventConnected:
		t = events.EventTypeStreamConnected
	case video.EventStreamStarted:
		t = events.EventTypeStreamStarted
	case video.EventStreamEnded:
		t = events.EventTypeStreamEnded
	case video.EventInteractAck:
		t = events.EventTypeStreamInteract
	case video.EventError:
		t = events.EventTypeStreamError
	default:
		return
	}

	data := map[string]any{}
	if ev.StreamID != "" {
		data["stream_id"] = ev.StreamID
	}
	if ev.Reason != "" {
		data["reason"] = ev.Reason
	}
	if ev.Message != "" {
		data["message"] = ev.Message
	}
	if ev.Type == video.EventError {
		data["fatal"] = ev.Fatal
	}
	p.publish(gameID, "", t, data)
}

func (p *StreamProcessor) publish(gameID uuid.UUID, requestID string, t events.EventType, data map[string]any) {
	if p.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.publisher.PublishStreamEvent(ctx, gameID, requestID, t, data); err != nil {
		p.logger.Error("Failed to publish stream event", "error", err, "game_id", gameID, "event_type", t)
	}
}
