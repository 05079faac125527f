package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeTurnAdvanced  EventType = "turn.advanced"
	EventTypeGameCompleted EventType = "game.completed"
	EventTypeGameRestarted EventType = "game.restarted"

	EventTypeStreamConnected EventType = "stream.connected"
	EventTypeStreamStarted   EventType = "stream.started"
	EventTypeStreamEnded     EventType = "stream.ended"
	EventTypeStreamInteract  EventType = "stream.interact"
	EventTypeStreamError     EventType = "stream.error"
)

// Event represents a generic event structure
type Event struct {
	Type      EventType      `json:"type"`
	RequestID string         `json:"request_id,omitempty"`
	GameID    string         `json:"game_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Channel is the Pub/Sub channel for one game's events.
func Channel(gameID uuid.UUID) string {
	return fmt.Sprintf("game-events:%s", gameID.String())
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// PublishTurnAdvanced is sent after every applied choice or response.
func (b *Broadcaster) PublishTurnAdvanced(ctx context.Context, gameID uuid.UUID, turnIndex int, choiceID string, meters any) error {
	return b.publishToGame(ctx, gameID, Event{
		Type:   EventTypeTurnAdvanced,
		GameID: gameID.String(),
		Data: map[string]any{
			"turn_index": turnIndex,
			"choice_id":  choiceID,
			"meters":     meters,
		},
	})
}

// PublishGameCompleted is sent once, when the final turn is applied.
func (b *Broadcaster) PublishGameCompleted(ctx context.Context, gameID uuid.UUID, outcomeID, label string) error {
	return b.publishToGame(ctx, gameID, Event{
		Type:   EventTypeGameCompleted,
		GameID: gameID.String(),
		Data: map[string]any{
			"outcome_id": outcomeID,
			"label":      label,
		},
	})
}

// PublishGameRestarted is sent after a reset.
func (b *Broadcaster) PublishGameRestarted(ctx context.Context, gameID uuid.UUID) error {
	return b.publishToGame(ctx, gameID, Event{
		Type:   EventTypeGameRestarted,
		GameID: gameID.String(),
	})
}

// PublishStreamEvent relays a video stream event from the worker.
func (b *Broadcaster) PublishStreamEvent(ctx context.Context, gameID uuid.UUID, requestID string, t EventType, data map[string]any) error {
	return b.publishToGame(ctx, gameID, Event{
		Type:      t,
		RequestID: requestID,
		GameID:    gameID.String(),
		Data:      data,
	})
}

// Subscribe opens a subscription to one game's channel. The caller closes it.
func (b *Broadcaster) Subscribe(ctx context.Context, gameID uuid.UUID) *redis.PubSub {
	return b.redisClient.Subscribe(ctx, Channel(gameID))
}

// publishToGame publishes an event to the game-specific channel
func (b *Broadcaster) publishToGame(ctx context.Context, gameID uuid.UUID, event Event) error {
	channel := Channel(gameID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
		"request_id", event.RequestID,
	)

	return nil
}
