package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/date-engine/pkg/state"
)

func gameStateKey(id uuid.UUID) string {
	return "gamestate:" + id.String()
}

// SaveGameState writes the session and refreshes its TTL.
func (r *RedisStorage) SaveGameState(ctx context.Context, id uuid.UUID, gs *state.GameState) error {
	if gs == nil {
		return errors.New("gamestate cannot be nil")
	}
	gs.UpdatedAt = time.Now()

	data, err := json.Marshal(gs)
	if err != nil {
		r.logger.Error("Failed to marshal gamestate", "uuid", id, "error", err)
		return fmt.Errorf("failed to marshal gamestate: %w", err)
	}

	if err := r.client.Set(ctx, gameStateKey(id), data, r.sessionTTL).Err(); err != nil {
		r.logger.Error("Failed to save gamestate", "uuid", id, "error", err)
		return fmt.Errorf("failed to save gamestate: %w", err)
	}

	return nil
}

func (r *RedisStorage) LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	data, err := r.client.Get(ctx, gameStateKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Debug("Gamestate not found", "uuid", id)
			return nil, nil
		}
		r.logger.Error("Failed to load gamestate", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to load gamestate: %w", err)
	}

	var gs state.GameState
	if err := json.Unmarshal(data, &gs); err != nil {
		r.logger.Error("Failed to unmarshal gamestate", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal gamestate: %w", err)
	}

	return &gs, nil
}

func (r *RedisStorage) DeleteGameState(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, gameStateKey(id)).Err(); err != nil {
		r.logger.Error("Failed to delete gamestate", "uuid", id, "error", err)
		return fmt.Errorf("failed to delete gamestate: %w", err)
	}
	return nil
}
