package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/date-engine/pkg/storage"
)

// releaseScript deletes the lock only if the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func gameLockKey(id uuid.UUID) string {
	return "game-lock:" + id.String()
}

// AcquireGameLock takes game-lock:{id} with SET NX.
func (r *RedisStorage) AcquireGameLock(ctx context.Context, id uuid.UUID, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, gameLockKey(id), token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire game lock: %w", err)
	}
	if !ok {
		return "", storage.ErrGameLocked
	}
	return token, nil
}

// ReleaseGameLock frees the lock if token still holds it. An expired or
// stolen lock is left alone.
func (r *RedisStorage) ReleaseGameLock(ctx context.Context, id uuid.UUID, token string) error {
	if err := releaseScript.Run(ctx, r.client, []string{gameLockKey(id)}, token).Err(); err != nil {
		return fmt.Errorf("failed to release game lock: %w", err)
	}
	return nil
}
