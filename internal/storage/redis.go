package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/date-engine/pkg/episode"
	"github.com/jwebster45206/date-engine/pkg/storage"
)

// DefaultSessionTTL is how long an idle game session is kept.
const DefaultSessionTTL = time.Hour

// RedisStorage implements the Storage interface using Redis for game
// sessions and the data directory (or embedded content) for episodes.
type RedisStorage struct {
	client     *redis.Client
	logger     *slog.Logger
	dataDir    string
	sessionTTL time.Duration

	episodesOnce sync.Once
	episodes     map[string]*episode.Episode
	episodesErr  error
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance. redisURL may be a
// redis:// URL or a bare host:port.
func NewRedisStorage(redisURL string, dataDir string, logger *slog.Logger) (*RedisStorage, error) {
	if !strings.Contains(redisURL, "://") {
		redisURL = "redis://" + redisURL
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	if dataDir == "" {
		dataDir = "./data"
	}

	return &RedisStorage{
		client:     redis.NewClient(opt),
		logger:     logger,
		dataDir:    dataDir,
		sessionTTL: DefaultSessionTTL,
	}, nil
}

// WithSessionTTL sets the expiry applied on every save.
func (r *RedisStorage) WithSessionTTL(ttl time.Duration) *RedisStorage {
	if ttl > 0 {
		r.sessionTTL = ttl
	}
	return r
}

// Client exposes the Redis client so the API can share one connection pool
// with the event broadcaster.
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}
