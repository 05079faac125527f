package queue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const connectTimeout = 5 * time.Second

// Client holds the Redis connection shared by the stream queue, worker locks
// and the event broadcaster.
type Client struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewClient connects to redisURL, which may be a redis:// URL or a bare
// host:port, and fails when the server does not answer a ping.
func NewClient(redisURL string, logger *slog.Logger) (*Client, error) {
	if !strings.Contains(redisURL, "://") {
		redisURL = "redis://" + redisURL
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opt.Addr, err)
	}

	logger.Info("Stream queue connected", "addr", opt.Addr, "db", opt.DB)
	return &Client{rdb: rdb, logger: logger}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetRedisClient exposes the connection for locks and pub/sub.
func (c *Client) GetRedisClient() *redis.Client {
	return c.rdb
}
