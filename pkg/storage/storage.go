package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/date-engine/pkg/episode"
	"github.com/jwebster45206/date-engine/pkg/state"
)

// ErrGameLocked is returned by AcquireGameLock when another transition for
// the same game is in flight.
var ErrGameLocked = errors.New("game is locked by another request")

// ErrEpisodeNotFound is returned by GetEpisode for an unknown id.
var ErrEpisodeNotFound = errors.New("episode not found")

// Storage defines a unified interface for all storage operations.
// Game sessions live in Redis; episodes come from the data directory or the
// embedded content.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// GameState operations. LoadGameState returns nil, nil when the session
	// does not exist or has expired.
	SaveGameState(ctx context.Context, id uuid.UUID, gs *state.GameState) error
	LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error)
	DeleteGameState(ctx context.Context, id uuid.UUID) error

	// AcquireGameLock takes the per-game transition lock for ttl and returns
	// a token for ReleaseGameLock, or ErrGameLocked.
	AcquireGameLock(ctx context.Context, id uuid.UUID, ttl time.Duration) (string, error)
	ReleaseGameLock(ctx context.Context, id uuid.UUID, token string) error

	// Episode operations
	ListEpisodes(ctx context.Context) (map[string]string, error)
	GetEpisode(ctx context.Context, episodeID string) (*episode.Episode, error)
}
