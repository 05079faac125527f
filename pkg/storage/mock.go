package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/date-engine/pkg/episode"
	"github.com/jwebster45206/date-engine/pkg/state"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu         sync.RWMutex
	gamestates map[uuid.UUID]*state.GameState
	episodes   map[string]*episode.Episode
	locks      map[uuid.UUID]string
	pingError  error
	saveError  error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		gamestates: make(map[uuid.UUID]*state.GameState),
		episodes:   make(map[string]*episode.Episode),
		locks:      make(map[uuid.UUID]string),
	}
}

// SetPingError configures the mock to fail on ping with the given error.
// nil restores success.
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError makes SaveGameState fail with err.
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

// SaveGameState stores a copy so later caller mutations are not visible
// until the next save, as with Redis.
func (m *MockStorage) SaveGameState(ctx context.Context, id uuid.UUID, gs *state.GameState) error {
	if gs == nil {
		return errors.New("gamestate cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	gs.UpdatedAt = time.Now()
	m.gamestates[id] = cloneGameState(gs)
	return nil
}

func (m *MockStorage) LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	gs, exists := m.gamestates[id]
	if !exists {
		return nil, nil
	}
	return cloneGameState(gs), nil
}

func (m *MockStorage) DeleteGameState(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.gamestates, id)
	return nil
}

// AcquireGameLock ignores ttl; locks are held until released.
func (m *MockStorage) AcquireGameLock(ctx context.Context, id uuid.UUID, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[id]; held {
		return "", ErrGameLocked
	}
	token := uuid.NewString()
	m.locks[id] = token
	return token, nil
}

func (m *MockStorage) ReleaseGameLock(ctx context.Context, id uuid.UUID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[id] == token {
		delete(m.locks, id)
	}
	return nil
}

// IsLocked reports whether the game lock is held (for testing)
func (m *MockStorage) IsLocked(id uuid.UUID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, held := m.locks[id]
	return held
}

func (m *MockStorage) ListEpisodes(ctx context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]string, len(m.episodes))
	for id, ep := range m.episodes {
		result[id] = ep.Title
	}
	return result, nil
}

func (m *MockStorage) GetEpisode(ctx context.Context, episodeID string) (*episode.Episode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ep, exists := m.episodes[episodeID]
	if !exists {
		return nil, ErrEpisodeNotFound
	}
	return ep, nil
}

// AddEpisode adds an episode to the mock storage (for testing)
func (m *MockStorage) AddEpisode(ep *episode.Episode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.episodes[ep.EpisodeID] = ep
}

func cloneGameState(gs *state.GameState) *state.GameState {
	c := *gs
	c.Transcript = append([]state.TranscriptEntry(nil), gs.Transcript...)
	if gs.Setup.CustomCharacter != nil {
		cc := *gs.Setup.CustomCharacter
		c.Setup.CustomCharacter = &cc
	}
	return &c
}
