package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/date-engine/internal/content"
	"github.com/jwebster45206/date-engine/internal/services"
	"github.com/jwebster45206/date-engine/internal/services/evaluator"
	"github.com/jwebster45206/date-engine/pkg/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type streamCall struct {
	kind   string
	gameID uuid.UUID
	prompt string
	reason string
	turnID string
}

type fakeStreams struct {
	mu    sync.Mutex
	calls []streamCall
}

func (f *fakeStreams) Start(ctx context.Context, gameID uuid.UUID, prompt string) {
	f.record(streamCall{kind: "start", gameID: gameID, prompt: prompt})
}

func (f *fakeStreams) Interact(ctx context.Context, gameID uuid.UUID, prompt, reason, turnID string) {
	f.record(streamCall{kind: "interact", gameID: gameID, prompt: prompt, reason: reason, turnID: turnID})
}

func (f *fakeStreams) Stop(ctx context.Context, gameID uuid.UUID, reason string) {
	f.record(streamCall{kind: "stop", gameID: gameID, reason: reason})
}

func (f *fakeStreams) record(c streamCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeStreams) all() []streamCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]streamCall(nil), f.calls...)
}

func (f *fakeStreams) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

type fakeEvents struct {
	mu       sync.Mutex
	kinds    []string
	outcomes []string
}

func (f *fakeEvents) PublishTurnAdvanced(ctx context.Context, gameID uuid.UUID, turnIndex int, choiceID string, meters any) error {
	f.add("turn.advanced")
	return nil
}

func (f *fakeEvents) PublishGameCompleted(ctx context.Context, gameID uuid.UUID, outcomeID, label string) error {
	f.mu.Lock()
	f.outcomes = append(f.outcomes, outcomeID)
	f.mu.Unlock()
	f.add("game.completed")
	return nil
}

func (f *fakeEvents) PublishGameRestarted(ctx context.Context, gameID uuid.UUID) error {
	f.add("game.restarted")
	return nil
}

func (f *fakeEvents) add(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = append(f.kinds, kind)
}

func (f *fakeEvents) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.kinds...)
}

type testEnv struct {
	handler *GameStateHandler
	storage *storage.MockStorage
	llm     *services.MockLLMAPI
	streams *fakeStreams
	events  *fakeEvents
}

func newTestStorage(t *testing.T) *storage.MockStorage {
	t.Helper()
	ms := storage.NewMockStorage()
	eps, err := content.Episodes()
	require.NoError(t, err)
	for _, ep := range eps {
		ms.AddEpisode(ep)
	}
	return ms
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		storage: newTestStorage(t),
		llm:     services.NewMockLLMAPI(),
		streams: &fakeStreams{},
		events:  &fakeEvents{},
	}
	env.handler = NewGameStateHandler(testLogger(), env.storage, content.MustCatalog(), evaluator.New(env.llm, testLogger())).
		WithStreams(env.streams).
		WithEvents(env.events)
	return env
}

func (env *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	return rr
}

func (env *testEnv) create(t *testing.T, body string) GameView {
	t.Helper()
	rr := env.do(t, http.MethodPost, "/v1/gamestate", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var view GameView
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&view))
	return view
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), rr.Body.String())
	return v
}
