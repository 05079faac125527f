package queue

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jwebster45206/date-engine/pkg/queue"
)

// StreamRequester adapts StreamQueue for handlers: one call per stream
// action, with failures logged rather than returned. Video is best effort
// and never blocks a game transition.
type StreamRequester struct {
	queue  *StreamQueue
	logger *slog.Logger
}

// NewStreamRequester creates a new adapter
func NewStreamRequester(q *StreamQueue, logger *slog.Logger) *StreamRequester {
	return &StreamRequester{
		queue:  q,
		logger: logger,
	}
}

// Start asks the worker to open a stream with the initial prompt.
func (a *StreamRequester) Start(ctx context.Context, gameID uuid.UUID, prompt string) {
	a.enqueue(ctx, queue.NewRequest(queue.RequestTypeStreamStart, gameID, prompt, ""))
}

// Interact sends a prompt to the game's running stream.
func (a *StreamRequester) Interact(ctx context.Context, gameID uuid.UUID, prompt, reason, turnID string) {
	req := queue.NewRequest(queue.RequestTypeStreamInteract, gameID, prompt, reason)
	req.TurnID = turnID
	a.enqueue(ctx, req)
}

// Stop ends the game's stream.
func (a *StreamRequester) Stop(ctx context.Context, gameID uuid.UUID, reason string) {
	a.enqueue(ctx, queue.NewRequest(queue.RequestTypeStreamStop, gameID, "", reason))
}

func (a *StreamRequester) enqueue(ctx context.Context, req *queue.Request) {
	if err := a.queue.EnqueueRequest(ctx, req); err != nil {
		a.logger.Warn("Failed to enqueue stream request",
			"game_id", req.GameStateID,
			"type", req.Type,
			"error", err)
		return
	}
	a.logger.Debug("Stream request enqueued",
		"game_id", req.GameStateID,
		"type", req.Type,
		"request_id", req.RequestID)
}
