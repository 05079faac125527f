package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/date-engine/internal/services/queue"
	queuePkg "github.com/jwebster45206/date-engine/pkg/queue"
)

const (
	workerTimeout  = 5 * time.Second
	requestTimeout = 30 * time.Second

	// DefaultOwnerTTL is how long a game stays bound to a worker without a
	// heartbeat. A crashed worker's games are free again after this.
	DefaultOwnerTTL = 2 * time.Minute
	// DefaultIdleTTL matches the API's game session expiry.
	DefaultIdleTTL = time.Hour
)

// claimOwnerScript binds the game to ARGV[1] unless another worker holds it,
// refreshes the expiry when ARGV[1] already does, and returns the owner.
var claimOwnerScript = redis.NewScript(`
	local owner = redis.call("get", KEYS[1])
	if not owner then
		redis.call("set", KEYS[1], ARGV[1], "PX", ARGV[2])
		return ARGV[1]
	end
	if owner == ARGV[1] then
		redis.call("pexpire", KEYS[1], ARGV[2])
	end
	return owner
`)

// releaseOwnerScript deletes the binding only if this worker still owns it.
var releaseOwnerScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Worker processes requests in the stream queue. Each game is bound to the
// worker that opened its stream until the stream stops; requests for a game
// another worker owns are forwarded to that worker's queue.
type Worker struct {
	id          string
	queue       *queue.StreamQueue
	processor   *StreamProcessor
	redisClient *redis.Client
	log         *slog.Logger
	ownerTTL    time.Duration
	idleTTL     time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
}

// New creates a new worker instance
func New(streamQueue *queue.StreamQueue, processor *StreamProcessor, redisClient *redis.Client, log *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}

	return &Worker{
		id:          workerID,
		queue:       streamQueue,
		processor:   processor,
		redisClient: redisClient,
		log:         log,
		ownerTTL:    DefaultOwnerTTL,
		idleTTL:     DefaultIdleTTL,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// WithIdleTTL sets how long a session may go without requests before it is
// stopped.
func (w *Worker) WithIdleTTL(ttl time.Duration) *Worker {
	if ttl > 0 {
		w.idleTTL = ttl
	}
	return w
}

// WithOwnerTTL sets the expiry of a game's worker binding.
func (w *Worker) WithOwnerTTL(ttl time.Duration) *Worker {
	if ttl > 0 {
		w.ownerTTL = ttl
	}
	return w
}

// Start begins processing requests from the queue. It returns after Stop.
func (w *Worker) Start() error {
	w.log.Info("Worker starting", "worker_id", w.id)

	go w.maintain()

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down", "worker_id", w.id)
			w.shutdown()
			return nil
		default:
			if err := w.processNextRequest(); err != nil {
				w.log.Error("Error processing request", "error", err, "worker_id", w.id)
				select {
				case <-w.ctx.Done():
				case <-time.After(time.Second):
				}
			}
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested", "worker_id", w.id)
	w.cancel()
}

// processNextRequest pulls the next request from the queue and processes it
func (w *Worker) processNextRequest() error {
	ctx, cancel := context.WithTimeout(w.ctx, workerTimeout+time.Second)
	defer cancel()

	req, err := w.queue.BlockingDequeueRequest(ctx, workerTimeout, w.id)
	if err != nil {
		if w.ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to dequeue request: %w", err)
	}
	if req == nil {
		return nil
	}

	log := w.log.With(
		"worker_id", w.id,
		"request_id", req.RequestID,
		"type", req.Type,
		"game_state_id", req.GameStateID.String(),
	)
	log.Info("Received request from queue")

	owner, err := w.claimOwner(req.GameStateID)
	if err != nil {
		return fmt.Errorf("failed to claim stream owner: %w", err)
	}
	if owner != w.id {
		log.Info("Stream owned by another worker, forwarding", "owner", owner)
		if err := w.queue.EnqueueForWorker(w.ctx, owner, req); err != nil {
			return fmt.Errorf("failed to forward request: %w", err)
		}
		return nil
	}

	start := time.Now()
	reqCtx, reqCancel := context.WithTimeout(w.ctx, requestTimeout)
	defer reqCancel()

	err = w.processor.Process(reqCtx, req)
	// stopped, failed to start, or never had a stream
	if !w.processor.Has(req.GameStateID) {
		w.releaseOwner(req.GameStateID)
	}
	if err != nil {
		return err
	}

	log.Info("Request processed", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// maintain refreshes the bindings of live sessions and reaps idle ones
// until the worker stops.
func (w *Worker) maintain() {
	ticker := time.NewTicker(w.ownerTTL / 3)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.reapIdle()
			w.refreshOwners()
		}
	}
}

func (w *Worker) reapIdle() {
	for _, id := range w.processor.Reap(w.idleTTL) {
		w.releaseOwner(id)
	}
}

func (w *Worker) refreshOwners() {
	for _, id := range w.processor.Games() {
		owner, err := w.claimOwner(id)
		if err != nil {
			w.log.Warn("Failed to refresh stream owner", "error", err, "game_state_id", id.String())
			continue
		}
		if owner != w.id {
			// the binding lapsed and another worker took the game
			w.log.Warn("Stream owner lost", "owner", owner, "game_state_id", id.String())
			_ = w.processor.Process(w.ctx, queuePkg.NewRequest(queuePkg.RequestTypeStreamStop, id, "", "owner_lost"))
		}
	}
}

// shutdown stops every session, frees their games and hands requests still
// queued for this worker back to the shared queue.
func (w *Worker) shutdown() {
	games := w.processor.Games()
	w.processor.Close()
	for _, id := range games {
		w.releaseOwner(id)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	moved, err := w.queue.ReturnWorkerRequests(ctx, w.id)
	if err != nil {
		w.log.Error("Failed to return forwarded requests", "error", err, "worker_id", w.id)
		return
	}
	if moved > 0 {
		w.log.Info("Returned forwarded requests to shared queue", "count", moved, "worker_id", w.id)
	}
}

func streamOwnerKey(gameStateID uuid.UUID) string {
	return fmt.Sprintf("stream-owner:%s", gameStateID.String())
}

// claimOwner returns the worker bound to the game, binding it to this worker
// if it is free.
func (w *Worker) claimOwner(gameStateID uuid.UUID) (string, error) {
	// w.ctx may already be cancelled during shutdown
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return claimOwnerScript.Run(ctx, w.redisClient, []string{streamOwnerKey(gameStateID)}, w.id, w.ownerTTL.Milliseconds()).Text()
}

func (w *Worker) releaseOwner(gameStateID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := releaseOwnerScript.Run(ctx, w.redisClient, []string{streamOwnerKey(gameStateID)}, w.id).Err(); err != nil {
		w.log.Error("Failed to release stream owner", "error", err, "game_state_id", gameStateID.String())
	}
}
