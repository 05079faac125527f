package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/date-engine/pkg/queue"
)

// StreamRequestsKey is the Redis list the stream worker consumes.
const StreamRequestsKey = "stream-requests"

// StreamQueue is the FIFO of video stream requests between the API and the
// worker.
type StreamQueue struct {
	client *Client
}

func NewStreamQueue(client *Client) *StreamQueue {
	return &StreamQueue{
		client: client,
	}
}

// EnqueueRequest adds a request to the end of the queue
func (sq *StreamQueue) EnqueueRequest(ctx context.Context, req *queue.Request) error {
	data, err := req.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize request: %w", err)
	}

	if err := sq.client.rdb.RPush(ctx, StreamRequestsKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue request: %w", err)
	}
	return nil
}

// DequeueRequest removes and returns the next request.
// Returns nil if queue is empty
func (sq *StreamQueue) DequeueRequest(ctx context.Context) (*queue.Request, error) {
	result, err := sq.client.rdb.LPop(ctx, StreamRequestsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue request: %w", err)
	}

	req, err := queue.FromJSON([]byte(result))
	if err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return req, nil
}

// BlockingDequeueRequest waits up to timeout for a request. With a
// workerID, requests forwarded to that worker are taken before the shared
// queue. A zero timeout waits until ctx is cancelled. Returns nil, nil on
// timeout.
func (sq *StreamQueue) BlockingDequeueRequest(ctx context.Context, timeout time.Duration, workerID string) (*queue.Request, error) {
	keys := []string{StreamRequestsKey}
	if workerID != "" {
		keys = []string{WorkerRequestsKey(workerID), StreamRequestsKey}
	}

	result, err := sq.client.rdb.BLPop(ctx, timeout, keys...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue request: %w", err)
	}

	// BLPop returns [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BLPop result: %v", result)
	}

	req, err := queue.FromJSON([]byte(result[1]))
	if err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return req, nil
}

// WorkerRequestsKey is the list of requests forwarded to one worker.
func WorkerRequestsKey(workerID string) string {
	return StreamRequestsKey + ":" + workerID
}

// EnqueueForWorker appends a request to workerID's own queue, used when that
// worker owns the game's stream.
func (sq *StreamQueue) EnqueueForWorker(ctx context.Context, workerID string, req *queue.Request) error {
	data, err := req.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize request: %w", err)
	}
	if err := sq.client.rdb.RPush(ctx, WorkerRequestsKey(workerID), data).Err(); err != nil {
		return fmt.Errorf("failed to forward request to %s: %w", workerID, err)
	}
	return nil
}

// ReturnWorkerRequests moves everything left in workerID's queue to the head
// of the shared queue, oldest first, and returns how many moved.
func (sq *StreamQueue) ReturnWorkerRequests(ctx context.Context, workerID string) (int, error) {
	src := WorkerRequestsKey(workerID)
	moved := 0
	for {
		// tail of src to head of the shared queue keeps the original order
		err := sq.client.rdb.RPopLPush(ctx, src, StreamRequestsKey).Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("failed to return requests of %s: %w", workerID, err)
		}
		moved++
	}
}

// RequestQueueDepth returns the number of queued requests
func (sq *StreamQueue) RequestQueueDepth(ctx context.Context) (int, error) {
	count, err := sq.client.rdb.LLen(ctx, StreamRequestsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get request queue depth: %w", err)
	}
	return int(count), nil
}
