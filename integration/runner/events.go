package runner

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventTimeout is the max time to wait for an SSE event after a step.
const EventTimeout = 30 * time.Second

// EventWatcher records the event types seen on one game's SSE stream.
type EventWatcher struct {
	types  chan string
	cancel context.CancelFunc
}

// WatchEvents subscribes to the game's event stream and returns once the
// server's connected frame arrives, so later publishes are not missed.
func WatchEvents(ctx context.Context, baseURL string, gameID uuid.UUID) (*EventWatcher, error) {
	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v1/events/gamestate/%s", baseURL, gameID), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	// no client timeout: the stream stays open for the whole case
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to connect to SSE: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("SSE connection failed with status %d", resp.StatusCode)
	}

	w := &EventWatcher{types: make(chan string, 64), cancel: cancel}
	go func() {
		defer func() { _ = resp.Body.Close() }()
		defer close(w.types)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if t, ok := strings.CutPrefix(line, "event: "); ok {
				select {
				case w.types <- t:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	if err := w.WaitFor(ctx, "connected", EventTimeout); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

// WaitFor consumes events until one of eventType arrives.
func (w *EventWatcher) WaitFor(ctx context.Context, eventType string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case t, ok := <-w.types:
			if !ok {
				return fmt.Errorf("event stream closed before %s", eventType)
			}
			if t == eventType {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timed out after %v waiting for %s", timeout, eventType)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *EventWatcher) Close() {
	w.cancel()
}
