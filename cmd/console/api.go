package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/date-engine/internal/handlers"
)

// apiClient talks to the date-engine HTTP API.
type apiClient struct {
	http    *http.Client
	baseURL string
}

func (c *apiClient) testConnection() bool {
	resp, err := c.http.Get(c.baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// do sends body (when non-nil) as JSON and decodes the reply into out when
// the status matches want.
func (c *apiClient) do(method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != want {
		var errorResp handlers.ErrorResponse
		if err := json.Unmarshal(data, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *apiClient) setup() (*handlers.SetupResponse, error) {
	var resp handlers.SetupResponse
	if err := c.do(http.MethodGet, "/v1/setup", nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *apiClient) createGame(req handlers.CreateGameStateRequest) (*handlers.GameView, error) {
	var view handlers.GameView
	if err := c.do(http.MethodPost, "/v1/gamestate", req, http.StatusCreated, &view); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	return &view, nil
}

func (c *apiClient) getGame(id uuid.UUID) (*handlers.GameView, error) {
	var view handlers.GameView
	if err := c.do(http.MethodGet, "/v1/gamestate/"+id.String(), nil, http.StatusOK, &view); err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return &view, nil
}

func (c *apiClient) choose(id uuid.UUID, choiceID string) (*handlers.TransitionResponse, error) {
	var resp handlers.TransitionResponse
	body := map[string]string{"choice_id": choiceID}
	if err := c.do(http.MethodPost, "/v1/gamestate/"+id.String()+"/choice", body, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *apiClient) respond(id uuid.UUID, message string) (*handlers.TransitionResponse, error) {
	var resp handlers.TransitionResponse
	body := map[string]string{"message": message}
	if err := c.do(http.MethodPost, "/v1/gamestate/"+id.String()+"/respond", body, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *apiClient) restart(id uuid.UUID) (*handlers.GameView, error) {
	var view handlers.GameView
	if err := c.do(http.MethodPost, "/v1/gamestate/"+id.String()+"/restart", nil, http.StatusOK, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *apiClient) driftReset(id uuid.UUID) error {
	return c.do(http.MethodPost, "/v1/gamestate/"+id.String()+"/drift-reset", nil, http.StatusAccepted, nil)
}

func (c *apiClient) leave(id uuid.UUID) error {
	return c.do(http.MethodDelete, "/v1/gamestate/"+id.String(), nil, http.StatusNoContent, nil)
}

// SSEEvent represents an event from the SSE stream
type SSEEvent struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// listenToSSE connects to the SSE endpoint and streams events to a channel
func (c *apiClient) listenToSSE(ctx context.Context, gameStateID uuid.UUID, eventChan chan<- SSEEvent) error {
	url := fmt.Sprintf("%s/v1/events/gamestate/%s", c.baseURL, gameStateID.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// the shared client has a timeout; SSE must not
	resp, err := (&http.Client{Transport: c.http.Transport}).Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to SSE: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("SSE connection failed with status %d: %s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	var currentEvent SSEEvent

	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			// Empty line signals end of event
			if currentEvent.Type != "" {
				select {
				case eventChan <- currentEvent:
				case <-ctx.Done():
					return ctx.Err()
				}
				currentEvent = SSEEvent{}
			}
			continue
		}

		if strings.HasPrefix(line, "event: ") {
			currentEvent.Type = strings.TrimPrefix(line, "event: ")
		} else if strings.HasPrefix(line, "data: ") {
			var data map[string]any
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &data); err == nil {
				// game events wrap their payload
				if inner, ok := data["data"].(map[string]any); ok {
					data = inner
				}
				currentEvent.Data = data
			}
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error reading SSE stream: %w", err)
	}
	return nil
}
