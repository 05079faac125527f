package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/date-engine/internal/services/events"
)

const keepaliveInterval = 30 * time.Second

// EventsHandler handles Server-Sent Events (SSE) for real-time game updates
type EventsHandler struct {
	redisClient *redis.Client
	logger      *slog.Logger
	keepalive   time.Duration
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(redisClient *redis.Client, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		redisClient: redisClient,
		logger:      logger,
		keepalive:   keepaliveInterval,
	}
}

// ServeHTTP handles SSE requests for game events
// GET /v1/events/gamestate/{gameStateID}
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.logger.Warn("Method not allowed for events endpoint",
			"method", r.Method,
			"path", r.URL.Path)
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	rawID, rest := splitIDPath(r.URL.Path, "/v1/events/gamestate")
	if rawID == "" || rest != "" {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid path. Expected /v1/events/gamestate/{gameStateID}")
		return
	}
	gameStateID, ok := parseGameID(w, h.logger, rawID)
	if !ok {
		return
	}

	h.logger.Info("SSE connection established",
		"game_state_id", gameStateID.String(),
		"remote_addr", r.RemoteAddr)

	// Subscribe before answering so no event published after the
	// "connected" frame is missed.
	channel := events.Channel(gameStateID)
	pubsub := h.redisClient.Subscribe(r.Context(), channel)
	defer func() {
		if err := pubsub.Close(); err != nil {
			h.logger.Error("Failed to close pubsub", "error", err)
		}
	}()
	if _, err := pubsub.Receive(r.Context()); err != nil {
		h.logger.Error("Failed to subscribe", "error", err, "channel", channel)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to subscribe to game events")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	msgChan := pubsub.Channel()

	keepaliveTicker := time.NewTicker(h.keepalive)
	defer keepaliveTicker.Stop()

	h.sendSSE(w, "connected", map[string]any{
		"game_id": gameStateID.String(),
		"message": "Connected to event stream",
	})

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("SSE client disconnected",
				"game_state_id", gameStateID.String())
			return

		case msg, ok := <-msgChan:
			if !ok {
				return
			}
			var event events.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				h.logger.Error("Failed to unmarshal event", "error", err, "payload", msg.Payload)
				continue
			}
			h.sendSSE(w, string(event.Type), event)

		case <-keepaliveTicker.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				h.logger.Error("Failed to write keepalive", "error", err)
				return
			}
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
		}
	}
}

// sendSSE sends a Server-Sent Event to the client
func (h *EventsHandler) sendSSE(w http.ResponseWriter, eventType string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("Failed to marshal SSE data", "error", err)
		return
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, dataJSON); err != nil {
		h.logger.Error("Failed to write event", "error", err)
		return
	}

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
