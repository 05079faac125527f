package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/date-engine/pkg/storage"
)

type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Service    string            `json:"service"`
	Components map[string]string `json:"components"`
}

type HealthHandler struct {
	storage      storage.Storage
	llmAvailable bool
	videoEnabled bool
	logger       *slog.Logger
}

// NewHealthHandler reports storage health. A missing LLM or video key is
// shown but does not degrade the service: both have fallbacks.
func NewHealthHandler(storage storage.Storage, llmAvailable, videoEnabled bool, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		storage:      storage,
		llmAvailable: llmAvailable,
		videoEnabled: videoEnabled,
		logger:       logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := make(map[string]string)
	overallStatus := "healthy"

	if err := h.storage.Ping(ctx); err != nil {
		h.logger.Warn("Storage health check failed", "error", err)
		components["storage"] = "unhealthy"
		overallStatus = "degraded"
	} else {
		components["storage"] = "healthy"
	}

	components["llm"] = "configured"
	if !h.llmAvailable {
		components["llm"] = "fallback"
	}
	components["video"] = "enabled"
	if !h.videoEnabled {
		components["video"] = "disabled"
	}

	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, h.logger, statusCode, HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Service:    "date-engine",
		Components: components,
	})
}
