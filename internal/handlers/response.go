package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, ErrorResponse{Error: msg})
}

// splitIDPath splits "/{id}/{action}" after prefix. Both parts may be empty.
func splitIDPath(path, prefix string) (id, action string) {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return "", ""
	}
	id, action, _ = strings.Cut(rest, "/")
	return id, action
}

// parseGameID parses a path id, answering 400 when it is malformed.
func parseGameID(w http.ResponseWriter, logger *slog.Logger, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		logger.Warn("Invalid game state ID", "id", raw, "error", err)
		writeError(w, logger, http.StatusBadRequest, "Invalid game state ID format")
		return uuid.Nil, false
	}
	return id, true
}
