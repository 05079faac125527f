package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"

	"github.com/jwebster45206/date-engine/pkg/storage"
)

type EpisodeSummary struct {
	EpisodeID string `json:"episode_id"`
	Title     string `json:"title"`
}

type EpisodeListResponse struct {
	Episodes []EpisodeSummary `json:"episodes"`
}

type EpisodesHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

func NewEpisodesHandler(storage storage.Storage, logger *slog.Logger) *EpisodesHandler {
	return &EpisodesHandler{storage: storage, logger: logger}
}

// ServeHTTP handles episode requests
// Routes:
// GET /v1/episodes      - List episodes
// GET /v1/episodes/{id} - Full episode content
func (h *EpisodesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	id, _ := splitIDPath(r.URL.Path, "/v1/episodes")
	if id == "" {
		h.handleList(w, r)
		return
	}

	ep, err := h.storage.GetEpisode(r.Context(), id)
	if errors.Is(err, storage.ErrEpisodeNotFound) {
		writeError(w, h.logger, http.StatusNotFound, "Episode not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to load episode", "error", err, "episode_id", id)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load episode")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, ep)
}

func (h *EpisodesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	titles, err := h.storage.ListEpisodes(r.Context())
	if err != nil {
		h.logger.Error("Failed to list episodes", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list episodes")
		return
	}

	resp := EpisodeListResponse{Episodes: make([]EpisodeSummary, 0, len(titles))}
	for id, title := range titles {
		resp.Episodes = append(resp.Episodes, EpisodeSummary{EpisodeID: id, Title: title})
	}
	sort.Slice(resp.Episodes, func(i, j int) bool {
		return resp.Episodes[i].EpisodeID < resp.Episodes[j].EpisodeID
	})
	writeJSON(w, h.logger, http.StatusOK, resp)
}
