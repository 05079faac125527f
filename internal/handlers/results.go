package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jwebster45206/date-engine/internal/content"
	"github.com/jwebster45206/date-engine/pkg/episode"
	"github.com/jwebster45206/date-engine/pkg/meters"
	"github.com/jwebster45206/date-engine/pkg/storage"
)

// ResultsResponse is the end screen for a set of final meters.
type ResultsResponse struct {
	EpisodeID   string           `json:"episode_id"`
	Meters      meters.Meters    `json:"meters"`
	MeterConfig meters.ConfigSet `json:"meter_config"`
	Outcome     episode.Outcome  `json:"outcome"`
	Determined  bool             `json:"determined"`
}

type ResultsHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

func NewResultsHandler(storage storage.Storage, logger *slog.Logger) *ResultsHandler {
	return &ResultsHandler{storage: storage, logger: logger}
}

// ServeHTTP handles GET /v1/results?trust=&chemistry=&affection=&episode=
// Missing meters read as 0.
func (h *ResultsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	q := r.URL.Query()
	m, err := parseMeters(q)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	episodeID := q.Get("episode")
	if episodeID == "" {
		episodeID = content.DefaultEpisodeID
	}
	ep, err := h.storage.GetEpisode(r.Context(), episodeID)
	if errors.Is(err, storage.ErrEpisodeNotFound) {
		writeError(w, h.logger, http.StatusNotFound, "Episode not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to load episode", "error", err, "episode_id", episodeID)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load episode")
		return
	}

	outcome, ok := episode.DetermineOutcome(m, ep.Outcomes)
	if !ok {
		outcome = episode.UndeterminedOutcome
	}
	writeJSON(w, h.logger, http.StatusOK, ResultsResponse{
		EpisodeID:   ep.EpisodeID,
		Meters:      m,
		MeterConfig: ep.Meters,
		Outcome:     outcome,
		Determined:  ok,
	})
}

func parseMeters(q url.Values) (meters.Meters, error) {
	var m meters.Meters
	for _, name := range meters.Names {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return meters.Meters{}, fmt.Errorf("%s must be an integer", name)
		}
		switch name {
		case meters.Trust:
			m.Trust = v
		case meters.Chemistry:
			m.Chemistry = v
		case meters.Affection:
			m.Affection = v
		}
	}
	return m, nil
}

// ResultsURL is the results link for a finished game.
func ResultsURL(episodeID string, m meters.Meters) string {
	q := url.Values{}
	q.Set(meters.Trust, strconv.Itoa(m.Trust))
	q.Set(meters.Chemistry, strconv.Itoa(m.Chemistry))
	q.Set(meters.Affection, strconv.Itoa(m.Affection))
	q.Set("episode", episodeID)
	return "/v1/results?" + q.Encode()
}
