package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/date-engine/internal/content"
	"github.com/jwebster45206/date-engine/pkg/character"
)

// SetupResponse lists what a player can pick before a date, with the
// selection used when a field is left empty.
type SetupResponse struct {
	*content.Catalog
	Defaults character.Setup `json:"defaults"`
}

type SetupHandler struct {
	catalog *content.Catalog
	logger  *slog.Logger
}

func NewSetupHandler(catalog *content.Catalog, logger *slog.Logger) *SetupHandler {
	return &SetupHandler{catalog: catalog, logger: logger}
}

// ServeHTTP handles GET /v1/setup
func (h *SetupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, SetupResponse{
		Catalog:  h.catalog,
		Defaults: character.Setup{}.WithDefaults(),
	})
}
