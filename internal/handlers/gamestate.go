package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jwebster45206/date-engine/internal/content"
	"github.com/jwebster45206/date-engine/internal/services/evaluator"
	"github.com/jwebster45206/date-engine/pkg/character"
	"github.com/jwebster45206/date-engine/pkg/chat"
	"github.com/jwebster45206/date-engine/pkg/engine"
	"github.com/jwebster45206/date-engine/pkg/episode"
	"github.com/jwebster45206/date-engine/pkg/meters"
	"github.com/jwebster45206/date-engine/pkg/prompts"
	"github.com/jwebster45206/date-engine/pkg/queue"
	"github.com/jwebster45206/date-engine/pkg/state"
	"github.com/jwebster45206/date-engine/pkg/storage"
	"github.com/jwebster45206/date-engine/pkg/textfilter"
)

// DefaultLockTTL covers one evaluation plus load and save.
const DefaultLockTTL = evaluator.DefaultTimeout + 15*time.Second

// defaultLocationLabel is what the evaluator is told when the setup named
// an unknown location.
const defaultLocationLabel = "cafe"

var validate = validator.New()

// StreamRequester queues video stream work. Calls never fail the request.
type StreamRequester interface {
	Start(ctx context.Context, gameID uuid.UUID, prompt string)
	Interact(ctx context.Context, gameID uuid.UUID, prompt, reason, turnID string)
	Stop(ctx context.Context, gameID uuid.UUID, reason string)
}

// EventPublisher announces game transitions to SSE subscribers.
type EventPublisher interface {
	PublishTurnAdvanced(ctx context.Context, gameID uuid.UUID, turnIndex int, choiceID string, meters any) error
	PublishGameCompleted(ctx context.Context, gameID uuid.UUID, outcomeID, label string) error
	PublishGameRestarted(ctx context.Context, gameID uuid.UUID) error
}

type noopStreams struct{}

func (noopStreams) Start(context.Context, uuid.UUID, string)                    {}
func (noopStreams) Interact(context.Context, uuid.UUID, string, string, string) {}
func (noopStreams) Stop(context.Context, uuid.UUID, string)                     {}

type noopEvents struct{}

func (noopEvents) PublishTurnAdvanced(context.Context, uuid.UUID, int, string, any) error { return nil }
func (noopEvents) PublishGameCompleted(context.Context, uuid.UUID, string, string) error  { return nil }
func (noopEvents) PublishGameRestarted(context.Context, uuid.UUID) error                  { return nil }

type GameStateHandler struct {
	storage   storage.Storage
	catalog   *content.Catalog
	evaluator *evaluator.Evaluator
	streams   StreamRequester
	events    EventPublisher
	filter    *textfilter.Filter
	logger    *slog.Logger

	strict       bool
	lockTTL      time.Duration
	videoEnabled bool
}

func NewGameStateHandler(logger *slog.Logger, storage storage.Storage, catalog *content.Catalog, eval *evaluator.Evaluator) *GameStateHandler {
	return &GameStateHandler{
		storage:   storage,
		catalog:   catalog,
		evaluator: eval,
		streams:   noopStreams{},
		events:    noopEvents{},
		filter:    textfilter.New(),
		logger:    logger,
		lockTTL:   DefaultLockTTL,
	}
}

func (h *GameStateHandler) WithStreams(s StreamRequester) *GameStateHandler {
	h.streams = s
	return h
}

func (h *GameStateHandler) WithEvents(e EventPublisher) *GameStateHandler {
	h.events = e
	return h
}

// WithStrict makes content errors fail requests instead of degrading.
func (h *GameStateHandler) WithStrict(strict bool) *GameStateHandler {
	h.strict = strict
	return h
}

func (h *GameStateHandler) WithLockTTL(ttl time.Duration) *GameStateHandler {
	if ttl > 0 {
		h.lockTTL = ttl
	}
	return h
}

func (h *GameStateHandler) WithVideoEnabled(enabled bool) *GameStateHandler {
	h.videoEnabled = enabled
	return h
}

// ServeHTTP handles HTTP requests for game state operations
// Routes:
// POST /v1/gamestate                  - Create new game
// GET /v1/gamestate/{id}              - Current view
// DELETE /v1/gamestate/{id}           - Leave the game
// POST /v1/gamestate/{id}/choice      - Scripted choice
// POST /v1/gamestate/{id}/respond     - Free-form response
// POST /v1/gamestate/{id}/restart     - Start over
// POST /v1/gamestate/{id}/drift-reset - Re-anchor the video stream
func (h *GameStateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rawID, action := splitIDPath(r.URL.Path, "/v1/gamestate")

	if rawID == "" {
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
			return
		}
		h.handleCreate(w, r)
		return
	}

	gameStateID, ok := parseGameID(w, h.logger, rawID)
	if !ok {
		return
	}

	if action == "" {
		switch r.Method {
		case http.MethodGet:
			h.handleRead(w, r, gameStateID)
		case http.MethodDelete:
			h.handleDelete(w, r, gameStateID)
		default:
			h.logger.Warn("Method not allowed for game state endpoint", "method", r.Method)
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET, DELETE")
		}
		return
	}

	var handle func(http.ResponseWriter, *http.Request, uuid.UUID)
	switch action {
	case "choice":
		handle = h.handleChoice
	case "respond":
		handle = h.handleRespond
	case "restart":
		handle = h.handleRestart
	case "drift-reset":
		handle = h.handleDriftReset
	default:
		writeError(w, h.logger, http.StatusNotFound, "Unknown action: "+action)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}
	handle(w, r, gameStateID)
}

// CustomCharacterRequest describes a player-invented date.
type CustomCharacterRequest struct {
	Name       string           `json:"name" validate:"required,max=50"`
	Gender     character.Gender `json:"gender" validate:"required,oneof=male female non-binary"`
	Appearance string           `json:"appearance" validate:"required,max=1000"`
}

type PlayerRequest struct {
	Name   string           `json:"name" validate:"max=50"`
	Gender character.Gender `json:"gender" validate:"omitempty,oneof=male female non-binary"`
}

// CreateGameStateRequest defines the request body for creating a new game.
// Every field is optional.
type CreateGameStateRequest struct {
	EpisodeID       string                  `json:"episode_id,omitempty"`
	LocationID      string                  `json:"location_id,omitempty"`
	ToneID          string                  `json:"tone_id,omitempty"`
	DateIdeaID      string                  `json:"date_idea_id,omitempty"`
	DateCharacterID string                  `json:"date_character_id,omitempty"`
	DateCharacter   *CustomCharacterRequest `json:"date_character,omitempty"`
	Player          *PlayerRequest          `json:"player,omitempty"`
}

// Setup converts the request into a game setup with defaults applied.
func (req *CreateGameStateRequest) Setup() character.Setup {
	s := character.Setup{
		LocationID:      strings.TrimSpace(req.LocationID),
		ToneID:          strings.TrimSpace(req.ToneID),
		DateIdeaID:      strings.TrimSpace(req.DateIdeaID),
		DateCharacterID: strings.TrimSpace(req.DateCharacterID),
	}
	if req.DateCharacter != nil {
		custom := character.NewCustom(req.DateCharacter.Name, req.DateCharacter.Gender, req.DateCharacter.Appearance)
		s.DateCharacterID = character.CustomID
		s.CustomCharacter = &custom
	} else if s.DateCharacterID == character.CustomID {
		// custom without a description
		s.DateCharacterID = ""
	}
	if req.Player != nil {
		s.Player = character.Player{
			Name:   strings.TrimSpace(req.Player.Name),
			Gender: req.Player.Gender,
		}
	}
	return s.WithDefaults()
}

func (h *GameStateHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateGameStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("Invalid JSON in request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid setup: "+err.Error())
		return
	}

	episodeID := strings.TrimSpace(req.EpisodeID)
	if episodeID == "" {
		episodeID = content.DefaultEpisodeID
	}
	ep, err := h.storage.GetEpisode(r.Context(), episodeID)
	if errors.Is(err, storage.ErrEpisodeNotFound) {
		writeError(w, h.logger, http.StatusBadRequest, "Unknown episode: "+episodeID)
		return
	}
	if err != nil {
		h.logger.Error("Failed to load episode", "error", err, "episode_id", episodeID)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load episode")
		return
	}

	setup := req.Setup()
	gs := state.NewGameState(ep, setup)
	eng := h.engine(ep)

	view, err := h.buildView(eng, gs)
	if err != nil {
		h.logger.Error("Episode content error", "error", err, "episode_id", ep.EpisodeID)
		writeError(w, h.logger, http.StatusInternalServerError, "Episode content error")
		return
	}

	if err := h.storage.SaveGameState(r.Context(), gs.ID, gs); err != nil {
		h.logger.Error("Failed to save new game state", "error", err, "id", gs.ID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to create game state")
		return
	}

	h.streams.Start(r.Context(), gs.ID, h.initialPrompt(ep, gs))

	h.logger.Info("Game created",
		"id", gs.ID.String(),
		"episode_id", ep.EpisodeID,
		"date_character_id", setup.DateCharacterID,
		"location_id", setup.LocationID,
		"tone_id", setup.ToneID)
	writeJSON(w, h.logger, http.StatusCreated, view)
}

func (h *GameStateHandler) handleRead(w http.ResponseWriter, r *http.Request, gameStateID uuid.UUID) {
	gs, eng, ok := h.loadGame(w, r, gameStateID)
	if !ok {
		return
	}
	h.writeView(w, eng, gs, http.StatusOK)
}

func (h *GameStateHandler) handleDelete(w http.ResponseWriter, r *http.Request, gameStateID uuid.UUID) {
	if err := h.storage.DeleteGameState(r.Context(), gameStateID); err != nil {
		h.logger.Error("Failed to delete game state", "error", err, "id", gameStateID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete game state")
		return
	}
	h.streams.Stop(r.Context(), gameStateID, queue.ReasonLeave)
	h.logger.Debug("Game state deleted successfully", "id", gameStateID.String())
	w.WriteHeader(http.StatusNoContent)
}

// TransitionResponse answers choice and respond. Applied is false when the
// choice did not match the current turn or the game had already ended; the
// game is then unchanged.
type TransitionResponse struct {
	Applied       bool          `json:"applied"`
	ChoiceID      string        `json:"choice_id,omitempty"`
	NpcResponse   string        `json:"npc_response,omitempty"`
	MeterDelta    *meters.Delta `json:"meter_delta,omitempty"`
	IsAppropriate *bool         `json:"is_appropriate,omitempty"`
	Game          *GameView     `json:"game"`
}

func (h *GameStateHandler) handleChoice(w http.ResponseWriter, r *http.Request, gameStateID uuid.UUID) {
	var req chat.ChoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	release, ok := h.lock(w, r, gameStateID)
	if !ok {
		return
	}
	defer release()

	gs, eng, ok := h.loadGame(w, r, gameStateID)
	if !ok {
		return
	}

	turn, _ := eng.CurrentTurn(gs)
	choice, applied := eng.MakeChoice(gs, req.ChoiceID)
	if !applied {
		h.logger.Info("Choice not applied", "id", gameStateID.String(), "choice_id", req.ChoiceID, "turn_index", gs.TurnIndex)
		h.writeTransition(w, eng, gs, TransitionResponse{Applied: false, ChoiceID: req.ChoiceID})
		return
	}

	view, ok := h.view(w, eng, gs)
	if !ok {
		return
	}
	if !h.save(w, r, gs) {
		return
	}
	h.afterTransition(r.Context(), eng, gs, turn, choice.ReactionPrompt, queue.ReasonChoice)

	delta := choice.MeterDelta
	writeJSON(w, h.logger, http.StatusOK, TransitionResponse{
		Applied:    true,
		ChoiceID:   choice.ChoiceID,
		MeterDelta: &delta,
		Game:       view,
	})
}

func (h *GameStateHandler) handleRespond(w http.ResponseWriter, r *http.Request, gameStateID uuid.UUID) {
	var req chat.RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	release, ok := h.lock(w, r, gameStateID)
	if !ok {
		return
	}
	defer release()

	gs, eng, ok := h.loadGame(w, r, gameStateID)
	if !ok {
		return
	}

	turn, ok := eng.CurrentTurn(gs)
	if !ok || gs.IsComplete {
		h.writeTransition(w, eng, gs, TransitionResponse{Applied: false, ChoiceID: state.CustomChoiceID})
		return
	}

	ep := eng.Episode()
	dc := h.catalog.DateCharacterFor(gs.Setup)
	locationLabel := defaultLocationLabel
	if loc, ok := h.catalog.Location(gs.Setup.LocationID); ok {
		locationLabel = loc.Label
	}

	result := h.evaluator.Evaluate(r.Context(), evaluator.Request{
		UserMessage:          strings.TrimSpace(req.Message),
		CharacterName:        dc.DisplayName,
		CharacterGender:      string(dc.Gender),
		CharacterPersonality: dc.Personality(),
		CurrentMood:          gs.Setup.ToneID,
		ConversationContext:  eng.RecentContext(gs, engine.DefaultContextEntries),
		Location:             locationLabel,
		Rating:               ep.Rating,
	})
	if !result.IsAppropriate {
		h.logger.Info("Player message flagged as inappropriate", "id", gameStateID.String())
	}

	dialogue := h.filter.ForRating(ep.Rating, result.NpcDialogue)
	if !eng.ApplyCustomResponse(gs, result.MeterDelta, dialogue) {
		h.writeTransition(w, eng, gs, TransitionResponse{Applied: false, ChoiceID: state.CustomChoiceID})
		return
	}
	gs.SetLastPlayerText(strings.TrimSpace(req.Message))

	view, ok := h.view(w, eng, gs)
	if !ok {
		return
	}
	if !h.save(w, r, gs) {
		return
	}
	h.afterTransition(r.Context(), eng, gs, turn, result.VisualPrompt, queue.ReasonCustom)

	entry, _ := gs.LastEntry()
	appropriate := result.IsAppropriate
	writeJSON(w, h.logger, http.StatusOK, TransitionResponse{
		Applied:       true,
		ChoiceID:      state.CustomChoiceID,
		NpcResponse:   dialogue,
		MeterDelta:    &entry.MeterDelta,
		IsAppropriate: &appropriate,
		Game:          view,
	})
}

func (h *GameStateHandler) handleRestart(w http.ResponseWriter, r *http.Request, gameStateID uuid.UUID) {
	release, ok := h.lock(w, r, gameStateID)
	if !ok {
		return
	}
	defer release()

	gs, eng, ok := h.loadGame(w, r, gameStateID)
	if !ok {
		return
	}

	eng.Reset(gs)
	view, ok := h.view(w, eng, gs)
	if !ok {
		return
	}
	if !h.save(w, r, gs) {
		return
	}

	if err := h.events.PublishGameRestarted(r.Context(), gs.ID); err != nil {
		h.logger.Warn("Failed to publish restart", "error", err, "id", gs.ID.String())
	}
	h.streams.Start(r.Context(), gs.ID, h.initialPrompt(eng.Episode(), gs))

	h.logger.Info("Game restarted", "id", gs.ID.String())
	writeJSON(w, h.logger, http.StatusOK, view)
}

// DriftResetResponse acknowledges a queued drift reset.
type DriftResetResponse struct {
	Queued bool   `json:"queued"`
	Prompt string `json:"prompt"`
}

func (h *GameStateHandler) handleDriftReset(w http.ResponseWriter, r *http.Request, gameStateID uuid.UUID) {
	gs, eng, ok := h.loadGame(w, r, gameStateID)
	if !ok {
		return
	}

	ep := eng.Episode()
	var prompt string
	if ep.DevTools.DriftResetPrompt != "" {
		prompt = prompts.BuildDriftResetPrompt(h.catalog.PromptConfig(gs.Setup), ep.DevTools.DriftResetPrompt)
	} else {
		prompt = h.initialPrompt(ep, gs)
	}

	var turnID string
	if turn, ok := eng.CurrentTurn(gs); ok {
		turnID = turn.TurnID
	}
	h.streams.Interact(r.Context(), gs.ID, prompt, queue.ReasonDriftReset, turnID)

	h.logger.Info("Drift reset queued", "id", gs.ID.String())
	writeJSON(w, h.logger, http.StatusAccepted, DriftResetResponse{Queued: true, Prompt: prompt})
}

// afterTransition announces a saved transition and queues the video
// reaction. from is the turn the player acted on.
func (h *GameStateHandler) afterTransition(ctx context.Context, eng *engine.Engine, gs *state.GameState, from *episode.Turn, reaction, reason string) {
	entry, _ := gs.LastEntry()
	if err := h.events.PublishTurnAdvanced(ctx, gs.ID, gs.TurnIndex, entry.ChoiceID, gs.Meters); err != nil {
		h.logger.Warn("Failed to publish turn", "error", err, "id", gs.ID.String())
	}

	if gs.IsComplete {
		outcome := episode.DetermineOutcomeOrDefault(gs.Meters, eng.Episode().Outcomes)
		if err := h.events.PublishGameCompleted(ctx, gs.ID, outcome.OutcomeID, outcome.Label); err != nil {
			h.logger.Warn("Failed to publish completion", "error", err, "id", gs.ID.String())
		}
		h.logger.Info("Game completed", "id", gs.ID.String(), "outcome", outcome.OutcomeID, "meters", gs.Meters)
	}

	ep := eng.Episode()
	cfg := h.catalog.PromptConfig(gs.Setup)
	if reaction != "" {
		h.streams.Interact(ctx, gs.ID, prompts.BuildReactionPrompt(cfg, prompts.ReactionPromptOptions{
			Reaction:          reaction,
			GlobalConstraints: ep.PromptTemplates.GlobalConstraints,
		}), reason, from.TurnID)
	}

	next, ok := eng.CurrentTurn(gs)
	if gs.IsComplete || !ok || next.SceneID == from.SceneID {
		return
	}
	h.streams.Interact(ctx, gs.ID, prompts.BuildSceneTransitionPrompt(cfg, prompts.SceneTransitionOptions{
		FromSceneID:  from.SceneID,
		ToSceneID:    next.SceneID,
		ShotTemplate: ep.ShotTemplate(next.ShotTemplateID),
	}), queue.ReasonTransition, next.TurnID)
}

func (h *GameStateHandler) initialPrompt(ep *episode.Episode, gs *state.GameState) string {
	return prompts.BuildInitialPrompt(h.catalog.PromptConfig(gs.Setup), prompts.ScenePromptOptions{
		GlobalConstraints: ep.PromptTemplates.GlobalConstraints,
	})
}

func (h *GameStateHandler) engine(ep *episode.Episode) *engine.Engine {
	return engine.New(ep, h.logger).WithStrict(h.strict)
}

// lock takes the game's transition lock, answering 409 when another
// transition holds it.
func (h *GameStateHandler) lock(w http.ResponseWriter, r *http.Request, gameStateID uuid.UUID) (func(), bool) {
	token, err := h.storage.AcquireGameLock(r.Context(), gameStateID, h.lockTTL)
	if errors.Is(err, storage.ErrGameLocked) {
		h.logger.Info("Game is locked", "id", gameStateID.String())
		writeError(w, h.logger, http.StatusConflict, "Another action for this game is in progress")
		return nil, false
	}
	if err != nil {
		h.logger.Error("Failed to acquire game lock", "error", err, "id", gameStateID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to lock game state")
		return nil, false
	}
	return func() {
		// the request context may already be done
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := h.storage.ReleaseGameLock(ctx, gameStateID, token); err != nil {
			h.logger.Error("Failed to release game lock", "error", err, "id", gameStateID.String())
		}
	}, true
}

// loadGame loads a game and an engine for its episode, answering 404 or 500
// itself.
func (h *GameStateHandler) loadGame(w http.ResponseWriter, r *http.Request, gameStateID uuid.UUID) (*state.GameState, *engine.Engine, bool) {
	gs, err := h.storage.LoadGameState(r.Context(), gameStateID)
	if err != nil {
		h.logger.Error("Failed to load game state", "error", err, "id", gameStateID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load game state")
		return nil, nil, false
	}
	if gs == nil {
		h.logger.Warn("Game state not found", "id", gameStateID.String())
		writeError(w, h.logger, http.StatusNotFound, "Game state not found")
		return nil, nil, false
	}

	ep, err := h.storage.GetEpisode(r.Context(), gs.EpisodeID)
	if err != nil {
		h.logger.Error("Failed to load episode for game", "error", err, "id", gameStateID.String(), "episode_id", gs.EpisodeID)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load episode")
		return nil, nil, false
	}
	return gs, h.engine(ep), true
}

func (h *GameStateHandler) save(w http.ResponseWriter, r *http.Request, gs *state.GameState) bool {
	gs.UpdatedAt = time.Now()
	if err := h.storage.SaveGameState(r.Context(), gs.ID, gs); err != nil {
		h.logger.Error("Failed to save game state", "error", err, "id", gs.ID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save game state")
		return false
	}
	return true
}

// view builds the game view, answering 500 itself on a content error.
// Transitions build it before saving so a failure leaves the stored game
// untouched.
func (h *GameStateHandler) view(w http.ResponseWriter, eng *engine.Engine, gs *state.GameState) (*GameView, bool) {
	view, err := h.buildView(eng, gs)
	if err != nil {
		h.logger.Error("Episode content error", "error", err, "id", gs.ID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Episode content error")
		return nil, false
	}
	return view, true
}

func (h *GameStateHandler) writeView(w http.ResponseWriter, eng *engine.Engine, gs *state.GameState, status int) {
	if view, ok := h.view(w, eng, gs); ok {
		writeJSON(w, h.logger, status, view)
	}
}

func (h *GameStateHandler) writeTransition(w http.ResponseWriter, eng *engine.Engine, gs *state.GameState, resp TransitionResponse) {
	if view, ok := h.view(w, eng, gs); ok {
		resp.Game = view
		writeJSON(w, h.logger, http.StatusOK, resp)
	}
}
