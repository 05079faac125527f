package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jwebster45206/date-engine/pkg/episode"
	"github.com/jwebster45206/date-engine/pkg/meters"
	"github.com/jwebster45206/date-engine/pkg/state"
)

// ErrNoMatchingVariant means a turn's variant list had no match for the
// current meters. Content validation rejects such lists, so this indicates
// an authoring error in content that skipped validation.
var ErrNoMatchingVariant = errors.New("no npc line variant matches current meters")

// DefaultContextEntries is how many transcript entries RecentContext uses.
const DefaultContextEntries = 3

// Engine advances GameStates through one episode. It holds no per-game
// state and is safe for concurrent use.
type Engine struct {
	ep     *episode.Episode
	logger *slog.Logger
	strict bool
}

// New creates an engine for ep.
func New(ep *episode.Episode, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{ep: ep, logger: logger}
}

// WithStrict makes ResolveNpcLine return ErrNoMatchingVariant instead of
// falling back to an empty line.
func (e *Engine) WithStrict(strict bool) *Engine {
	e.strict = strict
	return e
}

// Episode returns the episode being played.
func (e *Engine) Episode() *episode.Episode {
	return e.ep
}

// TotalTurns is the number of turns in the episode.
func (e *Engine) TotalTurns() int {
	return len(e.ep.Turns)
}

// CurrentTurn returns the active turn, or false once the script is exhausted.
func (e *Engine) CurrentTurn(gs *state.GameState) (*episode.Turn, bool) {
	if gs.TurnIndex < 0 || gs.TurnIndex >= len(e.ep.Turns) {
		return nil, false
	}
	return &e.ep.Turns[gs.TurnIndex], true
}

// ResolveNpcLine returns the line the date says on the current turn.
func (e *Engine) ResolveNpcLine(gs *state.GameState) (episode.NpcLine, error) {
	turn, ok := e.CurrentTurn(gs)
	if !ok {
		return episode.NpcLine{}, nil
	}
	line, ok := turn.ResolveLine(gs.Meters)
	if ok {
		return line, nil
	}
	if e.strict {
		return episode.NpcLine{}, fmt.Errorf("turn %s: %w", turn.TurnID, ErrNoMatchingVariant)
	}
	e.logger.Warn("No npc line variant matched, using empty line",
		"episode_id", e.ep.EpisodeID,
		"turn_id", turn.TurnID,
		"meters", gs.Meters)
	return episode.NpcLine{}, nil
}

// displayedLine is the line shown before the player acted. A content error
// degrades to an empty line here since the transition must still happen.
func (e *Engine) displayedLine(gs *state.GameState) string {
	line, err := e.ResolveNpcLine(gs)
	if err != nil {
		e.logger.Warn("Recording empty npc line", "game_id", gs.ID, "error", err)
	}
	return line.Text
}

// MakeChoice applies a scripted choice. Unknown ids and completed games
// leave gs untouched and return false.
func (e *Engine) MakeChoice(gs *state.GameState, choiceID string) (*episode.Choice, bool) {
	if gs.IsComplete {
		return nil, false
	}
	turn, ok := e.CurrentTurn(gs)
	if !ok {
		return nil, false
	}
	choice, ok := turn.FindChoice(choiceID)
	if !ok {
		e.logger.Debug("Ignoring unknown choice", "game_id", gs.ID, "turn_id", turn.TurnID, "choice_id", choiceID)
		return nil, false
	}

	e.advance(gs, turn, state.TranscriptEntry{
		TurnID:     turn.TurnID,
		NpcLine:    e.displayedLine(gs),
		ChoiceID:   choice.ChoiceID,
		PlayerText: choice.PlayerText,
		MeterDelta: choice.MeterDelta,
	})
	return choice, true
}

// ApplyCustomResponse applies a free-form response. The delta is clamped
// to [meters.MinDelta, meters.MaxDelta] and npcResponse is recorded as the
// date's line.
func (e *Engine) ApplyCustomResponse(gs *state.GameState, delta meters.Delta, npcResponse string) bool {
	if gs.IsComplete {
		return false
	}
	turn, ok := e.CurrentTurn(gs)
	if !ok {
		return false
	}

	e.advance(gs, turn, state.TranscriptEntry{
		TurnID:     turn.TurnID,
		NpcLine:    npcResponse,
		ChoiceID:   state.CustomChoiceID,
		MeterDelta: meters.ClampDelta(delta),
	})
	return true
}

func (e *Engine) advance(gs *state.GameState, turn *episode.Turn, entry state.TranscriptEntry) {
	gs.Meters = meters.ApplyDelta(gs.Meters, entry.MeterDelta, e.ep.Meters)
	gs.Transcript = append(gs.Transcript, entry)
	gs.TurnIndex++
	gs.IsComplete = turn.EndEpisode || gs.TurnIndex >= len(e.ep.Turns)
}

// Outcome returns the ending for a completed game. The bool is false while
// the game is in progress or when no outcome condition matches.
func (e *Engine) Outcome(gs *state.GameState) (episode.Outcome, bool) {
	if !gs.IsComplete {
		return episode.Outcome{}, false
	}
	return episode.DetermineOutcome(gs.Meters, e.ep.Outcomes)
}

// Reset restarts gs at the beginning of the episode with a new seed.
func (e *Engine) Reset(gs *state.GameState) {
	gs.Seed = state.NewSeed()
	gs.EpisodeID = e.ep.EpisodeID
	gs.TurnIndex = 0
	gs.Meters = e.ep.Meters.Start()
	gs.Transcript = make([]state.TranscriptEntry, 0, len(e.ep.Turns))
	gs.IsComplete = false
}

// RecentContext summarises the last n transcript entries for the
// evaluation prompt. Scripted choices show the option text, free-form
// responses what the player typed. With no history it is the current NPC
// line.
func (e *Engine) RecentContext(gs *state.GameState, n int) string {
	if n <= 0 {
		n = DefaultContextEntries
	}
	entries := gs.Transcript
	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	if len(entries) == 0 {
		line, _ := e.ResolveNpcLine(gs)
		return line.Text
	}

	parts := make([]string, 0, len(entries))
	for _, entry := range entries {
		// the option's words read better to the model than its id
		verb, said := "chose", entry.ChoiceID
		if entry.IsCustom() {
			verb = "said"
		}
		if entry.PlayerText != "" {
			said = entry.PlayerText
		}
		parts = append(parts, fmt.Sprintf("Player %s: %s\nNPC said: %s", verb, said, entry.NpcLine))
	}
	return strings.Join(parts, "\n\n")
}

// CurrentShotTemplate is the shot template text for the active turn.
func (e *Engine) CurrentShotTemplate(gs *state.GameState) string {
	turn, ok := e.CurrentTurn(gs)
	if !ok {
		return ""
	}
	return e.ep.ShotTemplate(turn.ShotTemplateID)
}
