package handlers

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jwebster45206/date-engine/pkg/character"
	"github.com/jwebster45206/date-engine/pkg/engine"
	"github.com/jwebster45206/date-engine/pkg/episode"
	"github.com/jwebster45206/date-engine/pkg/meters"
	"github.com/jwebster45206/date-engine/pkg/state"
)

// ChoiceView is a choice as shown to the player; deltas stay hidden.
type ChoiceView struct {
	ChoiceID   string `json:"choice_id"`
	PlayerText string `json:"player_text"`
}

// VideoView tells the client whether a stream will appear.
type VideoView struct {
	Enabled     bool   `json:"enabled"`
	Placeholder string `json:"placeholder,omitempty"`
}

// GameView is everything a client renders for one game.
type GameView struct {
	ID            uuid.UUID               `json:"id"`
	EpisodeID     string                  `json:"episode_id"`
	EpisodeTitle  string                  `json:"episode_title"`
	Setup         character.Setup         `json:"setup"`
	DateCharacter character.DateCharacter `json:"date_character"`

	TurnIndex  int              `json:"turn_index"`
	TotalTurns int              `json:"total_turns"`
	TurnID     string           `json:"turn_id,omitempty"`
	NpcLine    *episode.NpcLine `json:"npc_line,omitempty"`
	Choices    []ChoiceView     `json:"choices,omitempty"`

	Meters      meters.Meters           `json:"meters"`
	MeterConfig meters.ConfigSet        `json:"meter_config"`
	Transcript  []state.TranscriptEntry `json:"transcript"`
	IsComplete  bool                    `json:"is_complete"`
	Outcome     *episode.Outcome        `json:"outcome,omitempty"`
	ResultsURL  string                  `json:"results_url,omitempty"`

	Video VideoView `json:"video"`
}

// buildView resolves gs against its episode. It fails only for a content
// error in strict mode.
func (h *GameStateHandler) buildView(eng *engine.Engine, gs *state.GameState) (*GameView, error) {
	ep := eng.Episode()
	dc := h.catalog.DateCharacterFor(gs.Setup)

	v := &GameView{
		ID:            gs.ID,
		EpisodeID:     ep.EpisodeID,
		EpisodeTitle:  ep.Title,
		Setup:         gs.Setup,
		DateCharacter: dc,
		TurnIndex:     gs.TurnIndex,
		TotalTurns:    eng.TotalTurns(),
		Meters:        gs.Meters,
		MeterConfig:   ep.Meters,
		Transcript:    gs.Transcript,
		IsComplete:    gs.IsComplete,
		Video:         VideoView{Enabled: h.videoEnabled},
	}
	if !h.videoEnabled {
		v.Video.Placeholder = fmt.Sprintf("Video stream disabled. %s is waiting at the table.", dc.DisplayName)
	}

	if gs.IsComplete {
		outcome := episode.DetermineOutcomeOrDefault(gs.Meters, ep.Outcomes)
		v.Outcome = &outcome
		v.ResultsURL = ResultsURL(ep.EpisodeID, gs.Meters)
		return v, nil
	}

	turn, ok := eng.CurrentTurn(gs)
	if !ok {
		return v, nil
	}
	line, err := eng.ResolveNpcLine(gs)
	if err != nil {
		return nil, err
	}
	v.TurnID = turn.TurnID
	v.NpcLine = &line
	v.Choices = make([]ChoiceView, 0, len(turn.Choices))
	for _, c := range turn.Choices {
		v.Choices = append(v.Choices, ChoiceView{ChoiceID: c.ChoiceID, PlayerText: c.PlayerText})
	}
	return v, nil
}
