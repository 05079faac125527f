package state

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/date-engine/pkg/character"
	"github.com/jwebster45206/date-engine/pkg/episode"
	"github.com/jwebster45206/date-engine/pkg/meters"
)

// CustomChoiceID is recorded for free-form responses.
const CustomChoiceID = episode.CustomChoiceID

// TranscriptEntry records one completed turn.
type TranscriptEntry struct {
	TurnID     string       `json:"turn_id"`
	NpcLine    string       `json:"npc_line"` // what the date said on that turn
	ChoiceID   string       `json:"choice_id"`
	PlayerText string       `json:"player_text,omitempty"`
	MeterDelta meters.Delta `json:"meter_delta"`
}

// IsCustom reports whether the entry came from a free-form response.
func (e TranscriptEntry) IsCustom() bool {
	return e.ChoiceID == CustomChoiceID
}

// GameState is one play session of an episode.
type GameState struct {
	ID         uuid.UUID         `json:"id"`
	Seed       string            `json:"seed"`
	EpisodeID  string            `json:"episode_id"`
	Setup      character.Setup   `json:"setup"`
	TurnIndex  int               `json:"turn_index"`
	Meters     meters.Meters     `json:"meters"`
	Transcript []TranscriptEntry `json:"transcript"`
	IsComplete bool              `json:"is_complete"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// NewGameState creates a session at the start of ep.
func NewGameState(ep *episode.Episode, setup character.Setup) *GameState {
	now := time.Now()
	return &GameState{
		ID:         uuid.New(),
		Seed:       NewSeed(),
		EpisodeID:  ep.EpisodeID,
		Setup:      setup,
		TurnIndex:  0,
		Meters:     ep.Meters.Start(),
		Transcript: make([]TranscriptEntry, 0, len(ep.Turns)),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// NewSeed returns a fresh session seed.
func NewSeed() string {
	return uuid.NewString()
}

// LastEntry returns the most recent transcript entry.
func (gs *GameState) LastEntry() (TranscriptEntry, bool) {
	if len(gs.Transcript) == 0 {
		return TranscriptEntry{}, false
	}
	return gs.Transcript[len(gs.Transcript)-1], true
}

// SetLastPlayerText records what the player typed on the latest entry.
func (gs *GameState) SetLastPlayerText(text string) {
	if len(gs.Transcript) == 0 {
		return
	}
	gs.Transcript[len(gs.Transcript)-1].PlayerText = text
}
