package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/date-engine/pkg/character"
	"github.com/jwebster45206/date-engine/pkg/episode"
	"github.com/jwebster45206/date-engine/pkg/meters"
)

func TestNewGameState(t *testing.T) {
	ep := &episode.Episode{
		EpisodeID: "episode-1",
		Meters: meters.ConfigSet{
			Trust:     meters.Config{Min: -3, Max: 6, Start: 1},
			Chemistry: meters.Config{Min: -3, Max: 6, Start: 0},
			Affection: meters.Config{Min: -3, Max: 6, Start: 2},
		},
		Turns: make([]episode.Turn, 6),
	}
	setup := character.Setup{}.WithDefaults()

	gs := NewGameState(ep, setup)
	assert.NotEqual(t, "", gs.Seed)
	assert.Equal(t, "episode-1", gs.EpisodeID)
	assert.Equal(t, 0, gs.TurnIndex)
	assert.Equal(t, meters.Meters{Trust: 1, Affection: 2}, gs.Meters)
	assert.Empty(t, gs.Transcript)
	assert.False(t, gs.IsComplete)
	assert.Equal(t, "neon_cafe", gs.Setup.LocationID)
	assert.False(t, gs.CreatedAt.IsZero())

	other := NewGameState(ep, setup)
	assert.NotEqual(t, gs.ID, other.ID)
	assert.NotEqual(t, gs.Seed, other.Seed)

	_, ok := gs.LastEntry()
	assert.False(t, ok)
}

func TestGameState_JSONRoundTrip(t *testing.T) {
	gs := NewGameState(&episode.Episode{EpisodeID: "episode-1", Meters: meters.DefaultConfig}, character.Setup{}.WithDefaults())
	gs.Transcript = append(gs.Transcript, TranscriptEntry{
		TurnID:     "t1_meet",
		NpcLine:    "Okay... first impressions.",
		ChoiceID:   CustomChoiceID,
		MeterDelta: meters.Delta{Trust: 2},
	})

	data, err := json.Marshal(gs)
	require.NoError(t, err)

	var got GameState
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, gs.ID, got.ID)
	assert.Equal(t, gs.Setup, got.Setup)

	last, ok := got.LastEntry()
	require.True(t, ok)
	assert.True(t, last.IsCustom())
	assert.Equal(t, 2, last.MeterDelta.Trust)
}
