package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/date-engine/pkg/character"
	"github.com/jwebster45206/date-engine/pkg/meters"
	"github.com/jwebster45206/date-engine/pkg/prompts"
)

func TestLoadCatalog(t *testing.T) {
	c, err := LoadCatalog()
	require.NoError(t, err)

	require.Len(t, c.Characters, 5)
	assert.Equal(t, "mina", c.Characters[0].CharacterID)
	assert.Equal(t, "Mina is thinking...", c.Characters[0].UI.TypingIndicatorText)
	assert.Contains(t, c.Characters[0].AppearancePrompt, "chin-length bob")

	river, ok := c.Character("river")
	require.True(t, ok)
	assert.Equal(t, character.NonBinary, river.Gender)
	assert.Equal(t, "curious, open-minded, artistic, easy-going, surprisingly deep", river.Personality())

	assert.Len(t, c.Tones, 4)
	assert.Len(t, c.Locations, 2)
	assert.Len(t, c.DateIdeas, 2)

	loc, ok := c.Location("neon_cafe")
	require.True(t, ok)
	assert.Equal(t, "Rainy Neon Cafe", loc.Label)
	assert.Contains(t, loc.WorldBiblePrompt, "two coffee cups. Character sits behind the table.")

	idea, ok := c.DateIdea("coffee_talk")
	require.True(t, ok)
	assert.Equal(t, "Coffee & Conversation", idea.Label)

	assert.Contains(t, c.PlayerAppearance[character.Female], "young woman")
}

func TestCatalog_DateCharacterFor(t *testing.T) {
	c := MustCatalog()

	kai := c.DateCharacterFor(character.Setup{DateCharacterID: "kai"})
	assert.Equal(t, "Kai", kai.DisplayName)

	fallback := c.DateCharacterFor(character.Setup{DateCharacterID: "nobody"})
	assert.Equal(t, "mina", fallback.CharacterID)

	custom := character.NewCustom("Sam", character.NonBinary, "Tall, green scarf.")
	got := c.DateCharacterFor(character.Setup{DateCharacterID: character.CustomID, CustomCharacter: &custom})
	assert.Equal(t, "Sam", got.DisplayName)
	assert.Equal(t, character.DefaultPersonality, got.Personality())
}

func TestCatalog_PromptConfigDateIdea(t *testing.T) {
	c := MustCatalog()
	cfg := c.PromptConfig(character.Setup{DateIdeaID: "night_walk"}.WithDefaults())
	require.NotNil(t, cfg.DateIdea)
	assert.Equal(t, "Short Night Walk", cfg.DateIdea.Label)
	assert.Contains(t, prompts.BuildInitialPrompt(cfg, prompts.ScenePromptOptions{}), "Date: preparing to leave")

	cfg = c.PromptConfig(character.Setup{DateIdeaID: "skydiving"}.WithDefaults())
	assert.Nil(t, cfg.DateIdea)
}

func TestEmbeddedEpisode(t *testing.T) {
	eps, err := Episodes()
	require.NoError(t, err)

	ep, ok := eps[DefaultEpisodeID]
	require.True(t, ok)
	assert.Equal(t, "First Date: The Neon Cafe", ep.Title)
	assert.Equal(t, meters.DefaultConfig, ep.Meters)
	require.Len(t, ep.Turns, 6)
	assert.True(t, ep.Turns[5].EndEpisode)
	require.Len(t, ep.Outcomes, 3)
	assert.Equal(t, "spark", ep.Outcomes[0].OutcomeID)

	choice, ok := ep.Turns[2].FindChoice("t3_c_pushy")
	require.True(t, ok)
	assert.Equal(t, meters.Delta{Trust: -2, Chemistry: -1, Affection: -1}, choice.MeterDelta)

	assert.Equal(t, []string{DefaultEpisodeID}, SortedIDs(eps))
}

func TestParseEpisode_Strict(t *testing.T) {
	_, err := ParseEpisode([]byte(`{"episode_id":"x","unknown_field":1}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strict JSON")

	_, err = ParseEpisode([]byte(`{"episode_id":"x","title":"X","meters":{}}`))
	require.Error(t, err)
}

func TestCatalog_PromptConfig(t *testing.T) {
	c := MustCatalog()

	cfg := c.PromptConfig(character.Setup{LocationID: "rooftop_overlook", ToneID: "romantic", DateCharacterID: "alex"}.WithDefaults())
	require.NotNil(t, cfg.Location)
	assert.Equal(t, "Rooftop Overlook", cfg.Location.Label)
	require.NotNil(t, cfg.Tone)
	assert.Equal(t, "Romantic", cfg.Tone.Label)
	assert.Equal(t, "Alex", cfg.DateCharacter.DisplayName)

	unknown := c.PromptConfig(character.Setup{LocationID: "moon", ToneID: "noir", DateCharacterID: "mina"})
	assert.Nil(t, unknown.Location)
	assert.Nil(t, unknown.Tone)
}
