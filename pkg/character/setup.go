package character

// Tone is a mood preset that tints the video prompts.
type Tone struct {
	ToneID    string `json:"tone_id" yaml:"tone_id"`
	Label     string `json:"label" yaml:"label"`
	PromptKit string `json:"prompt_kit" yaml:"prompt_kit"`
}

// Location is where the date happens.
type Location struct {
	LocationID       string `json:"location_id" yaml:"location_id"`
	Label            string `json:"label" yaml:"label"`
	WorldBiblePrompt string `json:"world_bible_prompt" yaml:"world_bible_prompt"`
}

// DateIdea is the activity framing of the date.
type DateIdea struct {
	DateIdeaID string `json:"date_idea_id" yaml:"date_idea_id"`
	Label      string `json:"label" yaml:"label"`
	PromptKit  string `json:"prompt_kit" yaml:"prompt_kit"`
}

// Defaults applied when setup leaves a selection empty.
const (
	DefaultLocationID  = "neon_cafe"
	DefaultToneID      = "cozy"
	DefaultCharacterID = "mina"
	DefaultDateIdeaID  = "coffee_talk"
)

// Setup is the selection a game was created with.
type Setup struct {
	LocationID      string         `json:"location_id"`
	ToneID          string         `json:"tone_id"`
	DateIdeaID      string         `json:"date_idea_id,omitempty"`
	DateCharacterID string         `json:"date_character_id"`
	CustomCharacter *DateCharacter `json:"custom_character,omitempty"` // set when DateCharacterID is CustomID
	Player          Player         `json:"player"`
}

// WithDefaults fills empty selections.
func (s Setup) WithDefaults() Setup {
	if s.LocationID == "" {
		s.LocationID = DefaultLocationID
	}
	if s.ToneID == "" {
		s.ToneID = DefaultToneID
	}
	if s.DateIdeaID == "" {
		s.DateIdeaID = DefaultDateIdeaID
	}
	if s.DateCharacterID == "" {
		s.DateCharacterID = DefaultCharacterID
	}
	if s.Player.Name == "" {
		s.Player.Name = DefaultPlayer.Name
	}
	if !s.Player.Gender.Valid() {
		s.Player.Gender = DefaultPlayer.Gender
	}
	return s
}
