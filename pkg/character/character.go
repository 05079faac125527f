package character

import (
	"fmt"
	"strings"
)

// Gender of a player or date character. Drives pronouns in prompts.
type Gender string

const (
	Male      Gender = "male"
	Female    Gender = "female"
	NonBinary Gender = "non-binary"
)

// Valid reports whether g is one of the known genders.
func (g Gender) Valid() bool {
	switch g {
	case Male, Female, NonBinary:
		return true
	}
	return false
}

// CustomID is the character id of a player-described date.
const CustomID = "custom"

// DefaultPersonality is used when a character has no personality tags.
const DefaultPersonality = "friendly, warm, engaging"

// DateCharacter is the NPC partner.
type DateCharacter struct {
	CharacterID      string   `json:"character_id" yaml:"character_id"`
	DisplayName      string   `json:"display_name" yaml:"display_name"`
	Gender           Gender   `json:"gender" yaml:"gender"`
	AppearancePrompt string   `json:"appearance_prompt" yaml:"appearance_prompt"`
	PersonalityTags  []string `json:"personality_tags,omitempty" yaml:"personality_tags"`
	ImageURL         string   `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	UI               UI       `json:"ui" yaml:"ui"`
}

// UI holds presentation hints for clients.
type UI struct {
	AvatarKey           string `json:"avatar_key" yaml:"avatar_key"`
	Nameplate           string `json:"nameplate" yaml:"nameplate"`
	TypingIndicatorText string `json:"typing_indicator_text" yaml:"typing_indicator_text"`
}

// Personality joins the personality tags for the evaluation prompt.
func (c *DateCharacter) Personality() string {
	if len(c.PersonalityTags) == 0 {
		return DefaultPersonality
	}
	return strings.Join(c.PersonalityTags, ", ")
}

// IsCustom reports whether the character was described by the player.
func (c *DateCharacter) IsCustom() bool {
	return c.CharacterID == CustomID
}

// NewCustom builds a player-described date character.
func NewCustom(name string, gender Gender, appearance string) DateCharacter {
	name = strings.TrimSpace(name)
	return DateCharacter{
		CharacterID:      CustomID,
		DisplayName:      name,
		Gender:           gender,
		AppearancePrompt: strings.TrimSpace(appearance),
		UI: UI{
			AvatarKey:           "custom",
			Nameplate:           name,
			TypingIndicatorText: fmt.Sprintf("%s is thinking...", name),
		},
	}
}

// Player is the person playing.
type Player struct {
	Name   string `json:"name"`
	Gender Gender `json:"gender"`
}

// DefaultPlayer is used when setup omits the player.
var DefaultPlayer = Player{Name: "You", Gender: Male}

// Pronouns returns subject and object pronouns for g.
func Pronouns(g Gender) (subject, object string) {
	switch g {
	case Male:
		return "he", "him"
	case Female:
		return "she", "her"
	default:
		return "they", "them"
	}
}
