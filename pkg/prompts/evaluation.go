package prompts

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/date-engine/pkg/chat"
	"github.com/jwebster45206/date-engine/pkg/episode"
)

// EvaluationSystemPrompt instructs the model to score a free-form message
// and answer in character.
const EvaluationSystemPrompt = `You are an AI that evaluates dating conversation inputs and generates responses for a dating simulation game.

Your job is to:
1. Evaluate how the user's message/action would affect the date's feelings
2. Generate a natural dialogue response from the date character
3. Generate a visual description for an AI video model to render

IMPORTANT RULES:
- Meter changes should be between -3 and +3 for each stat
- Trust: affected by honesty, respect, vulnerability, reliability
- Chemistry: affected by humor, flirting, playfulness, wit
- Affection: affected by romantic gestures, compliments, thoughtfulness, intimacy
- If the message is inappropriate, rude, or creepy, give negative scores and an awkward reaction
- If the message includes an ACTION (like giving flowers, ordering drinks), describe it visually in the visualPrompt
- The visualPrompt should describe what the CHARACTER does/looks like, not the player (first-person view)
- Keep npcDialogue natural and in-character
- visualPrompt should be concise but descriptive for video generation

CRITICAL FOR SCENE CONTINUITY:
- The scene already has drinks/glasses on the table - ALWAYS mention "drinks still on table" or "glasses remain" when adding new objects
- When new objects appear (flowers, gifts), describe them being ADDED to the existing scene, not replacing it
- Example: "Character reaches for flowers now on the table beside the drinks, smiles warmly" NOT "Character holds flowers"
- Transitions should feel natural - objects appear gradually, not instantaneously
- Always maintain: table, existing drinks, same framing

Respond ONLY with valid JSON in this exact format:
{
  "meterDelta": { "trust": <-3 to 3>, "chemistry": <-3 to 3>, "affection": <-3 to 3> },
  "npcDialogue": "<what the character says in response>",
  "visualPrompt": "<visual description of character's reaction - MUST preserve existing scene elements like drinks>",
  "isAppropriate": <true/false>
}`

const evaluationUserTemplate = `Character info:
- Name: %[1]s
- Gender: %[2]s
- Personality: %[3]s
- Current mood: %[4]s
- Location: %[5]s

CURRENT SCENE STATE:
- %[1]s is sitting at a table facing the camera
- There are drinks/glasses on the table between us
- Same table, same setting throughout

Recent conversation:
%[6]s

The player says/does: "%[7]s"

Evaluate this and generate the character's response. Remember:
- %[1]s should respond naturally based on their personality
- If the player mentions an ACTION (giving something, ordering something), include it visually in visualPrompt
- The visualPrompt describes what %[1]s does - first-person view, we only see %[1]s
- CRITICAL: When adding new objects (flowers, gifts), describe them appearing ON THE TABLE BESIDE the existing drinks - never replace the drinks
- Example good visualPrompt: "%[1]s notices flowers appearing on the table next to the drinks, reaches toward them with a surprised smile, glasses still visible"
- Example bad visualPrompt: "%[1]s holds flowers" (this removes the drinks and table context)`

// Content rating guidance added to the evaluation system prompt.
const (
	ContentRatingG    = `Keep the date's dialogue suitable for young children. Avoid romance beyond friendship and use simple, positive language.`
	ContentRatingPG   = `Keep the date's dialogue suitable for families. Light romance is okay, but avoid strong language or suggestive themes.`
	ContentRatingPG13 = `Keep the date's dialogue appropriate for teenagers. Romantic tension and mild language are okay, but avoid explicit or sexual content.`
	ContentRatingR    = `The date's dialogue is for adult audiences. Stay in character and keep it consensual and respectful.`
)

// GetContentRatingPrompt returns the guidance for a rating, defaulting to PG-13.
func GetContentRatingPrompt(rating string) string {
	switch rating {
	case episode.RatingG:
		return ContentRatingG
	case episode.RatingPG:
		return ContentRatingPG
	case episode.RatingPG13:
		return ContentRatingPG13
	case episode.RatingR:
		return ContentRatingR
	default:
		return ContentRatingPG13
	}
}

// EvaluationInput is the context for scoring a free-form message.
type EvaluationInput struct {
	UserMessage          string
	CharacterName        string
	CharacterGender      string
	CharacterPersonality string
	CurrentMood          string
	ConversationContext  string
	Location             string
	Rating               string
}

// EvaluationBuilder constructs the chat messages for an evaluation call.
type EvaluationBuilder struct {
	input EvaluationInput
}

// NewEvaluation creates an empty builder.
func NewEvaluation() *EvaluationBuilder {
	return &EvaluationBuilder{}
}

// WithCharacter sets who the date is.
func (b *EvaluationBuilder) WithCharacter(name, gender, personality string) *EvaluationBuilder {
	b.input.CharacterName = name
	b.input.CharacterGender = gender
	b.input.CharacterPersonality = personality
	return b
}

// WithScene sets mood and location.
func (b *EvaluationBuilder) WithScene(mood, location string) *EvaluationBuilder {
	b.input.CurrentMood = mood
	b.input.Location = location
	return b
}

// WithContext sets the recent conversation summary.
func (b *EvaluationBuilder) WithContext(context string) *EvaluationBuilder {
	b.input.ConversationContext = context
	return b
}

// WithUserMessage sets what the player typed.
func (b *EvaluationBuilder) WithUserMessage(message string) *EvaluationBuilder {
	b.input.UserMessage = message
	return b
}

// WithRating sets the content rating.
func (b *EvaluationBuilder) WithRating(rating string) *EvaluationBuilder {
	b.input.Rating = rating
	return b
}

// Build returns the system and user messages.
func (b *EvaluationBuilder) Build() ([]chat.ChatMessage, error) {
	in := b.input
	if strings.TrimSpace(in.UserMessage) == "" {
		return nil, fmt.Errorf("user message is required")
	}
	if in.CharacterName == "" {
		return nil, fmt.Errorf("character name is required")
	}

	system := EvaluationSystemPrompt
	if in.Rating != "" {
		system += "\n\nContent Rating: " + in.Rating + " (" + GetContentRatingPrompt(in.Rating) + ")"
	}

	return []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: system},
		{Role: chat.ChatRoleUser, Content: BuildEvaluationUserPrompt(in)},
	}, nil
}

// BuildEvaluationUserPrompt renders the per-message user prompt.
func BuildEvaluationUserPrompt(in EvaluationInput) string {
	return fmt.Sprintf(evaluationUserTemplate,
		in.CharacterName,
		in.CharacterGender,
		in.CharacterPersonality,
		in.CurrentMood,
		in.Location,
		in.ConversationContext,
		in.UserMessage,
	)
}
