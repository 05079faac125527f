package episode

import (
	"github.com/jwebster45206/date-engine/pkg/conditionals"
	"github.com/jwebster45206/date-engine/pkg/meters"
)

// Content ratings. G through PG-13 episodes have generated dialogue filtered.
const (
	RatingG    = "G"
	RatingPG   = "PG"
	RatingPG13 = "PG-13"
	RatingR    = "R"
)

// CustomChoiceID marks transcript entries produced by a free-form response
// rather than a scripted choice. No scripted choice may use it.
const CustomChoiceID = "custom"

// Episode is one fixed, authored date: a linear sequence of turns plus the
// table used to pick an ending from the final meters.
type Episode struct {
	SchemaVersion   string           `json:"schema_version"`
	GameID          string           `json:"game_id"`
	EpisodeID       string           `json:"episode_id"`
	Title           string           `json:"title"`
	Rating          string           `json:"rating,omitempty"`
	Meters          meters.ConfigSet `json:"meters"`
	Turns           []Turn           `json:"turns"`
	Outcomes        []Outcome        `json:"outcomes"`
	PromptTemplates PromptTemplates  `json:"prompt_templates"`
	DevTools        DevTools         `json:"dev_tools"`
}

// Turn is one beat of the episode: an NPC line and the player's options.
type Turn struct {
	TurnID          string           `json:"turn_id"`
	SceneID         string           `json:"scene_id"`
	ShotTemplateID  string           `json:"shot_template_id"`
	NpcLine         *NpcLine         `json:"npc_line,omitempty"`          // fixed line
	NpcLineVariants []NpcLineVariant `json:"npc_line_variants,omitempty"` // first match wins
	Choices         []Choice         `json:"choices"`
	Next            *NextTurn        `json:"next,omitempty"`
	EndEpisode      bool             `json:"end_episode,omitempty"`
}

// NextTurn names the following turn. Advancement is by index; the pointer
// is checked by content validation.
type NextTurn struct {
	DefaultTurnID string `json:"default_turn_id"`
}

// NpcLine is what the date says, plus a stage direction caption.
type NpcLine struct {
	LineID  string `json:"line_id"`
	Text    string `json:"text"`
	Caption string `json:"caption"`
}

// NpcLineVariant is a conditional NpcLine.
type NpcLineVariant struct {
	VariantID string                 `json:"variant_id"`
	Condition conditionals.Condition `json:"condition"`
	Text      string                 `json:"text"`
	Caption   string                 `json:"caption"`
}

// Line converts the variant to the displayed line.
func (v NpcLineVariant) Line() NpcLine {
	return NpcLine{LineID: v.VariantID, Text: v.Text, Caption: v.Caption}
}

// Choice is a scripted player option.
type Choice struct {
	ChoiceID       string       `json:"choice_id"`
	PlayerText     string       `json:"player_text"`
	MeterDelta     meters.Delta `json:"meter_delta"`
	ReactionPrompt string       `json:"reaction_prompt"`
}

// Outcome is a possible ending.
type Outcome struct {
	OutcomeID string                 `json:"outcome_id"`
	Label     string                 `json:"label"`
	Condition conditionals.Condition `json:"condition"`
	UISummary string                 `json:"ui_summary"`
}

type PromptTemplates struct {
	ShotTemplates     map[string]string `json:"shot_templates"`
	GlobalConstraints string            `json:"global_constraints"`
}

type DevTools struct {
	DriftResetPrompt string   `json:"drift_reset_prompt"`
	Notes            []string `json:"notes,omitempty"`
}

// FindChoice returns the choice with the given id on this turn.
func (t *Turn) FindChoice(choiceID string) (*Choice, bool) {
	for i := range t.Choices {
		if t.Choices[i].ChoiceID == choiceID {
			return &t.Choices[i], true
		}
	}
	return nil, false
}

// ResolveLine picks the line shown for the given meters: the fixed line if
// there is one, otherwise the first matching variant.
func (t *Turn) ResolveLine(m meters.Meters) (NpcLine, bool) {
	if t.NpcLine != nil {
		return *t.NpcLine, true
	}
	for _, v := range t.NpcLineVariants {
		if conditionals.Matches(v.Condition, m) {
			return v.Line(), true
		}
	}
	return NpcLine{}, false
}

// TurnByID looks up a turn and its index.
func (e *Episode) TurnByID(turnID string) (*Turn, int, bool) {
	for i := range e.Turns {
		if e.Turns[i].TurnID == turnID {
			return &e.Turns[i], i, true
		}
	}
	return nil, -1, false
}

// ShotTemplate returns the prompt text for a shot template id.
func (e *Episode) ShotTemplate(id string) string {
	return e.PromptTemplates.ShotTemplates[id]
}

// OutcomeByID looks up an outcome, falling back to UndeterminedOutcome.
func (e *Episode) OutcomeByID(id string) Outcome {
	for _, o := range e.Outcomes {
		if o.OutcomeID == id {
			return o
		}
	}
	return UndeterminedOutcome
}
