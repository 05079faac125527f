package runner

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/date-engine/pkg/meters"
)

// Step actions understood by the runner.
const (
	ActionChoice     = "choice"
	ActionRespond    = "respond"
	ActionRestart    = "restart"
	ActionDriftReset = "drift_reset"
	ActionLeave      = "leave"
)

// PlaythroughCase is one scripted date played against a running API.
// A case either lists Steps or sequences other case files via Cases.
type PlaythroughCase struct {
	Name  string     `yaml:"name"`
	Setup CaseSetup  `yaml:"setup,omitempty"`
	Steps []CaseStep `yaml:"steps,omitempty"`
	Cases []string   `yaml:"cases,omitempty"`
}

// IsSequence returns true if this case only sequences other cases.
func (c *PlaythroughCase) IsSequence() bool {
	return len(c.Cases) > 0
}

// CaseSetup mirrors the create-game request. Empty fields take the server's
// defaults.
type CaseSetup struct {
	EpisodeID       string `yaml:"episode_id,omitempty"`
	LocationID      string `yaml:"location_id,omitempty"`
	ToneID          string `yaml:"tone_id,omitempty"`
	DateIdeaID      string `yaml:"date_idea_id,omitempty"`
	DateCharacterID string `yaml:"date_character_id,omitempty"`
	PlayerName      string `yaml:"player_name,omitempty"`
}

// CaseStep is one player action and what should follow from it.
type CaseStep struct {
	Name     string       `yaml:"name,omitempty"`
	Action   string       `yaml:"action"`
	ChoiceID string       `yaml:"choice_id,omitempty"`
	Message  string       `yaml:"message,omitempty"`
	Expect   Expectations `yaml:"expect,omitempty"`
	// WaitEvent names an SSE event type that must arrive after the action.
	WaitEvent string `yaml:"wait_event,omitempty"`
}

// Validate checks the step is runnable before any request goes out.
func (s CaseStep) Validate() error {
	switch s.Action {
	case ActionChoice:
		if s.ChoiceID == "" {
			return fmt.Errorf("choice step needs choice_id")
		}
	case ActionRespond:
		if s.Message == "" {
			return fmt.Errorf("respond step needs message")
		}
	case ActionRestart, ActionDriftReset, ActionLeave:
	default:
		return fmt.Errorf("unknown action %q", s.Action)
	}
	return nil
}

// Expectations are checked against the game after a step. Nil fields are
// not checked.
type Expectations struct {
	Applied             *bool          `yaml:"applied,omitempty"`
	TurnIndex           *int           `yaml:"turn_index,omitempty"`
	TurnID              *string        `yaml:"turn_id,omitempty"`
	Meters              *meters.Meters `yaml:"meters,omitempty"`
	IsComplete          *bool          `yaml:"is_complete,omitempty"`
	OutcomeID           *string        `yaml:"outcome_id,omitempty"`
	ResponseNotEmpty    bool           `yaml:"response_not_empty,omitempty"`
	ResponseNotContains []string       `yaml:"response_not_contains,omitempty"`
}

// StepResult contains the outcome of running a step.
type StepResult struct {
	StepName     string
	Success      bool
	Error        error
	Duration     time.Duration
	ResponseText string
}

// CaseJob is one runnable case after sequence expansion.
type CaseJob struct {
	Name     string
	Case     PlaythroughCase
	CaseFile string
}

// CaseRunResult contains the results of running an entire case.
type CaseRunResult struct {
	Job      CaseJob
	Results  []StepResult
	Error    error
	Duration time.Duration
	GameID   uuid.UUID
}
