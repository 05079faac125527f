package episode

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jwebster45206/date-engine/pkg/meters"
)

var validIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

// ValidationError lists every problem found in an episode.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("episode has %d problem(s):\n  - %s", len(e.Problems), strings.Join(e.Problems, "\n  - "))
}

// Validate checks authoring rules the engine relies on at runtime. It returns
// a *ValidationError listing all problems, or nil.
func Validate(e *Episode) error {
	v := &validator{}
	v.validate(e)
	if len(v.problems) > 0 {
		return &ValidationError{Problems: v.problems}
	}
	return nil
}

type validator struct {
	problems []string
}

func (v *validator) addf(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) id(field, id string) {
	if id == "" {
		v.addf("%s is empty", field)
		return
	}
	if !validIDRegex.MatchString(id) {
		v.addf("%s '%s' should be lowercase snake_case", field, id)
	}
}

func (v *validator) validate(e *Episode) {
	if e.EpisodeID == "" {
		v.addf("episode_id is empty")
	}
	if e.Title == "" {
		v.addf("title is empty")
	}
	switch e.Rating {
	case "", RatingG, RatingPG, RatingPG13, RatingR:
	default:
		v.addf("rating '%s' is not one of G, PG, PG-13, R", e.Rating)
	}

	for _, name := range meters.Names {
		c, _ := e.Meters.Get(name)
		if c.Min >= c.Max {
			v.addf("meter %s: min %d must be below max %d", name, c.Min, c.Max)
		}
		if c.Start < c.Min || c.Start > c.Max {
			v.addf("meter %s: start %d outside [%d, %d]", name, c.Start, c.Min, c.Max)
		}
	}

	for id := range e.PromptTemplates.ShotTemplates {
		v.id("shot template id", id)
	}

	if len(e.Turns) == 0 {
		v.addf("episode has no turns")
		return
	}

	turnIDs := make(map[string]bool, len(e.Turns))
	choiceIDs := make(map[string]string)
	for i := range e.Turns {
		t := &e.Turns[i]
		v.id("turn id", t.TurnID)
		if turnIDs[t.TurnID] {
			v.addf("duplicate turn id '%s'", t.TurnID)
		}
		turnIDs[t.TurnID] = true
		v.turn(e, t, choiceIDs)
	}

	for i := range e.Turns {
		t := &e.Turns[i]
		last := i == len(e.Turns)-1
		if t.Next != nil {
			_, idx, ok := e.TurnByID(t.Next.DefaultTurnID)
			switch {
			case !ok:
				v.addf("turn %s: next turn '%s' does not exist", t.TurnID, t.Next.DefaultTurnID)
			case !last && idx != i+1:
				v.addf("turn %s: next turn '%s' is not the following turn '%s'", t.TurnID, t.Next.DefaultTurnID, e.Turns[i+1].TurnID)
			}
		}
		if last && !t.EndEpisode {
			v.addf("turn %s: final turn must set end_episode", t.TurnID)
		}
		if !last && t.EndEpisode {
			v.addf("turn %s: end_episode set before the final turn", t.TurnID)
		}
	}

	outcomeIDs := make(map[string]bool, len(e.Outcomes))
	for _, o := range e.Outcomes {
		v.id("outcome id", o.OutcomeID)
		if outcomeIDs[o.OutcomeID] {
			v.addf("duplicate outcome id '%s'", o.OutcomeID)
		}
		outcomeIDs[o.OutcomeID] = true
		if o.Label == "" {
			v.addf("outcome %s: label is empty", o.OutcomeID)
		}
	}
}

func (v *validator) turn(e *Episode, t *Turn, choiceIDs map[string]string) {
	hasLine := t.NpcLine != nil
	hasVariants := len(t.NpcLineVariants) > 0
	switch {
	case hasLine && hasVariants:
		v.addf("turn %s: has both npc_line and npc_line_variants", t.TurnID)
	case !hasLine && !hasVariants:
		v.addf("turn %s: has neither npc_line nor npc_line_variants", t.TurnID)
	}

	if hasVariants {
		for _, variant := range t.NpcLineVariants {
			v.id(fmt.Sprintf("turn %s variant id", t.TurnID), variant.VariantID)
		}
		if !t.NpcLineVariants[len(t.NpcLineVariants)-1].Condition.IsEmpty() {
			v.addf("turn %s: last npc_line_variant must have an empty condition", t.TurnID)
		}
	}

	if t.ShotTemplateID != "" {
		if _, ok := e.PromptTemplates.ShotTemplates[t.ShotTemplateID]; !ok {
			v.addf("turn %s: shot template '%s' does not exist", t.TurnID, t.ShotTemplateID)
		}
	}

	if n := len(t.Choices); n < 2 || n > 3 {
		v.addf("turn %s: has %d choices, want 2 or 3", t.TurnID, n)
	}
	for _, c := range t.Choices {
		v.id(fmt.Sprintf("turn %s choice id", t.TurnID), c.ChoiceID)
		if prev, ok := choiceIDs[c.ChoiceID]; ok {
			v.addf("turn %s: choice id '%s' already used in turn %s", t.TurnID, c.ChoiceID, prev)
		}
		choiceIDs[c.ChoiceID] = t.TurnID
		if c.ChoiceID == CustomChoiceID {
			v.addf("turn %s: choice id '%s' is reserved for free-form responses", t.TurnID, c.ChoiceID)
		}
		if c.PlayerText == "" {
			v.addf("choice %s: player_text is empty", c.ChoiceID)
		}
		if meters.ClampDelta(c.MeterDelta) != c.MeterDelta {
			v.addf("choice %s: meter_delta %+v outside [%d, %d]", c.ChoiceID, c.MeterDelta, meters.MinDelta, meters.MaxDelta)
		}
	}
}
