package episode

import (
	"github.com/jwebster45206/date-engine/pkg/conditionals"
	"github.com/jwebster45206/date-engine/pkg/meters"
)

// UndeterminedOutcome is shown when no outcome condition matches.
var UndeterminedOutcome = Outcome{
	OutcomeID: "undetermined",
	Label:     "Date Complete",
	UISummary: "Thanks for playing!",
}

// DetermineOutcome scans outcomes in declaration order and returns the first
// whose condition matches m. The bool is false when none match.
func DetermineOutcome(m meters.Meters, outcomes []Outcome) (Outcome, bool) {
	for _, o := range outcomes {
		if conditionals.Matches(o.Condition, m) {
			return o, true
		}
	}
	return Outcome{}, false
}

// DetermineOutcomeOrDefault is DetermineOutcome with UndeterminedOutcome
// substituted for no match.
func DetermineOutcomeOrDefault(m meters.Meters, outcomes []Outcome) Outcome {
	if o, ok := DetermineOutcome(m, outcomes); ok {
		return o
	}
	return UndeterminedOutcome
}
