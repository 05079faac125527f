package conditionals

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/date-engine/pkg/meters"
)

// Condition is a conjunctive set of one-sided bounds over the meters.
// A nil bound is absent. A Condition with no bounds always matches and is
// used as the catch-all branch of variant lists and outcome tables.
type Condition struct {
	TrustAtLeast     *int `json:"trust_at_least,omitempty"`
	TrustAtMost      *int `json:"trust_at_most,omitempty"`
	ChemistryAtLeast *int `json:"chemistry_at_least,omitempty"`
	ChemistryAtMost  *int `json:"chemistry_at_most,omitempty"`
	AffectionAtLeast *int `json:"affection_at_least,omitempty"`
	AffectionAtMost  *int `json:"affection_at_most,omitempty"`
}

// IsEmpty reports whether no bound is set.
func (c Condition) IsEmpty() bool {
	return c.TrustAtLeast == nil && c.TrustAtMost == nil &&
		c.ChemistryAtLeast == nil && c.ChemistryAtMost == nil &&
		c.AffectionAtLeast == nil && c.AffectionAtMost == nil
}

// Matches checks every present bound against m.
func Matches(c Condition, m meters.Meters) bool {
	if c.ChemistryAtLeast != nil && m.Chemistry < *c.ChemistryAtLeast {
		return false
	}
	if c.ChemistryAtMost != nil && m.Chemistry > *c.ChemistryAtMost {
		return false
	}
	if c.TrustAtLeast != nil && m.Trust < *c.TrustAtLeast {
		return false
	}
	if c.TrustAtMost != nil && m.Trust > *c.TrustAtMost {
		return false
	}
	if c.AffectionAtLeast != nil && m.Affection < *c.AffectionAtLeast {
		return false
	}
	if c.AffectionAtMost != nil && m.Affection > *c.AffectionAtMost {
		return false
	}
	return true
}

// String renders the condition for validation messages and logs,
// e.g. "trust>=1 chemistry>=3". An empty condition renders as "always".
func (c Condition) String() string {
	var parts []string
	add := func(name, op string, v *int) {
		if v != nil {
			parts = append(parts, fmt.Sprintf("%s%s%d", name, op, *v))
		}
	}
	add(meters.Trust, ">=", c.TrustAtLeast)
	add(meters.Trust, "<=", c.TrustAtMost)
	add(meters.Chemistry, ">=", c.ChemistryAtLeast)
	add(meters.Chemistry, "<=", c.ChemistryAtMost)
	add(meters.Affection, ">=", c.AffectionAtLeast)
	add(meters.Affection, "<=", c.AffectionAtMost)
	if len(parts) == 0 {
		return "always"
	}
	return strings.Join(parts, " ")
}

// Int returns a pointer to v, for building conditions in code.
func Int(v int) *int {
	return &v
}
