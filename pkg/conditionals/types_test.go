package conditionals

import (
	"encoding/json"
	"testing"

	"github.com/jwebster45206/date-engine/pkg/meters"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		name      string
		condition Condition
		meters    meters.Meters
		expected  bool
	}{
		{
			name:      "empty condition matches",
			condition: Condition{},
			meters:    meters.Meters{Trust: -3, Chemistry: 6, Affection: 0},
			expected:  true,
		},
		{
			name:      "at least satisfied on boundary",
			condition: Condition{ChemistryAtLeast: Int(3)},
			meters:    meters.Meters{Chemistry: 3},
			expected:  true,
		},
		{
			name:      "at least violated",
			condition: Condition{ChemistryAtLeast: Int(3)},
			meters:    meters.Meters{Chemistry: 2},
			expected:  false,
		},
		{
			name:      "at most satisfied on boundary",
			condition: Condition{TrustAtMost: Int(0)},
			meters:    meters.Meters{Trust: 0},
			expected:  true,
		},
		{
			name:      "at most violated",
			condition: Condition{AffectionAtMost: Int(1)},
			meters:    meters.Meters{Affection: 2},
			expected:  false,
		},
		{
			name:      "conjunction all satisfied",
			condition: Condition{ChemistryAtLeast: Int(3), TrustAtLeast: Int(1)},
			meters:    meters.Meters{Trust: 1, Chemistry: 4},
			expected:  true,
		},
		{
			name:      "conjunction one violated",
			condition: Condition{ChemistryAtLeast: Int(3), TrustAtLeast: Int(1)},
			meters:    meters.Meters{Trust: 0, Chemistry: 4},
			expected:  false,
		},
		{
			name:      "range on one meter",
			condition: Condition{AffectionAtLeast: Int(-1), AffectionAtMost: Int(1)},
			meters:    meters.Meters{Affection: 0},
			expected:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.condition, tt.meters); got != tt.expected {
				t.Errorf("Matches(%s, %+v) = %v, want %v", tt.condition, tt.meters, got, tt.expected)
			}
		})
	}
}

func TestMatches_EmptyAlwaysTrue(t *testing.T) {
	for trust := -3; trust <= 6; trust++ {
		for chem := -3; chem <= 6; chem++ {
			for aff := -3; aff <= 6; aff++ {
				m := meters.Meters{Trust: trust, Chemistry: chem, Affection: aff}
				if !Matches(Condition{}, m) {
					t.Fatalf("empty condition did not match %+v", m)
				}
			}
		}
	}
}

func TestCondition_JSON(t *testing.T) {
	var c Condition
	if err := json.Unmarshal([]byte(`{"trust_at_most":0,"chemistry_at_most":0}`), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.IsEmpty() {
		t.Fatal("expected non-empty condition")
	}
	if c.TrustAtMost == nil || *c.TrustAtMost != 0 {
		t.Errorf("expected trust_at_most 0, got %v", c.TrustAtMost)
	}
	if c.TrustAtLeast != nil {
		t.Errorf("expected trust_at_least absent, got %v", *c.TrustAtLeast)
	}

	var empty Condition
	if err := json.Unmarshal([]byte(`{}`), &empty); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !empty.IsEmpty() {
		t.Error("expected empty condition")
	}
}

func TestCondition_String(t *testing.T) {
	if s := (Condition{}).String(); s != "always" {
		t.Errorf("expected 'always', got %q", s)
	}
	c := Condition{ChemistryAtLeast: Int(3), TrustAtLeast: Int(1)}
	if s := c.String(); s != "trust>=1 chemistry>=3" {
		t.Errorf("unexpected string %q", s)
	}
}
