package textfilter

import (
	"testing"
)

func TestFilter_Clean(t *testing.T) {
	filter := New()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple replacement",
			input:    "What the hell is this place?",
			expected: "What the heck is this place?",
		},
		{
			name:     "multiple words",
			input:    "This coffee is damn crap!",
			expected: "This coffee is dang crud!",
		},
		{
			name:     "uppercase kept",
			input:    "DAMN you look nice!",
			expected: "DANG you look nice!",
		},
		{
			name:     "title case kept",
			input:    "Hell yes, I'd love a second date",
			expected: "Heck yes, I'd love a second date",
		},
		{
			name:     "mixed case kept",
			input:    "HeLl yeah, that's DaMn good!",
			expected: "HeCk yeah, that's DaNg good!",
		},
		{
			name:     "partial words untouched",
			input:    "I love classical music",
			expected: "I love classical music",
		},
		{
			name:     "suffix inside a longer word untouched",
			input:    "Let me process that",
			expected: "Let me process that",
		},
		{
			name:     "plurals",
			input:    "There are too many assholes and bastards here!",
			expected: "There are too many jerks and jerks here!",
		},
		{
			name:     "longer word wins",
			input:    "You motherfucker.",
			expected: "You mother-trucker.",
		},
		{
			name:     "censored words take no plural",
			input:    "whores",
			expected: "[censored]",
		},
		{
			name:     "punctuation",
			input:    "What the hell?! That's damn wild.",
			expected: "What the heck?! That's dang wild.",
		},
		{
			name:     "clean text",
			input:    "Want to share a slice of cake?",
			expected: "Want to share a slice of cake?",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := filter.Clean(tt.input)
			if result != tt.expected {
				t.Errorf("Clean() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestFilter_Contains(t *testing.T) {
	filter := New()

	tests := []struct {
		input    string
		expected bool
	}{
		{"What the hell is this?", true},
		{"HELL no!", true},
		{"These DAMNS are everywhere!", true},
		{"I love classical music", false},
		{"A perfectly sweet sentence", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := filter.Contains(tt.input); got != tt.expected {
				t.Errorf("Contains(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestAppliesTo(t *testing.T) {
	tests := []struct {
		rating   string
		expected bool
	}{
		{"G", true},
		{"PG", true},
		{"PG13", true},
		{"PG-13", true},
		{"pg", true},
		{" PG-13 ", true},
		{"R", false},
		{"NC-17", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.rating, func(t *testing.T) {
			if got := AppliesTo(tt.rating); got != tt.expected {
				t.Errorf("AppliesTo(%q) = %v, want %v", tt.rating, got, tt.expected)
			}
		})
	}
}

func TestFilter_ForRating(t *testing.T) {
	filter := New()
	line := "Damn, this place is packed."

	if got := filter.ForRating("PG-13", line); got != "Dang, this place is packed." {
		t.Errorf("PG-13 should be cleaned, got %q", got)
	}
	if got := filter.ForRating("R", line); got != line {
		t.Errorf("R should pass through, got %q", got)
	}

	cleaned := filter.ForRating("G", "What the hells were you thinking, you assholes?")
	if filter.Contains(cleaned) {
		t.Errorf("cleaned text still has profanity: %q", cleaned)
	}
}
