package chat

import (
	"strings"
	"testing"
)

func TestFormatWithSpeaker(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		speaker  string
		expected string
	}{
		{
			name:     "adds speaker prefix to plain message",
			message:  "I love this cafe.",
			speaker:  "You",
			expected: "You: I love this cafe.",
		},
		{
			name:     "preserves existing speaker prefix",
			message:  "Mina: That's sweet.",
			speaker:  "You",
			expected: "Mina: That's sweet.",
		},
		{
			name:     "prefixes when colon follows a sentence",
			message:  "Honestly. Here is the thing: I'm nervous.",
			speaker:  "You",
			expected: "You: Honestly. Here is the thing: I'm nervous.",
		},
		{
			name:     "handles empty message",
			message:  "",
			speaker:  "You",
			expected: "You: ",
		},
		{
			name:     "prefixes when potential speaker is too long",
			message:  "This is a really really really really really long name: message",
			speaker:  "Kai",
			expected: "Kai: This is a really really really really really long name: message",
		},
		{
			name:     "keeps multi-word speaker names",
			message:  "Waiter Bob: More coffee?",
			speaker:  "You",
			expected: "Waiter Bob: More coffee?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatWithSpeaker(tt.message, tt.speaker)
			if result != tt.expected {
				t.Errorf("FormatWithSpeaker(%q, %q) = %q; want %q",
					tt.message, tt.speaker, result, tt.expected)
			}
		})
	}
}

func TestRespondRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     RespondRequest
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid short message",
			req:     RespondRequest{Message: "Tell me about your favourite book."},
			wantErr: false,
		},
		{
			name:    "valid message at max length",
			req:     RespondRequest{Message: strings.Repeat("a", MaxMessageLength)},
			wantErr: false,
		},
		{
			name:    "message too long",
			req:     RespondRequest{Message: strings.Repeat("a", MaxMessageLength+1)},
			wantErr: true,
			errMsg:  "exceeds maximum length",
		},
		{
			name:    "empty message",
			req:     RespondRequest{Message: "   "},
			wantErr: true,
			errMsg:  "cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && err != nil && tt.errMsg != "" {
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Validate() error = %v, want error containing %q", err, tt.errMsg)
				}
			}
		})
	}
}

func TestChoiceRequest_Validate(t *testing.T) {
	if err := (&ChoiceRequest{ChoiceID: "t1_a_sincere"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (&ChoiceRequest{}).Validate(); err == nil {
		t.Error("expected error for empty choice id")
	}
}
