package chat

import (
	"fmt"
	"strings"
)

// MaxMessageLength caps free-form player input.
const MaxMessageLength = 500

// maxSpeakerLength bounds what counts as a "Name:" prefix.
const maxSpeakerLength = 50

const (
	ChatRoleUser   = "user"      // player
	ChatRoleAgent  = "assistant" // date character / model
	ChatRoleSystem = "system"
)

// ChatMessage is a single message sent to or received from an LLM.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// ChatResponse is the text an LLM produced.
type ChatResponse struct {
	Message string `json:"message,omitempty"`
}

// ChoiceRequest picks a scripted choice on the current turn.
type ChoiceRequest struct {
	ChoiceID string `json:"choice_id"`
}

func (cr *ChoiceRequest) Validate() error {
	if strings.TrimSpace(cr.ChoiceID) == "" {
		return fmt.Errorf("choice_id cannot be empty")
	}
	return nil
}

// RespondRequest is a free-form player response.
type RespondRequest struct {
	Message string `json:"message"`
}

func (rr *RespondRequest) Validate() error {
	if strings.TrimSpace(rr.Message) == "" {
		return fmt.Errorf("message cannot be empty")
	}
	if len(rr.Message) > MaxMessageLength {
		return fmt.Errorf("message exceeds maximum length of %d characters", MaxMessageLength)
	}
	return nil
}

// FormatWithSpeaker prefixes message with "name: " unless it already
// starts with a short speaker prefix.
func FormatWithSpeaker(message, name string) string {
	if i := strings.Index(message, ":"); i > 0 && i <= maxSpeakerLength {
		prefix := message[:i]
		if !strings.ContainsAny(prefix, ".!?") && len(strings.Fields(prefix)) <= 3 {
			return message
		}
	}
	return name + ": " + message
}
