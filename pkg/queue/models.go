package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RequestType identifies the type of request in the stream queue
type RequestType string

const (
	// RequestTypeStreamStart opens a video session and starts streaming the initial prompt
	RequestTypeStreamStart RequestType = "stream.start"

	// RequestTypeStreamInteract sends a prompt to a running stream
	RequestTypeStreamInteract RequestType = "stream.interact"

	// RequestTypeStreamStop ends the stream and disconnects
	RequestTypeStreamStop RequestType = "stream.stop"
)

// Reasons attached to interact requests, surfaced in events and logs.
const (
	ReasonChoice     = "choice"
	ReasonCustom     = "custom"
	ReasonDriftReset = "drift_reset"
	ReasonTransition = "scene_transition"
	ReasonRestart    = "restart"
	ReasonLeave      = "leave"
)

// Request is one unit of work for the stream worker.
type Request struct {
	RequestID   string      `json:"request_id"`
	Type        RequestType `json:"type"`
	GameStateID uuid.UUID   `json:"game_state_id"`

	// Prompt is the full video prompt for start and interact requests
	Prompt string `json:"prompt,omitempty"`
	Reason string `json:"reason,omitempty"`
	TurnID string `json:"turn_id,omitempty"`

	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewRequest creates a request with a fresh id.
func NewRequest(t RequestType, gameStateID uuid.UUID, prompt, reason string) *Request {
	return &Request{
		RequestID:   uuid.NewString(),
		Type:        t,
		GameStateID: gameStateID,
		Prompt:      prompt,
		Reason:      reason,
		EnqueuedAt:  time.Now(),
	}
}

// MarshalJSON serializes the request to JSON for Redis storage
func (r *Request) MarshalJSON() ([]byte, error) {
	type Alias Request
	return json.Marshal(&struct {
		GameStateID string `json:"game_state_id"`
		*Alias
	}{
		GameStateID: r.GameStateID.String(),
		Alias:       (*Alias)(r),
	})
}

// UnmarshalJSON deserializes the request from JSON in Redis
func (r *Request) UnmarshalJSON(data []byte) error {
	type Alias Request
	aux := &struct {
		GameStateID string `json:"game_state_id"`
		*Alias
	}{
		Alias: (*Alias)(r),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	gameStateID, err := uuid.Parse(aux.GameStateID)
	if err != nil {
		return err
	}

	r.GameStateID = gameStateID
	return nil
}

// ToJSON converts the request to JSON bytes for Redis
func (r *Request) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// FromJSON parses a request from JSON bytes
func FromJSON(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}
