package evaluator

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jwebster45206/date-engine/pkg/meters"
)

// Response is the evaluated outcome of a free-form player message.
type Response struct {
	MeterDelta    meters.Delta `json:"meterDelta"`
	NpcDialogue   string       `json:"npcDialogue"`
	VisualPrompt  string       `json:"visualPrompt"`
	IsAppropriate bool         `json:"isAppropriate"`
}

// ErrorFallback is used when the model could not be reached.
var ErrorFallback = Response{
	NpcDialogue:   "Sorry, I got a bit distracted. What were you saying?",
	VisualPrompt:  "Character looks momentarily distracted, then refocuses with a small apologetic smile.",
	IsAppropriate: true,
}

// ParseFallback is used when the model answered with something unusable.
var ParseFallback = Response{
	NpcDialogue:   "Hmm, I'm not sure what to say to that...",
	VisualPrompt:  "Character looks slightly confused, tilts head, uncertain expression.",
	IsAppropriate: true,
}

// ErrNoJSON is reported when the model reply holds no JSON object.
var ErrNoJSON = errors.New("no JSON found in response")

// ParseResult is the outcome of Parse: either a usable Response or the
// reason it was rejected.
type ParseResult struct {
	Response Response
	Err      error
}

// OK reports whether the reply parsed.
func (r ParseResult) OK() bool {
	return r.Err == nil
}

// ResponseOrFallback returns the parsed response, or ParseFallback.
func (r ParseResult) ResponseOrFallback() Response {
	if r.OK() {
		return r.Response
	}
	return ParseFallback
}

type wireDelta struct {
	Trust     *float64 `json:"trust" validate:"required"`
	Chemistry *float64 `json:"chemistry" validate:"required"`
	Affection *float64 `json:"affection" validate:"required"`
}

type wireResponse struct {
	MeterDelta    *wireDelta `json:"meterDelta" validate:"required"`
	NpcDialogue   string     `json:"npcDialogue" validate:"required"`
	VisualPrompt  string     `json:"visualPrompt" validate:"required"`
	IsAppropriate *bool      `json:"isAppropriate"`
}

var validate = validator.New()

// Parse extracts the outermost {...} span of a model reply, decodes it and
// checks the required fields. Deltas are rounded and clamped to [-3, 3].
// A missing isAppropriate counts as appropriate.
func Parse(text string) ParseResult {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ParseResult{Err: ErrNoJSON}
	}

	var w wireResponse
	if err := json.Unmarshal([]byte(text[start:end+1]), &w); err != nil {
		return ParseResult{Err: fmt.Errorf("failed to decode evaluation: %w", err)}
	}
	// whitespace-only text counts as missing
	w.NpcDialogue = strings.TrimSpace(w.NpcDialogue)
	w.VisualPrompt = strings.TrimSpace(w.VisualPrompt)
	if err := validate.Struct(&w); err != nil {
		return ParseResult{Err: fmt.Errorf("invalid evaluation: %w", err)}
	}

	appropriate := true
	if w.IsAppropriate != nil {
		appropriate = *w.IsAppropriate
	}

	return ParseResult{Response: Response{
		MeterDelta: meters.ClampDelta(meters.Delta{
			Trust:     toDelta(*w.MeterDelta.Trust),
			Chemistry: toDelta(*w.MeterDelta.Chemistry),
			Affection: toDelta(*w.MeterDelta.Affection),
		}),
		NpcDialogue:   w.NpcDialogue,
		VisualPrompt:  w.VisualPrompt,
		IsAppropriate: appropriate,
	}}
}

// toDelta rounds and pre-clamps so huge values cannot overflow int.
func toDelta(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Round(math.Max(meters.MinDelta, math.Min(meters.MaxDelta, v))))
}
