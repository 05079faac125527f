// Package evaluator scores free-form player messages with an LLM and
// returns the date's reaction.
package evaluator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jwebster45206/date-engine/internal/services"
	"github.com/jwebster45206/date-engine/pkg/prompts"
)

// DefaultTimeout bounds one evaluation call.
const DefaultTimeout = 30 * time.Second

// Request is the context of one free-form message.
type Request struct {
	UserMessage          string
	CharacterName        string
	CharacterGender      string
	CharacterPersonality string
	CurrentMood          string
	ConversationContext  string
	Location             string
	Rating               string
}

// Evaluator calls the LLM. Evaluate never fails; every failure maps to a
// fallback response.
type Evaluator struct {
	llm     services.LLMService
	timeout time.Duration
	logger  *slog.Logger
}

// New creates an evaluator. A nil llm is allowed and always yields
// ErrorFallback.
func New(llm services.LLMService, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		llm:     llm,
		timeout: DefaultTimeout,
		logger:  logger,
	}
}

// WithTimeout overrides DefaultTimeout.
func (e *Evaluator) WithTimeout(d time.Duration) *Evaluator {
	if d > 0 {
		e.timeout = d
	}
	return e
}

// Available reports whether an LLM is configured.
func (e *Evaluator) Available() bool {
	return e.llm != nil
}

// Evaluate scores req.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) Response {
	if e.llm == nil {
		e.logger.Warn("No LLM configured, using fallback evaluation")
		return ErrorFallback
	}

	messages, err := prompts.NewEvaluation().
		WithCharacter(req.CharacterName, req.CharacterGender, req.CharacterPersonality).
		WithScene(req.CurrentMood, req.Location).
		WithContext(req.ConversationContext).
		WithUserMessage(req.UserMessage).
		WithRating(req.Rating).
		Build()
	if err != nil {
		e.logger.Warn("Failed to build evaluation prompt", "error", err)
		return ErrorFallback
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	resp, err := e.llm.Chat(ctx, messages)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			e.logger.Warn("Evaluation timed out", "timeout", e.timeout)
		} else {
			e.logger.Error("Evaluation request failed", "error", err)
		}
		return ErrorFallback
	}

	result := Parse(resp.Message)
	if !result.OK() {
		e.logger.Warn("Failed to parse evaluation",
			"error", result.Err,
			"reply", resp.Message)
	} else {
		e.logger.Debug("Evaluation complete",
			"duration", time.Since(start),
			"delta", result.Response.MeterDelta,
			"appropriate", result.Response.IsAppropriate)
	}
	return result.ResponseOrFallback()
}
