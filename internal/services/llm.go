package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/date-engine/pkg/chat"
)

// ErrMissingAPIKey is returned by NewLLMService when the provider has no key.
var ErrMissingAPIKey = errors.New("missing LLM API key")

// LLMService defines the interface for interacting with the LLM API
type LLMService interface {
	// InitModel prepares the model on startup
	InitModel(ctx context.Context, modelName string) error

	// Chat sends the messages and returns the model's reply
	Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)
}

// NewLLMService builds the service for provider. For ollama, apiKey is the
// server's base URL. It returns ErrMissingAPIKey when apiKey is empty so
// callers can run without an LLM.
func NewLLMService(ctx context.Context, provider, apiKey, modelName string, logger *slog.Logger) (LLMService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w for provider %s", ErrMissingAPIKey, provider)
	}
	switch provider {
	case "openai":
		return NewOpenAIService(apiKey, modelName), nil
	case "anthropic":
		return NewAnthropicService(apiKey, modelName, logger), nil
	case "gemini":
		return NewGeminiService(ctx, apiKey, modelName, logger)
	case "ollama":
		return NewOllamaService(apiKey, modelName, logger), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}
