package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/jwebster45206/date-engine/pkg/chat"
)

const DefaultGeminiTemperature = 0.7

// GeminiService implements LLMService for Google Gemini
type GeminiService struct {
	client    *genai.Client
	modelName string
	logger    *slog.Logger
}

func NewGeminiService(ctx context.Context, apiKey string, modelName string, logger *slog.Logger) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiService{
		client:    client,
		modelName: modelName,
		logger:    logger,
	}, nil
}

func (g *GeminiService) InitModel(ctx context.Context, modelName string) error {
	if modelName != "" {
		g.modelName = modelName
	}
	return nil
}

// Close releases the underlying client.
func (g *GeminiService) Close() error {
	return g.client.Close()
}

// Chat folds system messages into the model's system instruction and sends
// the rest as a single prompt.
func (g *GeminiService) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	system, prompt := splitForGemini(messages)
	if prompt == "" {
		return nil, fmt.Errorf("no messages provided")
	}

	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(DefaultGeminiTemperature)
	model.ResponseMIMEType = "application/json"
	if system != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no content in gemini response")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	return &chat.ChatResponse{
		Message: text.String(),
	}, nil
}

// splitForGemini joins system messages into one instruction and the
// remaining messages into one prompt, prefixed by speaker where needed.
func splitForGemini(messages []chat.ChatMessage) (system, prompt string) {
	var sys, rest []string
	for _, msg := range messages {
		switch msg.Role {
		case chat.ChatRoleSystem:
			sys = append(sys, msg.Content)
		case chat.ChatRoleAgent:
			rest = append(rest, chat.FormatWithSpeaker(msg.Content, "Assistant"))
		default:
			rest = append(rest, msg.Content)
		}
	}
	return strings.Join(sys, "\n\n"), strings.Join(rest, "\n\n")
}
