package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/date-engine/pkg/chat"
)

const (
	ollamaReadyAttempts = 5
	ollamaReadyDelay    = 2 * time.Second
	ollamaPullTimeout   = 10 * time.Minute
)

// OllamaService implements LLMService against a self-hosted Ollama server.
// Replies are requested in JSON mode since every prompt asks for an
// evaluation object.
type OllamaService struct {
	baseURL    string
	modelName  string
	httpClient *http.Client
	logger     *slog.Logger
	readyDelay time.Duration
}

type ollamaChatRequest struct {
	Model    string             `json:"model"`
	Messages []chat.ChatMessage `json:"messages"`
	Stream   bool               `json:"stream"`
	Format   string             `json:"format,omitempty"`
	Options  map[string]any     `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Model   string           `json:"model"`
	Message chat.ChatMessage `json:"message"`
	Done    bool             `json:"done"`
	Error   string           `json:"error,omitempty"`
}

func NewOllamaService(baseURL string, modelName string, logger *slog.Logger) *OllamaService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &OllamaService{
		baseURL:    baseURL,
		modelName:  modelName,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
		readyDelay: ollamaReadyDelay,
	}
}

// InitModel waits for the server and pulls the model when it is missing.
func (s *OllamaService) InitModel(ctx context.Context, modelName string) error {
	s.logger.Info("Initializing LLM model", "provider", "ollama", "model", modelName)

	if err := s.waitForReady(ctx); err != nil {
		return fmt.Errorf("ollama service is not ready: %w", err)
	}

	ready, err := s.hasModel(ctx, modelName)
	if err != nil {
		return fmt.Errorf("failed to check model readiness: %w", err)
	}
	if ready {
		s.logger.Info("Model already available", "model", modelName)
		return nil
	}

	s.logger.Info("Model not found, pulling it", "model", modelName)
	if err := s.pullModel(ctx, modelName); err != nil {
		return fmt.Errorf("failed to pull model: %w", err)
	}
	s.logger.Info("Model pulled successfully", "model", modelName)
	return nil
}

func (s *OllamaService) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages to send")
	}

	body, err := json.Marshal(ollamaChatRequest{
		Model:    s.modelName,
		Messages: messages,
		Format:   "json",
		Options:  map[string]any{"temperature": DefaultOpenAITemperature},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	s.logger.Debug("Making Ollama chat request", "model", s.modelName, "message_count", len(messages))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var out ollamaChatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		s.logger.Error("Failed to decode Ollama response", "error", err, "status_code", resp.StatusCode)
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != "" {
			return nil, fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, out.Error)
		}
		return nil, fmt.Errorf("API request failed with status: %d", resp.StatusCode)
	}

	return &chat.ChatResponse{Message: out.Message.Content}, nil
}

func (s *OllamaService) hasModel(ctx context.Context, modelName string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("API request failed with status: %d", resp.StatusCode)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}

	for _, m := range tags.Models {
		if m.Name == modelName {
			return true, nil
		}
	}
	return false, nil
}

func (s *OllamaService) pullModel(ctx context.Context, modelName string) error {
	body, err := json.Marshal(map[string]any{"name": modelName, "stream": false})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: ollamaPullTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API request failed with status: %d", resp.StatusCode)
	}
	return nil
}

func (s *OllamaService) waitForReady(ctx context.Context) error {
	for attempt := 1; attempt <= ollamaReadyAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := s.httpClient.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
			s.logger.Debug("Ollama returned non-200 status", "status", resp.StatusCode, "attempt", attempt)
		} else {
			s.logger.Debug("Ollama not ready yet", "error", err, "attempt", attempt)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.readyDelay):
		}
	}
	return fmt.Errorf("ollama did not become ready after %d attempts", ollamaReadyAttempts)
}
