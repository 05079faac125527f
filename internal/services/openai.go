package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jwebster45206/date-engine/pkg/chat"
)

const (
	openAIBaseURL = "https://api.openai.com/v1"

	DefaultOpenAITemperature = 0.7
	DefaultOpenAIMaxTokens   = 500
)

// OpenAIService implements LLMService for OpenAI chat completions
type OpenAIService struct {
	apiKey     string
	modelName  string
	baseURL    string
	httpClient *http.Client
}

// OpenAIChatRequest is the chat completions request body
type OpenAIChatRequest struct {
	Model       string             `json:"model"`
	Messages    []chat.ChatMessage `json:"messages"`
	Temperature float64            `json:"temperature,omitempty"`
	MaxTokens   int                `json:"max_tokens,omitempty"`
}

// OpenAIChatResponse is the chat completions response body
type OpenAIChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// NewOpenAIService creates a new OpenAI service
func NewOpenAIService(apiKey string, modelName string) *OpenAIService {
	return &OpenAIService{
		apiKey:    apiKey,
		modelName: modelName,
		baseURL:   openAIBaseURL,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

// WithBaseURL points the service at another endpoint (tests, proxies).
func (o *OpenAIService) WithBaseURL(baseURL string) *OpenAIService {
	o.baseURL = baseURL
	return o
}

// InitModel is a no-op; OpenAI models need no warm-up.
func (o *OpenAIService) InitModel(ctx context.Context, modelName string) error {
	return nil
}

func (o *OpenAIService) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}

	request := OpenAIChatRequest{
		Model:       o.modelName,
		Messages:    messages,
		Temperature: DefaultOpenAITemperature,
		MaxTokens:   DefaultOpenAIMaxTokens,
	}

	reqBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp OpenAIChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if chatResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned from API")
	}

	msg := chatResp.Choices[0].Message
	if msg.Refusal != "" {
		return nil, fmt.Errorf("model refused to respond: %s", msg.Refusal)
	}

	return &chat.ChatResponse{
		Message: msg.Content,
	}, nil
}
