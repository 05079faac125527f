package services

import (
	"context"
	"sync"

	"github.com/jwebster45206/date-engine/pkg/chat"
)

// MockLLMAPI is a mock implementation of LLMService for testing
type MockLLMAPI struct {
	InitModelFunc func(ctx context.Context, modelName string) error
	ChatFunc      func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)

	// Track calls for testing
	InitModelCalls []string
	ChatCalls      []ChatCall

	mu sync.Mutex // protects all fields above
}

type ChatCall struct {
	Messages []chat.ChatMessage
}

// MockEvaluationReply is the default Chat reply: a valid evaluation.
const MockEvaluationReply = `{"meterDelta":{"trust":1,"chemistry":1,"affection":0},"npcDialogue":"That's sweet of you to say.","visualPrompt":"Character smiles warmly across the table, drinks still between us.","isAppropriate":true}`

// Ensure MockLLMAPI implements LLMService
var _ LLMService = (*MockLLMAPI)(nil)

// NewMockLLMAPI creates a new mock LLM service
func NewMockLLMAPI() *MockLLMAPI {
	return &MockLLMAPI{
		InitModelCalls: make([]string, 0),
		ChatCalls:      make([]ChatCall, 0),
	}
}

func (m *MockLLMAPI) InitModel(ctx context.Context, modelName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InitModelCalls = append(m.InitModelCalls, modelName)

	if m.InitModelFunc != nil {
		return m.InitModelFunc(ctx, modelName)
	}
	return nil
}

func (m *MockLLMAPI) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	m.mu.Lock()
	m.ChatCalls = append(m.ChatCalls, ChatCall{Messages: messages})
	fn := m.ChatFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, messages)
	}

	return &chat.ChatResponse{
		Message: MockEvaluationReply,
	}, nil
}

// SetInitModelError sets up the mock to return an error on InitModel
func (m *MockLLMAPI) SetInitModelError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitModelFunc = func(ctx context.Context, modelName string) error {
		return err
	}
}

// SetChatError sets up the mock to return an error on Chat
func (m *MockLLMAPI) SetChatError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
		return nil, err
	}
}

// SetChatReply sets up the mock to answer Chat with reply
func (m *MockLLMAPI) SetChatReply(reply string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
		return &chat.ChatResponse{Message: reply}, nil
	}
}

// Reset clears all call tracking
func (m *MockLLMAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitModelCalls = make([]string, 0)
	m.ChatCalls = make([]ChatCall, 0)
}

// GetCalls returns a copy of the call tracking data in a thread-safe way
func (m *MockLLMAPI) GetCalls() ([]string, []ChatCall) {
	m.mu.Lock()
	defer m.mu.Unlock()

	initCalls := make([]string, len(m.InitModelCalls))
	copy(initCalls, m.InitModelCalls)

	chatCalls := make([]ChatCall, len(m.ChatCalls))
	copy(chatCalls, m.ChatCalls)

	return initCalls, chatCalls
}
