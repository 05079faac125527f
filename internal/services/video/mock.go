package video

import (
	"context"
	"fmt"
	"sync"

	"github.com/jwebster45206/date-engine/pkg/stream"
)

// MockVideoClient is an in-memory Client for testing
type MockVideoClient struct {
	ConnectErr  error
	StartErr    error
	InteractErr error

	mu           sync.Mutex
	machine      *stream.Machine
	events       chan Event
	closed       bool
	prompts      []string
	starts       int
	disconnected bool
}

// Ensure MockVideoClient implements Client
var _ Client = (*MockVideoClient)(nil)

func NewMockVideoClient() *MockVideoClient {
	return &MockVideoClient{
		machine: stream.NewMachine(),
		events:  make(chan Event, 64),
	}
}

func (m *MockVideoClient) Connect(ctx context.Context) error {
	if err := m.machine.Connect(); err != nil {
		return err
	}
	if m.ConnectErr != nil {
		_ = m.machine.Fail(m.ConnectErr)
		m.closeEvents()
		return m.ConnectErr
	}
	_ = m.machine.Connected()
	m.Emit(Event{Type: EventConnected})
	return nil
}

func (m *MockVideoClient) StartStream(ctx context.Context, prompt string) (string, error) {
	if m.StartErr != nil {
		return "", m.StartErr
	}
	if err := m.machine.StreamStarted(); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.starts++
	m.prompts = append(m.prompts, prompt)
	id := fmt.Sprintf("stream-%d", m.starts)
	m.mu.Unlock()

	m.Emit(Event{Type: EventStreamStarted, StreamID: id})
	return id, nil
}

func (m *MockVideoClient) Interact(ctx context.Context, prompt string) error {
	if !m.machine.State().IsActive() {
		return ErrNotStreaming
	}
	if m.InteractErr != nil {
		return m.InteractErr
	}
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	m.Emit(Event{Type: EventInteractAck})
	return nil
}

func (m *MockVideoClient) Disconnect() error {
	_ = m.machine.Close()
	m.mu.Lock()
	m.disconnected = true
	m.mu.Unlock()
	m.closeEvents()
	return nil
}

func (m *MockVideoClient) closeEvents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.events)
	}
}

// EventsClosed reports whether the events channel has been closed
func (m *MockVideoClient) EventsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockVideoClient) Events() <-chan Event { return m.events }

func (m *MockVideoClient) State() stream.State { return m.machine.State() }

// Emit pushes an event as if the service sent it (for testing)
func (m *MockVideoClient) Emit(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	select {
	case m.events <- ev:
	default:
	}
}

// Drop simulates the connection failing (for testing)
func (m *MockVideoClient) Drop(err error) {
	_ = m.machine.Fail(err)
	m.Emit(Event{Type: EventError, Message: err.Error(), Fatal: true})
}

// Prompts returns every start and interact prompt in order
func (m *MockVideoClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Disconnected reports whether Disconnect was called
func (m *MockVideoClient) Disconnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disconnected
}
