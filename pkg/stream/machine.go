package stream

import (
	"errors"
	"fmt"
	"sync"
)

// State of a video stream connection.
type State string

const (
	Idle       State = "idle"
	Connecting State = "connecting"
	Connected  State = "connected"
	Streaming  State = "streaming"
	Error      State = "error"
	Closed     State = "closed"
)

// ErrInvalidTransition is returned when an event is not allowed in the
// current state.
var ErrInvalidTransition = errors.New("invalid stream state transition")

// Event drives the machine.
type Event string

const (
	EventConnect       Event = "connect"
	EventConnected     Event = "connected"
	EventStreamStarted Event = "stream_started"
	EventStreamEnded   Event = "stream_ended"
	EventFail          Event = "fail"
	EventClose         Event = "close"
)

// transitions lists the allowed moves. Closed has no entry: it is terminal.
var transitions = map[State]map[Event]State{
	Idle: {
		EventConnect: Connecting,
		EventClose:   Closed,
	},
	Connecting: {
		EventConnected: Connected,
		EventFail:      Error,
		EventClose:     Closed,
	},
	Connected: {
		EventStreamStarted: Streaming,
		EventFail:          Error,
		EventClose:         Closed,
	},
	Streaming: {
		EventStreamEnded: Connected,
		EventFail:        Error,
		EventClose:       Closed,
	},
	Error: {
		EventConnect: Connecting,
		EventClose:   Closed,
	},
}

// Machine is a connection state machine safe for concurrent use. A second
// Connect while connecting is rejected with ErrInvalidTransition.
type Machine struct {
	mu       sync.Mutex
	state    State
	lastErr  error
	onChange func(from, to State)
}

// NewMachine starts in Idle.
func NewMachine() *Machine {
	return &Machine{state: Idle}
}

// OnChange registers a callback invoked after every successful transition.
// It runs with the machine unlocked.
func (m *Machine) OnChange(fn func(from, to State)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError returns the error recorded by the most recent Fail.
func (m *Machine) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Can reports whether ev is allowed now.
func (m *Machine) Can(ev Event) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := transitions[m.state][ev]
	return ok
}

func (m *Machine) fire(ev Event, cause error) error {
	m.mu.Lock()
	from := m.state
	to, ok := transitions[from][ev]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, ev, from)
	}
	m.state = to
	if ev == EventFail {
		m.lastErr = cause
	} else if ev == EventConnect {
		m.lastErr = nil
	}
	fn := m.onChange
	m.mu.Unlock()

	if fn != nil {
		fn(from, to)
	}
	return nil
}

func (m *Machine) Connect() error       { return m.fire(EventConnect, nil) }
func (m *Machine) Connected() error     { return m.fire(EventConnected, nil) }
func (m *Machine) StreamStarted() error { return m.fire(EventStreamStarted, nil) }
func (m *Machine) StreamEnded() error   { return m.fire(EventStreamEnded, nil) }
func (m *Machine) Close() error         { return m.fire(EventClose, nil) }

// Fail moves to Error and records cause.
func (m *Machine) Fail(cause error) error {
	return m.fire(EventFail, cause)
}

// IsActive reports whether the stream can accept interactions.
func (s State) IsActive() bool {
	return s == Streaming
}

// IsTerminal reports whether no further transitions are possible.
func (s State) IsTerminal() bool {
	return s == Closed
}
