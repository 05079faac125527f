package stream

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine_HappyPath(t *testing.T) {
	m := NewMachine()
	assert.Equal(t, Idle, m.State())

	var seen []State
	m.OnChange(func(from, to State) { seen = append(seen, to) })

	require.NoError(t, m.Connect())
	require.NoError(t, m.Connected())
	require.NoError(t, m.StreamStarted())
	assert.True(t, m.State().IsActive())
	require.NoError(t, m.StreamEnded())
	require.NoError(t, m.StreamStarted())
	require.NoError(t, m.Close())

	assert.Equal(t, []State{Connecting, Connected, Streaming, Connected, Streaming, Closed}, seen)
	assert.True(t, m.State().IsTerminal())
}

func TestMachine_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m *Machine)
		fire  func(m *Machine) error
	}{
		{"connect while connecting", func(m *Machine) { _ = m.Connect() }, (*Machine).Connect},
		{"stream before connected", func(m *Machine) { _ = m.Connect() }, (*Machine).StreamStarted},
		{"connected from idle", func(m *Machine) {}, (*Machine).Connected},
		{"end without stream", func(m *Machine) { _ = m.Connect(); _ = m.Connected() }, (*Machine).StreamEnded},
		{"anything after close", func(m *Machine) { _ = m.Close() }, (*Machine).Connect},
		{"close twice", func(m *Machine) { _ = m.Close() }, (*Machine).Close},
		{"fail from idle", func(m *Machine) {}, func(m *Machine) error { return m.Fail(errors.New("x")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine()
			tt.setup(m)
			before := m.State()
			err := tt.fire(m)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidTransition))
			assert.Equal(t, before, m.State())
		})
	}
}

func TestMachine_ErrorCanReconnect(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.Connect())
	cause := errors.New("handshake failed")
	require.NoError(t, m.Fail(cause))
	assert.Equal(t, Error, m.State())
	assert.Equal(t, cause, m.LastError())

	assert.True(t, m.Can(EventConnect))
	assert.False(t, m.Can(EventStreamStarted))

	require.NoError(t, m.Connect())
	assert.Nil(t, m.LastError())
	require.NoError(t, m.Connected())
}

func TestMachine_ConcurrentConnectOnlyOneWins(t *testing.T) {
	m := NewMachine()
	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Connect() == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
	assert.Equal(t, Connecting, m.State())
}
