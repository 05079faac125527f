package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jwebster45206/date-engine/pkg/stream"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	writeWait               = 10 * time.Second
	eventBuffer             = 32
)

// Wire message types sent by the client.
const (
	msgStartStream = "start_stream"
	msgInteract    = "interact"
	msgEndStream   = "end_stream"
)

// wireMessage is the JSON frame exchanged with the video service.
type wireMessage struct {
	Type     string `json:"type"`
	Prompt   string `json:"prompt,omitempty"`
	StreamID string `json:"stream_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Message  string `json:"message,omitempty"`
	Fatal    bool   `json:"fatal,omitempty"`
}

// ErrClientClosed is returned when Connect is called on a client whose
// connection already ended. Create a new client instead.
var ErrClientClosed = errors.New("video client already closed")

// WebSocketConfig configures a WebSocketClient.
type WebSocketConfig struct {
	URL              string
	APIKey           string
	HandshakeTimeout time.Duration
}

// WebSocketClient speaks JSON frames over a websocket to the video service.
type WebSocketClient struct {
	cfg     WebSocketConfig
	machine *stream.Machine
	logger  *slog.Logger

	mu      sync.Mutex // guards conn writes and started
	conn    *websocket.Conn
	started chan string

	emitMu    sync.Mutex // guards events against send after close
	events    chan Event
	closed    bool
	closeOnce sync.Once
	done      chan struct{}
}

// Ensure WebSocketClient implements Client
var _ Client = (*WebSocketClient)(nil)

func NewWebSocketClient(cfg WebSocketConfig, logger *slog.Logger) *WebSocketClient {
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	c := &WebSocketClient{
		cfg:     cfg,
		machine: stream.NewMachine(),
		logger:  logger,
		events:  make(chan Event, eventBuffer),
		done:    make(chan struct{}),
	}
	c.machine.OnChange(func(from, to stream.State) {
		c.logger.Debug("Video stream state changed", "from", from, "to", to)
	})
	return c
}

// NewWebSocketFactory returns a Factory producing clients for cfg.
func NewWebSocketFactory(cfg WebSocketConfig, logger *slog.Logger) Factory {
	return func() Client {
		return NewWebSocketClient(cfg, logger)
	}
}

func (c *WebSocketClient) State() stream.State {
	return c.machine.State()
}

// Events is closed once the connection is gone.
func (c *WebSocketClient) Events() <-chan Event {
	return c.events
}

// Connect dials the service. Calling Connect while a connection attempt is
// in flight returns stream.ErrInvalidTransition.
func (c *WebSocketClient) Connect(ctx context.Context) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	if err := c.machine.Connect(); err != nil {
		return err
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}
	header := http.Header{}
	if c.cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	conn, resp, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		// a failed dial ends the client; Events closes so readers return
		_ = c.machine.Fail(err)
		c.finish()
		return fmt.Errorf("failed to connect to video service: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	if err := c.machine.Connected(); err != nil {
		// closed while dialing
		_ = conn.Close()
		return err
	}

	go c.readLoop(conn)
	c.emit(Event{Type: EventConnected})
	return nil
}

// StartStream asks for a new stream and waits for its id.
func (c *WebSocketClient) StartStream(ctx context.Context, prompt string) (string, error) {
	if !c.machine.Can(stream.EventStreamStarted) {
		return "", fmt.Errorf("%w: cannot start stream in state %s", stream.ErrInvalidTransition, c.machine.State())
	}

	started := make(chan string, 1)
	c.mu.Lock()
	c.started = started
	c.mu.Unlock()

	if err := c.send(wireMessage{Type: msgStartStream, Prompt: prompt}); err != nil {
		return "", err
	}

	select {
	case id := <-started:
		return id, nil
	case <-c.done:
		if err := c.machine.LastError(); err != nil {
			return "", fmt.Errorf("connection closed before stream started: %w", err)
		}
		return "", errors.New("connection closed before stream started")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Interact sends a prompt to the running stream.
func (c *WebSocketClient) Interact(ctx context.Context, prompt string) error {
	if !c.machine.State().IsActive() {
		return ErrNotStreaming
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.send(wireMessage{Type: msgInteract, Prompt: prompt})
}

// Disconnect ends the stream and closes the connection. It is safe to call
// more than once.
func (c *WebSocketClient) Disconnect() error {
	if c.machine.State().IsTerminal() {
		return nil
	}
	wasStreaming := c.machine.State().IsActive()
	_ = c.machine.Close()

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		c.finish()
		return nil
	}

	if wasStreaming {
		_ = c.send(wireMessage{Type: msgEndStream})
	}
	c.mu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	c.mu.Unlock()

	err := conn.Close()
	c.finish()
	return err
}

func (c *WebSocketClient) send(msg wireMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotStreaming
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to send %s: %w", msg.Type, err)
	}
	return nil
}

func (c *WebSocketClient) readLoop(conn *websocket.Conn) {
	defer c.finish()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.machine.State().IsTerminal() {
				return
			}
			_ = c.machine.Fail(err)
			c.emit(Event{Type: EventError, Message: err.Error(), Fatal: true})
			return
		}

		var msg wireMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("Ignoring malformed video frame", "error", err)
			continue
		}
		c.handle(msg)
	}
}

func (c *WebSocketClient) handle(msg wireMessage) {
	ev := Event{
		Type:     EventType(msg.Type),
		StreamID: msg.StreamID,
		Reason:   msg.Reason,
		Message:  msg.Message,
		Fatal:    msg.Fatal,
	}

	switch ev.Type {
	case EventStreamStarted:
		if err := c.machine.StreamStarted(); err != nil {
			c.logger.Warn("Unexpected stream_started", "error", err)
		}
		c.mu.Lock()
		if c.started != nil {
			c.started <- msg.StreamID
			c.started = nil
		}
		c.mu.Unlock()
	case EventStreamEnded:
		_ = c.machine.StreamEnded()
	case EventError:
		if msg.Fatal {
			_ = c.machine.Fail(fmt.Errorf("video service: %s", msg.Message))
		}
	case EventInteractAck:
	default:
		c.logger.Debug("Unknown video frame", "type", msg.Type)
		return
	}

	c.emit(ev)
}

// emit never blocks; a slow consumer loses events.
func (c *WebSocketClient) emit(ev Event) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("Video event dropped, consumer too slow", "type", ev.Type)
	}
}

func (c *WebSocketClient) finish() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.emitMu.Lock()
		c.closed = true
		close(c.events)
		c.emitMu.Unlock()
	})
}
