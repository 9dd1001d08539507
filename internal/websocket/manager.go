package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ConnState is the connection lifecycle state of a Manager.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateReconnecting ConnState = "reconnecting"
	// StateGaveUp is terminal: the reconnect budget is spent and only an
	// explicit Connect call starts a fresh attempt series.
	StateGaveUp ConnState = "gave_up"
)

const (
	defaultBaseDelay   = time.Second
	defaultMaxAttempts = 5
)

// ErrNotConnected is returned by Send when no connection is up. Messages
// are never queued for later delivery.
var ErrNotConnected = errors.New("websocket not connected")

// MessageHandler consumes one inbound message's raw payload.
type MessageHandler func(payload []byte)

// Dialer opens a websocket connection. Injectable so tests can run
// without a listening server.
type Dialer func(ctx context.Context, url string) (*websocket.Conn, error)

func gorillaDialer(ctx context.Context, url string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	return conn, err
}

// Manager is the client side of the collaboration channel. It owns one
// connection, restores it with linear backoff when it drops, and routes
// inbound messages through a per-type handler table.
type Manager struct {
	url         string
	baseDelay   time.Duration
	maxAttempts int
	dial        Dialer
	logger      *zap.Logger

	mu       sync.Mutex
	state    ConnState
	conn     *websocket.Conn
	handlers map[MessageType]MessageHandler
	attempts int
	timer    *time.Timer
	onState  func(ConnState)
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithBackoff overrides the base reconnect delay.
func WithBackoff(base time.Duration) ManagerOption {
	return func(m *Manager) {
		m.baseDelay = base
	}
}

// WithMaxAttempts overrides the reconnect attempt budget.
func WithMaxAttempts(n int) ManagerOption {
	return func(m *Manager) {
		m.maxAttempts = n
	}
}

// WithDialer overrides how connections are opened.
func WithDialer(dial Dialer) ManagerOption {
	return func(m *Manager) {
		m.dial = dial
	}
}

// WithStateListener registers a callback invoked on every state change.
// The callback runs outside the manager lock.
func WithStateListener(fn func(ConnState)) ManagerOption {
	return func(m *Manager) {
		m.onState = fn
	}
}

// NewManager creates a disconnected manager for the given URL.
func NewManager(url string, logger *zap.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		url:         url,
		baseDelay:   defaultBaseDelay,
		maxAttempts: defaultMaxAttempts,
		dial:        gorillaDialer,
		logger:      logger,
		state:       StateDisconnected,
		handlers:    make(map[MessageType]MessageHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current connection state.
func (m *Manager) State() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// delayFor is the linear backoff schedule: attempt 1 waits one base
// delay, attempt 2 twice that, and so on.
func (m *Manager) delayFor(attempt int) time.Duration {
	return m.baseDelay * time.Duration(attempt)
}

// Connect opens the connection. A no-op when already connected or a
// connect is in flight; from GaveUp it starts a fresh attempt series.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateConnected, StateConnecting, StateReconnecting:
		m.mu.Unlock()
		return nil
	}
	m.attempts = 0
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	conn, err := m.dial(ctx, m.url)
	if err != nil {
		m.logger.Warn("WebSocket connect failed", zap.Error(err))
		m.scheduleReconnect(ctx)
		return err
	}

	m.adopt(ctx, conn)
	return nil
}

// adopt installs the live connection and starts its read loop. A
// Disconnect that landed while the dial was in flight wins; the fresh
// connection is closed instead of installed.
func (m *Manager) adopt(ctx context.Context, conn *websocket.Conn) {
	m.mu.Lock()
	if m.state != StateConnecting && m.state != StateReconnecting {
		m.mu.Unlock()
		m.logger.Info("Discarding connection dialed before disconnect",
			zap.String("url", m.url))
		conn.Close()
		return
	}
	m.conn = conn
	m.attempts = 0
	m.setStateLocked(StateConnected)
	m.mu.Unlock()

	m.logger.Info("WebSocket connected", zap.String("url", m.url))
	go m.readLoop(ctx, conn)
}

func (m *Manager) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			m.mu.Lock()
			stale := m.conn != conn
			m.mu.Unlock()
			// A nil or replaced conn means Disconnect or a newer
			// connection owns the channel now.
			if stale {
				return
			}
			m.logger.Warn("WebSocket read failed", zap.Error(err))
			m.scheduleReconnect(ctx)
			return
		}
		m.dispatch(payload)
	}
}

// dispatch routes one inbound message to its registered handler.
// Messages with no handler are dropped silently; that is how a client
// opts out of message types it does not render.
func (m *Manager) dispatch(payload []byte) {
	var base BaseMessage
	if err := json.Unmarshal(payload, &base); err != nil {
		m.logger.Warn("Discarding malformed message", zap.Error(err))
		return
	}

	m.mu.Lock()
	handler, ok := m.handlers[base.Type]
	m.mu.Unlock()
	if !ok {
		return
	}
	handler(payload)
}

// scheduleReconnect arms the backoff timer for the next attempt, or
// gives up once the budget is spent. A Disconnect that raced the failed
// dial suppresses the retry.
func (m *Manager) scheduleReconnect(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateDisconnected || m.state == StateGaveUp {
		return
	}

	m.conn = nil
	if m.attempts >= m.maxAttempts {
		m.setStateLocked(StateGaveUp)
		m.logger.Error("WebSocket reconnect budget exhausted",
			zap.Int("attempts", m.attempts))
		return
	}

	m.attempts++
	m.setStateLocked(StateReconnecting)
	delay := m.delayFor(m.attempts)
	m.logger.Info("Scheduling reconnect",
		zap.Int("attempt", m.attempts),
		zap.Duration("delay", delay))

	m.timer = time.AfterFunc(delay, func() {
		m.mu.Lock()
		if m.state != StateReconnecting {
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()

		conn, err := m.dial(ctx, m.url)
		if err != nil {
			m.logger.Warn("WebSocket reconnect failed", zap.Error(err))
			m.scheduleReconnect(ctx)
			return
		}
		m.adopt(ctx, conn)
	})
}

// Send writes a message over the live connection. When not connected the
// message is logged and dropped, never queued.
func (m *Manager) Send(message interface{}) error {
	m.mu.Lock()
	conn := m.conn
	state := m.state
	m.mu.Unlock()

	if conn == nil || state != StateConnected {
		m.logger.Warn("Dropping message, not connected",
			zap.String("state", string(state)))
		return ErrNotConnected
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// OnMessage binds a handler to a message type. One handler per type;
// rebinding replaces the previous handler.
func (m *Manager) OnMessage(msgType MessageType, handler MessageHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[msgType] = handler
}

// OffMessage removes the handler for a message type.
func (m *Manager) OffMessage(msgType MessageType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, msgType)
}

// RegisteredTypes returns the message types that currently have handlers.
func (m *Manager) RegisteredTypes() []MessageType {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]MessageType, 0, len(m.handlers))
	for t := range m.handlers {
		types = append(types, t)
	}
	return types
}

// Disconnect closes the connection and cancels any pending reconnect.
// Server-side presence is reconciled by the hub when it observes the
// close, not by the client.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.attempts = 0
	m.setStateLocked(StateDisconnected)
	m.mu.Unlock()

	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		conn.Close()
	}
}

// setStateLocked transitions state and notifies the listener. Callers
// hold m.mu; the listener runs in its own goroutine to stay off the lock.
func (m *Manager) setStateLocked(state ConnState) {
	if m.state == state {
		return
	}
	m.state = state
	if m.onState != nil {
		go m.onState(state)
	}
}
