// Package websocket carries the real-time collaboration channel: the
// server-side hub that fans events out to a workspace's participants,
// and the client-side connection manager with its reconnect policy.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/voiceflowhq/collab/domain/entities"
	"github.com/voiceflowhq/collab/internal/command"
	"github.com/voiceflowhq/collab/internal/presence"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio chunks
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the workspace's configured origins
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub fans messages out to the connected participants of one workspace
// session. Clients are keyed by user ID; a reconnecting user replaces
// their previous client.
type Hub struct {
	workspaceID string

	// Registered clients by user ID.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed by Stop; Run exits and disconnects the remaining clients.
	done     chan struct{}
	stopOnce sync.Once

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	registry   *presence.Registry
	dispatcher *command.Dispatcher
	validator  *MessageValidator

	logger *zap.Logger
}

// NewHub creates a hub for one workspace session
func NewHub(
	workspaceID string,
	registry *presence.Registry,
	dispatcher *command.Dispatcher,
	logger *zap.Logger,
) *Hub {
	return &Hub{
		workspaceID: workspaceID,
		clients:     make(map[string]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
		registry:    registry,
		dispatcher:  dispatcher,
		validator:   NewMessageValidator(),
		logger:      logger,
	}
}

// Run starts the hub's main loop. It exits when Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for userID, client := range h.clients {
				close(client.send)
				delete(h.clients, userID)
			}
			h.mu.Unlock()
			h.logger.Info("Hub stopped",
				zap.String("workspaceID", h.workspaceID))
			return

		case client := <-h.register:
			h.mu.Lock()
			if previous, ok := h.clients[client.userID]; ok {
				close(previous.send)
			}
			h.clients[client.userID] = client
			h.mu.Unlock()
			h.logger.Info("Client registered",
				zap.String("userID", client.userID),
				zap.String("workspaceID", h.workspaceID))

		case client := <-h.unregister:
			h.mu.Lock()
			registered := h.clients[client.userID] == client
			if registered {
				delete(h.clients, client.userID)
				close(client.send)
			}
			h.mu.Unlock()
			if !registered {
				continue
			}

			h.registry.Leave(client.userID)
			h.broadcast(CreateUserLeftMessage(h.workspaceID, client.userID), client.userID)
			h.logger.Info("Client unregistered",
				zap.String("userID", client.userID),
				zap.String("workspaceID", h.workspaceID))
		}
	}
}

// Stop terminates the run loop and disconnects the remaining clients.
// Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

// Done is closed once the hub has been told to stop.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Participants reports how many clients are currently connected.
func (h *Hub) Participants() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcast marshals the message and queues it on every client except
// excludeUserID. A full send buffer drops the frame for that client
// rather than stalling the room.
func (h *Hub) broadcast(message interface{}, excludeUserID string) {
	payload, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for userID, client := range h.clients {
		if userID == excludeUserID {
			continue
		}
		select {
		case client.send <- payload:
		default:
			h.logger.Warn("Dropping frame for slow client",
				zap.String("userID", userID))
		}
	}
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan []byte

	userID string
	name   string

	logger *zap.Logger
}

// HandleWebSocket handles websocket requests from an authenticated user.
// The participant joins presence before the pumps start, so a full
// session refuses the upgrade rather than half-connecting.
func HandleWebSocket(hub *Hub, c echo.Context, userID, name string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	participant, err := hub.registry.Join(userID, name)
	if err != nil {
		logger.Warn("Join refused",
			zap.String("userID", userID),
			zap.Error(err))
		payload, _ := json.Marshal(CreateErrorMessage("join_refused", err.Error()))
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.TextMessage, payload)
		conn.Close()
		return nil
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: userID,
		name:   name,
		logger: logger,
	}

	select {
	case client.hub.register <- client:
	case <-hub.done:
		hub.registry.Leave(userID)
		conn.Close()
		return nil
	}
	hub.broadcast(CreateUserJoinedMessage(hub.workspaceID, participant), userID)

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}
		if messageType != websocket.TextMessage {
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
			continue
		}
		c.processMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processMessage validates an inbound frame and routes it by type
func (c *Client) processMessage(message []byte) {
	validated, err := c.hub.validator.ValidateMessage(message)
	if err != nil {
		c.logger.Warn("Rejected message",
			zap.String("userID", c.userID),
			zap.Error(err))
		c.reply(CreateErrorMessage("invalid_message", err.Error()))
		return
	}

	switch msg := validated.(type) {
	case *SpatialUpdateMessage:
		c.handleSpatialUpdate(msg)
	case *VoiceCommandMessage:
		c.handleVoiceCommand(msg)
	case *ContentCollaborationMessage:
		c.hub.broadcast(CreateContentUpdatedMessage(c.hub.workspaceID, c.userID, msg), c.userID)
	case *VoiceStreamMessage:
		c.handleVoiceStream(msg)
	}
}

func (c *Client) handleSpatialUpdate(msg *SpatialUpdateMessage) {
	err := c.hub.registry.UpdateLocation(c.userID, msg.Room, msg.Position.X, msg.Position.Y, msg.Position.Z)
	if err != nil {
		c.logger.Info("Location update refused",
			zap.String("userID", c.userID),
			zap.String("room", msg.Room),
			zap.Error(err))
		c.reply(CreateErrorMessage("move_refused", err.Error()))
		return
	}

	participant, ok := c.hub.registry.Participant(c.userID)
	if !ok {
		return
	}
	c.hub.broadcast(CreateUserMovedMessage(c.hub.workspaceID, participant), c.userID)
}

// handleVoiceCommand dispatches the transcript and announces the outcome
// to everyone, sender included, so all clients render the same result.
func (c *Client) handleVoiceCommand(msg *VoiceCommandMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result := c.hub.dispatcher.Dispatch(ctx, msg.Command)

	if err := c.hub.registry.RecordCommand(c.userID, msg.Command); err != nil {
		c.logger.Warn("Command activity not recorded",
			zap.String("userID", c.userID),
			zap.Error(err))
	}

	c.hub.broadcast(CreateVoiceCommandExecutedMessage(
		c.hub.workspaceID, c.userID, msg.Command,
		result.Matched, result.Action, result.Params,
	), "")
}

// handleVoiceStream relays the audio chunk to the other participants and
// flips the sender's voice status to speaking.
func (c *Client) handleVoiceStream(msg *VoiceStreamMessage) {
	msg.UserID = c.userID
	msg.WorkspaceID = c.hub.workspaceID
	c.hub.broadcast(msg, c.userID)

	c.hub.registry.SetVoiceStatus(c.userID, entities.VoiceStatusSpeaking)
}

// reply queues a message for this client only
func (c *Client) reply(message interface{}) {
	payload, err := json.Marshal(message)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}
