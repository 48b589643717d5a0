package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Hub manages WebSocket connections and broadcasts messages to session rooms.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*Connection // client_id -> connection
	rooms       map[string][]string    // session_id -> []client_id
	logger      zerolog.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		rooms:       make(map[string][]string),
		logger:      logger,
	}
}

// RegisterConnection adds a connection for a client. A second connection from
// the same client replaces the first.
func (h *Hub) RegisterConnection(clientID string, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, exists := h.connections[clientID]; exists {
		old.Close()
	}

	h.connections[clientID] = conn
	h.logger.Info().Str("client_id", clientID).Msg("connection registered")
}

// UnregisterConnection removes a connection and its room memberships.
func (h *Hub) UnregisterConnection(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn, exists := h.connections[clientID]; exists {
		conn.Close()
		delete(h.connections, clientID)
		h.logger.Info().Str("client_id", clientID).Msg("connection unregistered")
	}

	for sessionID, clients := range h.rooms {
		for i, id := range clients {
			if id == clientID {
				h.rooms[sessionID] = append(clients[:i], clients[i+1:]...)
				break
			}
		}
	}
}

// JoinRoom associates a client with a session room for targeted broadcasts.
func (h *Hub) JoinRoom(sessionID, clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.rooms[sessionID]
	for _, id := range clients {
		if id == clientID {
			return // already joined
		}
	}
	h.rooms[sessionID] = append(clients, clientID)
}

// LeaveRoom removes a client from a session room.
func (h *Hub) LeaveRoom(sessionID, clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.rooms[sessionID]
	for i, id := range clients {
		if id == clientID {
			h.rooms[sessionID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
}

// CloseRoom drops the room's membership list. Connections stay open.
func (h *Hub) CloseRoom(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, sessionID)
}

// BroadcastToRoom sends a message to every client in a session room.
// Messages land in per-connection send queues, so a slow reader cannot
// reorder or stall delivery to the rest of the room.
func (h *Hub) BroadcastToRoom(sessionID string, msg Message) error {
	h.mu.RLock()
	clients := make([]string, len(h.rooms[sessionID]))
	copy(clients, h.rooms[sessionID])
	h.mu.RUnlock()

	var firstErr error
	for _, clientID := range clients {
		if err := h.SendToClient(clientID, msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SendToClient delivers a message to a specific client.
func (h *Hub) SendToClient(clientID string, msg Message) error {
	h.mu.RLock()
	conn, exists := h.connections[clientID]
	h.mu.RUnlock()

	if !exists {
		return ErrConnectionNotFound
	}
	return conn.Send(msg)
}

// RoomSize reports how many clients are in a session room.
func (h *Hub) RoomSize(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}

// Connection represents a WebSocket connection with a buffered send queue.
type Connection struct {
	conn   *websocket.Conn
	sendCh chan Message
	mu     sync.Mutex
	closed bool
	logger zerolog.Logger
}

// NewConnection wraps a WebSocket connection.
func NewConnection(conn *websocket.Conn, logger zerolog.Logger) *Connection {
	return &Connection{
		conn:   conn,
		sendCh: make(chan Message, 256),
		logger: logger,
	}
}

// Send queues a message for delivery.
func (c *Connection) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.sendCh <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close shuts down the connection.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.sendCh)
	c.conn.Close()
}

// WritePump drains the send queue onto the wire.
func (c *Connection) WritePump() {
	defer c.conn.Close()

	for msg := range c.sendCh {
		if err := c.conn.WriteJSON(msg); err != nil {
			c.logger.Warn().Err(err).Msg("write error")
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// ReadPump receives messages and calls the handler until the peer goes away.
func (c *Connection) ReadPump(handler func(Message) error) {
	defer c.conn.Close()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("read error")
			}
			break
		}

		if err := handler(msg); err != nil {
			c.logger.Warn().Err(err).Msg("message handler error")
		}
	}
}

var (
	ErrConnectionNotFound = &Error{Code: "connection_not_found", Message: "Client connection not found"}
	ErrConnectionClosed   = &Error{Code: "connection_closed", Message: "Connection is closed"}
	ErrSendQueueFull      = &Error{Code: "send_queue_full", Message: "Send queue is full"}
)

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
