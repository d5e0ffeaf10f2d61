package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"sync"

	"pointchat/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per user
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
)

// Hub manages WebSocket connections grouped into rooms. A room name is either
// a chat ID or a personal room of the form "user_"+userID. Membership is
// per-connection: when a connection drops, all of its room subscriptions go
// with it.
type Hub struct {
	// mu is held exclusively for broadcasts as well as mutations. That
	// serializes delivery per room, so clients observe events in the order
	// the hub processed them.
	mu sync.Mutex

	rooms      map[string]map[*Client]struct{}
	members    map[*Client]map[string]struct{}
	userConns  map[string]map[*Client]struct{}
	totalConns int
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		rooms:     make(map[string]map[*Client]struct{}),
		members:   make(map[*Client]map[string]struct{}),
		userConns: make(map[string]map[*Client]struct{}),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "chat hub" }

// Register creates a Client for the connection and starts tracking it.
// Returns an error if connection limits are exceeded.
func (h *Hub) Register(userID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()

	if h.totalConns >= maxTotalConns {
		h.mu.Unlock()
		return nil, errors.New("server connection limit reached")
	}

	m, ok := h.userConns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.userConns[userID] = m
	}

	if len(m) >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, errors.New("user connection limit reached")
	}

	client := NewClient(h, conn, userID)
	m[client] = struct{}{}
	h.members[client] = make(map[string]struct{})
	h.totalConns++
	h.mu.Unlock()

	observability.WebSocketConnectionsTotal.Inc()
	return client, nil
}

// Join subscribes the connection to a room. Joining a room it is already in
// is a no-op.
func (h *Hub) Join(c *Client, room string) {
	if room == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	rooms, ok := h.members[c]
	if !ok {
		// Already unregistered; a late join must not resurrect the client.
		return
	}
	if _, joined := rooms[room]; joined {
		return
	}
	rooms[room] = struct{}{}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	observability.WebSocketRoomConnections.WithLabelValues(room).Inc()
}

// Leave unsubscribes the connection from a room. Leaving a room it is not in
// is a no-op.
func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) leaveLocked(c *Client, room string) {
	rooms, ok := h.members[c]
	if !ok {
		return
	}
	if _, joined := rooms[room]; !joined {
		return
	}
	delete(rooms, room)
	if clients, ok := h.rooms[room]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
	observability.WebSocketRoomConnections.WithLabelValues(room).Dec()
}

// UnregisterClient removes the connection and all of its room subscriptions.
func (h *Hub) UnregisterClient(c *Client) {
	h.mu.Lock()
	rooms, ok := h.members[c]
	if ok {
		for room := range rooms {
			h.leaveLocked(c, room)
		}
		delete(h.members, c)

		if m, exists := h.userConns[c.UserID]; exists {
			delete(m, c)
			if len(m) == 0 {
				delete(h.userConns, c.UserID)
			}
		}
		h.totalConns--
	}
	h.mu.Unlock()

	if ok {
		observability.WebSocketConnectionsTotal.Dec()
		log.Printf("Hub: Unregistered client for user %s", c.UserID)
	}
}

// IsOnline reports whether a user currently has at least one active
// websocket connection.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.userConns[userID]
	return ok && len(clients) > 0
}

// Broadcast sends an event to every connection currently in the room. There
// is no replay: connections that join afterwards never see it.
func (h *Hub) Broadcast(room string, event Event) {
	h.broadcast(room, nil, event)
}

// BroadcastExcept sends an event to every connection in the room except the
// given one. Used for typing indicators, which never echo to the sender.
func (h *Hub) BroadcastExcept(room string, except *Client, event Event) {
	h.broadcast(room, except, event)
}

func (h *Hub) broadcast(room string, except *Client, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Hub: Failed to marshal %s event: %v", event.Name, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.rooms[room]
	if !ok {
		return
	}
	for c := range clients {
		if c == except {
			continue
		}
		c.TrySend(payload)
	}
	observability.MessageThroughput.WithLabelValues(room, event.Name).Inc()
}

// RoomSize returns the number of connections currently in the room.
func (h *Hub) RoomSize(room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[room])
}

// InRoom reports whether the connection currently belongs to the room.
func (h *Hub) InRoom(c *Client, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if rooms, ok := h.members[c]; ok {
		_, joined := rooms[room]
		return joined
	}
	return false
}

// StartWiring connects the Hub to Redis pub/sub: events published to room
// channels by other instances are rebroadcast to this instance's local
// connections.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartRoomSubscriber(ctx, func(channel, payload string) {
		room := strings.TrimPrefix(channel, roomChannelPrefix)
		if room == channel || room == "" {
			log.Printf("Hub: Invalid channel format: %s", channel)
			return
		}

		var event Event
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			log.Printf("Hub: Failed to parse event from channel %s: %v", channel, err)
			return
		}
		h.Broadcast(room, event)
	})
}

// Shutdown gracefully closes all websocket connections.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.members {
		if c.Conn == nil {
			continue
		}
		if err := c.Conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
			log.Printf("failed to write close message for user %s: %v", c.UserID, err)
		}
		if err := c.Conn.Close(); err != nil {
			log.Printf("failed to close websocket for user %s: %v", c.UserID, err)
		}
	}

	h.rooms = make(map[string]map[*Client]struct{})
	h.members = make(map[*Client]map[string]struct{})
	h.userConns = make(map[string]map[*Client]struct{})
	h.totalConns = 0
	return nil
}
