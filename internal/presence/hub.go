package presence

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

const sendBuffer = 64

// Hub terminates websocket connections and routes presence traffic. One
// goroutine per connection reads frames; writes go through a buffered
// channel drained by a writer goroutine so slow readers never block the
// broadcaster. Delivery is at-most-once: a peer whose buffer is full
// misses the event rather than stalling the room.
type Hub struct {
	registry *Registry
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

// NewHub creates a hub over the given registry. Origin checks are
// disabled; the server fronts local browser editors, not the open
// internet.
func NewHub(registry *Registry, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		registry: registry,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		rooms: make(map[string]map[*client]struct{}),
	}
}

// Registry exposes the underlying session registry.
func (h *Hub) Registry() *Registry { return h.registry }

// ServeHTTP upgrades the request and runs the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan Frame, sendBuffer)}
	go c.writePump()
	c.queue(EventConnected, ConnectedPayload{Message: "connected"})
	c.readPump()
}

type client struct {
	hub  *Hub
	conn *websocket.Conn

	sendMu sync.Mutex
	send   chan Frame
	closed bool

	// set by join-project, read only from the connection's read goroutine
	projectID string
	user      User
	joined    bool
}

// queue encodes and enqueues an outbound frame, dropping it if the
// client's buffer is full or the connection is already closing.
func (c *client) queue(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.hub.logger.Error("encode event", "event", event, "error", err)
		return
	}
	c.enqueue(Frame{Event: event, Data: data})
}

func (c *client) enqueue(frame Frame) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- frame:
	default:
		c.hub.logger.Warn("dropping event for slow client", "event", frame.Event)
	}
}

func (c *client) writePump() {
	for frame := range c.send {
		if err := c.conn.WriteJSON(frame); err != nil {
			return
		}
	}
}

func (c *client) readPump() {
	defer c.disconnect()
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.hub.logger.Warn("malformed frame", "error", err)
			continue
		}
		c.handle(frame)
	}
}

func (c *client) handle(frame Frame) {
	switch frame.Event {
	case EventJoinProject:
		var p JoinPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil || p.ProjectID == "" || p.User.ID == "" {
			c.hub.logger.Warn("bad join-project payload")
			return
		}
		c.hub.join(c, p.ProjectID, p.User)

	case EventCursorMove:
		if !c.joined {
			return
		}
		var p CursorPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return
		}
		p.UserID = c.user.ID
		c.hub.registry.SetCursor(c.projectID, c.user.ID, Cursor{Line: p.Line, Column: p.Column})
		c.hub.relay(c, EventCursorMove, p)

	case EventTypingStart:
		if !c.joined {
			return
		}
		var p TypingPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return
		}
		p.UserID = c.user.ID
		c.hub.registry.SetTyping(c.projectID, c.user.ID, p.FileID)
		c.hub.relay(c, EventTypingStart, p)

	case EventTypingStop:
		if !c.joined {
			return
		}
		var p TypingPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return
		}
		p.UserID = c.user.ID
		c.hub.registry.ClearTyping(c.projectID, c.user.ID)
		c.hub.relay(c, EventTypingStop, p)

	case EventCodeChange, EventFileCreated, EventFileDeleted, EventFileRenamed, EventTerminalCommand:
		// Pass-through collaboration events: the hub does not interpret
		// the payload, it only fans it out to room peers.
		if !c.joined {
			return
		}
		c.hub.relayRaw(c, frame)

	default:
		c.hub.logger.Warn("unknown event", "event", frame.Event)
	}
}

func (c *client) disconnect() {
	_ = c.conn.Close()
	c.hub.detach(c)

	c.sendMu.Lock()
	c.closed = true
	close(c.send)
	c.sendMu.Unlock()
}

// join registers the client in the room, announces it to every member
// (joiner included), and hands the joiner the room snapshot.
func (h *Hub) join(c *client, projectID string, u User) {
	if c.joined {
		// Re-join moves the connection to the new room.
		h.detach(c)
	}
	c.projectID = projectID
	c.user = u
	c.joined = true

	snap := h.registry.Join(projectID, u)

	h.mu.Lock()
	members, ok := h.rooms[projectID]
	if !ok {
		members = make(map[*client]struct{})
		h.rooms[projectID] = members
	}
	members[c] = struct{}{}
	h.mu.Unlock()

	h.logger.Info("user joined project", "project_id", projectID, "user_id", u.ID)

	h.broadcast(projectID, EventUserJoined, UserJoinedPayload{User: u, Users: snap.Users})
	c.queue(EventRoomState, snap)
}

// detach removes the client from its room and announces the departure.
func (h *Hub) detach(c *client) {
	if !c.joined {
		return
	}
	projectID, userID := c.projectID, c.user.ID
	c.joined = false

	h.mu.Lock()
	if members, ok := h.rooms[projectID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, projectID)
		}
	}
	h.mu.Unlock()

	remaining, ok := h.registry.Leave(projectID, userID)
	if !ok {
		return
	}
	h.logger.Info("user left project", "project_id", projectID, "user_id", userID)
	h.broadcast(projectID, EventUserLeft, UserLeftPayload{UserID: userID, Users: remaining})
}

// broadcast sends to every member of a room, sender included.
func (h *Hub) broadcast(projectID, event string, payload any) {
	h.mu.RLock()
	members := make([]*client, 0, len(h.rooms[projectID]))
	for m := range h.rooms[projectID] {
		members = append(members, m)
	}
	h.mu.RUnlock()

	for _, m := range members {
		m.queue(event, payload)
	}
}

// relay sends to every room member except the sender.
func (h *Hub) relay(sender *client, event string, payload any) {
	h.mu.RLock()
	members := make([]*client, 0, len(h.rooms[sender.projectID]))
	for m := range h.rooms[sender.projectID] {
		if m != sender {
			members = append(members, m)
		}
	}
	h.mu.RUnlock()

	for _, m := range members {
		m.queue(event, payload)
	}
}

// relayRaw forwards an inbound frame verbatim to room peers.
func (h *Hub) relayRaw(sender *client, frame Frame) {
	h.mu.RLock()
	members := make([]*client, 0, len(h.rooms[sender.projectID]))
	for m := range h.rooms[sender.projectID] {
		if m != sender {
			members = append(members, m)
		}
	}
	h.mu.RUnlock()

	for _, m := range members {
		m.enqueue(frame)
	}
}
