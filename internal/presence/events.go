package presence

import "encoding/json"

// Event names on the websocket wire. Inbound events arrive from clients;
// the hub either consumes them (presence updates) or relays them to room
// peers. Outbound events are hub-originated.
const (
	EventJoinProject     = "join-project"
	EventCodeChange      = "code-change"
	EventCursorMove      = "cursor-move"
	EventFileCreated     = "file-created"
	EventFileDeleted     = "file-deleted"
	EventFileRenamed     = "file-renamed"
	EventTerminalCommand = "terminal-command"
	EventTypingStart     = "typing-start"
	EventTypingStop      = "typing-stop"

	EventConnected  = "connected"
	EventUserJoined = "user-joined"
	EventRoomState  = "room-state"
	EventUserLeft   = "user-left"
)

// Frame is the wire envelope for every event in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinPayload is the body of a join-project event.
type JoinPayload struct {
	ProjectID string `json:"projectId"`
	User      User   `json:"user"`
}

// CursorPayload carries a cursor-move. UserID is stamped by the hub on
// relay so peers cannot spoof each other.
type CursorPayload struct {
	UserID string `json:"userId,omitempty"`
	FileID string `json:"fileId"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// TypingPayload carries typing-start and typing-stop.
type TypingPayload struct {
	UserID string `json:"userId,omitempty"`
	FileID string `json:"fileId"`
}

// UserJoinedPayload announces a join to the whole room.
type UserJoinedPayload struct {
	User  User   `json:"user"`
	Users []User `json:"users"`
}

// UserLeftPayload announces a departure to the remaining room.
type UserLeftPayload struct {
	UserID string `json:"userId"`
	Users  []User `json:"users"`
}

// ConnectedPayload is the hub's greeting after a successful upgrade.
type ConnectedPayload struct {
	Message string `json:"message"`
}
