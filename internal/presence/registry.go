// Package presence maintains authoritative shared presence for project
// rooms: who is online, where each cursor is, who is typing. Room state is
// process-wide and in-memory only; presence is current-session information
// and does not survive a restart.
package presence

import "sync"

// User identifies a room participant.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Cursor is a participant's position within a file.
type Cursor struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// RoomSnapshot is the full current state of a room, sent to a joining
// participant so late joiners get synchronous initial state instead of
// waiting for the next broadcast.
type RoomSnapshot struct {
	Users   []User            `json:"users"`
	Cursors map[string]Cursor `json:"cursors"`
}

// room holds one project's live session state. Users keep join order so
// broadcast payloads are deterministic.
type room struct {
	users   []User
	cursors map[string]Cursor
	typing  map[string]string // user id -> file id being edited
}

func newRoom() *room {
	return &room{
		cursors: make(map[string]Cursor),
		typing:  make(map[string]string),
	}
}

func (r *room) userIndex(id string) int {
	for i := range r.users {
		if r.users[i].ID == id {
			return i
		}
	}
	return -1
}

// Registry is the injectable session store: a map of project id to room
// state, created at server start and torn down with it. All access goes
// through its methods; there is no ambient global registry.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*room)}
}

// Join adds a user to a project's room, creating the room on first join.
// Idempotent on user id. Returns the room snapshot after the join.
func (reg *Registry) Join(projectID string, u User) RoomSnapshot {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	rm, ok := reg.rooms[projectID]
	if !ok {
		rm = newRoom()
		reg.rooms[projectID] = rm
	}
	if rm.userIndex(u.ID) < 0 {
		rm.users = append(rm.users, u)
	}
	return rm.snapshot()
}

// Leave removes a user (and their cursor/typing state) from a room and
// returns the remaining users. The room is deleted when its last user
// leaves; a later join recreates it from nothing. ok reports whether the
// user was actually in the room.
func (reg *Registry) Leave(projectID, userID string) (remaining []User, ok bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	rm, exists := reg.rooms[projectID]
	if !exists {
		return nil, false
	}
	idx := rm.userIndex(userID)
	if idx < 0 {
		return rm.usersCopy(), false
	}

	rm.users = append(rm.users[:idx], rm.users[idx+1:]...)
	delete(rm.cursors, userID)
	delete(rm.typing, userID)

	if len(rm.users) == 0 {
		delete(reg.rooms, projectID)
		return []User{}, true
	}
	return rm.usersCopy(), true
}

// SetCursor updates a user's cursor position. Returns false if the room
// does not exist.
func (reg *Registry) SetCursor(projectID, userID string, c Cursor) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	rm, ok := reg.rooms[projectID]
	if !ok {
		return false
	}
	rm.cursors[userID] = c
	return true
}

// SetTyping records which file a user is typing in.
func (reg *Registry) SetTyping(projectID, userID, fileID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if rm, ok := reg.rooms[projectID]; ok {
		rm.typing[userID] = fileID
	}
}

// ClearTyping clears a user's typing indicator.
func (reg *Registry) ClearTyping(projectID, userID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if rm, ok := reg.rooms[projectID]; ok {
		delete(rm.typing, userID)
	}
}

// Users returns the room's current user set, or nil for a missing room.
func (reg *Registry) Users(projectID string) []User {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	rm, ok := reg.rooms[projectID]
	if !ok {
		return nil
	}
	return rm.usersCopy()
}

// Snapshot returns the room's full state. ok is false for a missing room.
func (reg *Registry) Snapshot(projectID string) (RoomSnapshot, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	rm, ok := reg.rooms[projectID]
	if !ok {
		return RoomSnapshot{}, false
	}
	return rm.snapshot(), true
}

// HasRoom reports whether a room currently exists.
func (reg *Registry) HasRoom(projectID string) bool {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	_, ok := reg.rooms[projectID]
	return ok
}

// Typing returns the file id a user is typing in, if any.
func (reg *Registry) Typing(projectID, userID string) (string, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	rm, ok := reg.rooms[projectID]
	if !ok {
		return "", false
	}
	fileID, ok := rm.typing[userID]
	return fileID, ok
}

func (r *room) usersCopy() []User {
	out := make([]User, len(r.users))
	copy(out, r.users)
	return out
}

func (r *room) snapshot() RoomSnapshot {
	snap := RoomSnapshot{
		Users:   r.usersCopy(),
		Cursors: make(map[string]Cursor, len(r.cursors)),
	}
	for id, c := range r.cursors {
		snap.Cursors[id] = c
	}
	return snap
}
