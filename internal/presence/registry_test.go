package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinCreatesRoom(t *testing.T) {
	reg := NewRegistry()

	snap := reg.Join("p1", User{ID: "u1", Name: "Ada"})

	require.Len(t, snap.Users, 1)
	assert.Equal(t, "u1", snap.Users[0].ID)
	assert.Empty(t, snap.Cursors)
	assert.True(t, reg.HasRoom("p1"))
}

func TestJoinIdempotentOnUserID(t *testing.T) {
	reg := NewRegistry()

	reg.Join("p1", User{ID: "u1", Name: "Ada"})
	snap := reg.Join("p1", User{ID: "u1", Name: "Ada"})

	assert.Len(t, snap.Users, 1)
}

func TestJoinPreservesOrder(t *testing.T) {
	reg := NewRegistry()

	reg.Join("p1", User{ID: "u1", Name: "Ada"})
	reg.Join("p1", User{ID: "u2", Name: "Grace"})
	snap := reg.Join("p1", User{ID: "u3", Name: "Edsger"})

	require.Len(t, snap.Users, 3)
	assert.Equal(t, "u1", snap.Users[0].ID)
	assert.Equal(t, "u2", snap.Users[1].ID)
	assert.Equal(t, "u3", snap.Users[2].ID)
}

func TestLeaveRemovesUserAndState(t *testing.T) {
	reg := NewRegistry()
	reg.Join("p1", User{ID: "u1", Name: "Ada"})
	reg.Join("p1", User{ID: "u2", Name: "Grace"})
	reg.SetCursor("p1", "u1", Cursor{Line: 3, Column: 9})
	reg.SetTyping("p1", "u1", "f1")

	remaining, ok := reg.Leave("p1", "u1")

	require.True(t, ok)
	require.Len(t, remaining, 1)
	assert.Equal(t, "u2", remaining[0].ID)

	snap, exists := reg.Snapshot("p1")
	require.True(t, exists)
	assert.NotContains(t, snap.Cursors, "u1")
	_, typing := reg.Typing("p1", "u1")
	assert.False(t, typing)
}

func TestLastLeaveDeletesRoom(t *testing.T) {
	reg := NewRegistry()
	reg.Join("p1", User{ID: "u1", Name: "Ada"})
	reg.Join("p1", User{ID: "u2", Name: "Grace"})

	_, ok := reg.Leave("p1", "u1")
	require.True(t, ok)
	assert.True(t, reg.HasRoom("p1"))

	_, ok = reg.Leave("p1", "u2")
	require.True(t, ok)
	assert.False(t, reg.HasRoom("p1"))

	// A later join starts from a fresh room.
	snap := reg.Join("p1", User{ID: "u3", Name: "Edsger"})
	assert.Len(t, snap.Users, 1)
	assert.Empty(t, snap.Cursors)
}

func TestLeaveUnknownUser(t *testing.T) {
	reg := NewRegistry()
	reg.Join("p1", User{ID: "u1", Name: "Ada"})

	remaining, ok := reg.Leave("p1", "ghost")

	assert.False(t, ok)
	assert.Len(t, remaining, 1)
	assert.True(t, reg.HasRoom("p1"))
}

func TestLeaveMissingRoom(t *testing.T) {
	reg := NewRegistry()

	remaining, ok := reg.Leave("nope", "u1")

	assert.False(t, ok)
	assert.Nil(t, remaining)
}

func TestSetCursor(t *testing.T) {
	reg := NewRegistry()
	reg.Join("p1", User{ID: "u1", Name: "Ada"})

	require.True(t, reg.SetCursor("p1", "u1", Cursor{Line: 10, Column: 4}))

	snap, _ := reg.Snapshot("p1")
	assert.Equal(t, Cursor{Line: 10, Column: 4}, snap.Cursors["u1"])
}

func TestSetCursorMissingRoom(t *testing.T) {
	reg := NewRegistry()
	assert.False(t, reg.SetCursor("nope", "u1", Cursor{Line: 1, Column: 1}))
}

func TestTypingLifecycle(t *testing.T) {
	reg := NewRegistry()
	reg.Join("p1", User{ID: "u1", Name: "Ada"})

	reg.SetTyping("p1", "u1", "f1")
	fileID, ok := reg.Typing("p1", "u1")
	require.True(t, ok)
	assert.Equal(t, "f1", fileID)

	reg.ClearTyping("p1", "u1")
	_, ok = reg.Typing("p1", "u1")
	assert.False(t, ok)
}

func TestSnapshotIsCopy(t *testing.T) {
	reg := NewRegistry()
	reg.Join("p1", User{ID: "u1", Name: "Ada"})
	reg.SetCursor("p1", "u1", Cursor{Line: 1, Column: 1})

	snap, _ := reg.Snapshot("p1")
	snap.Users[0].ID = "mutated"
	snap.Cursors["u1"] = Cursor{Line: 99, Column: 99}

	fresh, _ := reg.Snapshot("p1")
	assert.Equal(t, "u1", fresh.Users[0].ID)
	assert.Equal(t, Cursor{Line: 1, Column: 1}, fresh.Cursors["u1"])
}

func TestRoomsAreIndependent(t *testing.T) {
	reg := NewRegistry()
	reg.Join("p1", User{ID: "u1", Name: "Ada"})
	reg.Join("p2", User{ID: "u1", Name: "Ada"})

	_, ok := reg.Leave("p1", "u1")
	require.True(t, ok)

	assert.False(t, reg.HasRoom("p1"))
	assert.True(t, reg.HasRoom("p2"))
}
