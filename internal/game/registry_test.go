// internal/game/registry_test.go
package game

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateReturnsExistingRoomForSeatedPlayer(t *testing.T) {
	reg := NewRegistry(testLogger())

	room, existing := reg.Create("alice")
	require.False(t, existing)
	assert.Equal(t, "alice", room.Snapshot().Owner)

	again, existing := reg.Create("alice")
	assert.True(t, existing)
	assert.Equal(t, room.ID, again.ID)
}

func TestJoinCapacityAndSingleSeatRule(t *testing.T) {
	reg, room := setupRoom(t, "alice", "bob", "carol", "dave")

	_, err := reg.Join(room.ID, "eve")
	assert.ErrorIs(t, err, ErrRoomFull)

	// Rejoining your own room is a reconnect, not an error.
	_, err = reg.Join(room.ID, "bob")
	assert.NoError(t, err)

	other, _ := reg.Create("frank")
	_, err = reg.Join(other.ID, "bob")
	assert.ErrorIs(t, err, ErrAlreadyInOtherRoom)

	_, err = reg.Join(uuid.New(), "zed")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestLeaveDrawerAbortsTurn(t *testing.T) {
	reg, room := setupRoom(t, "alice", "bob", "carol")
	startRound(t, room, "苹果", "")

	snap := room.Snapshot()
	require.Equal(t, StatusDrawing, snap.Status)
	require.Equal(t, "alice", snap.CurrentDrawer)

	require.NoError(t, reg.Leave(room.ID, "alice"))

	snap = room.Snapshot()
	assert.Equal(t, StatusWaiting, snap.Status)
	assert.Empty(t, snap.CurrentDrawer)
	assert.Empty(t, snap.TargetWord)
	assert.Equal(t, "bob", snap.Owner)
	for _, ready := range snap.ReadyStatus {
		assert.False(t, ready)
	}
}

func TestLeaveLastPlayerDeletesRoom(t *testing.T) {
	reg, room := setupRoom(t, "alice", "bob")

	require.NoError(t, reg.Leave(room.ID, "bob"))
	require.NoError(t, reg.Leave(room.ID, "alice"))

	_, err := reg.Get(room.ID)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	// Both seats were released.
	_, existing := reg.Create("alice")
	assert.False(t, existing)
}

func TestDeleteRequiresOwner(t *testing.T) {
	reg, room := setupRoom(t, "alice", "bob")

	err := reg.Delete(room.ID, "bob")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	require.NoError(t, reg.Delete(room.ID, "alice"))
	_, err = reg.Get(room.ID)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	// bob's seat was released along with the room.
	_, existing := reg.Create("bob")
	assert.False(t, existing)
}

func TestCleanupReapsIdleRooms(t *testing.T) {
	reg, room := setupRoom(t, "alice")
	reg.IdleTimeout = time.Minute

	room.Mu.Lock()
	room.LastActivityAt = time.Now().Add(-2 * time.Minute)
	room.Mu.Unlock()

	removed := reg.Cleanup()
	assert.Equal(t, 1, removed)
	_, err := reg.Get(room.ID)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	// The seat index was purged too.
	_, existing := reg.Create("alice")
	assert.False(t, existing)
}

func TestCleanupKeepsActiveRooms(t *testing.T) {
	reg, room := setupRoom(t, "alice", "bob")

	assert.Equal(t, 0, reg.Cleanup())
	_, err := reg.Get(room.ID)
	assert.NoError(t, err)
}

func TestListNewestFirst(t *testing.T) {
	reg := NewRegistry(testLogger())
	first, _ := reg.Create("alice")

	second, _ := reg.Create("bob")
	second.Mu.Lock()
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	second.Mu.Unlock()

	rooms := reg.List()
	require.Len(t, rooms, 2)
	assert.Equal(t, second.ID.String(), rooms[0].RoomID)
	assert.Equal(t, first.ID.String(), rooms[1].RoomID)
	assert.Equal(t, 1, rooms[0].PlayerCount)
}
