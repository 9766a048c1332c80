// internal/game/turns_test.go
package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadyPromotionNeedsTargetAndDrawer(t *testing.T) {
	_, room := setupRoom(t, "alice", "bob")

	for _, p := range []string{"alice", "bob"} {
		_, err := room.SetReady(p, true)
		require.NoError(t, err)
	}
	assert.Equal(t, StatusWaiting, room.Snapshot().Status, "no target or drawer yet")

	_, _, err := room.Configure("alice", "苹果", "水果")
	require.NoError(t, err)
	require.NoError(t, room.SelectDrawer("alice", "bob"))

	assert.Equal(t, StatusReady, room.Snapshot().Status)
}

func TestConfigureValidation(t *testing.T) {
	_, room := setupRoom(t, "alice", "bob")

	_, _, err := room.Configure("bob", "苹果", "")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, _, err = room.Configure("alice", "   ", "")
	assert.ErrorIs(t, err, ErrMissingConfiguration)

	target, clue, err := room.Configure("alice", "  苹果  ", "  水果 ")
	require.NoError(t, err)
	assert.Equal(t, "苹果", target)
	assert.Equal(t, "水果", clue)
}

func TestSelectDrawerMustBeMember(t *testing.T) {
	_, room := setupRoom(t, "alice", "bob")

	assert.ErrorIs(t, room.SelectDrawer("bob", "alice"), ErrNotAuthorized)
	assert.ErrorIs(t, room.SelectDrawer("alice", "mallory"), ErrDrawerNotInRoom)
	assert.NoError(t, room.SelectDrawer("alice", "bob"))
}

func TestStartRoundRequiresOwnerAndReadiness(t *testing.T) {
	_, room := setupRoom(t, "alice", "bob")

	_, err := room.StartRound("bob")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = room.StartRound("alice")
	assert.ErrorIs(t, err, ErrPlayersNotReady)
}

func TestStartRoundOpensWithConfiguredTarget(t *testing.T) {
	_, room := setupRoom(t, "alice", "bob", "carol")
	startRound(t, room, "猫", "动物")

	snap := room.Snapshot()
	assert.Equal(t, StatusDrawing, snap.Status)
	assert.Equal(t, 1, snap.CurrentRound)
	assert.Equal(t, "alice", snap.CurrentDrawer, "queue follows join order")
	assert.Equal(t, "猫", snap.TargetWord)
	assert.Equal(t, "动物", snap.Clue)
	assert.Equal(t, []string{"alice", "bob", "carol"}, snap.DrawerQueue)
	assert.Len(t, snap.GuessTracker, 2)
	assert.NotContains(t, snap.GuessTracker, "alice")
}

func TestRotationFallsBackToWordBank(t *testing.T) {
	_, room := setupRoom(t, "alice", "bob")
	startRound(t, room, "猫", "动物")

	// Only guesser resolves; the turn rotates to bob.
	result, err := room.Guess("bob", "猫")
	require.NoError(t, err)
	assert.True(t, result.Correct)
	assert.False(t, result.RoundFinished)
	assert.Equal(t, "bob", result.NextDrawer)

	snap := room.Snapshot()
	assert.Equal(t, "bob", snap.CurrentDrawer)
	assert.Equal(t, StatusDrawing, snap.Status)
	assert.NotEmpty(t, snap.TargetWord, "later turns draw from the word bank")
	assert.Empty(t, snap.Clue, "configured clue applies only to the opening turn")
	assert.Equal(t, GuessPending, snap.GuessStatus["alice"])
}

func TestRoundFinishesAfterLastDrawer(t *testing.T) {
	_, room := setupRoom(t, "alice", "bob")
	startRound(t, room, "猫", "")

	_, err := room.Guess("bob", "猫")
	require.NoError(t, err)

	// Second turn: bob draws, alice skips to exhaust the queue.
	result, err := room.Skip("alice")
	require.NoError(t, err)
	assert.True(t, result.RoundFinished)

	snap := room.Snapshot()
	assert.Equal(t, StatusFinished, snap.Status)
	assert.Empty(t, snap.CurrentDrawer)
	assert.Empty(t, snap.TargetWord)
	assert.NotNil(t, snap.RoundFinishedAt)

	// Scores survive the round boundary.
	assert.Equal(t, 1, snap.Scores["bob"])
	assert.Equal(t, 1, snap.Scores["alice"])
}

func TestSecondRoundIncrementsCounter(t *testing.T) {
	_, room := setupRoom(t, "alice", "bob")
	startRound(t, room, "猫", "")

	_, err := room.Guess("bob", "猫")
	require.NoError(t, err)
	_, err = room.Skip("alice")
	require.NoError(t, err)

	startRound(t, room, "鱼", "")
	snap := room.Snapshot()
	assert.Equal(t, 2, snap.CurrentRound)
	assert.Equal(t, StatusDrawing, snap.Status)
	assert.Equal(t, "鱼", snap.TargetWord)
}

func TestResetClearsTurnStateButKeepsScores(t *testing.T) {
	_, room := setupRoom(t, "alice", "bob")
	startRound(t, room, "猫", "")

	_, err := room.Guess("bob", "猫")
	require.NoError(t, err)

	assert.ErrorIs(t, room.Reset("bob"), ErrNotAuthorized)
	require.NoError(t, room.Reset("alice"))

	snap := room.Snapshot()
	assert.Equal(t, StatusWaiting, snap.Status)
	assert.Empty(t, snap.TargetWord)
	assert.Empty(t, snap.CurrentDrawer)
	assert.Equal(t, 1, snap.Scores["bob"])
	for _, ready := range snap.ReadyStatus {
		assert.False(t, ready)
	}
}

func TestSetModelConfigWhitelistsKeys(t *testing.T) {
	_, room := setupRoom(t, "alice")

	configured, err := room.SetModelConfig("alice", map[string]string{
		"url":    " https://api.example.com/v1 ",
		"key":    "sk-test",
		"model":  "vision-1",
		"prompt": "draw guesser",
		"evil":   "dropped",
	})
	require.NoError(t, err)
	assert.True(t, configured)

	state, ok := room.PlayerState("alice")
	require.True(t, ok)
	assert.True(t, state.ModelConfigured)

	_, err = room.SetModelConfig("mallory", nil)
	assert.ErrorIs(t, err, ErrNotInRoom)

	// Dropping the key unconfigures the player.
	configured, err = room.SetModelConfig("alice", map[string]string{"url": "https://api.example.com/v1"})
	require.NoError(t, err)
	assert.False(t, configured)
}
