// internal/game/history_test.go
package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkguess/inkguess/internal/recognition"
)

func TestHistoryAggregatesOneEntryPerTurn(t *testing.T) {
	_, room := setupRoom(t, "alice", "bob", "carol")
	startRound(t, room, "苹果", "")
	require.NoError(t, room.SyncDrawing("alice", "img"))

	_, err := room.Guess("bob", "香蕉")
	require.NoError(t, err)
	_, err = room.Guess("bob", "苹果")
	require.NoError(t, err)

	stub := &stubRecognizer{result: recognition.Result{Success: true, BestGuess: "苹果"}}
	_, err = room.AIAssist(context.Background(), stub, "alice", "")
	require.NoError(t, err)

	snap := room.Snapshot()
	require.Len(t, snap.History, 1, "all attempts of one turn share an entry")

	entry := snap.History[0]
	assert.Equal(t, 1, entry.Round)
	assert.Equal(t, "alice", entry.Drawer)
	assert.Equal(t, "苹果", entry.TargetWord)
	assert.True(t, entry.Success)
	assert.Len(t, entry.HumanGuesses, 3, "misses, hits and AI runs are all attempts")
	assert.Equal(t, []string{"bob", "alice"}, entry.CorrectPlayers)
	require.NotNil(t, entry.Guess)
	assert.Equal(t, "苹果", entry.Guess.BestGuess)
}

func TestHistoryCorrectPlayersDeduplicated(t *testing.T) {
	_, room := setupRoom(t, "alice", "bob", "carol")
	startRound(t, room, "苹果", "")

	room.Mu.Lock()
	now := time.Now()
	room.recordHumanGuessLocked("bob", "苹果", true, now)
	room.recordHumanGuessLocked("bob", "红苹果", true, now)
	entry := room.History[0]
	room.Mu.Unlock()

	assert.Equal(t, []string{"bob"}, entry.CorrectPlayers)
	assert.Len(t, entry.HumanGuesses, 2)
}

func TestHistoryEvictsOldestBeyondCap(t *testing.T) {
	_, room := setupRoom(t, "alice", "bob")

	room.Mu.Lock()
	now := time.Now()
	for i := 1; i <= maxHistoryEntries+3; i++ {
		room.CurrentRound = i
		room.ensureHistoryEntryLocked("alice", now)
	}
	room.Mu.Unlock()

	snap := room.Snapshot()
	require.Len(t, snap.History, maxHistoryEntries)
	assert.Equal(t, 4, snap.History[0].Round, "oldest turns are evicted first")
	assert.Equal(t, maxHistoryEntries+3, snap.History[len(snap.History)-1].Round)
}

func TestHistorySuccessIsSticky(t *testing.T) {
	_, room := setupRoom(t, "alice", "bob")
	startRound(t, room, "苹果", "")

	hit := &stubRecognizer{result: recognition.Result{Success: true, BestGuess: "苹果"}}
	_, err := room.SubmitDrawing(context.Background(), hit, "alice", "img")
	require.NoError(t, err)

	miss := &stubRecognizer{result: recognition.Result{Success: true, BestGuess: "香蕉"}}
	_, err = room.SubmitDrawing(context.Background(), miss, "alice", "img2")
	require.NoError(t, err)

	snap := room.Snapshot()
	require.Len(t, snap.History, 1)
	assert.True(t, snap.History[0].Success, "a later miss cannot retract an achieved success")
	require.NotNil(t, snap.History[0].Guess)
	assert.Equal(t, "香蕉", snap.History[0].Guess.BestGuess, "payload reflects the latest run")
}
