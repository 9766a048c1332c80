// internal/game/guess_test.go
package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkguess/inkguess/internal/recognition"
)

func TestGuessMatchesSubstringsBothWays(t *testing.T) {
	_, room := setupRoom(t, "alice", "bob", "carol")
	startRound(t, room, "苹果", "")

	// The guess containing the target counts.
	result, err := room.Guess("bob", "一个苹果")
	require.NoError(t, err)
	assert.True(t, result.Correct)
	assert.Equal(t, "苹果", result.TargetWord)
	assert.Equal(t, 1, result.Scores["bob"])
	assert.Equal(t, 1, result.Scores["alice"], "drawer scores alongside the guesser")

	// The target containing the guess counts too.
	result, err = room.Guess("carol", "果")
	require.NoError(t, err)
	assert.True(t, result.Correct)
}

func TestWrongGuessLeavesPlayerPending(t *testing.T) {
	_, room := setupRoom(t, "alice", "bob")
	startRound(t, room, "苹果", "")

	result, err := room.Guess("bob", "香蕉")
	require.NoError(t, err)
	assert.False(t, result.Correct)
	assert.Empty(t, result.TargetWord, "a miss must not reveal the target")
	assert.Zero(t, result.Scores["bob"])

	snap := room.Snapshot()
	assert.Equal(t, GuessPending, snap.GuessTracker["bob"])

	// Still pending, so another attempt is allowed.
	result, err = room.Guess("bob", "苹果")
	require.NoError(t, err)
	assert.True(t, result.Correct)
}

func TestGuessRejections(t *testing.T) {
	_, room := setupRoom(t, "alice", "bob")

	_, err := room.Guess("bob", "苹果")
	assert.ErrorIs(t, err, ErrInvalidPhase)

	startRound(t, room, "苹果", "")

	_, err = room.Guess("mallory", "苹果")
	assert.ErrorIs(t, err, ErrNotInRoom)

	_, err = room.Guess("alice", "苹果")
	assert.ErrorIs(t, err, ErrDrawerCannotGuess)

	_, err = room.Guess("bob", "苹果")
	require.NoError(t, err)
	_, err = room.Guess("bob", "苹果")
	assert.ErrorIs(t, err, ErrAlreadyResolved)
}

func TestSkipAwardsNothingAndRevealsOnCompletion(t *testing.T) {
	_, room := setupRoom(t, "alice", "bob", "carol")
	startRound(t, room, "苹果", "")

	result, err := room.Skip("bob")
	require.NoError(t, err)
	assert.Empty(t, result.TargetWord, "turn still live for carol")
	assert.Zero(t, result.Scores["bob"])

	_, err = room.Skip("bob")
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	last, err := room.Skip("carol")
	require.NoError(t, err)
	assert.Equal(t, "苹果", last.TargetWord, "closing skip reveals the target")
	assert.Equal(t, "bob", last.NextDrawer)

	snap := room.Snapshot()
	assert.Zero(t, snap.Scores["alice"], "skipped turns pay no drawer bonus")
}

func TestAIAssistAwardsDrawerBonusOncePerTurn(t *testing.T) {
	_, room := setupRoom(t, "alice", "bob", "carol")
	startRound(t, room, "苹果", "")
	require.NoError(t, room.SyncDrawing("alice", "data:image/png;base64,abc"))

	stub := &stubRecognizer{result: recognition.Result{Success: true, BestGuess: "苹果"}}

	result, err := room.AIAssist(context.Background(), stub, "bob", "")
	require.NoError(t, err)
	assert.True(t, result.Correct)
	assert.Equal(t, 1, result.Scores["bob"])
	assert.Equal(t, 1, result.Scores["alice"])

	result, err = room.AIAssist(context.Background(), stub, "carol", "")
	require.NoError(t, err)
	assert.True(t, result.Correct)
	assert.Equal(t, 1, result.Scores["carol"])
	assert.Equal(t, 1, result.Scores["alice"], "drawer bonus paid at most once per turn")
	assert.Equal(t, 2, stub.callCount())
}

func TestAIAssistResultNotSharedForGuesser(t *testing.T) {
	_, room := setupRoom(t, "alice", "bob", "carol")
	startRound(t, room, "苹果", "")
	require.NoError(t, room.SyncDrawing("alice", "img"))

	stub := &stubRecognizer{result: recognition.Result{Success: true, BestGuess: "苹果"}}
	_, err := room.AIAssist(context.Background(), stub, "bob", "")
	require.NoError(t, err)

	snap := room.Snapshot()
	assert.Nil(t, snap.LastAIResult, "a guesser's private AI run must not leak to the room")
	assert.Nil(t, snap.Submission)

	state, ok := room.PlayerState("bob")
	require.True(t, ok)
	require.NotNil(t, state.AIGuess)
	assert.Equal(t, "苹果", state.AIGuess.BestGuess)
}

func TestDrawerSelfTestSharesResultAndDoubleAwards(t *testing.T) {
	_, room := setupRoom(t, "alice", "bob")
	startRound(t, room, "苹果", "")
	require.NoError(t, room.SyncDrawing("alice", "img"))

	stub := &stubRecognizer{result: recognition.Result{Success: true, BestGuess: "苹果"}}
	result, err := room.AIAssist(context.Background(), stub, "alice", "")
	require.NoError(t, err)
	assert.True(t, result.Correct)
	assert.Equal(t, 2, result.Scores["alice"], "self-testing drawer collects guesser point and drawer bonus")

	snap := room.Snapshot()
	assert.NotNil(t, snap.LastAIResult)
	assert.NotNil(t, snap.Submission)
}

func TestAIAssistBridgeFailureDegradesToMiss(t *testing.T) {
	_, room := setupRoom(t, "alice", "bob")
	startRound(t, room, "苹果", "")
	require.NoError(t, room.SyncDrawing("alice", "img"))

	stub := &stubRecognizer{err: errors.New("connection refused")}
	result, err := room.AIAssist(context.Background(), stub, "bob", "")
	require.NoError(t, err, "bridge failure is not an action failure")
	assert.False(t, result.Correct)
	require.NotNil(t, result.Guess)
	assert.Contains(t, result.Guess.Reason, "recognition unavailable")

	// The player stays pending and may retry.
	stub = &stubRecognizer{result: recognition.Result{Success: true, BestGuess: "苹果"}}
	result, err = room.AIAssist(context.Background(), stub, "bob", "")
	require.NoError(t, err)
	assert.True(t, result.Correct)
}

func TestAIAssistRequiresAnImage(t *testing.T) {
	_, room := setupRoom(t, "alice", "bob")
	startRound(t, room, "苹果", "")

	stub := &stubRecognizer{result: recognition.Result{Success: true, BestGuess: "苹果"}}
	_, err := room.AIAssist(context.Background(), stub, "bob", "")
	assert.ErrorIs(t, err, ErrNoImageAvailable)
	assert.Zero(t, stub.callCount())
}

func TestAIAssistMatchesAlternatives(t *testing.T) {
	_, room := setupRoom(t, "alice", "bob")
	startRound(t, room, "苹果", "")
	require.NoError(t, room.SyncDrawing("alice", "img"))

	stub := &stubRecognizer{result: recognition.Result{
		Success:      true,
		BestGuess:    "香蕉",
		Alternatives: []string{"梨", "红苹果"},
	}}
	result, err := room.AIAssist(context.Background(), stub, "bob", "")
	require.NoError(t, err)
	assert.True(t, result.Correct)
	require.NotNil(t, result.Guess)
	assert.True(t, result.Guess.Matched)
	assert.Equal(t, "红苹果", result.Guess.MatchedWith)
}

func TestSubmitDrawingSuccessAndReview(t *testing.T) {
	_, room := setupRoom(t, "alice", "bob")
	startRound(t, room, "苹果", "")

	_, err := room.SubmitDrawing(context.Background(), nil, "bob", "img")
	assert.ErrorIs(t, err, ErrNotDrawer)

	miss := &stubRecognizer{result: recognition.Result{Success: true, BestGuess: "香蕉"}}
	result, err := room.SubmitDrawing(context.Background(), miss, "alice", "img")
	require.NoError(t, err)
	assert.Equal(t, StatusReview, result.Status)

	snap := room.Snapshot()
	require.NotNil(t, snap.Submission)
	assert.Equal(t, "alice", snap.Submission.SubmittedBy)
	assert.NotNil(t, snap.LastAIResult)
	assert.Zero(t, snap.Scores["alice"])

	// Resubmission from review succeeds and pays the drawer bonus.
	hit := &stubRecognizer{result: recognition.Result{Success: true, BestGuess: "苹果"}}
	result, err = room.SubmitDrawing(context.Background(), hit, "alice", "img2")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 1, room.Snapshot().Scores["alice"])

	// A second matched submission in the same turn pays nothing more.
	result, err = room.SubmitDrawing(context.Background(), hit, "alice", "img3")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 1, room.Snapshot().Scores["alice"])
}

func TestSyncDrawingRules(t *testing.T) {
	_, room := setupRoom(t, "alice", "bob")

	assert.ErrorIs(t, room.SyncDrawing("alice", "img"), ErrInvalidPhase)

	startRound(t, room, "苹果", "")
	assert.ErrorIs(t, room.SyncDrawing("bob", "img"), ErrNotDrawer)
	assert.ErrorIs(t, room.SyncDrawing("mallory", "img"), ErrNotInRoom)

	require.NoError(t, room.SyncDrawing("alice", "img"))
	assert.Equal(t, "img", room.Snapshot().CurrentDrawing)
}

func TestTurnRecordsPublished(t *testing.T) {
	records := make(chan TurnRecord, 16)
	reg := NewRegistry(testLogger())
	reg.Recorder = func(rec TurnRecord) { records <- rec }

	room, _ := reg.Create("alice")
	_, err := reg.Join(room.ID, "bob")
	require.NoError(t, err)
	startRound(t, room, "苹果", "")

	_, err = room.Guess("bob", "苹果")
	require.NoError(t, err)

	// Records are delivered on their own goroutines, so sift for the guess.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case rec := <-records:
			if rec.Event != "guess" {
				continue
			}
			assert.Equal(t, "bob", rec.Player)
			assert.Equal(t, "苹果", rec.Guess)
			assert.True(t, rec.Correct)
			assert.Equal(t, room.ID, rec.RoomID)
			return
		case <-deadline:
			t.Fatal("no guess record published")
		}
	}
}
