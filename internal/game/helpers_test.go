// internal/game/helpers_test.go
package game

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/inkguess/inkguess/internal/recognition"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// setupRoom seats the given players, first one as owner.
func setupRoom(t *testing.T, players ...string) (*Registry, *Room) {
	t.Helper()
	reg := NewRegistry(testLogger())
	room, existing := reg.Create(players[0])
	require.False(t, existing)
	for _, p := range players[1:] {
		_, err := reg.Join(room.ID, p)
		require.NoError(t, err)
	}
	return reg, room
}

// startRound readies everyone, configures the target, and starts the round
// with the owner as first drawer.
func startRound(t *testing.T, room *Room, target, clue string) {
	t.Helper()
	snap := room.Snapshot()
	for _, p := range snap.Players {
		_, err := room.SetReady(p, true)
		require.NoError(t, err)
	}
	_, _, err := room.Configure(snap.Owner, target, clue)
	require.NoError(t, err)
	_, err = room.StartRound(snap.Owner)
	require.NoError(t, err)
}

// stubRecognizer returns a canned result (or error) and counts calls.
type stubRecognizer struct {
	mu     sync.Mutex
	result recognition.Result
	err    error
	calls  int
}

func (s *stubRecognizer) Recognize(_ context.Context, _ recognition.Request) (recognition.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.result, s.err
}

func (s *stubRecognizer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
