// internal/handlers/handlers_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkguess/inkguess/internal/auth"
	"github.com/inkguess/inkguess/internal/recognition"
)

func testServer(rec recognition.Recognizer) *Server {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewServer(logger, rec)
}

func sessionToken(t *testing.T, username string) string {
	t.Helper()
	token, err := auth.CreateSession(username)
	require.NoError(t, err)
	return token
}

// do issues a JSON request as the given user and decodes the response body.
func do(t *testing.T, handler http.HandlerFunc, username string, body map[string]interface{}) (int, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	if username != "" {
		req.Header.Set("Authorization", "Bearer "+sessionToken(t, username))
	}
	w := httptest.NewRecorder()
	handler(w, req)

	out := map[string]interface{}{}
	_ = json.NewDecoder(w.Result().Body).Decode(&out)
	return w.Result().StatusCode, out
}

func TestMain(m *testing.M) {
	auth.Init()
	m.Run()
}

func TestSessionHandlerIssuesVerifiableToken(t *testing.T) {
	srv := testServer(nil)

	req := httptest.NewRequest(http.MethodPost, "/session", bytes.NewReader([]byte(`{"username":"alice"}`)))
	w := httptest.NewRecorder()
	srv.SessionHandler(w, req)

	require.Equal(t, http.StatusOK, w.Result().StatusCode)
	var resp sessionResponse
	require.NoError(t, json.NewDecoder(w.Result().Body).Decode(&resp))
	assert.Equal(t, "alice", resp.Username)

	username, err := auth.VerifySession(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestSessionHandlerRejectsEmptyUsername(t *testing.T) {
	srv := testServer(nil)

	req := httptest.NewRequest(http.MethodPost, "/session", bytes.NewReader([]byte(`{"username":"  "}`)))
	w := httptest.NewRecorder()
	srv.SessionHandler(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestRoomHandlersRejectMissingSession(t *testing.T) {
	srv := testServer(nil)
	status, _ := do(t, srv.CreateRoomHandler, "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

type stubRecognizer struct {
	result recognition.Result
}

func (s *stubRecognizer) Recognize(context.Context, recognition.Request) (recognition.Result, error) {
	return s.result, nil
}

func TestFullTurnOverHTTP(t *testing.T) {
	srv := testServer(&stubRecognizer{result: recognition.Result{Success: true, BestGuess: "苹果"}})

	status, created := do(t, srv.CreateRoomHandler, "alice", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, created["success"])
	roomID, _ := created["room_id"].(string)
	require.NotEmpty(t, roomID)

	status, joined := do(t, srv.JoinRoomHandler, "bob", map[string]interface{}{"room_id": roomID})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, joined["success"])

	for _, player := range []string{"alice", "bob"} {
		_, resp := do(t, srv.ReadyHandler, player, map[string]interface{}{"room_id": roomID})
		require.Equal(t, true, resp["success"])
	}

	_, resp := do(t, srv.ConfigureHandler, "alice", map[string]interface{}{
		"room_id": roomID, "target_word": "苹果", "clue": "水果",
	})
	require.Equal(t, true, resp["success"])

	_, resp = do(t, srv.StartRoundHandler, "alice", map[string]interface{}{"room_id": roomID})
	require.Equal(t, true, resp["success"])
	assert.Equal(t, "alice", resp["drawer"])

	// A non-owner cannot start a round; rule failures are HTTP 200.
	status, resp = do(t, srv.StartRoundHandler, "bob", map[string]interface{}{"room_id": roomID})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, resp["success"])

	_, resp = do(t, srv.SyncDrawingHandler, "alice", map[string]interface{}{
		"room_id": roomID, "image": "data:image/png;base64,abc",
	})
	require.Equal(t, true, resp["success"])

	_, resp = do(t, srv.SubmitHandler, "alice", map[string]interface{}{
		"room_id": roomID, "image": "data:image/png;base64,final",
	})
	require.Equal(t, true, resp["success"])
	assert.Equal(t, "success", resp["status"])

	_, resp = do(t, srv.GuessHandler, "bob", map[string]interface{}{
		"room_id": roomID, "guess": "一个苹果",
	})
	require.Equal(t, true, resp["success"])
	assert.Equal(t, true, resp["correct"])

	_, state := do(t, srv.StateHandler, "alice", map[string]interface{}{"room_id": roomID})
	require.Equal(t, true, state["success"])
}

func TestGuessWrongRoomID(t *testing.T) {
	srv := testServer(nil)
	status, resp := do(t, srv.GuessHandler, "alice", map[string]interface{}{
		"room_id": "not-a-uuid", "guess": "苹果",
	})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, resp["success"])
}

func TestListRoomsRequiresSessionAndListsRooms(t *testing.T) {
	srv := testServer(nil)
	_, _ = do(t, srv.CreateRoomHandler, "alice", nil)

	status, resp := do(t, srv.ListRoomsHandler, "bob", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, resp["success"])
	rooms, _ := resp["rooms"].([]interface{})
	assert.Len(t, rooms, 1)
}
