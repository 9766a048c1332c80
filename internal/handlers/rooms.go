// internal/handlers/rooms.go
package handlers

import (
	"net/http"

	"github.com/inkguess/inkguess/internal/game"
)

// CreateRoomHandler allocates a room with the caller as owner. Calling it
// while already seated returns the existing room so clients can reconnect.
func (s *Server) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	username, err := currentUser(r)
	if err != nil {
		http.Error(w, "invalid or missing session", http.StatusUnauthorized)
		return
	}

	s.Registry.Cleanup()
	room, existing := s.Registry.Create(username)
	writeSuccess(w, map[string]interface{}{
		"room_id":  room.ID.String(),
		"existing": existing,
		"state":    room.Snapshot(),
	})
}

// JoinRoomHandler seats the caller in an existing room.
func (s *Server) JoinRoomHandler(w http.ResponseWriter, r *http.Request) {
	username, err := currentUser(r)
	if err != nil {
		http.Error(w, "invalid or missing session", http.StatusUnauthorized)
		return
	}

	body := decodeBody(r)
	roomID, err := parseRoomID(r, body)
	if err != nil {
		writeFailure(w, "无效的房间号")
		return
	}

	room, err := s.Registry.Join(roomID, username)
	if err != nil {
		writeFailure(w, failureMessage(err))
		return
	}
	writeSuccess(w, map[string]interface{}{"state": room.Snapshot()})
}

// LeaveRoomHandler removes the caller from their room.
func (s *Server) LeaveRoomHandler(w http.ResponseWriter, r *http.Request) {
	username, err := currentUser(r)
	if err != nil {
		http.Error(w, "invalid or missing session", http.StatusUnauthorized)
		return
	}

	body := decodeBody(r)
	roomID, err := parseRoomID(r, body)
	if err != nil {
		writeFailure(w, "无效的房间号")
		return
	}

	if err := s.Registry.Leave(roomID, username); err != nil {
		writeFailure(w, failureMessage(err))
		return
	}
	writeSuccess(w, nil)
}

// DeleteRoomHandler tears down a room. Owner only.
func (s *Server) DeleteRoomHandler(w http.ResponseWriter, r *http.Request) {
	username, err := currentUser(r)
	if err != nil {
		http.Error(w, "invalid or missing session", http.StatusUnauthorized)
		return
	}

	body := decodeBody(r)
	roomID, err := parseRoomID(r, body)
	if err != nil {
		writeFailure(w, "无效的房间号")
		return
	}

	if err := s.Registry.Delete(roomID, username); err != nil {
		writeFailure(w, failureMessage(err))
		return
	}
	writeSuccess(w, nil)
}

// ListRoomsHandler returns summaries of every live room, reaping stale ones
// first.
func (s *Server) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := currentUser(r); err != nil {
		http.Error(w, "invalid or missing session", http.StatusUnauthorized)
		return
	}

	s.Registry.Cleanup()
	writeSuccess(w, map[string]interface{}{"rooms": s.Registry.List()})
}

// StateHandler returns the caller's view of a room.
func (s *Server) StateHandler(w http.ResponseWriter, r *http.Request) {
	username, err := currentUser(r)
	if err != nil {
		http.Error(w, "invalid or missing session", http.StatusUnauthorized)
		return
	}

	roomID, err := parseRoomID(r, decodeBody(r))
	if err != nil {
		writeFailure(w, "无效的房间号")
		return
	}

	room, err := s.Registry.Get(roomID)
	if err != nil {
		writeFailure(w, failureMessage(err))
		return
	}

	snap := room.Snapshot()
	if !containsPlayer(snap.Players, username) {
		writeFailure(w, failureMessage(game.ErrNotInRoom))
		return
	}
	writeSuccess(w, map[string]interface{}{"state": snap})
}

func containsPlayer(players []string, username string) bool {
	for _, p := range players {
		if p == username {
			return true
		}
	}
	return false
}
