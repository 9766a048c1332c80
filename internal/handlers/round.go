// internal/handlers/round.go
package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/inkguess/inkguess/internal/game"
)

// roomForRequest authenticates the caller and resolves the target room.
func (s *Server) roomForRequest(w http.ResponseWriter, r *http.Request, body map[string]interface{}) (*game.Room, string, bool) {
	username, err := currentUser(r)
	if err != nil {
		http.Error(w, "invalid or missing session", http.StatusUnauthorized)
		return nil, "", false
	}

	roomID, err := parseRoomID(r, body)
	if err != nil || roomID == uuid.Nil {
		writeFailure(w, "无效的房间号")
		return nil, "", false
	}

	room, err := s.Registry.Get(roomID)
	if err != nil {
		writeFailure(w, failureMessage(err))
		return nil, "", false
	}
	return room, username, true
}

// ReadyHandler flips the caller's ready flag. Omitting "ready" means true.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(r)
	room, username, ok := s.roomForRequest(w, r, body)
	if !ok {
		return
	}

	ready := true
	if v, present := body["ready"].(bool); present {
		ready = v
	}

	states, err := room.SetReady(username, ready)
	if err != nil {
		writeFailure(w, failureMessage(err))
		return
	}
	writeSuccess(w, map[string]interface{}{"ready_states": states, "status": room.Snapshot().Status})
}

// ConfigureHandler sets the target word and optional clue for the next round.
func (s *Server) ConfigureHandler(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(r)
	room, username, ok := s.roomForRequest(w, r, body)
	if !ok {
		return
	}

	target, clue, err := room.Configure(username, bodyString(body, "target_word"), bodyString(body, "clue"))
	if err != nil {
		writeFailure(w, failureMessage(err))
		return
	}
	writeSuccess(w, map[string]interface{}{"target_word": target, "clue": clue})
}

// SelectDrawerHandler hands the brush to a specific member before the round
// starts. Owner only.
func (s *Server) SelectDrawerHandler(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(r)
	room, username, ok := s.roomForRequest(w, r, body)
	if !ok {
		return
	}

	if err := room.SelectDrawer(username, bodyString(body, "drawer")); err != nil {
		writeFailure(w, failureMessage(err))
		return
	}
	writeSuccess(w, map[string]interface{}{"drawer": bodyString(body, "drawer")})
}

// ModelConfigHandler stores the caller's recognition capability descriptor.
func (s *Server) ModelConfigHandler(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(r)
	room, username, ok := s.roomForRequest(w, r, body)
	if !ok {
		return
	}

	cfg := map[string]string{}
	if raw, present := body["config"].(map[string]interface{}); present {
		for k, v := range raw {
			if str, isStr := v.(string); isStr {
				cfg[k] = str
			}
		}
	}

	configured, err := room.SetModelConfig(username, cfg)
	if err != nil {
		writeFailure(w, failureMessage(err))
		return
	}
	writeSuccess(w, map[string]interface{}{"configured": configured})
}

// StartRoundHandler begins a round. Owner only; everyone must be ready.
func (s *Server) StartRoundHandler(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(r)
	room, username, ok := s.roomForRequest(w, r, body)
	if !ok {
		return
	}

	result, err := room.StartRound(username)
	if err != nil {
		writeFailure(w, failureMessage(err))
		return
	}
	writeSuccess(w, map[string]interface{}{
		"round":  result.Round,
		"drawer": result.Drawer,
	})
}

// ResetHandler returns the room to waiting. Owner only.
func (s *Server) ResetHandler(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(r)
	room, username, ok := s.roomForRequest(w, r, body)
	if !ok {
		return
	}

	if err := room.Reset(username); err != nil {
		writeFailure(w, failureMessage(err))
		return
	}
	writeSuccess(w, map[string]interface{}{"state": room.Snapshot()})
}
