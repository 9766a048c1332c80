// internal/handlers/ws.go
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/inkguess/inkguess/internal/game"
	"github.com/inkguess/inkguess/internal/middleware"
)

// Custom WebSocket close codes used by the room state feed.
const (
	BadSubprotocolError = 3000 // Client connected with an unsupported subprotocol.
	InvalidRoomIDError  = 3001 // Room ID in the WS URL was malformed or unknown.
	NotInRoomError      = 3002 // Authenticated player is not seated in the room.
)

// statePollInterval is how often the feed checks the room's mutation counter.
const statePollInterval = 500 * time.Millisecond

// RoomWSHandler streams room snapshots over a WebSocket at
// /room/ws/{room_id}. A snapshot is pushed whenever the room's version
// counter moves, so clients see every membership, phase and score change
// without polling the REST state endpoint.
func (s *Server) RoomWSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr
		idStr := strings.TrimPrefix(r.URL.Path, "/room/ws/")
		if idx := strings.Index(idStr, "/"); idx != -1 {
			idStr = idStr[:idx]
		}
		roomID, err := uuid.Parse(idStr)
		if err != nil {
			http.Error(w, "invalid room_id", http.StatusBadRequest)
			return
		}

		username, err := currentUser(r)
		if err != nil {
			http.Error(w, "invalid or missing session", http.StatusUnauthorized)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"room"},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			s.Logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "room" {
			c.Close(BadSubprotocolError, "client must speak the room subprotocol")
			return
		}

		room, err := s.Registry.Get(roomID)
		if err != nil {
			c.Close(InvalidRoomIDError, "room does not exist")
			return
		}

		snap := room.Snapshot()
		if !containsPlayer(snap.Players, username) {
			c.Close(NotInRoomError, "player is not seated in this room")
			return
		}

		middleware.LogWebSocketConnect(s.Logger, remoteAddr, r.URL.Path)
		err = s.streamRoomState(r.Context(), c, roomID, snap)
		middleware.LogWebSocketDisconnect(s.Logger, remoteAddr, r.URL.Path, err)
	}
}

// streamRoomState writes the initial snapshot and then pushes a fresh one each
// time the room's version counter moves. It returns when the client goes
// away, the room is deleted, or a write fails.
func (s *Server) streamRoomState(ctx context.Context, c *websocket.Conn, roomID uuid.UUID, initial game.Snapshot) error {
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err := wsjson.Write(writeCtx, c, initial)
	cancel()
	if err != nil {
		return err
	}

	lastVersion := initial.Version

	ticker := time.NewTicker(statePollInterval)
	defer ticker.Stop()
	pinger := time.NewTicker(30 * time.Second)
	defer pinger.Stop()

	for {
		select {
		case <-ctx.Done():
			c.Close(websocket.StatusNormalClosure, "client context done")
			return nil
		case <-pinger.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		case <-ticker.C:
			room, err := s.Registry.Get(roomID)
			if err != nil {
				c.Close(websocket.StatusNormalClosure, "room closed")
				return nil
			}
			if v := room.Version(); v != lastVersion {
				snap := room.Snapshot()
				lastVersion = snap.Version
				writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
				err := wsjson.Write(writeCtx, c, snap)
				cancel()
				if err != nil {
					return err
				}
			}
		}
	}
}
