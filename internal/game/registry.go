// internal/game/registry.go
package game

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Default reaping thresholds: empty rooms are deleted after EmptyTimeout,
// occupied-but-dead rooms after IdleTimeout.
const (
	DefaultEmptyTimeout = 5 * time.Minute
	DefaultIdleTimeout  = time.Hour
)

// Registry owns every active room and enforces the one-room-per-player rule.
// Rooms are looked up under the registry lock and then mutated under their own
// lock; the registry never holds a room lock across an external call.
type Registry struct {
	mu       sync.Mutex
	rooms    map[uuid.UUID]*Room
	byPlayer map[string]uuid.UUID

	logger *logrus.Logger

	EmptyTimeout time.Duration
	IdleTimeout  time.Duration

	// Recorder is copied onto every room this registry creates.
	Recorder func(TurnRecord)
}

// NewRegistry builds an empty registry with default reaping thresholds.
func NewRegistry(logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.New()
	}
	return &Registry{
		rooms:        make(map[uuid.UUID]*Room),
		byPlayer:     make(map[string]uuid.UUID),
		logger:       logger,
		EmptyTimeout: DefaultEmptyTimeout,
		IdleTimeout:  DefaultIdleTimeout,
	}
}

// Create allocates a room owned by username. If the player is already seated
// somewhere, their existing room is returned instead of an error so clients
// can reconnect.
func (reg *Registry) Create(username string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if existingID, ok := reg.byPlayer[username]; ok {
		if existing, ok := reg.rooms[existingID]; ok {
			existing.Mu.Lock()
			existing.touchLocked(time.Now())
			existing.Mu.Unlock()
			return existing, true
		}
		delete(reg.byPlayer, username)
	}

	room := NewRoom()
	room.Recorder = reg.Recorder
	room.Mu.Lock()
	room.Players = append(room.Players, username)
	room.Owner = username
	room.ensurePlayerStateLocked(username)
	room.touchLocked(time.Now())
	room.Mu.Unlock()

	reg.rooms[room.ID] = room
	reg.byPlayer[username] = room.ID
	reg.logger.WithFields(logrus.Fields{"room": room.ID, "owner": username}).Info("room created")
	return room, false
}

// Join seats a player in an existing room. Joining a room you are already in
// succeeds (reconnect); any per-turn scratch state is cleared and the room
// drops back to waiting.
func (reg *Registry) Join(roomID uuid.UUID, username string) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}

	if existingID, seated := reg.byPlayer[username]; seated {
		if existingID == roomID {
			room.Mu.Lock()
			room.touchLocked(time.Now())
			room.Mu.Unlock()
			return room, nil
		}
		return nil, ErrAlreadyInOtherRoom
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	if len(room.Players) >= room.MaxPlayers {
		return nil, ErrRoomFull
	}

	room.Players = append(room.Players, username)
	room.ensurePlayerStateLocked(username)
	room.PendingGuessers = make(map[string]struct{})
	room.GuessTracker = make(map[string]GuessStatus)
	room.Status = StatusWaiting
	room.touchLocked(time.Now())

	reg.byPlayer[username] = roomID
	reg.logger.WithFields(logrus.Fields{"room": roomID, "player": username}).Info("player joined")
	return room, nil
}

// Leave removes a player from a room. If the departing player was the drawer
// the turn is aborted: the room returns to waiting, target/clue/drawer are
// cleared and everyone must re-ready. The last player out deletes the room;
// a departing owner hands the room to the longest-seated survivor.
func (reg *Registry) Leave(roomID uuid.UUID, username string) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}

	room.Mu.Lock()
	if !room.hasPlayerLocked(username) {
		room.Mu.Unlock()
		return ErrNotInRoom
	}

	now := time.Now()
	for i, p := range room.Players {
		if p == username {
			room.Players = append(room.Players[:i], room.Players[i+1:]...)
			break
		}
	}
	delete(room.playerStates, username)
	delete(room.PendingGuessers, username)
	delete(room.GuessTracker, username)

	if room.CurrentDrawer == username {
		room.CurrentDrawer = ""
		room.Status = StatusWaiting
		room.TargetWord = ""
		room.Clue = ""
		room.CurrentSubmission = nil
		room.LastAIResult = nil
		room.GuessTracker = make(map[string]GuessStatus)
		room.PendingGuessers = make(map[string]struct{})
		for _, p := range room.Players {
			room.ensurePlayerStateLocked(p).IsReady = false
		}
	}
	room.touchLocked(now)

	empty := len(room.Players) == 0
	if !empty && room.Owner == username {
		room.Owner = room.Players[0]
	}
	room.Mu.Unlock()

	delete(reg.byPlayer, username)
	if empty {
		delete(reg.rooms, roomID)
		reg.logger.WithField("room", roomID).Info("room deleted (empty)")
	}
	reg.logger.WithFields(logrus.Fields{"room": roomID, "player": username}).Info("player left")
	return nil
}

// Delete tears the room down explicitly. Owner only.
func (reg *Registry) Delete(roomID uuid.UUID, username string) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}

	room.Mu.Lock()
	if room.Owner != username {
		room.Mu.Unlock()
		return ErrNotAuthorized
	}
	players := append([]string(nil), room.Players...)
	room.Mu.Unlock()

	for _, p := range players {
		delete(reg.byPlayer, p)
	}
	delete(reg.rooms, roomID)
	reg.logger.WithFields(logrus.Fields{"room": roomID, "owner": username}).Info("room deleted")
	return nil
}

// Get returns the live room for direct action dispatch.
func (reg *Registry) Get(roomID uuid.UUID) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// RoomFor reports which room, if any, a player is seated in.
func (reg *Registry) RoomFor(username string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	id, ok := reg.byPlayer[username]
	if !ok {
		return nil, false
	}
	room, ok := reg.rooms[id]
	return room, ok
}

// RoomSummary is the listing projection of a room.
type RoomSummary struct {
	RoomID       string    `json:"room_id"`
	Players      []string  `json:"players"`
	PlayerCount  int       `json:"player_count"`
	MaxPlayers   int       `json:"max_players"`
	Status       Status    `json:"status"`
	Owner        string    `json:"owner"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// List returns summaries of every live room, newest first.
func (reg *Registry) List() []RoomSummary {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	out := make([]RoomSummary, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		room.Mu.Lock()
		out = append(out, RoomSummary{
			RoomID:       room.ID.String(),
			Players:      append([]string(nil), room.Players...),
			PlayerCount:  len(room.Players),
			MaxPlayers:   room.MaxPlayers,
			Status:       room.Status,
			Owner:        room.Owner,
			CreatedAt:    room.CreatedAt,
			LastActivity: room.LastActivityAt,
		})
		room.Mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Cleanup reaps rooms that have sat empty past EmptyTimeout or idle past
// IdleTimeout. It is called opportunistically from handlers, so it re-checks
// each room's state under its lock rather than trusting a stale scan.
func (reg *Registry) Cleanup() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, room := range reg.rooms {
		room.Mu.Lock()
		empty := len(room.Players) == 0
		stale := (empty && now.Sub(room.CreatedAt) > reg.EmptyTimeout) ||
			(!empty && now.Sub(room.LastActivityAt) > reg.IdleTimeout)
		players := append([]string(nil), room.Players...)
		room.Mu.Unlock()

		if !stale {
			continue
		}
		for _, p := range players {
			delete(reg.byPlayer, p)
		}
		delete(reg.rooms, id)
		removed++
		reg.logger.WithFields(logrus.Fields{"room": id, "empty": empty}).Info("room reaped")
	}
	return removed
}
