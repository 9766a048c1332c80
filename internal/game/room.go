// internal/game/room.go
package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle phase of a room.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusReady    Status = "ready"
	StatusDrawing  Status = "drawing"
	StatusReview   Status = "review"
	StatusSuccess  Status = "success"
	StatusFinished Status = "finished"
)

// GuessStatus tracks how a player resolved the active turn.
type GuessStatus string

const (
	GuessPending GuessStatus = "pending"
	GuessGuessed GuessStatus = "guessed"
	GuessSkipped GuessStatus = "skipped"
)

// DefaultMaxPlayers caps room membership unless overridden at creation.
const DefaultMaxPlayers = 4

// AIGuess is a normalized recognition outcome. It is attached to the player
// that triggered it, mirrored into the room when shared, and copied into
// history entries.
type AIGuess struct {
	BestGuess    string    `json:"best_guess"`
	Alternatives []string  `json:"alternatives"`
	Reason       string    `json:"reason,omitempty"`
	Matched      bool      `json:"matched"`
	MatchedWith  string    `json:"matched_with,omitempty"`
	TargetWord   string    `json:"target_word,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

func (g *AIGuess) clone() *AIGuess {
	if g == nil {
		return nil
	}
	cp := *g
	cp.Alternatives = append([]string(nil), g.Alternatives...)
	return &cp
}

// Submission is the drawer's most recent uploaded artwork for the turn.
type Submission struct {
	Image       string    `json:"image"`
	SubmittedBy string    `json:"submitted_by"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// PlayerState is the per-player slice of room state. All access goes through
// the owning Room's lock.
type PlayerState struct {
	Username             string
	IsReady              bool
	Score                int
	GuessStatus          GuessStatus
	LastGuessAt          time.Time
	LastActionAt         time.Time
	ModelConfig          map[string]string
	ModelConfigUpdatedAt time.Time
	AIGuess              *AIGuess
	AIGuessAt            time.Time
}

func newPlayerState(username string) *PlayerState {
	return &PlayerState{
		Username:    username,
		GuessStatus: GuessPending,
		ModelConfig: map[string]string{},
	}
}

func (p *PlayerState) markReady(ready bool, now time.Time) {
	p.IsReady = ready
	p.LastActionAt = now
}

func (p *PlayerState) markGuess(status GuessStatus, now time.Time) {
	p.GuessStatus = status
	p.LastGuessAt = now
	p.LastActionAt = now
}

// addScore clamps the score at zero so penalties can never push it negative.
func (p *PlayerState) addScore(delta int) {
	p.Score += delta
	if p.Score < 0 {
		p.Score = 0
	}
}

func (p *PlayerState) resetForTurn() {
	p.GuessStatus = GuessPending
	p.LastGuessAt = time.Time{}
	p.clearAIGuess()
}

func (p *PlayerState) setModelConfig(cfg map[string]string, now time.Time) {
	cloned := make(map[string]string, len(cfg))
	for k, v := range cfg {
		cloned[k] = v
	}
	p.ModelConfig = cloned
	p.ModelConfigUpdatedAt = now
	p.LastActionAt = now
}

// ModelConfigured reports whether the player has a usable recognition
// capability (both endpoint and credential present).
func (p *PlayerState) ModelConfigured() bool {
	return p.ModelConfig["url"] != "" && p.ModelConfig["key"] != ""
}

func (p *PlayerState) setAIGuess(guess *AIGuess, now time.Time) {
	p.AIGuess = guess.clone()
	if guess != nil {
		p.AIGuessAt = now
	} else {
		p.AIGuessAt = time.Time{}
	}
	p.LastActionAt = now
}

func (p *PlayerState) clearAIGuess() {
	p.AIGuess = nil
	p.AIGuessAt = time.Time{}
}

// PlayerPublic is the externally visible projection of PlayerState.
type PlayerPublic struct {
	Username        string      `json:"username"`
	IsReady         bool        `json:"is_ready"`
	Score           int         `json:"score"`
	GuessStatus     GuessStatus `json:"guess_status"`
	ModelConfigured bool        `json:"model_configured"`
	AIGuess         *AIGuess    `json:"ai_guess"`
	AIGuessAt       time.Time   `json:"ai_guess_at"`
}

func (p *PlayerState) public() PlayerPublic {
	return PlayerPublic{
		Username:        p.Username,
		IsReady:         p.IsReady,
		Score:           p.Score,
		GuessStatus:     p.GuessStatus,
		ModelConfigured: p.ModelConfigured(),
		AIGuess:         p.AIGuess.clone(),
		AIGuessAt:       p.AIGuessAt,
	}
}

// Room holds the entire state of one game session in memory. Every mutation
// path (ready, configure, start, guess, skip, AI assist, submit, leave)
// serializes on Mu; helpers suffixed Locked assume the caller holds it.
type Room struct {
	ID uuid.UUID
	Mu sync.Mutex

	Players    []string // join order; drives drawer rotation
	Owner      string
	Status     Status
	MaxPlayers int

	CurrentRound int
	DrawerQueue  []string
	DrawerIndex  int

	CurrentDrawer string
	TargetWord    string
	Clue          string

	CurrentSubmission *Submission
	CurrentDrawing    string
	LastAIResult      *AIGuess
	aiSuccessAwarded  bool

	PendingGuessers map[string]struct{}
	GuessTracker    map[string]GuessStatus

	History []*HistoryEntry

	CreatedAt       time.Time
	LastActivityAt  time.Time
	RoundFinishedAt time.Time

	playerStates map[string]*PlayerState

	// Recorder, if set, receives append-only turn records (guesses,
	// submissions, completions) for out-of-process archival. Invoked on its
	// own goroutine so it can never block the room lock.
	Recorder func(TurnRecord)

	version int
}

// NewRoom builds an empty waiting room owned by nobody. The registry assigns
// the owner when it seats the first player.
func NewRoom() *Room {
	id, _ := uuid.NewRandom()
	now := time.Now()
	return &Room{
		ID:              id,
		Status:          StatusWaiting,
		MaxPlayers:      DefaultMaxPlayers,
		PendingGuessers: make(map[string]struct{}),
		GuessTracker:    make(map[string]GuessStatus),
		playerStates:    make(map[string]*PlayerState),
		CreatedAt:       now,
		LastActivityAt:  now,
	}
}

// ensurePlayerStateLocked creates the lazy per-player state on first use.
func (r *Room) ensurePlayerStateLocked(username string) *PlayerState {
	state, ok := r.playerStates[username]
	if !ok {
		state = newPlayerState(username)
		r.playerStates[username] = state
	}
	return state
}

func (r *Room) hasPlayerLocked(username string) bool {
	for _, p := range r.Players {
		if p == username {
			return true
		}
	}
	return false
}

func (r *Room) touchLocked(now time.Time) {
	r.LastActivityAt = now
	r.version++
}

// Version returns the mutation counter used by the live state feed to detect
// stale snapshots.
func (r *Room) Version() int {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.version
}

// ReadyStatus reports every player's ready flag.
func (r *Room) ReadyStatus() map[string]bool {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.readyStatusLocked()
}

func (r *Room) readyStatusLocked() map[string]bool {
	out := make(map[string]bool, len(r.playerStates))
	for name, state := range r.playerStates {
		out[name] = state.IsReady
	}
	return out
}

// Scores reports every player's score.
func (r *Room) Scores() map[string]int {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.scoresLocked()
}

func (r *Room) scoresLocked() map[string]int {
	out := make(map[string]int, len(r.playerStates))
	for name, state := range r.playerStates {
		out[name] = state.Score
	}
	return out
}

func (r *Room) guessStatusLocked() map[string]GuessStatus {
	out := make(map[string]GuessStatus, len(r.playerStates))
	for name, state := range r.playerStates {
		out[name] = state.GuessStatus
	}
	return out
}

// PlayerState returns a copy of one player's public state.
func (r *Room) PlayerState(username string) (PlayerPublic, bool) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	state, ok := r.playerStates[username]
	if !ok {
		return PlayerPublic{}, false
	}
	return state.public(), true
}

// allPlayersReadyLocked is true only for non-empty membership.
func (r *Room) allPlayersReadyLocked() bool {
	if len(r.Players) == 0 {
		return false
	}
	for _, p := range r.Players {
		if !r.ensurePlayerStateLocked(p).IsReady {
			return false
		}
	}
	return true
}

// maybePromoteReadyLocked moves waiting -> ready once every player is ready
// and the owner has configured a target and selected a drawer.
func (r *Room) maybePromoteReadyLocked() {
	if r.Status != StatusWaiting {
		return
	}
	if r.TargetWord == "" || r.CurrentDrawer == "" {
		return
	}
	if r.allPlayersReadyLocked() {
		r.Status = StatusReady
	}
}

// publishRecordLocked hands a record to the configured recorder without
// blocking the lock.
func (r *Room) publishRecordLocked(rec TurnRecord) {
	if r.Recorder == nil {
		return
	}
	rec.RoomID = r.ID
	go r.Recorder(rec)
}

// TurnRecord is one archival event emitted by a room: a guess attempt, a
// drawing submission, or a turn completion.
type TurnRecord struct {
	RoomID    uuid.UUID `json:"room_id"`
	Round     int       `json:"round"`
	Event     string    `json:"event"`
	Player    string    `json:"player,omitempty"`
	Drawer    string    `json:"drawer,omitempty"`
	Target    string    `json:"target,omitempty"`
	Guess     string    `json:"guess,omitempty"`
	Correct   bool      `json:"correct"`
	Timestamp int64     `json:"timestamp"`
}

// Snapshot is the full externally visible room state, safe to serialize
// outside the lock.
type Snapshot struct {
	RoomID          string                    `json:"room_id"`
	Status          Status                    `json:"status"`
	CurrentRound    int                       `json:"current_round"`
	Players         []string                  `json:"players"`
	Owner           string                    `json:"owner"`
	MaxPlayers      int                       `json:"max_players"`
	TargetWord      string                    `json:"current_target,omitempty"`
	Clue            string                    `json:"current_clue,omitempty"`
	CurrentDrawer   string                    `json:"current_drawer,omitempty"`
	DrawerQueue     []string                  `json:"drawer_queue"`
	DrawerIndex     int                       `json:"current_drawer_index"`
	ReadyStatus     map[string]bool           `json:"ready_status"`
	Scores          map[string]int            `json:"scores"`
	GuessStatus     map[string]GuessStatus    `json:"guess_status"`
	GuessTracker    map[string]GuessStatus    `json:"guess_tracker"`
	PlayerStates    map[string]PlayerPublic   `json:"player_states"`
	History         []HistoryEntry            `json:"draw_history"`
	Submission      *Submission               `json:"current_submission"`
	CurrentDrawing  string                    `json:"current_drawing,omitempty"`
	LastAIResult    *AIGuess                  `json:"ai_result"`
	CreatedAt       time.Time                 `json:"created_at"`
	LastActivityAt  time.Time                 `json:"last_activity"`
	RoundFinishedAt *time.Time                `json:"round_finished_at,omitempty"`
	Version         int                       `json:"version"`
}

// Snapshot copies the room state for reporting. The history slice is deep
// copied so callers can serialize it after the lock is gone.
func (r *Room) Snapshot() Snapshot {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() Snapshot {
	snap := Snapshot{
		RoomID:         r.ID.String(),
		Status:         r.Status,
		CurrentRound:   r.CurrentRound,
		Players:        append([]string(nil), r.Players...),
		Owner:          r.Owner,
		MaxPlayers:     r.MaxPlayers,
		TargetWord:     r.TargetWord,
		Clue:           r.Clue,
		CurrentDrawer:  r.CurrentDrawer,
		DrawerQueue:    append([]string(nil), r.DrawerQueue...),
		DrawerIndex:    r.DrawerIndex,
		ReadyStatus:    r.readyStatusLocked(),
		Scores:         r.scoresLocked(),
		GuessStatus:    r.guessStatusLocked(),
		GuessTracker:   make(map[string]GuessStatus, len(r.GuessTracker)),
		PlayerStates:   make(map[string]PlayerPublic, len(r.playerStates)),
		History:        make([]HistoryEntry, 0, len(r.History)),
		CurrentDrawing: r.CurrentDrawing,
		LastAIResult:   r.LastAIResult.clone(),
		CreatedAt:      r.CreatedAt,
		LastActivityAt: r.LastActivityAt,
		Version:        r.version,
	}
	for name, status := range r.GuessTracker {
		snap.GuessTracker[name] = status
	}
	for name, state := range r.playerStates {
		snap.PlayerStates[name] = state.public()
	}
	for _, entry := range r.History {
		snap.History = append(snap.History, entry.clone())
	}
	if r.CurrentSubmission != nil {
		sub := *r.CurrentSubmission
		snap.Submission = &sub
	}
	if !r.RoundFinishedAt.IsZero() {
		t := r.RoundFinishedAt
		snap.RoundFinishedAt = &t
	}
	return snap
}
