// internal/game/turns.go
package game

import (
	"strings"
	"time"
)

// StartResult reports the opening turn of a freshly started round.
type StartResult struct {
	Round  int    `json:"round"`
	Drawer string `json:"drawer"`
	Target string `json:"target"`
}

// TurnOutcome reports what completing a turn did: either the rotation moved to
// the next drawer, or the queue was exhausted and the round finished.
type TurnOutcome struct {
	RoundFinished bool   `json:"round_finished"`
	NextDrawer    string `json:"next_drawer,omitempty"`
}

// SetReady flips a player's ready flag. Once every player is ready and the
// owner has configured a target and drawer, the room moves to StatusReady.
func (r *Room) SetReady(username string, ready bool) (map[string]bool, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if !r.hasPlayerLocked(username) {
		return nil, ErrNotInRoom
	}
	now := time.Now()
	r.ensurePlayerStateLocked(username).markReady(ready, now)
	r.maybePromoteReadyLocked()
	r.touchLocked(now)
	return r.readyStatusLocked(), nil
}

// Configure sets the turn's target word and optional clue. Owner only. A room
// sitting in review/success drops back to waiting so the next turn can be
// staged.
func (r *Room) Configure(username, target, clue string) (string, string, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.Owner != username {
		return "", "", ErrNotAuthorized
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return "", "", ErrMissingConfiguration
	}
	r.TargetWord = target
	r.Clue = strings.TrimSpace(clue)
	if r.Status == StatusReview || r.Status == StatusSuccess {
		r.Status = StatusWaiting
	}
	r.touchLocked(time.Now())
	return r.TargetWord, r.Clue, nil
}

// SelectDrawer lets the owner hand the brush to a specific member before the
// round starts.
func (r *Room) SelectDrawer(username, drawer string) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.Owner != username {
		return ErrNotAuthorized
	}
	if !r.hasPlayerLocked(drawer) {
		return ErrDrawerNotInRoom
	}
	r.CurrentDrawer = drawer
	r.maybePromoteReadyLocked()
	r.touchLocked(time.Now())
	return nil
}

// modelConfigKeys whitelists the capability descriptor fields a player may
// set; anything else is dropped.
var modelConfigKeys = map[string]bool{
	"url":    true,
	"key":    true,
	"model":  true,
	"prompt": true,
}

// SetModelConfig stores a player's recognition capability descriptor and
// reports whether the player now counts as configured.
func (r *Room) SetModelConfig(username string, cfg map[string]string) (bool, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if !r.hasPlayerLocked(username) {
		return false, ErrNotInRoom
	}
	sanitized := make(map[string]string, len(cfg))
	for k, v := range cfg {
		if modelConfigKeys[k] {
			sanitized[k] = strings.TrimSpace(v)
		}
	}
	now := time.Now()
	state := r.ensurePlayerStateLocked(username)
	state.setModelConfig(sanitized, now)
	r.touchLocked(now)
	return state.ModelConfigured(), nil
}

// StartRound rebuilds the drawer queue from current membership and begins the
// first turn with the owner-configured target and clue. Owner only; every
// player must be ready.
func (r *Room) StartRound(username string) (StartResult, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.Owner != username {
		return StartResult{}, ErrNotAuthorized
	}
	if !r.allPlayersReadyLocked() {
		return StartResult{}, ErrPlayersNotReady
	}

	r.DrawerQueue = append([]string(nil), r.Players...)
	r.DrawerIndex = 0
	r.CurrentRound++

	now := time.Now()
	r.prepareTurnLocked(r.DrawerQueue[0], r.TargetWord, r.Clue, now)
	r.touchLocked(now)
	return StartResult{
		Round:  r.CurrentRound,
		Drawer: r.CurrentDrawer,
		Target: r.TargetWord,
	}, nil
}

// prepareTurnLocked stages a new turn: drawer, target (word bank fallback),
// clue, fresh per-player guess state, and a rebuilt pending-guesser set.
func (r *Room) prepareTurnLocked(drawer, target, clue string, now time.Time) {
	target = strings.TrimSpace(target)
	if target == "" {
		target = chooseTargetWord()
	}

	r.CurrentDrawer = drawer
	r.TargetWord = target
	r.Clue = strings.TrimSpace(clue)
	r.Status = StatusDrawing
	r.CurrentSubmission = nil
	r.CurrentDrawing = ""
	r.LastAIResult = nil
	r.aiSuccessAwarded = false
	r.RoundFinishedAt = time.Time{}

	for _, p := range r.Players {
		r.ensurePlayerStateLocked(p).resetForTurn()
	}
	r.resetPendingGuessersLocked(drawer)
}

// resetPendingGuessersLocked rebuilds the tracker and pending set as
// membership minus the drawer.
func (r *Room) resetPendingGuessersLocked(drawer string) {
	r.GuessTracker = make(map[string]GuessStatus, len(r.Players))
	r.PendingGuessers = make(map[string]struct{}, len(r.Players))
	for _, p := range r.Players {
		if p == drawer {
			continue
		}
		r.GuessTracker[p] = GuessPending
		r.PendingGuessers[p] = struct{}{}
	}
}

// completeTurnLocked advances the rotation. Running off the end of the queue
// finishes the round; otherwise the next queued drawer gets a fresh turn.
// Subsequent turns intentionally fall back to the word bank instead of reusing
// the owner-configured target: only the opening turn uses it.
func (r *Room) completeTurnLocked(now time.Time) TurnOutcome {
	r.DrawerIndex++

	if r.DrawerIndex >= len(r.DrawerQueue) {
		r.Status = StatusFinished
		r.CurrentDrawer = ""
		r.TargetWord = ""
		r.Clue = ""
		r.CurrentDrawing = ""
		r.CurrentSubmission = nil
		r.LastAIResult = nil
		r.aiSuccessAwarded = false
		r.RoundFinishedAt = now
		r.PendingGuessers = make(map[string]struct{})
		r.GuessTracker = make(map[string]GuessStatus)
		r.publishRecordLocked(TurnRecord{
			Round:     r.CurrentRound,
			Event:     "round_finished",
			Timestamp: now.Unix(),
		})
		return TurnOutcome{RoundFinished: true}
	}

	next := r.DrawerQueue[r.DrawerIndex]
	r.prepareTurnLocked(next, "", "", now)
	r.publishRecordLocked(TurnRecord{
		Round:     r.CurrentRound,
		Event:     "turn_started",
		Drawer:    next,
		Timestamp: now.Unix(),
	})
	return TurnOutcome{NextDrawer: next}
}

// Reset returns the room to waiting and un-readies everyone. Owner only.
func (r *Room) Reset(username string) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.Owner != username {
		return ErrNotAuthorized
	}

	now := time.Now()
	r.Status = StatusWaiting
	r.TargetWord = ""
	r.Clue = ""
	r.CurrentDrawer = ""
	r.CurrentSubmission = nil
	r.CurrentDrawing = ""
	r.LastAIResult = nil
	r.aiSuccessAwarded = false
	r.RoundFinishedAt = time.Time{}
	r.PendingGuessers = make(map[string]struct{})
	r.GuessTracker = make(map[string]GuessStatus)
	for _, p := range r.Players {
		state := r.ensurePlayerStateLocked(p)
		state.markReady(false, now)
		state.clearAIGuess()
	}
	r.touchLocked(now)
	return nil
}
