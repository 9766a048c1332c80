// internal/game/guess.go
package game

import (
	"context"
	"strings"
	"time"

	"github.com/inkguess/inkguess/internal/recognition"
)

// guessablePhases are the room statuses in which guess/skip/AI-assist and
// drawing submissions are accepted.
var guessablePhases = map[Status]bool{
	StatusDrawing: true,
	StatusReview:  true,
	StatusSuccess: true,
}

// GuessResult reports one human guess attempt.
type GuessResult struct {
	Correct       bool           `json:"correct"`
	TargetWord    string         `json:"target_word,omitempty"`
	Completed     bool           `json:"-"`
	RoundFinished bool           `json:"round_finished"`
	NextDrawer    string         `json:"next_drawer,omitempty"`
	Scores        map[string]int `json:"scores"`
}

// SkipResult reports a skip and, when the skip closed the turn, the outcome.
type SkipResult struct {
	TargetWord    string         `json:"target_word,omitempty"`
	Completed     bool           `json:"-"`
	RoundFinished bool           `json:"round_finished"`
	NextDrawer    string         `json:"next_drawer,omitempty"`
	Scores        map[string]int `json:"scores"`
}

// AIResult reports an AI-assisted guess.
type AIResult struct {
	Correct       bool           `json:"correct"`
	Guess         *AIGuess       `json:"guess"`
	Completed     bool           `json:"-"`
	RoundFinished bool           `json:"round_finished"`
	NextDrawer    string         `json:"next_drawer,omitempty"`
	Scores        map[string]int `json:"scores"`
}

// SubmitResult reports a drawing submission and its recognition verdict.
type SubmitResult struct {
	Guess         *AIGuess `json:"guess"`
	Status        Status   `json:"status"`
	RoundFinished bool     `json:"round_finished"`
	NextDrawer    string   `json:"next_drawer,omitempty"`
}

// Guess validates and records a human guess. Matching is deliberately
// tolerant: both strings are trimmed and case-folded, and either containing
// the other counts ("一个苹果" matches "苹果"). A correct guess awards a point
// to the guesser and to the drawer; an incorrect one leaves the player pending
// so they may keep guessing. Every attempt lands in history.
func (r *Room) Guess(username, text string) (GuessResult, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if !r.hasPlayerLocked(username) {
		return GuessResult{}, ErrNotInRoom
	}
	if !guessablePhases[r.Status] {
		return GuessResult{}, ErrInvalidPhase
	}
	if r.TargetWord == "" {
		return GuessResult{}, ErrMissingConfiguration
	}
	if r.CurrentDrawer == username {
		return GuessResult{}, ErrDrawerCannotGuess
	}

	state := r.ensurePlayerStateLocked(username)
	if state.GuessStatus != GuessPending {
		return GuessResult{}, ErrAlreadyResolved
	}

	now := time.Now()
	target := r.TargetWord
	raw := strings.TrimSpace(text)
	targetNorm := strings.ToLower(strings.TrimSpace(target))
	guessNorm := strings.ToLower(raw)
	correct := strings.Contains(guessNorm, targetNorm) || strings.Contains(targetNorm, guessNorm)

	if correct {
		state.markGuess(GuessGuessed, now)
		r.resolveGuesserLocked(username, GuessGuessed)
		state.addScore(1)
		if r.CurrentDrawer != "" {
			r.ensurePlayerStateLocked(r.CurrentDrawer).addScore(1)
		}
	} else {
		state.LastGuessAt = now
		state.LastActionAt = now
	}

	r.recordHumanGuessLocked(username, raw, correct, now)

	res := GuessResult{Correct: correct, Scores: r.scoresLocked()}
	if correct {
		res.TargetWord = target
	}
	if r.allGuessersResolvedLocked() {
		outcome := r.completeTurnLocked(now)
		res.Completed = true
		res.RoundFinished = outcome.RoundFinished
		res.NextDrawer = outcome.NextDrawer
	}
	r.touchLocked(now)
	return res, nil
}

// Skip marks the caller as having given up on this drawing. Skipping never
// awards points and only ends the turn when the skipper was the last
// unresolved player.
func (r *Room) Skip(username string) (SkipResult, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if !r.hasPlayerLocked(username) {
		return SkipResult{}, ErrNotInRoom
	}
	if !guessablePhases[r.Status] {
		return SkipResult{}, ErrInvalidPhase
	}

	state := r.ensurePlayerStateLocked(username)
	if state.GuessStatus != GuessPending {
		return SkipResult{}, ErrAlreadyResolved
	}

	now := time.Now()
	target := r.TargetWord
	state.markGuess(GuessSkipped, now)
	r.resolveGuesserLocked(username, GuessSkipped)
	r.recordHumanGuessLocked(username, "(skip)", false, now)

	res := SkipResult{Scores: r.scoresLocked()}
	if r.allGuessersResolvedLocked() {
		outcome := r.completeTurnLocked(now)
		res.Completed = true
		res.TargetWord = target
		res.RoundFinished = outcome.RoundFinished
		res.NextDrawer = outcome.NextDrawer
	}
	r.touchLocked(now)
	return res, nil
}

// AIAssist lets a player delegate their guess to the recognition bridge. The
// room lock is released for the duration of the external call and re-acquired
// to apply the result; if the turn moved on in the meantime the result is
// discarded. Bridge failures degrade to a non-match so the player stays
// pending and may retry or guess manually.
func (r *Room) AIAssist(ctx context.Context, rec recognition.Recognizer, username, image string) (AIResult, error) {
	r.Mu.Lock()
	if !r.hasPlayerLocked(username) {
		r.Mu.Unlock()
		return AIResult{}, ErrNotInRoom
	}
	if !guessablePhases[r.Status] {
		r.Mu.Unlock()
		return AIResult{}, ErrInvalidPhase
	}
	state := r.ensurePlayerStateLocked(username)
	if state.GuessStatus != GuessPending {
		r.Mu.Unlock()
		return AIResult{}, ErrAlreadyResolved
	}

	if image == "" {
		image = r.CurrentDrawing
	}
	if image == "" && r.CurrentSubmission != nil {
		image = r.CurrentSubmission.Image
	}
	if image == "" {
		r.Mu.Unlock()
		return AIResult{}, ErrNoImageAvailable
	}

	target := r.TargetWord
	clue := r.Clue
	drawer := r.CurrentDrawer
	round := r.CurrentRound
	cfg := make(map[string]string, len(state.ModelConfig))
	for k, v := range state.ModelConfig {
		cfg[k] = v
	}
	r.Mu.Unlock()

	// External call happens without the lock so a slow bridge cannot stall
	// the room.
	result := safeRecognize(ctx, rec, image, clue, cfg, target)

	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.CurrentRound != round || r.CurrentDrawer != drawer || !guessablePhases[r.Status] {
		return AIResult{}, ErrTurnSuperseded
	}
	if !r.hasPlayerLocked(username) {
		return AIResult{}, ErrNotInRoom
	}
	state = r.ensurePlayerStateLocked(username)
	if state.GuessStatus != GuessPending {
		return AIResult{}, ErrAlreadyResolved
	}

	now := time.Now()
	payload, success := normalizeGuessPayload(result, target, now)
	state.setAIGuess(payload, now)

	if success {
		state.markGuess(GuessGuessed, now)
		r.resolveGuesserLocked(username, GuessGuessed)
		state.addScore(1)
		// The drawer-success bonus is paid at most once per turn, no matter
		// how many players trigger AI assist. A drawer testing their own
		// submission collects both the guesser point and the drawer bonus.
		if drawer != "" && !r.aiSuccessAwarded {
			r.ensurePlayerStateLocked(drawer).addScore(1)
			r.aiSuccessAwarded = true
		}
	}

	r.recordHumanGuessLocked(username, "AI猜词: "+payloadBestGuess(payload), success, now)

	// Only the drawer's own AI runs are shared with the room; another
	// player's private attempt must not leak the result to the group.
	recordAt := now
	if drawer == "" || drawer == username {
		r.LastAIResult = payload.clone()
		historyDrawer := drawer
		if historyDrawer == "" {
			historyDrawer = username
		}
		if r.CurrentSubmission == nil {
			r.CurrentSubmission = &Submission{
				Image:       image,
				SubmittedBy: historyDrawer,
				SubmittedAt: now,
			}
		} else {
			r.CurrentSubmission.Image = image
			recordAt = r.CurrentSubmission.SubmittedAt
		}
		r.recordAIResultLocked(historyDrawer, payload, success, recordAt)
	}

	res := AIResult{Correct: success, Guess: payload, Scores: r.scoresLocked()}
	if success && r.allGuessersResolvedLocked() {
		outcome := r.completeTurnLocked(recordAt)
		res.Completed = true
		res.RoundFinished = outcome.RoundFinished
		res.NextDrawer = outcome.NextDrawer
	}
	r.touchLocked(now)
	return res, nil
}

// SubmitDrawing stores the drawer's artwork and runs it through recognition
// with the drawer's own capability. A match moves the room to success and pays
// the drawer bonus (once per turn); a miss parks it in review. As with
// AIAssist the bridge call runs outside the lock.
func (r *Room) SubmitDrawing(ctx context.Context, rec recognition.Recognizer, username, image string) (SubmitResult, error) {
	r.Mu.Lock()
	if !r.hasPlayerLocked(username) {
		r.Mu.Unlock()
		return SubmitResult{}, ErrNotInRoom
	}
	if !guessablePhases[r.Status] {
		r.Mu.Unlock()
		return SubmitResult{}, ErrInvalidPhase
	}
	if r.CurrentDrawer != username {
		r.Mu.Unlock()
		return SubmitResult{}, ErrNotDrawer
	}
	if r.TargetWord == "" {
		r.Mu.Unlock()
		return SubmitResult{}, ErrMissingConfiguration
	}

	now := time.Now()
	r.CurrentSubmission = &Submission{
		Image:       image,
		SubmittedBy: username,
		SubmittedAt: now,
	}

	target := r.TargetWord
	clue := r.Clue
	round := r.CurrentRound
	state := r.ensurePlayerStateLocked(username)
	cfg := make(map[string]string, len(state.ModelConfig))
	for k, v := range state.ModelConfig {
		cfg[k] = v
	}
	r.Mu.Unlock()

	result := safeRecognize(ctx, rec, image, clue, cfg, target)

	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.CurrentRound != round || r.CurrentDrawer != username || !guessablePhases[r.Status] {
		return SubmitResult{}, ErrTurnSuperseded
	}

	applied := time.Now()
	payload, success := normalizeGuessPayload(result, target, applied)
	r.ensurePlayerStateLocked(username).setAIGuess(payload, applied)
	r.LastAIResult = payload.clone()
	if success {
		r.Status = StatusSuccess
	} else {
		r.Status = StatusReview
	}

	r.recordAIResultLocked(username, payload, success, applied)
	r.publishRecordLocked(TurnRecord{
		Round:     r.CurrentRound,
		Event:     "submission",
		Player:    username,
		Drawer:    username,
		Target:    target,
		Guess:     payloadBestGuess(payload),
		Correct:   success,
		Timestamp: applied.Unix(),
	})

	res := SubmitResult{Guess: payload, Status: r.Status}
	if success {
		if outcome := r.finalizeAISuccessLocked(applied); outcome != nil {
			res.RoundFinished = outcome.RoundFinished
			res.NextDrawer = outcome.NextDrawer
		}
	}
	r.touchLocked(applied)
	return res, nil
}

// SyncDrawing stores the drawer's in-progress canvas so guessers can run AI
// assist against it before any formal submission.
func (r *Room) SyncDrawing(username, image string) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if !r.hasPlayerLocked(username) {
		return ErrNotInRoom
	}
	if r.Status != StatusDrawing {
		return ErrInvalidPhase
	}
	if r.CurrentDrawer != username {
		return ErrNotDrawer
	}
	r.CurrentDrawing = image
	r.touchLocked(time.Now())
	return nil
}

// finalizeAISuccessLocked pays the drawer's success bonus for a matched
// submission, at most once per turn, and closes the turn if everyone else has
// already resolved.
func (r *Room) finalizeAISuccessLocked(now time.Time) *TurnOutcome {
	if r.aiSuccessAwarded {
		return nil
	}
	if r.CurrentDrawer != "" {
		state := r.ensurePlayerStateLocked(r.CurrentDrawer)
		state.addScore(1)
		if state.GuessStatus != GuessGuessed {
			state.markGuess(GuessGuessed, now)
		}
	}
	r.aiSuccessAwarded = true
	if r.allGuessersResolvedLocked() {
		outcome := r.completeTurnLocked(now)
		return &outcome
	}
	return nil
}

// resolveGuesserLocked mirrors a player's resolution into the tracker and
// pending set.
func (r *Room) resolveGuesserLocked(username string, status GuessStatus) {
	r.GuessTracker[username] = status
	delete(r.PendingGuessers, username)
}

// allGuessersResolvedLocked reconciles the tracker against membership and
// player state, then reports whether every non-drawer player has resolved.
// Players who left mid-turn (and the drawer) are pruned from the tracker.
func (r *Room) allGuessersResolvedLocked() bool {
	if len(r.Players) == 0 {
		return true
	}

	for name := range r.GuessTracker {
		if name == r.CurrentDrawer || !r.hasPlayerLocked(name) {
			delete(r.GuessTracker, name)
		}
	}

	resolved := true
	for _, p := range r.Players {
		if p == r.CurrentDrawer {
			continue
		}
		status := r.ensurePlayerStateLocked(p).GuessStatus
		if status == GuessGuessed || status == GuessSkipped {
			r.GuessTracker[p] = status
			delete(r.PendingGuessers, p)
			continue
		}
		r.GuessTracker[p] = GuessPending
		resolved = false
	}
	return resolved
}

// safeRecognize shields the room from bridge failures: any error or timeout
// becomes a non-match result with a reason, never a failure of the action.
func safeRecognize(ctx context.Context, rec recognition.Recognizer, image, clue string, cfg map[string]string, target string) recognition.Result {
	if rec == nil {
		return recognition.Result{Reason: "recognition unavailable"}
	}
	res, err := rec.Recognize(ctx, recognition.Request{
		Image:  image,
		Clue:   clue,
		Config: cfg,
		Target: target,
	})
	if err != nil {
		return recognition.Result{Reason: "recognition unavailable: " + err.Error()}
	}
	return res
}

// normalizeGuessPayload converts a raw bridge result into the canonical
// AIGuess and decides the match locally: the bridge's own opinion of
// correctness is never trusted, only its guesses.
func normalizeGuessPayload(result recognition.Result, target string, now time.Time) (*AIGuess, bool) {
	payload := &AIGuess{
		BestGuess:    result.BestGuess,
		Alternatives: append([]string(nil), result.Alternatives...),
		Reason:       result.Reason,
		TargetWord:   target,
		Timestamp:    now,
	}

	if target == "" || !result.Success {
		return payload, false
	}

	if matchesTarget(result.BestGuess, target) {
		payload.Matched = true
		payload.MatchedWith = result.BestGuess
		return payload, true
	}
	for _, alt := range result.Alternatives {
		if matchesTarget(alt, target) {
			payload.Matched = true
			payload.MatchedWith = alt
			return payload, true
		}
	}
	return payload, false
}

func matchesTarget(candidate, target string) bool {
	c := strings.ToLower(strings.TrimSpace(candidate))
	t := strings.ToLower(strings.TrimSpace(target))
	if c == "" || t == "" {
		return false
	}
	return strings.Contains(c, t) || strings.Contains(t, c)
}

func payloadBestGuess(payload *AIGuess) string {
	if payload == nil || payload.BestGuess == "" {
		return "N/A"
	}
	return payload.BestGuess
}
