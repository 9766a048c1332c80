// internal/game/history.go
package game

import "time"

// maxHistoryEntries bounds the per-room turn log; the oldest entries are
// evicted on overflow.
const maxHistoryEntries = 10

// HumanGuess is a single guess attempt recorded in history, correct or not.
type HumanGuess struct {
	Player    string    `json:"player"`
	Guess     string    `json:"guess"`
	Correct   bool      `json:"correct"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryEntry summarizes one (round, drawer) turn: the target, the latest AI
// result, every human guess attempt, and who got it right. Repeated
// submissions within the same turn update the entry in place rather than
// appending duplicates.
type HistoryEntry struct {
	Round          int          `json:"round"`
	TargetWord     string       `json:"target_word,omitempty"`
	Drawer         string       `json:"drawer"`
	SubmittedAt    time.Time    `json:"submitted_at"`
	Guess          *AIGuess     `json:"guess"`
	Success        bool         `json:"success"`
	HumanGuesses   []HumanGuess `json:"human_guesses"`
	CorrectPlayers []string     `json:"correct_players"`
}

func (e *HistoryEntry) clone() HistoryEntry {
	cp := *e
	cp.Guess = e.Guess.clone()
	cp.HumanGuesses = append([]HumanGuess(nil), e.HumanGuesses...)
	cp.CorrectPlayers = append([]string(nil), e.CorrectPlayers...)
	return cp
}

// ensureHistoryEntryLocked finds the entry for the current round and drawer,
// creating (and bounding) it lazily.
func (r *Room) ensureHistoryEntryLocked(drawer string, now time.Time) *HistoryEntry {
	for i := len(r.History) - 1; i >= 0; i-- {
		if r.History[i].Round == r.CurrentRound && r.History[i].Drawer == drawer {
			return r.History[i]
		}
	}
	entry := &HistoryEntry{
		Round:          r.CurrentRound,
		Drawer:         drawer,
		SubmittedAt:    now,
		HumanGuesses:   []HumanGuess{},
		CorrectPlayers: []string{},
	}
	r.History = append(r.History, entry)
	if len(r.History) > maxHistoryEntries {
		r.History = r.History[len(r.History)-maxHistoryEntries:]
	}
	return entry
}

// recordAIResultLocked updates the turn's entry with the latest recognition
// payload. Success is sticky for the life of the entry.
func (r *Room) recordAIResultLocked(drawer string, guess *AIGuess, success bool, now time.Time) {
	entry := r.ensureHistoryEntryLocked(drawer, now)
	entry.TargetWord = r.TargetWord
	entry.SubmittedAt = now
	entry.Guess = guess.clone()
	entry.Success = entry.Success || success
}

// recordHumanGuessLocked appends a guess attempt to the turn's entry.
func (r *Room) recordHumanGuessLocked(username, text string, correct bool, now time.Time) {
	entry := r.ensureHistoryEntryLocked(r.CurrentDrawer, now)
	entry.HumanGuesses = append(entry.HumanGuesses, HumanGuess{
		Player:    username,
		Guess:     text,
		Correct:   correct,
		Timestamp: now,
	})
	if correct && !contains(entry.CorrectPlayers, username) {
		entry.CorrectPlayers = append(entry.CorrectPlayers, username)
	}
	entry.Success = entry.Success || correct

	r.publishRecordLocked(TurnRecord{
		Round:     r.CurrentRound,
		Event:     "guess",
		Player:    username,
		Drawer:    r.CurrentDrawer,
		Target:    r.TargetWord,
		Guess:     text,
		Correct:   correct,
		Timestamp: now.Unix(),
	})
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
