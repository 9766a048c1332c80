// internal/handlers/guess.go
package handlers

import (
	"net/http"
	"strings"

	"github.com/inkguess/inkguess/internal/game"
)

// GuessHandler records a human guess against the current turn.
func (s *Server) GuessHandler(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(r)
	room, username, ok := s.roomForRequest(w, r, body)
	if !ok {
		return
	}

	text := strings.TrimSpace(bodyString(body, "guess"))
	result, err := room.Guess(username, text)
	if err != nil {
		writeFailure(w, failureMessage(err))
		return
	}
	writeSuccess(w, map[string]interface{}{
		"correct":        result.Correct,
		"target_word":    result.TargetWord,
		"round_finished": result.RoundFinished,
		"next_drawer":    result.NextDrawer,
		"scores":         result.Scores,
	})
}

// SkipHandler resolves the caller's turn slot without a guess.
func (s *Server) SkipHandler(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(r)
	room, username, ok := s.roomForRequest(w, r, body)
	if !ok {
		return
	}

	result, err := room.Skip(username)
	if err != nil {
		writeFailure(w, failureMessage(err))
		return
	}
	writeSuccess(w, map[string]interface{}{
		"target_word":    result.TargetWord,
		"round_finished": result.RoundFinished,
		"next_drawer":    result.NextDrawer,
		"scores":         result.Scores,
	})
}

// AIAssistHandler runs the caller's configured recognition model against the
// current drawing and applies the verdict as their guess.
func (s *Server) AIAssistHandler(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(r)
	room, username, ok := s.roomForRequest(w, r, body)
	if !ok {
		return
	}

	// Snapshot before the call: a correct verdict may advance the turn, and
	// the gallery row wants the drawer and canvas it was scored against.
	before := room.Snapshot()
	result, err := room.AIAssist(r.Context(), s.Recognizer, username, bodyString(body, "image"))
	if err != nil {
		writeFailure(w, failureMessage(err))
		return
	}

	if result.Correct && result.Guess != nil {
		image := bodyString(body, "image")
		if image == "" {
			image = before.CurrentDrawing
		}
		s.saveGalleryEntry(room, before.CurrentRound, before.CurrentDrawer,
			result.Guess.TargetWord, result.Guess.BestGuess, image)
	}

	writeSuccess(w, map[string]interface{}{
		"correct":        result.Correct,
		"guess":          result.Guess,
		"round_finished": result.RoundFinished,
		"next_drawer":    result.NextDrawer,
		"scores":         result.Scores,
	})
}

// SubmitHandler accepts the drawer's finished image and has it recognized.
func (s *Server) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(r)
	room, username, ok := s.roomForRequest(w, r, body)
	if !ok {
		return
	}

	image := bodyString(body, "image")
	if image == "" {
		writeFailure(w, failureMessage(game.ErrNoImageAvailable))
		return
	}

	result, err := room.SubmitDrawing(r.Context(), s.Recognizer, username, image)
	if err != nil {
		writeFailure(w, failureMessage(err))
		return
	}

	if result.Status == game.StatusSuccess && result.Guess != nil {
		s.saveGalleryEntry(room, room.Snapshot().CurrentRound, username,
			result.Guess.TargetWord, result.Guess.BestGuess, image)
	}

	writeSuccess(w, map[string]interface{}{
		"guess":          result.Guess,
		"status":         result.Status,
		"round_finished": result.RoundFinished,
		"next_drawer":    result.NextDrawer,
	})
}

// SyncDrawingHandler stores the drawer's work-in-progress canvas so guessers
// and the AI bridge see the latest strokes.
func (s *Server) SyncDrawingHandler(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(r)
	room, username, ok := s.roomForRequest(w, r, body)
	if !ok {
		return
	}

	if err := room.SyncDrawing(username, bodyString(body, "image")); err != nil {
		writeFailure(w, failureMessage(err))
		return
	}
	writeSuccess(w, nil)
}
