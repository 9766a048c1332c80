// internal/recognition/recognizer.go

// Package recognition defines the narrow contract to the external
// vision-language capability used for AI-assisted guessing, plus an HTTP
// client speaking the OpenAI-compatible chat protocol. The game core consumes
// only the Recognizer interface and decides match/no-match itself; nothing in
// a Result is trusted as a verdict.
package recognition

import "context"

// Request carries one recognition attempt. Config is the acting player's
// sanitized capability descriptor (url/key/model/prompt) and may be empty, in
// which case the client falls back to its server-wide configuration.
type Request struct {
	Image  string
	Clue   string
	Config map[string]string
	Target string
}

// Result is the structured guess proposed by the bridge. Success reports only
// that the bridge produced a usable guess, not that the guess is correct.
type Result struct {
	Success      bool     `json:"success"`
	BestGuess    string   `json:"best_guess"`
	Alternatives []string `json:"alternatives"`
	Reason       string   `json:"reason,omitempty"`
	Provider     string   `json:"provider,omitempty"`
}

// Recognizer proposes a guess for a drawing. Implementations must honor ctx
// cancellation and bound their own network time.
type Recognizer interface {
	Recognize(ctx context.Context, req Request) (Result, error)
}

// Func adapts a plain function to the Recognizer interface.
type Func func(ctx context.Context, req Request) (Result, error)

// Recognize implements Recognizer.
func (f Func) Recognize(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}
