// internal/models/gallery.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// GalleryEntry is a successfully recognized drawing preserved for browsing.
type GalleryEntry struct {
	ID         uuid.UUID `json:"id"`
	RoomID     uuid.UUID `json:"room_id"`
	Round      int       `json:"round"`
	Drawer     string    `json:"drawer"`
	TargetWord string    `json:"target_word"`
	BestGuess  string    `json:"best_guess"`
	Image      string    `json:"image"`
	CreatedAt  time.Time `json:"created_at"`
}
