// internal/models/user.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered player account. Rooms key players by username; the
// account row only backs login and gallery attribution.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
