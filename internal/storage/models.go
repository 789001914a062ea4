package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Award is one experience grant kept in the local journal.
type Award struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Reason    string    `json:"reason"`
	XP        int       `json:"xp"`
}

// Notice is a user-facing message raised by the session.
type Notice struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Kind      string    `json:"kind"` // "alert", "celebration"
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
}
