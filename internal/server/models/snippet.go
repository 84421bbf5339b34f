package models

import "time"

// Snippet is a user-owned piece of code. Ciphertext is the engine token and
// is opaque to everything except the encryption engine.
type Snippet struct {
	ID         string
	OwnerID    string
	Title      string
	Language   string
	Ciphertext string
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}
