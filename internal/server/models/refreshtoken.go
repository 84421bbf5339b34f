package models

import "time"

// RefreshToken is a single-use credential; redeeming it deletes the row.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
}

// Expired reports whether the token can no longer be redeemed at now. A
// token is rejected from the instant it expires.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
