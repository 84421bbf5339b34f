package models

import "time"

// ShareLinkState is derived from the stored row and the current time; only
// deactivation is ever persisted.
type ShareLinkState string

const (
	ShareLinkActive      ShareLinkState = "active"
	ShareLinkExpired     ShareLinkState = "expired"
	ShareLinkDeactivated ShareLinkState = "deactivated"
)

// ShareLink grants anonymous read access to one snippet. PasswordHash holds
// an argon2id PHC string, never the password itself.
type ShareLink struct {
	ID           string
	Token        string
	SnippetID    string
	OwnerID      string
	ExpiresAt    *time.Time
	PasswordHash *string
	Active       bool
	CreatedAt    time.Time
}

// Expired reports whether the link has an expiry at or before now.
func (l *ShareLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

// HasPassword reports whether access requires a password.
func (l *ShareLink) HasPassword() bool {
	return l.PasswordHash != nil && *l.PasswordHash != ""
}

// State returns the lifecycle state at now. Deactivation takes precedence.
func (l *ShareLink) State(now time.Time) ShareLinkState {
	switch {
	case !l.Active:
		return ShareLinkDeactivated
	case l.Expired(now):
		return ShareLinkExpired
	default:
		return ShareLinkActive
	}
}
