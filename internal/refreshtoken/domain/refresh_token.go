package domain

import "time"

// RefreshToken is one ledger entry. The raw token is never stored; TokenHash is its SHA-256.
// A consumed entry (UsedAt set) is always revoked, and ReplacedByID names its successor.
type RefreshToken struct {
	ID           string
	UserID       string
	TokenHash    string
	ExpiresAt    time.Time
	IsRevoked    bool
	UsedAt       *time.Time
	ReplacedByID string
	CreatedAt    time.Time
}

// Consumed reports whether the entry was spent by a rotation.
func (t *RefreshToken) Consumed() bool {
	return t.UsedAt != nil
}

// ExpiredAt reports whether the entry is past its expiry at now.
func (t *RefreshToken) ExpiredAt(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
