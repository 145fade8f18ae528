package domain

import "time"

// ExpiryReason records why a session ended.
type ExpiryReason string

const (
	ReasonIdleTimeout     ExpiryReason = "idle_timeout"
	ReasonAbsoluteTimeout ExpiryReason = "absolute_timeout"
	ReasonLogout          ExpiryReason = "logout"
	ReasonLogoutAll       ExpiryReason = "logout_all"
	ReasonCleanupExpired  ExpiryReason = "cleanup_expired"
)

// Valid reports whether r is one of the defined reasons.
func (r ExpiryReason) Valid() bool {
	switch r {
	case ReasonIdleTimeout, ReasonAbsoluteTimeout, ReasonLogout, ReasonLogoutAll, ReasonCleanupExpired:
		return true
	}
	return false
}

// DeviceMetadata is the client context a login happened in.
type DeviceMetadata struct {
	IP          string
	UserAgent   string
	Fingerprint string
	RememberMe  bool
}

// UserSession is one login, spanning every rotation of its refresh token.
// IsActive is true exactly when SessionEnd is nil and ExpiryReason is empty.
type UserSession struct {
	ID                string
	UserID            string
	RefreshTokenID    string // current ledger entry; repointed on rotation
	SessionStart      time.Time
	SessionEnd        *time.Time
	IsActive          bool
	LastActivity      time.Time
	ActivityCount     int
	ExtendedAt        *time.Time
	ExtensionCount    int
	ExpiryReason      ExpiryReason
	RememberMe        bool
	IPAddress         string
	UserAgent         string
	DeviceFingerprint string
}

// SessionActivity is the state of a session after a heartbeat.
type SessionActivity struct {
	SessionID         string
	IsActive          bool
	IsIdle            bool
	IdleRemaining     time.Duration
	AbsoluteRemaining time.Duration
	ExpiryReason      ExpiryReason
	LastActivity      time.Time
	ActivityCount     int
}
