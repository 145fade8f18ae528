package domain

import "time"

// SecurityLevel labels how strict a role's session windows are.
type SecurityLevel string

const (
	SecurityLevelStandard SecurityLevel = "standard"
	SecurityLevelElevated SecurityLevel = "elevated"
	SecurityLevelHigh     SecurityLevel = "high"
)

// SessionExpiryPolicy holds the idle and absolute session windows for a role.
// It is derived per request and never persisted.
type SessionExpiryPolicy struct {
	IdleTimeoutMinutes   int           `json:"idle_timeout_minutes"`
	AbsoluteTimeoutHours int           `json:"absolute_timeout_hours"`
	RememberMeDays       int           `json:"remember_me_days,omitempty"`
	SecurityLevel        SecurityLevel `json:"security_level"`
}

// IdleTimeout is the longest allowed gap between activities.
func (p SessionExpiryPolicy) IdleTimeout() time.Duration {
	return time.Duration(p.IdleTimeoutMinutes) * time.Minute
}

// AbsoluteTimeout is the longest allowed total session duration.
func (p SessionExpiryPolicy) AbsoluteTimeout() time.Duration {
	return time.Duration(p.AbsoluteTimeoutHours) * time.Hour
}

// RememberMeExtension is how far remember-me pushes out the refresh token; zero when not granted.
func (p SessionExpiryPolicy) RememberMeExtension() time.Duration {
	return time.Duration(p.RememberMeDays) * 24 * time.Hour
}

// Valid reports whether both windows are positive.
func (p SessionExpiryPolicy) Valid() bool {
	return p.IdleTimeoutMinutes > 0 && p.AbsoluteTimeoutHours > 0 && p.RememberMeDays >= 0 && p.SecurityLevel != ""
}
