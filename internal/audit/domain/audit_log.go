package domain

import "time"

// Actions recorded by the auth core.
const (
	ActionLogin          = "login"
	ActionLogout         = "logout"
	ActionLogoutAll      = "logout_all"
	ActionSessionExpired = "session_expired"
	ActionSessionExtend  = "session_extended"
	ActionAdminRevoke    = "admin_revoke_sessions"
)

// AuditLog is one login/logout analytics event with the device context it happened in.
type AuditLog struct {
	ID        string
	UserID    string
	SessionID string
	Action    string
	IP        string
	UserAgent string
	Metadata  map[string]string
	CreatedAt time.Time
}
