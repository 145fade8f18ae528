package interceptors

import "context"

// Caller is the authenticated principal of a request, set by AuthUnary.
type Caller struct {
	UserID    string
	Role      string
	SessionID string // empty when the token carried no session
}

type callerKey struct{}

// WithIdentity returns ctx carrying the caller.
func WithIdentity(ctx context.Context, userID, role, sessionID string) context.Context {
	return context.WithValue(ctx, callerKey{}, Caller{UserID: userID, Role: role, SessionID: sessionID})
}

// CallerFrom returns the caller stored by WithIdentity.
func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}

// GetUserID returns the caller's user ID; ok is false for unauthenticated requests.
func GetUserID(ctx context.Context) (string, bool) {
	c, ok := CallerFrom(ctx)
	return c.UserID, ok
}

func GetRole(ctx context.Context) (string, bool) {
	c, ok := CallerFrom(ctx)
	return c.Role, ok
}

// GetSessionID returns the session the access token was issued for. ok reports whether a
// caller is present at all; the ID itself may be empty.
func GetSessionID(ctx context.Context) (string, bool) {
	c, ok := CallerFrom(ctx)
	return c.SessionID, ok
}
