// Package service exposes login, refresh, logout and access-token validation on top of
// the credential validator, the refresh token ledger and the session tracker.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"social-tippster/backend/internal/autherr"
	"social-tippster/backend/internal/db"
	"social-tippster/backend/internal/policy/engine"
	rtservice "social-tippster/backend/internal/refreshtoken/service"
	"social-tippster/backend/internal/security"
	sessiondomain "social-tippster/backend/internal/session/domain"
	"social-tippster/backend/internal/telemetry"
	telemetrydomain "social-tippster/backend/internal/telemetry/domain"
	userdomain "social-tippster/backend/internal/user/domain"
)

// UserByID is the user directory lookup used to validate access tokens.
type UserByID interface {
	FindByID(ctx context.Context, id string) (*userdomain.User, error)
}

// TokenLedger is the refresh token ledger as the auth service uses it.
type TokenLedger interface {
	Issue(ctx context.Context, userID string) (*rtservice.Issued, error)
	Rotate(ctx context.Context, presented, ip string) (*rtservice.Rotation, error)
}

// SessionTracker is the session tracker as the auth service uses it.
type SessionTracker interface {
	CreateSession(ctx context.Context, userID, refreshTokenID string, meta sessiondomain.DeviceMetadata) (*sessiondomain.UserSession, error)
	ExtendSession(ctx context.Context, sessionID string, extensionHours int) (*sessiondomain.UserSession, error)
	Get(ctx context.Context, sessionID string) (*sessiondomain.UserSession, error)
	TerminateSession(ctx context.Context, sessionID string, reason sessiondomain.ExpiryReason) (bool, error)
	TerminateAllForUser(ctx context.Context, userID string) (int, error)
}

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// LoginResult is what a successful Login hands back.
type LoginResult struct {
	User             *userdomain.User
	Session          *sessiondomain.UserSession
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// AccessIdentity is the caller behind a valid access token.
type AccessIdentity struct {
	User      *userdomain.User
	SessionID string
	ExpiresAt time.Time
}

// AuthService implements the exposed auth operations.
type AuthService struct {
	credentials *CredentialValidator
	ledger      TokenLedger
	sessions    SessionTracker
	tokens      *security.TokenProvider
	users       UserByID
	policies    engine.Resolver
	tx          db.TxRunner
	events      telemetry.Recorder
	clock       clock.Clock
	clientIP    IPExtractor
}

// Option configures an AuthService.
type Option func(*AuthService)

// WithClock sets the service clock.
func WithClock(c clock.Clock) Option { return func(s *AuthService) { s.clock = c } }

// WithEvents sets the security event recorder.
func WithEvents(r telemetry.Recorder) Option { return func(s *AuthService) { s.events = r } }

// WithIPExtractor sets how the client IP is read from request contexts.
func WithIPExtractor(f IPExtractor) Option { return func(s *AuthService) { s.clientIP = f } }

// WithPolicies sets the expiry policy resolver used for remember-me extension.
func WithPolicies(r engine.Resolver) Option { return func(s *AuthService) { s.policies = r } }

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(
	credentials *CredentialValidator,
	ledger TokenLedger,
	sessions SessionTracker,
	tokens *security.TokenProvider,
	users UserByID,
	tx db.TxRunner,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		credentials: credentials,
		ledger:      ledger,
		sessions:    sessions,
		tokens:      tokens,
		users:       users,
		tx:          tx,
		policies:    engine.StaticResolver{},
		clock:       clock.New(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Login authenticates, then issues a refresh token, opens a session on it and mints an
// access token bound to the session. Token and session are created in one unit. When
// meta.RememberMe is set and the role's policy allows it, the session is extended by the
// remember-me window.
func (s *AuthService) Login(ctx context.Context, identifier, secret string, meta sessiondomain.DeviceMetadata) (*LoginResult, error) {
	if meta.IP == "" {
		meta.IP = s.ip(ctx)
	}
	u, err := s.credentials.Authenticate(ctx, identifier, secret, meta.IP)
	if err != nil {
		return nil, err
	}
	var out *LoginResult
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		iss, err := s.ledger.Issue(ctx, u.ID)
		if err != nil {
			return err
		}
		sess, err := s.sessions.CreateSession(ctx, u.ID, iss.Record.ID, meta)
		if err != nil {
			return err
		}
		refreshExp := iss.Record.ExpiresAt
		if meta.RememberMe {
			ext := s.policies.Resolve(ctx, string(u.Role), true).RememberMeExtension()
			if hours := int(ext / time.Hour); hours > 0 {
				if sess, err = s.sessions.ExtendSession(ctx, sess.ID, hours); err != nil {
					return err
				}
				if at := s.clock.Now().UTC().Add(ext); at.After(refreshExp) {
					refreshExp = at
				}
			}
		}
		access, accessExp, err := s.tokens.IssueAccess(security.Subject{
			UserID:    u.ID,
			Email:     u.Email,
			Username:  u.Username,
			Role:      string(u.Role),
			SessionID: sess.ID,
		}, s.clock.Now())
		if err != nil {
			return fmt.Errorf("login: issue access token: %w", err)
		}
		out = &LoginResult{
			User:             u,
			Session:          sess,
			AccessToken:      access,
			AccessExpiresAt:  accessExp,
			RefreshToken:     iss.Token,
			RefreshExpiresAt: refreshExp,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Refresh rotates refreshToken into a new access and refresh token pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*rtservice.Rotation, error) {
	if refreshToken == "" {
		return nil, autherr.ErrInvalidToken
	}
	return s.ledger.Rotate(ctx, refreshToken, s.ip(ctx))
}

// Logout ends sessionID for userID. A session that no longer exists or has already ended
// is not an error; a session of another user is reported as autherr.ErrNotFound.
func (s *AuthService) Logout(ctx context.Context, userID, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, autherr.ErrNotFound) {
			return nil
		}
		return err
	}
	if sess.UserID != userID {
		return autherr.ErrNotFound
	}
	_, err = s.sessions.TerminateSession(ctx, sessionID, sessiondomain.ReasonLogout)
	if errors.Is(err, autherr.ErrNotFound) {
		return nil
	}
	return err
}

// LogoutAll ends every active session of userID and returns the number of devices logged out.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) (int, error) {
	return s.sessions.TerminateAllForUser(ctx, userID)
}

// ValidateAccessToken checks an access token and returns the caller. It does not consult
// sessions: an access token stays valid until its own expiry even after rotation or
// logout. A token for a missing, banned or inactive user is autherr.ErrInvalidToken.
func (s *AuthService) ValidateAccessToken(ctx context.Context, accessToken string) (*AccessIdentity, error) {
	subject := telemetrydomain.Subject{IP: s.ip(ctx)}
	claims, err := s.tokens.ValidateAccess(accessToken, s.clock.Now())
	if err != nil {
		s.record(ctx, subject, autherr.KindOf(err).String())
		return nil, err
	}
	subject.UserID, subject.SessionID = claims.Subject, claims.SessionID
	u, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("validate access token: find user: %w", err)
	}
	switch {
	case u == nil:
		s.record(ctx, subject, "user_not_found")
		return nil, autherr.ErrInvalidToken
	case u.IsBanned:
		s.record(ctx, subject, "user_banned")
		return nil, autherr.ErrInvalidToken
	case !u.IsActive:
		s.record(ctx, subject, "user_inactive")
		return nil, autherr.ErrInvalidToken
	}
	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return &AccessIdentity{User: u, SessionID: claims.SessionID, ExpiresAt: exp}, nil
}

func (s *AuthService) record(ctx context.Context, subject telemetrydomain.Subject, reason string) {
	if s.events == nil {
		return
	}
	s.events.Record(ctx, telemetrydomain.EventTokenValidationFailure, subject,
		map[string]string{"reason": reason, "token_type": "access"})
}

func (s *AuthService) ip(ctx context.Context) string {
	if s.clientIP == nil {
		return ""
	}
	return s.clientIP(ctx)
}
