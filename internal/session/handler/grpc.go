package handler

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	sessionv1 "social-tippster/backend/api/session/v1"
	"social-tippster/backend/internal/autherr"
	"social-tippster/backend/internal/platform/grpcerr"
	"social-tippster/backend/internal/platform/rbac"
	"social-tippster/backend/internal/server/interceptors"
	"social-tippster/backend/internal/session/domain"
	"social-tippster/backend/internal/session/service"
)

// Tracker is the session tracker as the handler uses it.
type Tracker interface {
	Get(ctx context.Context, sessionID string) (*domain.UserSession, error)
	ListActive(ctx context.Context, userID string) ([]*domain.UserSession, error)
	RecordActivity(ctx context.Context, sessionID string) (*domain.SessionActivity, error)
	ExtendSession(ctx context.Context, sessionID string, extensionHours int) (*domain.UserSession, error)
	RevokeUserSessions(ctx context.Context, adminID, userID string) (int, error)
}

// Logouter ends sessions on behalf of their owner.
type Logouter interface {
	Logout(ctx context.Context, userID, sessionID string) error
	LogoutAll(ctx context.Context, userID string) (int, error)
}

// Server implements tippster.session.v1.SessionService. Every RPC acts on the caller from the
// access token; session ids default to the token's session.
type Server struct {
	sessionv1.UnimplementedSessionServiceServer
	tracker Tracker
	auth    Logouter
}

// NewServer returns a new Session gRPC server. If tracker or auth is nil, all RPCs return Unimplemented.
func NewServer(tracker Tracker, auth Logouter) *Server {
	return &Server{tracker: tracker, auth: auth}
}

func (s *Server) ready() bool { return s.tracker != nil && s.auth != nil }

// Heartbeat records activity on the caller's session and reports its remaining windows.
// A session that timed out is ended by the call and reported inactive.
func (s *Server) Heartbeat(ctx context.Context, req *sessionv1.HeartbeatRequest) (*sessionv1.HeartbeatResponse, error) {
	if !s.ready() {
		return s.UnimplementedSessionServiceServer.Heartbeat(ctx, req)
	}
	sessionID, err := s.ownedSession(ctx, req.GetSessionId())
	if err != nil {
		return nil, err
	}
	a, err := s.tracker.RecordActivity(ctx, sessionID)
	if err != nil {
		return nil, grpcerr.Status(ctx, "session: heartbeat", err)
	}
	return &sessionv1.HeartbeatResponse{
		SessionId:                a.SessionID,
		IsActive:                 a.IsActive,
		IsIdle:                   a.IsIdle,
		IdleRemainingSeconds:     int64(a.IdleRemaining / time.Second),
		AbsoluteRemainingSeconds: int64(a.AbsoluteRemaining / time.Second),
		ExpiryReason:             string(a.ExpiryReason),
		LastActivity:             a.LastActivity.Unix(),
		ActivityCount:            int64(a.ActivityCount),
	}, nil
}

// Extend pushes out the caller's session refresh window by extension_hours.
func (s *Server) Extend(ctx context.Context, req *sessionv1.ExtendRequest) (*sessionv1.ExtendResponse, error) {
	if !s.ready() {
		return s.UnimplementedSessionServiceServer.Extend(ctx, req)
	}
	hours := int(req.GetExtensionHours())
	if hours <= 0 || hours > service.MaxExtensionHours {
		return nil, status.Errorf(codes.InvalidArgument, "extension_hours must be between 1 and %d", service.MaxExtensionHours)
	}
	sessionID, err := s.ownedSession(ctx, req.GetSessionId())
	if err != nil {
		return nil, err
	}
	ses, err := s.tracker.ExtendSession(ctx, sessionID, hours)
	if err != nil {
		if errors.Is(err, service.ErrInvalidExtension) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, grpcerr.Status(ctx, "session: extend", err)
	}
	return &sessionv1.ExtendResponse{Session: sessionToProto(ses)}, nil
}

// Logout ends the caller's session. Ending a session that is already gone succeeds.
func (s *Server) Logout(ctx context.Context, req *sessionv1.LogoutRequest) (*sessionv1.LogoutResponse, error) {
	if !s.ready() {
		return s.UnimplementedSessionServiceServer.Logout(ctx, req)
	}
	userID, err := rbac.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	sessionID := req.GetSessionId()
	if sessionID == "" {
		sessionID, _ = interceptors.GetSessionID(ctx)
	}
	if err := s.auth.Logout(ctx, userID, sessionID); err != nil {
		return nil, grpcerr.Status(ctx, "session: logout", err)
	}
	return &sessionv1.LogoutResponse{}, nil
}

// LogoutAll ends every active session of the caller.
func (s *Server) LogoutAll(ctx context.Context, req *sessionv1.LogoutAllRequest) (*sessionv1.LogoutAllResponse, error) {
	if !s.ready() {
		return s.UnimplementedSessionServiceServer.LogoutAll(ctx, req)
	}
	userID, err := rbac.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.auth.LogoutAll(ctx, userID)
	if err != nil {
		return nil, grpcerr.Status(ctx, "session: logout all", err)
	}
	return &sessionv1.LogoutAllResponse{DevicesLoggedOut: int32(n)}, nil
}

// ListSessions returns the caller's active sessions, most recently used first.
func (s *Server) ListSessions(ctx context.Context, req *sessionv1.ListSessionsRequest) (*sessionv1.ListSessionsResponse, error) {
	if !s.ready() {
		return s.UnimplementedSessionServiceServer.ListSessions(ctx, req)
	}
	userID, err := rbac.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.tracker.ListActive(ctx, userID)
	if err != nil {
		return nil, grpcerr.Status(ctx, "session: list", err)
	}
	out := make([]*sessionv1.Session, 0, len(list))
	for _, ses := range list {
		out = append(out, sessionToProto(ses))
	}
	return &sessionv1.ListSessionsResponse{Sessions: out}, nil
}

// RevokeUserSessions ends every session of another user. Caller must be an admin.
func (s *Server) RevokeUserSessions(ctx context.Context, req *sessionv1.RevokeUserSessionsRequest) (*sessionv1.RevokeUserSessionsResponse, error) {
	if !s.ready() {
		return s.UnimplementedSessionServiceServer.RevokeUserSessions(ctx, req)
	}
	adminID, err := rbac.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if req.GetUserId() == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id required")
	}
	n, err := s.tracker.RevokeUserSessions(ctx, adminID, req.GetUserId())
	if err != nil {
		return nil, grpcerr.Status(ctx, "session: revoke user sessions", err)
	}
	return &sessionv1.RevokeUserSessionsResponse{SessionsRevoked: int32(n)}, nil
}

// ownedSession resolves the target session (request value or the token's sid) and checks the
// caller owns it. Sessions of other users are reported as not found.
func (s *Server) ownedSession(ctx context.Context, sessionID string) (string, error) {
	userID, err := rbac.RequireUser(ctx)
	if err != nil {
		return "", err
	}
	if sessionID == "" {
		sessionID, _ = interceptors.GetSessionID(ctx)
	}
	if sessionID == "" {
		return "", status.Error(codes.InvalidArgument, "session_id required")
	}
	ses, err := s.tracker.Get(ctx, sessionID)
	if err != nil {
		return "", grpcerr.Status(ctx, "session: get", err)
	}
	if ses.UserID != userID {
		return "", grpcerr.Status(ctx, "session: get", autherr.ErrNotFound)
	}
	return sessionID, nil
}

func sessionToProto(s *domain.UserSession) *sessionv1.Session {
	out := &sessionv1.Session{
		Id:             s.ID,
		UserId:         s.UserID,
		IsActive:       s.IsActive,
		SessionStart:   s.SessionStart.Unix(),
		LastActivity:   s.LastActivity.Unix(),
		ActivityCount:  int64(s.ActivityCount),
		ExtensionCount: int32(s.ExtensionCount),
		ExpiryReason:   string(s.ExpiryReason),
		RememberMe:     s.RememberMe,
		IpAddress:      s.IPAddress,
		UserAgent:      s.UserAgent,
	}
	if s.SessionEnd != nil {
		out.SessionEnd = s.SessionEnd.Unix()
	}
	if s.ExtendedAt != nil {
		out.ExtendedAt = s.ExtendedAt.Unix()
	}
	return out
}
