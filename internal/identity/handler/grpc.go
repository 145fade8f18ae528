package handler

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	authv1 "social-tippster/backend/api/auth/v1"
	identityservice "social-tippster/backend/internal/identity/service"
	"social-tippster/backend/internal/platform/grpcerr"
	rtservice "social-tippster/backend/internal/refreshtoken/service"
	"social-tippster/backend/internal/server/interceptors"
	sessiondomain "social-tippster/backend/internal/session/domain"
	userdomain "social-tippster/backend/internal/user/domain"
)

// AuthService is the identity service as the handler uses it.
type AuthService interface {
	Login(ctx context.Context, identifier, secret string, meta sessiondomain.DeviceMetadata) (*identityservice.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*rtservice.Rotation, error)
	ValidateAccessToken(ctx context.Context, accessToken string) (*identityservice.AccessIdentity, error)
}

// AuthServer implements tippster.auth.v1.AuthService: login, token refresh and access token validation.
type AuthServer struct {
	authv1.UnimplementedAuthServiceServer
	auth AuthService
}

// NewAuthServer returns a new Auth gRPC server. If auth is nil, all RPCs return Unimplemented.
func NewAuthServer(auth AuthService) *AuthServer {
	return &AuthServer{auth: auth}
}

// Login authenticates the user and opens a session. Client IP and user agent come from the call metadata.
func (s *AuthServer) Login(ctx context.Context, req *authv1.LoginRequest) (*authv1.LoginResponse, error) {
	if s.auth == nil {
		return s.UnimplementedAuthServiceServer.Login(ctx, req)
	}
	if req.GetEmail() == "" || req.GetPassword() == "" {
		return nil, status.Error(codes.InvalidArgument, "email and password are required")
	}
	res, err := s.auth.Login(ctx, req.GetEmail(), req.GetPassword(), sessiondomain.DeviceMetadata{
		IP:          interceptors.ClientIP(ctx),
		UserAgent:   interceptors.UserAgent(ctx),
		Fingerprint: req.GetDeviceFingerprint(),
		RememberMe:  req.GetRememberMe(),
	})
	if err != nil {
		return nil, grpcerr.Status(ctx, "auth: login", err)
	}
	return &authv1.LoginResponse{
		AccessToken:      res.AccessToken,
		AccessExpiresAt:  res.AccessExpiresAt.Unix(),
		RefreshToken:     res.RefreshToken,
		RefreshExpiresAt: res.RefreshExpiresAt.Unix(),
		User:             userToProto(res.User),
		Session: &authv1.Session{
			Id:           res.Session.ID,
			UserId:       res.Session.UserID,
			SessionStart: res.Session.SessionStart.Unix(),
			LastActivity: res.Session.LastActivity.Unix(),
			RememberMe:   res.Session.RememberMe,
			IpAddress:    res.Session.IPAddress,
			UserAgent:    res.Session.UserAgent,
		},
	}, nil
}

// Refresh rotates a refresh token into a new token pair.
func (s *AuthServer) Refresh(ctx context.Context, req *authv1.RefreshRequest) (*authv1.RefreshResponse, error) {
	if s.auth == nil {
		return s.UnimplementedAuthServiceServer.Refresh(ctx, req)
	}
	if req.GetRefreshToken() == "" {
		return nil, status.Error(codes.InvalidArgument, "refresh_token is required")
	}
	rot, err := s.auth.Refresh(ctx, req.GetRefreshToken())
	if err != nil {
		return nil, grpcerr.Status(ctx, "auth: refresh", err)
	}
	return &authv1.RefreshResponse{
		AccessToken:      rot.AccessToken,
		AccessExpiresAt:  rot.AccessExpiresAt.Unix(),
		RefreshToken:     rot.RefreshToken,
		RefreshExpiresAt: rot.RefreshExpiresAt.Unix(),
		SessionId:        rot.SessionID,
	}, nil
}

// ValidateToken returns the user behind an access token. Used by other services as the request gate.
func (s *AuthServer) ValidateToken(ctx context.Context, req *authv1.ValidateTokenRequest) (*authv1.ValidateTokenResponse, error) {
	if s.auth == nil {
		return s.UnimplementedAuthServiceServer.ValidateToken(ctx, req)
	}
	if req.GetAccessToken() == "" {
		return nil, status.Error(codes.InvalidArgument, "access_token is required")
	}
	id, err := s.auth.ValidateAccessToken(ctx, req.GetAccessToken())
	if err != nil {
		return nil, grpcerr.Status(ctx, "auth: validate token", err)
	}
	return &authv1.ValidateTokenResponse{
		User:      userToProto(id.User),
		SessionId: id.SessionID,
		ExpiresAt: id.ExpiresAt.Unix(),
	}, nil
}

func userToProto(u *userdomain.User) *authv1.User {
	if u == nil {
		return nil
	}
	return &authv1.User{Id: u.ID, Email: u.Email, Username: u.Username, Role: string(u.Role)}
}
