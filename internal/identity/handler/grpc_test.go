package handler

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	authv1 "social-tippster/backend/api/auth/v1"
	"social-tippster/backend/internal/autherr"
	identityservice "social-tippster/backend/internal/identity/service"
	rtservice "social-tippster/backend/internal/refreshtoken/service"
	sessiondomain "social-tippster/backend/internal/session/domain"
	userdomain "social-tippster/backend/internal/user/domain"
)

var testNow = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

type fakeAuth struct {
	loginMeta sessiondomain.DeviceMetadata
	loginErr  error
	refresh   error
	validate  error
}

func (f *fakeAuth) Login(_ context.Context, identifier, secret string, meta sessiondomain.DeviceMetadata) (*identityservice.LoginResult, error) {
	f.loginMeta = meta
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	if identifier != "alice@example.com" || secret != "secret" {
		return nil, autherr.ErrInvalidCredentials
	}
	return &identityservice.LoginResult{
		User:             &userdomain.User{ID: "u1", Email: identifier, Username: "alice", Role: userdomain.RoleUser},
		Session:          &sessiondomain.UserSession{ID: "s1", UserID: "u1", SessionStart: testNow, LastActivity: testNow, IPAddress: meta.IP, UserAgent: meta.UserAgent, RememberMe: meta.RememberMe},
		AccessToken:      "access-1",
		AccessExpiresAt:  testNow.Add(15 * time.Minute),
		RefreshToken:     "refresh-1",
		RefreshExpiresAt: testNow.Add(72 * time.Hour),
	}, nil
}

func (f *fakeAuth) Refresh(_ context.Context, token string) (*rtservice.Rotation, error) {
	if f.refresh != nil {
		return nil, f.refresh
	}
	return &rtservice.Rotation{
		UserID:           "u1",
		SessionID:        "s1",
		AccessToken:      "access-2",
		AccessExpiresAt:  testNow.Add(15 * time.Minute),
		RefreshToken:     "refresh-2",
		RefreshExpiresAt: testNow.Add(72 * time.Hour),
		RecordID:         "r2",
	}, nil
}

func (f *fakeAuth) ValidateAccessToken(_ context.Context, token string) (*identityservice.AccessIdentity, error) {
	if f.validate != nil {
		return nil, f.validate
	}
	return &identityservice.AccessIdentity{
		User:      &userdomain.User{ID: "u1", Email: "alice@example.com", Username: "alice", Role: userdomain.RoleUser},
		SessionID: "s1",
		ExpiresAt: testNow.Add(15 * time.Minute),
	}, nil
}

func dial(t *testing.T, srv authv1.AuthServiceServer) authv1.AuthServiceClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer()
	authv1.RegisterAuthServiceServer(gs, srv)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return authv1.NewAuthServiceClient(conn)
}

func TestNilAuthService_Unimplemented(t *testing.T) {
	srv := NewAuthServer(nil)
	ctx := context.Background()
	if _, err := srv.Login(ctx, &authv1.LoginRequest{Email: "a", Password: "b"}); status.Code(err) != codes.Unimplemented {
		t.Errorf("Login code = %v", status.Code(err))
	}
	if _, err := srv.Refresh(ctx, &authv1.RefreshRequest{RefreshToken: "x"}); status.Code(err) != codes.Unimplemented {
		t.Errorf("Refresh code = %v", status.Code(err))
	}
	if _, err := srv.ValidateToken(ctx, &authv1.ValidateTokenRequest{AccessToken: "x"}); status.Code(err) != codes.Unimplemented {
		t.Errorf("ValidateToken code = %v", status.Code(err))
	}
}

func TestLogin_RoundTrip(t *testing.T) {
	fa := &fakeAuth{}
	client := dial(t, NewAuthServer(fa))
	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-forwarded-for", "198.51.100.4")

	resp, err := client.Login(ctx, &authv1.LoginRequest{Email: "alice@example.com", Password: "secret", RememberMe: true, DeviceFingerprint: "fp"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.AccessToken != "access-1" || resp.RefreshToken != "refresh-1" {
		t.Errorf("tokens = %q, %q", resp.AccessToken, resp.RefreshToken)
	}
	if resp.User == nil || resp.User.Id != "u1" || resp.User.Role != "user" {
		t.Errorf("user = %+v", resp.User)
	}
	if resp.Session == nil || resp.Session.Id != "s1" || resp.Session.IpAddress != "198.51.100.4" {
		t.Errorf("session = %+v", resp.Session)
	}
	if resp.AccessExpiresAt != testNow.Add(15*time.Minute).Unix() {
		t.Errorf("access_expires_at = %d", resp.AccessExpiresAt)
	}
	if !fa.loginMeta.RememberMe || fa.loginMeta.Fingerprint != "fp" || fa.loginMeta.UserAgent == "" {
		t.Errorf("meta = %+v", fa.loginMeta)
	}
}

func TestLogin_ErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		req  *authv1.LoginRequest
		code codes.Code
	}{
		{"missing fields", nil, &authv1.LoginRequest{Email: "alice@example.com"}, codes.InvalidArgument},
		{"bad credentials", nil, &authv1.LoginRequest{Email: "alice@example.com", Password: "nope"}, codes.Unauthenticated},
		{"locked out", autherr.LockedOut(time.Minute), &authv1.LoginRequest{Email: "a", Password: "b"}, codes.ResourceExhausted},
		{"banned", autherr.ErrBanned, &authv1.LoginRequest{Email: "a", Password: "b"}, codes.PermissionDenied},
		{"inactive", autherr.ErrInactive, &authv1.LoginRequest{Email: "a", Password: "b"}, codes.PermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := dial(t, NewAuthServer(&fakeAuth{loginErr: tt.err}))
			_, err := client.Login(context.Background(), tt.req)
			if got := status.Code(err); got != tt.code {
				t.Errorf("code = %v, want %v (%v)", got, tt.code, err)
			}
		})
	}
}

func TestLogin_LockedOutSetsRetryAfter(t *testing.T) {
	client := dial(t, NewAuthServer(&fakeAuth{loginErr: autherr.LockedOut(90 * time.Second)}))
	var trailer metadata.MD
	_, err := client.Login(context.Background(), &authv1.LoginRequest{Email: "a", Password: "b"}, grpc.Trailer(&trailer))
	if status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("code = %v", status.Code(err))
	}
	if got := trailer.Get("retry-after"); len(got) != 1 || got[0] != "90" {
		t.Errorf("retry-after = %v, want [90]", got)
	}
}

func TestRefresh(t *testing.T) {
	client := dial(t, NewAuthServer(&fakeAuth{}))
	resp, err := client.Refresh(context.Background(), &authv1.RefreshRequest{RefreshToken: "refresh-1"})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if resp.AccessToken != "access-2" || resp.RefreshToken != "refresh-2" || resp.SessionId != "s1" {
		t.Errorf("resp = %+v", resp)
	}
	if _, err := client.Refresh(context.Background(), &authv1.RefreshRequest{}); status.Code(err) != codes.InvalidArgument {
		t.Errorf("empty token code = %v", status.Code(err))
	}

	client = dial(t, NewAuthServer(&fakeAuth{refresh: autherr.ErrExpired}))
	if _, err := client.Refresh(context.Background(), &authv1.RefreshRequest{RefreshToken: "old"}); status.Code(err) != codes.Unauthenticated {
		t.Errorf("expired code = %v", status.Code(err))
	}
}

func TestValidateToken(t *testing.T) {
	client := dial(t, NewAuthServer(&fakeAuth{}))
	resp, err := client.ValidateToken(context.Background(), &authv1.ValidateTokenRequest{AccessToken: "access-1"})
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if resp.User.Id != "u1" || resp.SessionId != "s1" {
		t.Errorf("resp = %+v", resp)
	}

	client = dial(t, NewAuthServer(&fakeAuth{validate: autherr.ErrWrongTokenType}))
	_, err = client.ValidateToken(context.Background(), &authv1.ValidateTokenRequest{AccessToken: "refresh-1"})
	if st, _ := status.FromError(err); st.Code() != codes.Unauthenticated || st.Message() != "wrong token type" {
		t.Errorf("wrong type = %v", st)
	}
}
