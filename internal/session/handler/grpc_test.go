package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	sessionv1 "social-tippster/backend/api/session/v1"
	"social-tippster/backend/internal/db"
	identityservice "social-tippster/backend/internal/identity/service"
	"social-tippster/backend/internal/lockout"
	rtrepo "social-tippster/backend/internal/refreshtoken/repository"
	rtservice "social-tippster/backend/internal/refreshtoken/service"
	"social-tippster/backend/internal/security"
	"social-tippster/backend/internal/server/interceptors"
	sessiondomain "social-tippster/backend/internal/session/domain"
	sessionrepo "social-tippster/backend/internal/session/repository"
	"social-tippster/backend/internal/session/service"
	userdomain "social-tippster/backend/internal/user/domain"
	userrepo "social-tippster/backend/internal/user/repository"
)

type plainHasher struct{}

func (plainHasher) Compare(hash string, pw []byte) error {
	if hash != "hash:"+string(pw) {
		return errors.New("mismatch")
	}
	return nil
}

func (plainHasher) CompareDummy([]byte) {}

type handlerFixture struct {
	srv   *Server
	auth  *identityservice.AuthService
	clock *clock.Mock
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	users := userrepo.NewMemoryRepository()
	for _, u := range []*userdomain.User{
		{ID: "u1", Email: "alice@example.com", Username: "alice", PasswordHash: "hash:secret", Role: userdomain.RoleUser, IsActive: true},
		{ID: "u2", Email: "bob@example.com", Username: "bob", PasswordHash: "hash:secret", Role: userdomain.RoleUser, IsActive: true},
		{ID: "a1", Email: "root@example.com", Username: "root", PasswordHash: "hash:secret", Role: userdomain.RoleAdmin, IsActive: true},
	} {
		if err := users.Create(context.Background(), u); err != nil {
			t.Fatal(err)
		}
	}
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC))
	provider := security.NewTestTokenProvider()
	tx := db.NewSerialTxManager()
	tokens := rtrepo.NewMemoryRepository()
	sessions := sessionrepo.NewMemoryRepository(tokens)
	ledger := rtservice.NewLedger(tokens, users, sessions, provider, tx, nil, mock)
	tracker := service.NewTracker(sessions, ledger, users, nil, tx, service.WithClock(mock))
	creds := identityservice.NewCredentialValidator(users, plainHasher{}, lockout.NewMemoryCounter(time.Hour), nil, mock, 5, 15*time.Minute)
	auth := identityservice.NewAuthService(creds, ledger, tracker, provider, users, tx, identityservice.WithClock(mock))
	return &handlerFixture{srv: NewServer(tracker, auth), auth: auth, clock: mock}
}

// login returns a request context for the new session's owner, as the auth interceptor would set it.
func (f *handlerFixture) login(t *testing.T, email string) (context.Context, *identityservice.LoginResult) {
	t.Helper()
	res, err := f.auth.Login(context.Background(), email, "secret", sessiondomain.DeviceMetadata{IP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Login(%s): %v", email, err)
	}
	ctx := interceptors.WithIdentity(context.Background(), res.User.ID, string(res.User.Role), res.Session.ID)
	return ctx, res
}

func TestNilDependencies_Unimplemented(t *testing.T) {
	srv := NewServer(nil, nil)
	ctx := context.Background()
	if _, err := srv.Heartbeat(ctx, &sessionv1.HeartbeatRequest{}); status.Code(err) != codes.Unimplemented {
		t.Errorf("Heartbeat code = %v", status.Code(err))
	}
	if _, err := srv.RevokeUserSessions(ctx, &sessionv1.RevokeUserSessionsRequest{UserId: "u1"}); status.Code(err) != codes.Unimplemented {
		t.Errorf("RevokeUserSessions code = %v", status.Code(err))
	}
}

func TestHeartbeat(t *testing.T) {
	f := newHandlerFixture(t)
	ctx, res := f.login(t, "alice@example.com")

	f.clock.Add(10 * time.Minute)
	resp, err := f.srv.Heartbeat(ctx, &sessionv1.HeartbeatRequest{})
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if resp.SessionId != res.Session.ID || !resp.IsActive || resp.IsIdle {
		t.Errorf("resp = %+v", resp)
	}
	if resp.IdleRemainingSeconds != int64((30 * time.Minute).Seconds()) {
		t.Errorf("idle remaining = %d", resp.IdleRemainingSeconds)
	}

	f.clock.Add(31 * time.Minute)
	resp, err = f.srv.Heartbeat(ctx, &sessionv1.HeartbeatRequest{SessionId: res.Session.ID})
	if err != nil {
		t.Fatalf("Heartbeat after idle: %v", err)
	}
	if resp.IsActive || resp.ExpiryReason != string(sessiondomain.ReasonIdleTimeout) {
		t.Errorf("idle resp = %+v", resp)
	}
}

func TestHeartbeat_Errors(t *testing.T) {
	f := newHandlerFixture(t)
	_, res := f.login(t, "alice@example.com")
	bobCtx, _ := f.login(t, "bob@example.com")

	if _, err := f.srv.Heartbeat(context.Background(), &sessionv1.HeartbeatRequest{}); status.Code(err) != codes.Unauthenticated {
		t.Errorf("anonymous code = %v", status.Code(err))
	}
	if _, err := f.srv.Heartbeat(bobCtx, &sessionv1.HeartbeatRequest{SessionId: res.Session.ID}); status.Code(err) != codes.NotFound {
		t.Errorf("foreign session code = %v", status.Code(err))
	}
	if _, err := f.srv.Heartbeat(bobCtx, &sessionv1.HeartbeatRequest{SessionId: "missing"}); status.Code(err) != codes.NotFound {
		t.Errorf("missing session code = %v", status.Code(err))
	}
	noSID := interceptors.WithIdentity(context.Background(), "u2", "user", "")
	if _, err := f.srv.Heartbeat(noSID, &sessionv1.HeartbeatRequest{}); status.Code(err) != codes.InvalidArgument {
		t.Errorf("no session code = %v", status.Code(err))
	}
}

func TestExtend(t *testing.T) {
	f := newHandlerFixture(t)
	ctx, _ := f.login(t, "alice@example.com")

	for _, h := range []int32{0, -1, int32(service.MaxExtensionHours) + 1} {
		if _, err := f.srv.Extend(ctx, &sessionv1.ExtendRequest{ExtensionHours: h}); status.Code(err) != codes.InvalidArgument {
			t.Errorf("hours %d: code = %v", h, status.Code(err))
		}
	}
	resp, err := f.srv.Extend(ctx, &sessionv1.ExtendRequest{ExtensionHours: 24})
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if resp.Session.ExtensionCount != 1 || resp.Session.ExtendedAt == 0 {
		t.Errorf("session = %+v", resp.Session)
	}
}

func TestLogoutAndList(t *testing.T) {
	f := newHandlerFixture(t)
	ctx, res := f.login(t, "alice@example.com")
	_, _ = f.login(t, "alice@example.com")

	list, err := f.srv.ListSessions(ctx, &sessionv1.ListSessionsRequest{})
	if err != nil || len(list.Sessions) != 2 {
		t.Fatalf("ListSessions = %v, %v", list, err)
	}

	if _, err := f.srv.Logout(ctx, &sessionv1.LogoutRequest{}); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := f.srv.Logout(ctx, &sessionv1.LogoutRequest{SessionId: res.Session.ID}); err != nil {
		t.Errorf("repeated Logout: %v", err)
	}
	list, err = f.srv.ListSessions(ctx, &sessionv1.ListSessionsRequest{})
	if err != nil || len(list.Sessions) != 1 {
		t.Fatalf("after logout: %v, %v", list, err)
	}
	if list.Sessions[0].Id == res.Session.ID {
		t.Error("logged out session still listed")
	}
	if _, err := f.auth.Refresh(context.Background(), res.RefreshToken); err == nil {
		t.Error("refresh token survived logout")
	}

	all, err := f.srv.LogoutAll(ctx, &sessionv1.LogoutAllRequest{})
	if err != nil || all.DevicesLoggedOut != 1 {
		t.Errorf("LogoutAll = %+v, %v", all, err)
	}
}

func TestLogout_ForeignSession(t *testing.T) {
	f := newHandlerFixture(t)
	_, res := f.login(t, "alice@example.com")
	bobCtx, _ := f.login(t, "bob@example.com")
	if _, err := f.srv.Logout(bobCtx, &sessionv1.LogoutRequest{SessionId: res.Session.ID}); status.Code(err) != codes.NotFound {
		t.Errorf("code = %v, want NotFound", status.Code(err))
	}
}

func TestRevokeUserSessions(t *testing.T) {
	f := newHandlerFixture(t)
	aliceCtx, _ := f.login(t, "alice@example.com")
	_, _ = f.login(t, "alice@example.com")
	adminCtx, _ := f.login(t, "root@example.com")

	if _, err := f.srv.RevokeUserSessions(aliceCtx, &sessionv1.RevokeUserSessionsRequest{UserId: "u2"}); status.Code(err) != codes.PermissionDenied {
		t.Errorf("non-admin code = %v", status.Code(err))
	}
	if _, err := f.srv.RevokeUserSessions(adminCtx, &sessionv1.RevokeUserSessionsRequest{}); status.Code(err) != codes.InvalidArgument {
		t.Errorf("missing user code = %v", status.Code(err))
	}
	resp, err := f.srv.RevokeUserSessions(adminCtx, &sessionv1.RevokeUserSessionsRequest{UserId: "u1"})
	if err != nil || resp.SessionsRevoked != 2 {
		t.Fatalf("RevokeUserSessions = %+v, %v", resp, err)
	}
	list, err := f.srv.ListSessions(aliceCtx, &sessionv1.ListSessionsRequest{})
	if err != nil || len(list.Sessions) != 0 {
		t.Errorf("alice sessions = %v, %v", list, err)
	}
}
