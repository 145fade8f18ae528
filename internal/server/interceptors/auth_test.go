package interceptors

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"social-tippster/backend/internal/autherr"
	identityservice "social-tippster/backend/internal/identity/service"
	userdomain "social-tippster/backend/internal/user/domain"
)

type fakeValidator struct {
	tokens map[string]*identityservice.AccessIdentity
	err    error
	calls  int
}

func (f *fakeValidator) ValidateAccessToken(_ context.Context, token string) (*identityservice.AccessIdentity, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	id, ok := f.tokens[token]
	if !ok {
		return nil, autherr.ErrInvalidToken
	}
	return id, nil
}

func newFakeValidator() *fakeValidator {
	return &fakeValidator{tokens: map[string]*identityservice.AccessIdentity{
		"good": {User: &userdomain.User{ID: "user-1", Role: userdomain.RoleAdmin}, SessionID: "session-1"},
	}}
}

func withBearer(v string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", v))
}

func echoIdentity(ctx context.Context, _ interface{}) (interface{}, error) {
	uid, _ := GetUserID(ctx)
	role, _ := GetRole(ctx)
	sid, _ := GetSessionID(ctx)
	return uid + "|" + role + "|" + sid, nil
}

func TestAuthUnary_PublicMethod(t *testing.T) {
	v := newFakeValidator()
	interceptor := AuthUnary(v, map[string]bool{"/test.Service/Public": true})
	info := &grpc.UnaryServerInfo{FullMethod: "/test.Service/Public"}

	resp, err := interceptor(context.Background(), "req", info, echoIdentity)
	if err != nil || resp != "||" {
		t.Errorf("no token: resp = %v, err = %v", resp, err)
	}
	// A bad token on a public method is ignored.
	resp, err = interceptor(withBearer("Bearer nope"), "req", info, echoIdentity)
	if err != nil || resp != "||" {
		t.Errorf("bad token: resp = %v, err = %v", resp, err)
	}
	// A good token on a public method still sets identity.
	resp, err = interceptor(withBearer("Bearer good"), "req", info, echoIdentity)
	if err != nil || resp != "user-1|admin|session-1" {
		t.Errorf("good token: resp = %v, err = %v", resp, err)
	}
}

func TestAuthUnary_ProtectedMethod(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: "/test.Service/Protected"}
	tests := []struct {
		name string
		ctx  context.Context
		err  error
		code codes.Code
		want string
	}{
		{name: "no metadata", ctx: context.Background(), code: codes.Unauthenticated},
		{name: "no bearer prefix", ctx: withBearer("good"), code: codes.Unauthenticated},
		{name: "wrong scheme", ctx: withBearer("Basic good"), code: codes.Unauthenticated},
		{name: "unknown token", ctx: withBearer("Bearer other"), code: codes.Unauthenticated},
		{name: "expired", ctx: withBearer("Bearer good"), err: autherr.ErrExpired, code: codes.Unauthenticated},
		{name: "infrastructure", ctx: withBearer("Bearer good"), err: errors.New("db down"), code: codes.Internal},
		{name: "valid", ctx: withBearer("bearer   good "), code: codes.OK, want: "user-1|admin|session-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newFakeValidator()
			v.err = tt.err
			resp, err := AuthUnary(v, nil)(tt.ctx, "req", info, echoIdentity)
			if got := status.Code(err); got != tt.code {
				t.Fatalf("code = %v, want %v (err %v)", got, tt.code, err)
			}
			if tt.code == codes.OK && resp != tt.want {
				t.Errorf("resp = %v, want %q", resp, tt.want)
			}
		})
	}
}

func TestAuthUnary_ExpiredMessage(t *testing.T) {
	v := newFakeValidator()
	v.err = autherr.ErrExpired
	_, err := AuthUnary(v, nil)(withBearer("Bearer good"), "req", &grpc.UnaryServerInfo{FullMethod: "/x/Y"}, echoIdentity)
	if st, _ := status.FromError(err); st.Message() != "access token expired" {
		t.Errorf("message = %q", st.Message())
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Bearer abc", "abc"},
		{"BEARER abc", "abc"},
		{"  Bearer   abc  ", "abc"},
		{"Bearer", ""},
		{"Bearer    ", ""},
		{"Token abc", ""},
	}
	for _, tt := range tests {
		got, ok := bearerToken(withBearer(tt.in))
		if got != tt.want || ok != (tt.want != "") {
			t.Errorf("bearerToken(%q) = %q, %v; want %q", tt.in, got, ok, tt.want)
		}
	}
}
