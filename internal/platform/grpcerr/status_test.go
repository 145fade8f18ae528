package grpcerr

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"social-tippster/backend/internal/autherr"
)

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{autherr.ErrInvalidCredentials, codes.Unauthenticated},
		{autherr.ErrInvalidToken, codes.Unauthenticated},
		{autherr.ErrExpired, codes.Unauthenticated},
		{autherr.ErrWrongTokenType, codes.Unauthenticated},
		{autherr.LockedOut(time.Minute), codes.ResourceExhausted},
		{autherr.ErrBanned, codes.PermissionDenied},
		{autherr.ErrInactive, codes.PermissionDenied},
		{autherr.ErrNotFound, codes.NotFound},
		{fmt.Errorf("rotate: %w", autherr.ErrExpired), codes.Unauthenticated},
		{errors.New("connection refused"), codes.Internal},
	}
	for _, tt := range tests {
		if got := Code(tt.err); got != tt.want {
			t.Errorf("Code(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	if err := Status(ctx, "op", nil); err != nil {
		t.Errorf("nil error: %v", err)
	}

	st, _ := status.FromError(Status(ctx, "op", errors.New("pq: password authentication failed")))
	if st.Code() != codes.Internal || st.Message() != "internal error" {
		t.Errorf("infrastructure error leaked: %v", st)
	}

	st, _ = status.FromError(Status(ctx, "op", fmt.Errorf("login: %w", autherr.ErrInvalidCredentials)))
	if st.Code() != codes.Unauthenticated || st.Message() != "invalid credentials" {
		t.Errorf("auth error = %v", st)
	}

	// Outside a server call the retry-after trailer is skipped without failing.
	st, _ = status.FromError(Status(ctx, "op", autherr.LockedOut(90*time.Second)))
	if st.Code() != codes.ResourceExhausted {
		t.Errorf("locked out = %v", st)
	}
}
