package autherr

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestIs_MatchesOnKind(t *testing.T) {
	err := LockedOut(3 * time.Minute)
	if !errors.Is(err, ErrLockedOut) {
		t.Fatal("LockedOut(d) should match ErrLockedOut")
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("LockedOut should not match ErrInvalidCredentials")
	}
	wrapped := fmt.Errorf("login: %w", ErrBanned)
	if !errors.Is(wrapped, ErrBanned) {
		t.Fatal("wrapped ErrBanned should match")
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"infra", errors.New("connection reset"), KindUnknown},
		{"expired", ErrExpired, KindExpired},
		{"wrapped not found", fmt.Errorf("terminate: %w", ErrNotFound), KindNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Errorf("KindOf = %v, want %v", got, tc.want)
			}
		})
	}
	if IsAuth(errors.New("db down")) {
		t.Error("infrastructure error must not be classified as auth")
	}
}

func TestRetryable(t *testing.T) {
	for _, e := range []*Error{ErrInvalidCredentials, ErrBanned, ErrInactive, ErrInvalidToken, ErrExpired, ErrWrongTokenType, ErrNotFound} {
		if e.Retryable() {
			t.Errorf("%v should not be retryable", e.Kind)
		}
	}
	if !LockedOut(time.Minute).Retryable() {
		t.Error("LockedOut should be retryable")
	}
}

func TestLockedOut_NegativeClamped(t *testing.T) {
	if got := LockedOut(-time.Second).RetryAfter; got != 0 {
		t.Errorf("RetryAfter = %v, want 0", got)
	}
	if ErrInvalidCredentials.Error() != "invalid credentials" {
		t.Errorf("message = %q", ErrInvalidCredentials.Error())
	}
}
