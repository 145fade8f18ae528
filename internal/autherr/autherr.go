// Package autherr defines the authentication error taxonomy returned by the credential,
// token, and session services. Infrastructure failures are never *Error values; they
// propagate as ordinary wrapped errors so callers can tell "could not check" from "invalid".
package autherr

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an authentication failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidCredentials
	KindLockedOut
	KindBanned
	KindInactive
	KindInvalidToken
	KindExpired
	KindWrongTokenType
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindLockedOut:
		return "locked_out"
	case KindBanned:
		return "banned"
	case KindInactive:
		return "inactive"
	case KindInvalidToken:
		return "invalid_token"
	case KindExpired:
		return "expired"
	case KindWrongTokenType:
		return "wrong_token_type"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is a user-facing authentication failure.
type Error struct {
	Kind Kind
	// RetryAfter is set for KindLockedOut: time remaining until the lockout window elapses.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidCredentials:
		return "invalid credentials"
	case KindLockedOut:
		if e.RetryAfter > 0 {
			return fmt.Sprintf("account temporarily locked; retry after %s", e.RetryAfter.Round(time.Second))
		}
		return "account temporarily locked"
	case KindBanned:
		return "account banned"
	case KindInactive:
		return "account inactive"
	case KindInvalidToken:
		return "invalid token"
	case KindExpired:
		return "token expired"
	case KindWrongTokenType:
		return "wrong token type"
	case KindNotFound:
		return "not found"
	default:
		return "authentication failed"
	}
}

// Is reports whether target is an *Error of the same kind, so errors.Is(err, ErrLockedOut)
// matches a LockedOut error regardless of RetryAfter.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Retryable reports whether the same request may succeed later without change.
// Only LockedOut is retryable (after the lockout window).
func (e *Error) Retryable() bool {
	return e.Kind == KindLockedOut
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrLockedOut          = &Error{Kind: KindLockedOut}
	ErrBanned             = &Error{Kind: KindBanned}
	ErrInactive           = &Error{Kind: KindInactive}
	ErrInvalidToken       = &Error{Kind: KindInvalidToken}
	ErrExpired            = &Error{Kind: KindExpired}
	ErrWrongTokenType     = &Error{Kind: KindWrongTokenType}
	ErrNotFound           = &Error{Kind: KindNotFound}
)

// LockedOut returns a LockedOut error carrying the remaining lockout duration.
func LockedOut(retryAfter time.Duration) *Error {
	if retryAfter < 0 {
		retryAfter = 0
	}
	return &Error{Kind: KindLockedOut, RetryAfter: retryAfter}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown when err is
// nil or an infrastructure failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsAuth reports whether err belongs to the authentication taxonomy.
func IsAuth(err error) bool {
	return KindOf(err) != KindUnknown
}
