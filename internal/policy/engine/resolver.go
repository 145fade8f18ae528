// Package engine resolves session expiry policies from a role and remember-me flag.
package engine

import (
	"context"

	"social-tippster/backend/internal/policy/domain"
)

// Resolver maps (role, remember-me) to a SessionExpiryPolicy. It never fails: unknown
// roles and evaluation problems resolve to the standard-role policy.
type Resolver interface {
	Resolve(ctx context.Context, role string, rememberMe bool) domain.SessionExpiryPolicy
}

// roleTable is the built-in policy per role. Elevated roles get shorter windows and no remember-me.
var roleTable = map[string]domain.SessionExpiryPolicy{
	"user":      {IdleTimeoutMinutes: 30, AbsoluteTimeoutHours: 24, RememberMeDays: 7, SecurityLevel: domain.SecurityLevelStandard},
	"moderator": {IdleTimeoutMinutes: 20, AbsoluteTimeoutHours: 12, SecurityLevel: domain.SecurityLevelElevated},
	"admin":     {IdleTimeoutMinutes: 15, AbsoluteTimeoutHours: 8, SecurityLevel: domain.SecurityLevelHigh},
}

const fallbackRole = "user"

// ResolvePolicy is the built-in table lookup. remember_me widens the absolute window to
// the remember-me period, and only for standard-level roles.
func ResolvePolicy(role string, rememberMe bool) domain.SessionExpiryPolicy {
	p, ok := roleTable[role]
	if !ok {
		p = roleTable[fallbackRole]
	}
	if rememberMe && p.SecurityLevel == domain.SecurityLevelStandard && p.RememberMeDays > 0 {
		if h := p.RememberMeDays * 24; h > p.AbsoluteTimeoutHours {
			p.AbsoluteTimeoutHours = h
		}
	}
	return p
}

// StaticResolver serves ResolvePolicy.
type StaticResolver struct{}

func (StaticResolver) Resolve(_ context.Context, role string, rememberMe bool) domain.SessionExpiryPolicy {
	return ResolvePolicy(role, rememberMe)
}
