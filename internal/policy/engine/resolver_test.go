package engine

import (
	"context"
	"testing"

	"social-tippster/backend/internal/policy/domain"
)

func TestResolvePolicy_Table(t *testing.T) {
	cases := []struct {
		role       string
		rememberMe bool
		want       domain.SessionExpiryPolicy
	}{
		{"user", false, domain.SessionExpiryPolicy{IdleTimeoutMinutes: 30, AbsoluteTimeoutHours: 24, RememberMeDays: 7, SecurityLevel: domain.SecurityLevelStandard}},
		{"user", true, domain.SessionExpiryPolicy{IdleTimeoutMinutes: 30, AbsoluteTimeoutHours: 168, RememberMeDays: 7, SecurityLevel: domain.SecurityLevelStandard}},
		{"moderator", true, domain.SessionExpiryPolicy{IdleTimeoutMinutes: 20, AbsoluteTimeoutHours: 12, SecurityLevel: domain.SecurityLevelElevated}},
		{"admin", false, domain.SessionExpiryPolicy{IdleTimeoutMinutes: 15, AbsoluteTimeoutHours: 8, SecurityLevel: domain.SecurityLevelHigh}},
		{"admin", true, domain.SessionExpiryPolicy{IdleTimeoutMinutes: 15, AbsoluteTimeoutHours: 8, SecurityLevel: domain.SecurityLevelHigh}},
		{"superuser", false, domain.SessionExpiryPolicy{IdleTimeoutMinutes: 30, AbsoluteTimeoutHours: 24, RememberMeDays: 7, SecurityLevel: domain.SecurityLevelStandard}},
		{"", true, domain.SessionExpiryPolicy{IdleTimeoutMinutes: 30, AbsoluteTimeoutHours: 168, RememberMeDays: 7, SecurityLevel: domain.SecurityLevelStandard}},
	}
	for _, tc := range cases {
		if got := ResolvePolicy(tc.role, tc.rememberMe); got != tc.want {
			t.Errorf("ResolvePolicy(%q, %v) = %+v, want %+v", tc.role, tc.rememberMe, got, tc.want)
		}
	}
}

func TestResolvePolicy_Properties(t *testing.T) {
	admin := ResolvePolicy("admin", false)
	user := ResolvePolicy("user", false)
	if admin.AbsoluteTimeoutHours >= user.AbsoluteTimeoutHours {
		t.Errorf("admin absolute %d should be shorter than user %d", admin.AbsoluteTimeoutHours, user.AbsoluteTimeoutHours)
	}
	if ResolvePolicy("user", true).AbsoluteTimeoutHours < user.AbsoluteTimeoutHours {
		t.Error("remember_me must not shorten the user absolute window")
	}
	for _, role := range []string{"moderator", "admin"} {
		if ResolvePolicy(role, true) != ResolvePolicy(role, false) {
			t.Errorf("remember_me must not change %s policy", role)
		}
	}
}

func TestResolvePolicy_DoesNotMutateTable(t *testing.T) {
	_ = ResolvePolicy("user", true)
	if got := ResolvePolicy("user", false).AbsoluteTimeoutHours; got != 24 {
		t.Errorf("table mutated: user absolute = %d", got)
	}
}

func TestStaticResolver(t *testing.T) {
	var r Resolver = StaticResolver{}
	if got := r.Resolve(context.Background(), "admin", false); got.SecurityLevel != domain.SecurityLevelHigh {
		t.Errorf("Resolve(admin) = %+v", got)
	}
}
