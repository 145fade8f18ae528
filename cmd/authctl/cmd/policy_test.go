package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestPolicy_AllRoles(t *testing.T) {
	out, err := runRoot(t, "policy")
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	for _, want := range []string{
		"user       idle=30m absolute=24h remember_me_days=7 level=standard",
		"moderator  idle=20m absolute=12h remember_me_days=0 level=elevated",
		"admin      idle=15m absolute=8h remember_me_days=0 level=high",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPolicy_RememberMeJSON(t *testing.T) {
	out, err := runRoot(t, "policy", "user", "--remember-me", "--json")
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	var rows []policyRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(rows) != 1 || !rows[0].RememberMe || rows[0].Policy.AbsoluteTimeoutHours != 168 {
		t.Errorf("rows = %+v", rows)
	}
}

func TestPolicy_ModuleOverride(t *testing.T) {
	module := `package tippster.session_expiry

result := {"idle_timeout_minutes": 5, "absolute_timeout_hours": 1, "remember_me_days": 0, "security_level": "high"}
`
	out, err := runRoot(t, "policy", "admin", "--module", module)
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	if !strings.Contains(out, "idle=5m absolute=1h") {
		t.Errorf("output = %q", out)
	}
}

func TestRevokeUser_RequiresArg(t *testing.T) {
	if _, err := runRoot(t, "revoke-user"); err == nil {
		t.Fatal("expected an argument error")
	}
}
