package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestOPAResolver_DefaultMatchesTable(t *testing.T) {
	ctx := context.Background()
	r, err := NewOPAResolver(ctx, "")
	if err != nil {
		t.Fatalf("NewOPAResolver: %v", err)
	}
	for _, role := range []string{"user", "moderator", "admin", "unknown"} {
		for _, rm := range []bool{false, true} {
			got := r.Resolve(ctx, role, rm)
			want := ResolvePolicy(role, rm)
			if got != want {
				t.Errorf("Resolve(%q, %v) = %+v, want %+v", role, rm, got, want)
			}
		}
	}
	if err := r.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}
}

func TestOPAResolver_CustomPolicy(t *testing.T) {
	ctx := context.Background()
	module := `package tippster.session_expiry

result := {"idle_timeout_minutes": 5, "absolute_timeout_hours": 1, "security_level": "high"}
`
	r, err := NewOPAResolver(ctx, module)
	if err != nil {
		t.Fatalf("NewOPAResolver: %v", err)
	}
	got := r.Resolve(ctx, "user", true)
	if got.IdleTimeoutMinutes != 5 || got.AbsoluteTimeoutHours != 1 || got.RememberMeDays != 0 || got.SecurityLevel != "high" {
		t.Errorf("Resolve = %+v", got)
	}
}

func TestOPAResolver_InvalidResultFallsBack(t *testing.T) {
	ctx := context.Background()
	module := `package tippster.session_expiry

result := {"idle_timeout_minutes": 0, "absolute_timeout_hours": 0, "security_level": "standard"}
`
	r, err := NewOPAResolver(ctx, module)
	if err != nil {
		t.Fatalf("NewOPAResolver: %v", err)
	}
	if got := r.Resolve(ctx, "admin", false); got != ResolvePolicy("admin", false) {
		t.Errorf("Resolve = %+v, want table fallback", got)
	}
	if err := r.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck should fail for an invalid policy result")
	}
}

func TestOPAResolver_UndefinedResultFallsBack(t *testing.T) {
	ctx := context.Background()
	r, err := NewOPAResolver(ctx, "package tippster.session_expiry\n\nother := 1\n")
	if err != nil {
		t.Fatalf("NewOPAResolver: %v", err)
	}
	if got := r.Resolve(ctx, "moderator", false); got != ResolvePolicy("moderator", false) {
		t.Errorf("Resolve = %+v, want table fallback", got)
	}
}

func TestNewOPAResolver_CompileError(t *testing.T) {
	if _, err := NewOPAResolver(context.Background(), "package broken\n\nresult := {"); err == nil {
		t.Fatal("invalid Rego should fail to compile")
	}
}

func TestLoadModule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.rego")
	if err := os.WriteFile(path, []byte("package x\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := LoadModule("file:" + path)
	if err != nil || got != "package x\n" {
		t.Errorf("LoadModule(file) = %q, %v", got, err)
	}
	if got, _ := LoadModule(" inline "); got != "inline" {
		t.Errorf("LoadModule(inline) = %q", got)
	}
	if _, err := LoadModule("file:/does/not/exist.rego"); err == nil {
		t.Error("missing file should fail")
	}
}
