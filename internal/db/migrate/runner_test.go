package migrate

import (
	"os"
	"testing"
)

func TestRun_EmptyDSN(t *testing.T) {
	if err := Run("", Up); err == nil {
		t.Fatal("Run with empty DSN should return error")
	}
	if _, _, err := Version(""); err == nil {
		t.Fatal("Version with empty DSN should return error")
	}
}

func TestParseDirection(t *testing.T) {
	for _, ok := range []string{"up", "down"} {
		if _, err := ParseDirection(ok); err != nil {
			t.Errorf("ParseDirection(%q): %v", ok, err)
		}
	}
	for _, bad := range []string{"", "UP", "Up", "sideways", "both"} {
		if _, err := ParseDirection(bad); err == nil {
			t.Errorf("ParseDirection(%q) should fail", bad)
		}
	}
}

func TestRun_InvalidDirection(t *testing.T) {
	if err := Run("postgres://localhost/test", Direction("left")); err == nil {
		t.Fatal("Run with invalid direction should return error")
	}
}

func TestRun_UpDownUp(t *testing.T) {
	dsn := os.Getenv("TIPPSTER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TIPPSTER_TEST_DATABASE_URL not set, skipping integration test")
	}
	if err := Run(dsn, Up); err != nil {
		t.Fatalf("up: %v", err)
	}
	v, dirty, err := Version(dsn)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v != 1 || dirty {
		t.Errorf("version = %d dirty=%v, want 1 clean", v, dirty)
	}
	if err := Run(dsn, Down); err != nil {
		t.Fatalf("down: %v", err)
	}
	if err := Run(dsn, Up); err != nil {
		t.Fatalf("up again: %v", err)
	}
}
