package repository

import (
	"context"
	"testing"
	"time"

	"social-tippster/backend/internal/audit/domain"
)

func TestMemoryRepository_ListByUser(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, uid := range []string{"u1", "u2", "u1", "u1"} {
		if err := repo.Create(ctx, &domain.AuditLog{ID: string(rune('a' + i)), UserID: uid, Action: domain.ActionLogin, CreatedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := repo.ListByUser(ctx, "u1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "d" || got[1].ID != "c" {
		t.Errorf("order = %s,%s; want d,c", got[0].ID, got[1].ID)
	}
}
