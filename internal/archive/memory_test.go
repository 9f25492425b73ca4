package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/park285/Cheese-chess-client/internal/domain"
)

func TestMemorySaveOncePerSession(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	g := &domain.ChessGame{SessionUUID: "s1", Result: "1-0", MovesUCI: []string{"e2e4"}}
	id, err := m.Save(ctx, g)
	if err != nil || id != 1 {
		t.Fatalf("save: %d %v", id, err)
	}
	if _, err := m.Save(ctx, g); !errors.Is(err, ErrDuplicateGame) {
		t.Fatalf("expected ErrDuplicateGame, got %v", err)
	}
	g.MovesUCI[0] = "d2d4"
	got, err := m.Get(ctx, id)
	if err != nil || got.MovesUCI[0] != "e2e4" {
		t.Fatalf("archive must keep its own copy: %+v %v", got, err)
	}
	if _, err := m.Get(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRecentOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, sid := range []string{"a", "b", "c"} {
		if _, err := m.Save(ctx, &domain.ChessGame{SessionUUID: sid, EndedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	got, err := m.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 || got[0].SessionUUID != "c" || got[1].SessionUUID != "b" {
		t.Fatalf("unexpected order %v, %v", got[0].SessionUUID, got[1].SessionUUID)
	}
}
