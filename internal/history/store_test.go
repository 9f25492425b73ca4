package history

import (
	"errors"
	"fmt"
	"testing"

	"github.com/park285/Cheese-chess-client/internal/evalfmt"
)

func ply(n int) Ply {
	return Ply{FEN: fmt.Sprintf("fen-%d", n), UCI: fmt.Sprintf("m%d", n), SAN: fmt.Sprintf("s%d", n)}
}

func newStore(n int) *Store {
	s := New(Ply{FEN: "fen-0"})
	for i := 1; i <= n; i++ {
		s.Record(ply(i))
	}
	return s
}

func TestRecordAppendsAndMovesCursor(t *testing.T) {
	s := newStore(3)
	if s.Len() != 4 || s.Cursor() != 3 {
		t.Fatalf("len=%d cursor=%d", s.Len(), s.Cursor())
	}
	p, err := s.At(2)
	if err != nil || p.FEN != "fen-2" {
		t.Fatalf("At(2) = %+v, %v", p, err)
	}
	start, _ := s.At(0)
	if start.UCI != "" || start.SAN != "" {
		t.Fatalf("index 0 must carry no move: %+v", start)
	}
}

func TestRecordFromPastTruncates(t *testing.T) {
	s := newStore(5)
	s.Seek(2)
	s.Record(Ply{FEN: "alt", UCI: "x"})
	if got := s.Len(); got != 2+2 {
		t.Fatalf("expected cursor+2 entries, got %d", got)
	}
	p, _ := s.At(3)
	if p.FEN != "alt" {
		t.Fatalf("new ply not at index 3: %+v", p)
	}
	if _, err := s.At(4); !errors.Is(err, ErrNotFound) {
		t.Fatalf("old tail should be gone, err=%v", err)
	}
}

func TestAtOutOfRange(t *testing.T) {
	s := newStore(1)
	for _, i := range []int{-1, 2, 100} {
		if _, err := s.At(i); !errors.Is(err, ErrNotFound) {
			t.Fatalf("At(%d): expected ErrNotFound, got %v", i, err)
		}
	}
}

func TestNavigationClamps(t *testing.T) {
	s := newStore(2)
	if s.Next() != 2 {
		t.Fatalf("next at end must stay")
	}
	if s.First() != 0 || s.Prev() != 0 {
		t.Fatalf("prev at start must stay")
	}
	if s.Next() != 1 || s.Last() != 2 {
		t.Fatalf("unexpected cursor movement")
	}
	if s.Len() != 3 {
		t.Fatalf("navigation must not mutate the sequence")
	}
}

func TestTruncateToCurrent(t *testing.T) {
	s := newStore(4)
	s.TruncateToCurrent(Ply{FEN: "scan", UCI: "ignored"})
	if s.Len() != 1 || s.Cursor() != 0 {
		t.Fatalf("len=%d cursor=%d", s.Len(), s.Cursor())
	}
	if p := s.Current(); p.FEN != "scan" || p.UCI != "" {
		t.Fatalf("unexpected start ply %+v", p)
	}
}

func TestSetScoreGuardsReplacedPly(t *testing.T) {
	s := newStore(3)
	if !s.SetScore(2, "fen-2", evalfmt.PawnScore(0.3)) {
		t.Fatalf("expected write")
	}
	p, _ := s.At(2)
	if p.Score == nil || p.Score.Pawns != 0.3 {
		t.Fatalf("score not stored: %+v", p.Score)
	}

	s.Seek(1)
	s.Record(Ply{FEN: "other"})
	if s.SetScore(2, "fen-2", evalfmt.PawnScore(1)) {
		t.Fatalf("write into a replaced ply must be refused")
	}
	if s.SetScore(9, "fen-9", evalfmt.PawnScore(1)) {
		t.Fatalf("write out of range must be refused")
	}
}

func TestAtReturnsCopies(t *testing.T) {
	s := newStore(1)
	s.SetScore(1, "fen-1", evalfmt.PawnScore(1))
	p, _ := s.At(1)
	p.Score.Pawns = 42
	again, _ := s.At(1)
	if again.Score.Pawns != 1 {
		t.Fatalf("store leaked internal pointer")
	}
}

func TestUCIMoves(t *testing.T) {
	s := newStore(3)
	got := s.UCIMoves(2)
	if len(got) != 2 || got[0] != "m1" || got[1] != "m2" {
		t.Fatalf("unexpected moves %v", got)
	}
	if s.UCIMoves(0) != nil {
		t.Fatalf("expected nil for index 0")
	}
}
