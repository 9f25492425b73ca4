package position

import (
	"errors"
	"strings"
	"testing"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/Cheese-chess-client/internal/history"
)

func TestApplyLegalMove(t *testing.T) {
	e := New()
	got, err := e.Apply(StartFEN, "e2e4")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got.SAN != "e4" || got.UCI != "e2e4" || got.From != "e2" || got.To != "e4" {
		t.Fatalf("unexpected result %+v", got)
	}
	turn, err := e.Turn(got.FEN)
	if err != nil || turn != nchess.Black {
		t.Fatalf("turn after e4: %v %v", turn, err)
	}
	if got.Status != history.InProgress || got.Check {
		t.Fatalf("unexpected status %+v", got)
	}
}

func TestApplyRejectsIllegal(t *testing.T) {
	e := New()
	for _, mv := range []string{"e2e5", "e7e5", "a1a1", "zz", ""} {
		if _, err := e.Apply(StartFEN, mv); !errors.Is(err, ErrIllegalMove) {
			t.Fatalf("%q: expected ErrIllegalMove, got %v", mv, err)
		}
	}
}

func TestReplayDetectsMate(t *testing.T) {
	e := New()
	res, err := e.Replay(StartFEN, []string{"e2e4", "e7e5", "f1c4", "b8c6", "d1h5", "g8f6", "h5f7"})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	last := res[len(res)-1]
	if last.Status != history.Checkmate || !last.Check {
		t.Fatalf("expected mate, got %+v", last)
	}
	if !strings.HasPrefix(last.SAN, "Qxf7") {
		t.Fatalf("unexpected SAN %q", last.SAN)
	}
	if e.Status(last.FEN) != history.Checkmate {
		t.Fatalf("bare status should see the mate")
	}
}

func TestAutoQueen(t *testing.T) {
	e := New()
	got, err := e.Apply("8/P6k/8/8/8/8/8/K7 w - - 0 1", "a7a8")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got.UCI != "a7a8q" {
		t.Fatalf("expected queen promotion, got %q", got.UCI)
	}
}

func TestTargets(t *testing.T) {
	e := New()
	got := e.Targets(StartFEN, "e2")
	if len(got) != 2 || got[0] != "e3" || got[1] != "e4" {
		t.Fatalf("unexpected targets %v", got)
	}
	if got := e.Targets(StartFEN, "e4"); len(got) != 0 {
		t.Fatalf("empty square should have no targets: %v", got)
	}
}

func TestValidate(t *testing.T) {
	e := New()
	if err := e.Validate(StartFEN); err != nil {
		t.Fatalf("start position: %v", err)
	}
	if err := e.Validate("8/8/8/8/8/8/8/K7 w - - 0 1"); !errors.Is(err, ErrMissingKing) {
		t.Fatalf("expected ErrMissingKing, got %v", err)
	}
	if err := e.Validate("not a fen"); !errors.Is(err, ErrInvalidFEN) {
		t.Fatalf("expected ErrInvalidFEN, got %v", err)
	}
	if err := e.Validate(""); !errors.Is(err, ErrInvalidFEN) {
		t.Fatalf("empty fen should be invalid, got %v", err)
	}
}

func TestKingSquare(t *testing.T) {
	e := New()
	if got := e.KingSquare(StartFEN, nchess.White); got != "e1" {
		t.Fatalf("white king: %q", got)
	}
	if got := e.KingSquare(StartFEN, nchess.Black); got != "e8" {
		t.Fatalf("black king: %q", got)
	}
}

func TestPGNRoundTrip(t *testing.T) {
	e := New()
	moves := []string{"e2e4", "e7e5", "g1f3", "b8c6"}
	text, err := e.PGN(StartFEN, moves, "")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	start, applied, err := e.ParsePGN(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if fieldsPrefix(start.FEN, 4) != fieldsPrefix(StartFEN, 4) {
		t.Fatalf("unexpected start %q", start.FEN)
	}
	if len(applied) != len(moves) {
		t.Fatalf("expected %d moves, got %d", len(moves), len(applied))
	}
	for i, mv := range moves {
		if applied[i].UCI != mv {
			t.Fatalf("move %d: want %s got %s", i, mv, applied[i].UCI)
		}
	}
}

func TestParsePGNEmpty(t *testing.T) {
	if _, _, err := New().ParsePGN("  "); !errors.Is(err, ErrInvalidPGN) {
		t.Fatalf("expected ErrInvalidPGN, got %v", err)
	}
}

func TestOpeningOnlyFromStandardStart(t *testing.T) {
	e := New()
	if name, book := e.Opening("8/P6k/8/8/8/8/8/K7 w - - 0 1", []string{"a7a8q"}); name != "" || book {
		t.Fatalf("custom start must not be named: %q %v", name, book)
	}
	if _, book := e.Opening(StartFEN, []string{"e2e4"}); !book {
		t.Fatalf("1.e4 should be a book move")
	}
	if name, book := e.Opening(StartFEN, nil); name != "" || book {
		t.Fatalf("no moves, no opening")
	}
}

func TestContinueMatchesReplay(t *testing.T) {
	e := New()
	line := []string{"e2e4", "e7e5", "g1f3"}
	replayed, err := e.Replay(StartFEN, append(line, "b8c6"))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	got, err := e.Continue(StartFEN, line, "b8c6")
	if err != nil {
		t.Fatalf("continue: %v", err)
	}
	if got.FEN != replayed[len(replayed)-1].FEN || got.SAN != "Nc6" {
		t.Fatalf("unexpected %+v", got)
	}
	if _, err := e.Continue(StartFEN, []string{"e2e4", "e2e4"}, "a7a6"); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("broken line must fail, got %v", err)
	}
}

func TestStartMarksCheck(t *testing.T) {
	e := New()
	cases := map[string]bool{
		"4k3/8/8/8/8/8/8/4R1K1 b - - 0 1":    true,
		"4k3/4p3/8/8/8/8/8/4R1K1 b - - 0 1":  false,
		"4k3/3P4/8/8/8/8/8/6K1 b - - 0 1":    true,
		"4k3/8/3N4/8/8/8/8/6K1 b - - 0 1":    true,
		"4k3/8/8/8/8/8/8/b5K1 w - - 0 1":     false,
		"4k3/8/8/8/8/8/8/7b w - - 0 1":       false,
		"4k3/8/8/8/8/8/5q2/6K1 w - - 0 1":    true,
		StartFEN:                             false,
	}
	for fen, want := range cases {
		ply, err := e.Start(fen)
		if err != nil {
			t.Fatalf("%s: %v", fen, err)
		}
		if ply.Check != want {
			t.Fatalf("%s: check = %v, want %v", fen, ply.Check, want)
		}
	}
}
