package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/park285/Cheese-chess-client/internal/adapter/consoleview"
	"github.com/park285/Cheese-chess-client/internal/archive"
	"github.com/park285/Cheese-chess-client/internal/backend"
	"github.com/park285/Cheese-chess-client/internal/game"
	"github.com/park285/Cheese-chess-client/internal/msgcat"
)

type cannedChat struct {
	got backend.ChatRequest
}

func (c *cannedChat) Chat(_ context.Context, in backend.ChatRequest, w io.Writer) error {
	c.got = in
	_, err := io.WriteString(w, "Develop your knights.\n")
	return err
}

func newShell(t *testing.T) (*shell, *bytes.Buffer) {
	t.Helper()
	msgs, err := msgcat.New("")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	ctrl := game.New(game.Deps{Archiver: archive.NewMemory(), Messages: msgs}, game.Config{}, nil)
	t.Cleanup(func() { _ = ctrl.Close() })

	var out bytes.Buffer
	format := consoleview.NewFormatter(false)
	presenter := consoleview.NewPresenter(&out, format)
	ctrl.AddView(presenter)
	return &shell{
		ctrl:      ctrl,
		presenter: presenter,
		format:    format,
		archive:   archive.NewMemory(),
		defaults:  game.GameOptions{Seat: game.SeatBoth},
		logger:    zap.NewNop(),
	}, &out
}

func run(t *testing.T, sh *shell, lines ...string) {
	t.Helper()
	for _, line := range lines {
		if sh.handle(context.Background(), line) {
			t.Fatalf("unexpected quit on %q", line)
		}
	}
}

func TestShellPlaysAndExports(t *testing.T) {
	sh, out := newShell(t)
	run(t, sh, "new both", "e2e4", "e7e5", "g1f3")
	snap := sh.ctrl.Snapshot()
	if snap.Length != 4 || snap.Cursor != 3 {
		t.Fatalf("unexpected position %d/%d", snap.Cursor, snap.Length)
	}
	out.Reset()
	run(t, sh, "export")
	if !strings.Contains(out.String(), "1. e4 e5 2. Nf3") {
		t.Fatalf("unexpected pgn: %s", out.String())
	}
}

func TestShellReportsIllegalMove(t *testing.T) {
	sh, out := newShell(t)
	run(t, sh, "new both")
	out.Reset()
	run(t, sh, "e2e5")
	if !strings.HasPrefix(out.String(), "-- ") {
		t.Fatalf("expected a short rejection, got %q", out.String())
	}
	if sh.ctrl.Snapshot().Length != 1 {
		t.Fatalf("illegal move must not be recorded")
	}
}

func TestShellNavigationAndQuit(t *testing.T) {
	sh, _ := newShell(t)
	run(t, sh, "new both", "d2d4", "d7d5", "first")
	if got := sh.ctrl.Snapshot().Cursor; got != 0 {
		t.Fatalf("cursor = %d, want 0", got)
	}
	run(t, sh, "next")
	if got := sh.ctrl.Snapshot().Cursor; got != 1 {
		t.Fatalf("cursor = %d, want 1", got)
	}
	if !sh.handle(context.Background(), "quit") {
		t.Fatalf("quit should end the loop")
	}
}

func TestShellChatSendsPosition(t *testing.T) {
	sh, out := newShell(t)
	chat := &cannedChat{}
	sh.chat = chat
	run(t, sh, "new both", "e2e4", "chat what now?")
	if chat.got.Question != "what now?" || chat.got.SideToMove != "black" {
		t.Fatalf("unexpected request %+v", chat.got)
	}
	if len(chat.got.Moves) != 1 || chat.got.Moves[0] != "e4" {
		t.Fatalf("unexpected moves %v", chat.got.Moves)
	}
	if !strings.Contains(out.String(), "Develop your knights.") {
		t.Fatalf("answer not printed: %s", out.String())
	}
}

func TestShellSavesPNG(t *testing.T) {
	sh, _ := newShell(t)
	path := filepath.Join(t.TempDir(), "board.png")
	run(t, sh, "new both", "png "+path)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte("\x89PNG")) {
		t.Fatalf("not a png")
	}
}

func TestShellMissingGame(t *testing.T) {
	sh, out := newShell(t)
	run(t, sh, "game 42")
	if !strings.Contains(out.String(), "Game not found.") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestIsMove(t *testing.T) {
	for in, want := range map[string]bool{"e2e4": true, "e7e8q": true, "e9e4": false, "new": false, "i2e4": false} {
		if got := isMove(in); got != want {
			t.Fatalf("isMove(%q) = %v", in, got)
		}
	}
}
