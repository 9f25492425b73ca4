package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"github.com/park285/Cheese-chess-client/internal/adapter/consoleview"
	"github.com/park285/Cheese-chess-client/internal/archive"
	"github.com/park285/Cheese-chess-client/internal/backend"
	"github.com/park285/Cheese-chess-client/internal/clock"
	"github.com/park285/Cheese-chess-client/internal/game"
	"github.com/park285/Cheese-chess-client/internal/render"
)

const (
	commandTimeout = 30 * time.Second
	historyLimit   = 10
)

type chatter interface {
	Chat(ctx context.Context, in backend.ChatRequest, w io.Writer) error
}

type shell struct {
	ctrl      *game.Controller
	presenter *consoleview.Presenter
	format    *consoleview.Formatter
	archive   archive.Archive
	chat      chatter
	defaults  game.GameOptions
	logger    *zap.Logger
}

// handle runs one input line and reports whether the client should exit.
func (sh *shell) handle(parent context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	ctx, cancel := context.WithTimeout(parent, commandTimeout)
	defer cancel()

	var err error
	switch cmd {
	case "quit", "exit":
		return true
	case "help", "?":
		sh.presenter.Print(sh.format.Help())
	case "new":
		err = sh.newGame(ctx, args)
	case "fen":
		if len(args) == 0 {
			err = errors.New("usage: fen <fen>")
			break
		}
		_, err = sh.ctrl.LoadFEN(ctx, strings.Join(args, " "), sh.defaults)
	case "pgn":
		err = sh.loadPGN(ctx, args)
	case "scan":
		err = sh.scan(ctx, args)
	case "first":
		sh.ctrl.First()
	case "prev":
		sh.ctrl.Prev()
	case "next":
		sh.ctrl.Next()
	case "last":
		sh.ctrl.Last()
	case "flip":
		sh.ctrl.Flip()
	case "hint":
		var mv string
		if mv, err = sh.ctrl.RequestHint(ctx); err == nil {
			sh.presenter.Print("hint: " + mv)
		}
	case "targets":
		if len(args) != 1 {
			err = errors.New("usage: targets <square>")
			break
		}
		sh.presenter.Print(fmt.Sprintf("%s: %s", args[0], strings.Join(sh.ctrl.LegalTargets(strings.ToLower(args[0])), " ")))
	case "retry":
		err = sh.ctrl.RetryOpponent(ctx)
	case "resign":
		err = sh.ctrl.Resign(sh.humanColor())
	case "export":
		var text string
		if text, err = sh.ctrl.PGN(); err == nil {
			sh.presenter.Print(text)
		}
	case "png":
		err = sh.savePNG(ctx, args)
	case "chat":
		err = sh.ask(ctx, strings.Join(args, " "))
	case "history":
		err = sh.history(ctx)
	case "game":
		err = sh.showGame(ctx, args)
	default:
		if isMove(cmd) {
			err = sh.move(ctx, cmd)
		} else {
			err = fmt.Errorf("unknown command %q, try help", cmd)
		}
	}
	if err != nil {
		sh.report(err)
	}
	return false
}

func (sh *shell) report(err error) {
	switch {
	case errors.Is(err, game.ErrConfirmRejected), errors.Is(err, game.ErrInvalidPosition):
		// already surfaced as a notice
		sh.logger.Debug("command_failed", zap.Error(err))
	case errors.Is(err, game.ErrIllegalMove), errors.Is(err, game.ErrNotYourTurn):
		sh.presenter.Print("-- " + err.Error())
	default:
		sh.presenter.Print("error: " + err.Error())
	}
}

func (sh *shell) newGame(ctx context.Context, args []string) error {
	opts := sh.defaults
	for _, a := range args {
		if seat, err := game.ParseSeat(a); err == nil {
			opts.Seat = seat
			continue
		}
		if n, err := strconv.Atoi(a); err == nil {
			opts.Level = n
			continue
		}
		tc, err := clock.ParseControl(a)
		if err != nil {
			return fmt.Errorf("new: %w", err)
		}
		opts.TimeControl = tc
	}
	_, err := sh.ctrl.NewGame(ctx, opts)
	return err
}

func (sh *shell) loadPGN(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: pgn <file>")
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	_, err = sh.ctrl.LoadPGN(ctx, string(raw), sh.defaults)
	return err
}

func (sh *shell) scan(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: scan <image>")
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	_, err = sh.ctrl.LoadScan(ctx, filepath.Base(args[0]), raw, sh.defaults)
	return err
}

func (sh *shell) move(ctx context.Context, uci string) error {
	snap := sh.ctrl.Snapshot()
	return sh.ctrl.Drag(ctx, snap.SideToMove, uci[:2], uci[2:4])
}

// humanColor is the side a bare "resign" speaks for.
func (sh *shell) humanColor() nchess.Color {
	snap := sh.ctrl.Snapshot()
	switch snap.Seat {
	case game.SeatWhite:
		return nchess.White
	case game.SeatBlack:
		return nchess.Black
	default:
		return snap.SideToMove
	}
}

func (sh *shell) savePNG(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: png <file>")
	}
	snap := sh.ctrl.Snapshot()
	if snap.State == game.Idle {
		return game.ErrNoSession
	}
	img, err := render.PNG(ctx, snap.FEN, consoleview.ImageOptions(snap))
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[0], img, 0o644); err != nil {
		return err
	}
	sh.presenter.Print("saved " + args[0])
	return nil
}

func (sh *shell) ask(ctx context.Context, question string) error {
	if sh.chat == nil {
		return errors.New("chat needs API_BASE_URL")
	}
	if strings.TrimSpace(question) == "" {
		return errors.New("usage: chat <question>")
	}
	snap := sh.ctrl.Snapshot()
	req := backend.ChatRequest{
		Question:   question,
		FEN:        snap.FEN,
		Moves:      snap.MovesSAN,
		Evaluation: snap.Eval.Text,
		Opening:    snap.Opening,
	}
	if snap.State != game.Idle {
		req.SideToMove = snap.DTO().SideToMove
		if pgn, err := sh.ctrl.PGN(); err == nil {
			req.PGN = pgn
		}
	}
	var answer strings.Builder
	if err := sh.chat.Chat(ctx, req, &answer); err != nil {
		return err
	}
	sh.presenter.Print(strings.TrimSpace(answer.String()))
	return nil
}

func (sh *shell) history(ctx context.Context) error {
	games, err := sh.archive.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}
	sh.presenter.Print(sh.format.History(consoleview.ToDTOGames(games)))
	return nil
}

func (sh *shell) showGame(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: game <id>")
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid game id %q", args[0])
	}
	g, err := sh.archive.Get(ctx, id)
	if err != nil && !errors.Is(err, archive.ErrNotFound) {
		return err
	}
	sh.presenter.Print(sh.format.Game(consoleview.ToDTOGame(g)))
	return nil
}

// isMove accepts coordinate moves such as e2e4 or e7e8q.
func isMove(s string) bool {
	if len(s) != 4 && len(s) != 5 {
		return false
	}
	return s[0] >= 'a' && s[0] <= 'h' && s[1] >= '1' && s[1] <= '8' &&
		s[2] >= 'a' && s[2] <= 'h' && s[3] >= '1' && s[3] <= '8'
}
