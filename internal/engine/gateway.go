package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/Cheese-chess-client/internal/evalfmt"
)

var (
	ErrEngineUnavailable = errors.New("engine unavailable")
	ErrNoMoveAvailable   = errors.New("no move available")
)

// Request asks for one automated move. BudgetMillis is the per-move search
// time; Increment is only forwarded to backends that use it.
type Request struct {
	FEN          string
	Level        int
	BudgetMillis int
	Increment    int
}

// Result is a chosen move and the evaluation of the position it was searched
// from, always from White's point of view.
type Result struct {
	Move     string
	FEN      string
	Score    evalfmt.Score
	Duration time.Duration
}

// Evaluation renders Score in the shared wire form ("+0.35", "M-2").
func (r Result) Evaluation() string { return r.Score.String() }

// Gateway produces automated moves.
type Gateway interface {
	GetMove(ctx context.Context, req Request) (Result, error)
	Close() error
}

// Evaluation is a deep-search verdict for a position.
type Evaluation struct {
	Score    evalfmt.Score
	BestMove string
}

// Evaluator performs deep evaluation of a single position.
type Evaluator interface {
	Evaluate(ctx context.Context, fen string) (Evaluation, error)
}

// Hinter suggests a move for a position without playing it.
type Hinter struct {
	gw     Gateway
	level  int
	budget int
}

func NewHinter(gw Gateway, level, budgetMillis int) *Hinter {
	return &Hinter{gw: gw, level: level, budget: budgetMillis}
}

func (h *Hinter) Hint(ctx context.Context, fen string) (string, error) {
	if h == nil || h.gw == nil {
		return "", ErrEngineUnavailable
	}
	res, err := h.gw.GetMove(ctx, Request{FEN: fen, Level: h.level, BudgetMillis: h.budget})
	if err != nil {
		return "", err
	}
	return res.Move, nil
}

func sideToMove(fen string) nchess.Color {
	fields := strings.Fields(fen)
	if len(fields) > 1 && fields[1] == "b" {
		return nchess.Black
	}
	return nchess.White
}

func validMove(mv string) bool {
	if len(mv) != 4 && len(mv) != 5 {
		return false
	}
	for i := 0; i < 4; i += 2 {
		if mv[i] < 'a' || mv[i] > 'h' || mv[i+1] < '1' || mv[i+1] > '8' {
			return false
		}
	}
	return len(mv) == 4 || strings.ContainsRune("qrbn", rune(mv[4]))
}
