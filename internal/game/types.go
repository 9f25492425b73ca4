package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/Cheese-chess-client/internal/backend"
	"github.com/park285/Cheese-chess-client/internal/clock"
	"github.com/park285/Cheese-chess-client/internal/domain"
	"github.com/park285/Cheese-chess-client/internal/evalfmt"
)

var (
	ErrNoSession         = errors.New("no game in progress")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrIllegalMove       = errors.New("illegal move")
	ErrMoveInFlight      = errors.New("a move is already in flight")
	ErrConfirmRejected   = errors.New("move was not confirmed")
	ErrGameOver          = errors.New("game is over")
	ErrInvalidPosition   = errors.New("invalid position")
	ErrEngineUnavailable = errors.New("engine unavailable")
)

// State is the turn controller's position in the move cycle.
type State int

const (
	Idle State = iota
	AwaitingHumanMove
	ValidatingMove
	AwaitingBackendConfirm
	AwaitingOpponentMove
	GameOver
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingHumanMove:
		return "awaiting_human_move"
	case ValidatingMove:
		return "validating_move"
	case AwaitingBackendConfirm:
		return "awaiting_backend_confirm"
	case AwaitingOpponentMove:
		return "awaiting_opponent_move"
	case GameOver:
		return "game_over"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Seat says which side(s) the local player controls.
type Seat int

const (
	SeatWhite Seat = iota
	SeatBlack
	SeatBoth
)

func ParseSeat(raw string) (Seat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "white", "w":
		return SeatWhite, nil
	case "black", "b":
		return SeatBlack, nil
	case "both", "analysis":
		return SeatBoth, nil
	default:
		return SeatWhite, fmt.Errorf("unknown side %q", raw)
	}
}

func (s Seat) String() string {
	switch s {
	case SeatBlack:
		return "black"
	case SeatBoth:
		return "both"
	default:
		return "white"
	}
}

// Human reports whether color is played by the local player.
func (s Seat) Human(color nchess.Color) bool {
	switch s {
	case SeatBoth:
		return true
	case SeatBlack:
		return color == nchess.Black
	default:
		return color == nchess.White
	}
}

// GameOptions configure one session. MoveTime is the opponent's per-move
// budget in milliseconds.
type GameOptions struct {
	Seat        Seat
	Level       int
	MoveTime    int
	TimeControl clock.Control
}

// NoticeKind names a user-facing message.
type NoticeKind string

const (
	NoticeConfirmFailed     NoticeKind = "confirm_failed"
	NoticeEngineUnavailable NoticeKind = "engine_unavailable"
	NoticePositionInvalid   NoticeKind = "position_invalid"
	NoticeFlagFall          NoticeKind = "flag_fall"
	NoticeGameOver          NoticeKind = "game_over"
	NoticeScanFailed        NoticeKind = "scan_failed"
	NoticeResigned          NoticeKind = "resigned"
)

type Notice struct {
	Kind     NoticeKind
	Text     string
	Blocking bool
}

// View receives every state change. Calls arrive from several goroutines and
// must not block.
type View interface {
	Sync(Snapshot)
	Notice(Notice)
}

type Confirmer interface {
	ConfirmMove(ctx context.Context, fen, uci string) (backend.ConfirmResponse, error)
}

type Scanner interface {
	AnalyzeImage(ctx context.Context, filename string, image []byte) (backend.AnalyzeResponse, error)
}

type Archiver interface {
	Save(ctx context.Context, game *domain.ChessGame) (int64, error)
}

// Messages renders notice text by key.
type Messages interface {
	Render(key string, data any) (string, error)
}

type Config struct {
	MateThreshold  float64
	ConfirmTimeout time.Duration
	// MoveTimeout is added to the opponent's search budget.
	MoveTimeout time.Duration
	EvalTimeout time.Duration
	EngineName  string
}

func (c Config) withDefaults() Config {
	if c.MateThreshold <= 0 {
		c.MateThreshold = evalfmt.DefaultMateThreshold
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = 5 * time.Second
	}
	if c.MoveTimeout <= 0 {
		c.MoveTimeout = 10 * time.Second
	}
	if c.EvalTimeout <= 0 {
		c.EvalTimeout = 20 * time.Second
	}
	if c.EngineName == "" {
		c.EngineName = "opponent"
	}
	return c
}
