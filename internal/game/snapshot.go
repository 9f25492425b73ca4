package game

import (
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/Cheese-chess-client/internal/clock"
	"github.com/park285/Cheese-chess-client/internal/evalfmt"
	"github.com/park285/Cheese-chess-client/internal/history"
	"github.com/park285/Cheese-chess-client/pkg/chessdto"
)

// ClockView is the clock as shown next to the board.
type ClockView struct {
	White  int
	Black  int
	Active nchess.Color
	Timed  bool
}

// Snapshot is everything a board view needs, derived from the ply at the
// cursor. While a move awaits confirmation the board shows it speculatively.
type Snapshot struct {
	SessionID   string
	State       State
	FEN         string
	Cursor      int
	Length      int
	Orientation nchess.Color
	SideToMove  nchess.Color
	Seat        Seat
	LastMove    [2]string
	Check       string
	Eval        evalfmt.Display
	Opening     string
	BookMove    bool
	Hint        string
	Clock       ClockView
	Result      string
	Method      string
	MovesSAN    []string
}

// Snapshot returns the current view without publishing it.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := c.session
	if s == nil {
		return Snapshot{State: Idle, Orientation: nchess.White, Eval: evalfmt.Neutral()}
	}

	plies := s.History.Plies()
	cursor := s.History.Cursor()
	cur := plies[cursor]

	snap := Snapshot{
		SessionID:   s.ID,
		State:       s.State,
		FEN:         cur.FEN,
		Cursor:      cursor,
		Length:      len(plies),
		Orientation: s.Orientation,
		Seat:        s.Options.Seat,
		Opening:     cur.OpeningName,
		BookMove:    cur.IsBookMove,
		Hint:        cur.BestMoveHint,
		Result:      s.Result,
		Method:      s.Method,
		Clock: ClockView{
			White:  c.clock.Remaining(nchess.White),
			Black:  c.clock.Remaining(nchess.Black),
			Active: c.clock.Active(),
			Timed:  s.Options.TimeControl.Enabled(),
		},
	}
	if len(cur.UCI) >= 4 {
		snap.LastMove = [2]string{cur.UCI[:2], cur.UCI[2:4]}
	}
	status, check := cur.Status, cur.Check
	if p := s.pending; p != nil {
		snap.FEN = p.FEN
		snap.LastMove = [2]string{p.From, p.To}
		snap.Hint = ""
		status, check = p.Status, p.Check
	}

	turn, err := c.positions.Turn(snap.FEN)
	if err != nil {
		turn = nchess.White
	}
	snap.SideToMove = turn
	if check {
		snap.Check = c.positions.KingSquare(snap.FEN, turn)
	}

	pos := evalfmt.Position{SideToMove: turn, Terminal: terminalOf(status)}
	if cur.Score != nil && s.pending == nil {
		pos.Score = *cur.Score
	}
	snap.Eval = evalfmt.Present(pos, c.cfg.MateThreshold)

	snap.MovesSAN = make([]string, 0, len(plies)-1)
	for _, p := range plies[1:] {
		snap.MovesSAN = append(snap.MovesSAN, p.SAN)
	}
	return snap
}

func terminalOf(status history.Status) evalfmt.Terminal {
	switch status {
	case history.Checkmate:
		return evalfmt.Checkmate
	case history.Stalemate, history.Draw:
		return evalfmt.Drawn
	default:
		return evalfmt.NotTerminal
	}
}

// DTO converts the snapshot to its wire form.
func (s Snapshot) DTO() chessdto.Snapshot {
	out := chessdto.Snapshot{
		SessionID:   s.SessionID,
		State:       s.State.String(),
		FEN:         s.FEN,
		Cursor:      s.Cursor,
		Length:      s.Length,
		Orientation: colorName(s.Orientation),
		SideToMove:  colorName(s.SideToMove),
		HumanSide:   s.Seat.String(),
		Check:       s.Check,
		Evaluation:  s.Eval.Text,
		EvalPercent: s.Eval.Percent,
		Opening:     s.Opening,
		BookMove:    s.BookMove,
		Hint:        s.Hint,
		Result:      s.Result,
		Method:      s.Method,
		MovesSAN:    append([]string{}, s.MovesSAN...),
	}
	if s.LastMove[0] != "" {
		out.LastMove = []string{s.LastMove[0], s.LastMove[1]}
	}
	if s.Clock.Timed {
		out.Clock = &chessdto.Clock{White: s.Clock.White, Black: s.Clock.Black}
		if s.Clock.Active != nchess.NoColor {
			out.Clock.Active = colorName(s.Clock.Active)
		}
	}
	return out
}

// ClockText renders both clocks as "m:ss".
func (s Snapshot) ClockText() (white, black string) {
	return clock.Format(s.Clock.White), clock.Format(s.Clock.Black)
}

// NoticeDTO converts a notice to its wire form.
func NoticeDTO(n Notice) chessdto.Notice {
	return chessdto.Notice{Kind: string(n.Kind), Text: n.Text, Blocking: n.Blocking}
}

func colorName(c nchess.Color) string {
	switch c {
	case nchess.White:
		return "white"
	case nchess.Black:
		return "black"
	default:
		return ""
	}
}

func fieldsPrefix(fen string, n int) string {
	parts := strings.Fields(fen)
	if len(parts) > n {
		parts = parts[:n]
	}
	return strings.Join(parts, " ")
}
