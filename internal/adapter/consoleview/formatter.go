package consoleview

import (
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/Cheese-chess-client/internal/clock"
	"github.com/park285/Cheese-chess-client/internal/game"
	"github.com/park285/Cheese-chess-client/pkg/chessdto"
)

const (
	historyHeader = "Recent games"
	helpHeader    = "Commands"

	recentMoveLimit = 6
	barWidth        = 20
)

// Formatter renders snapshots and archive records as terminal text.
type Formatter struct {
	unicode bool
}

func NewFormatter(unicode bool) *Formatter {
	return &Formatter{unicode: unicode}
}

// Board draws the position and a status block underneath.
func (f *Formatter) Board(s game.Snapshot) string {
	if s.State == game.Idle {
		return "No game in progress. Type `new` to start."
	}
	var sb strings.Builder
	sb.WriteString(f.grid(s))
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("%s  %s\n", formatBar(s.Eval.Percent), s.Eval.Text))
	sb.WriteString(fmt.Sprintf("ply %d/%d, %s to move", s.Cursor, s.Length-1, sideName(s.SideToMove)))
	if s.Opening != "" {
		sb.WriteString(" | " + s.Opening)
		if s.BookMove {
			sb.WriteString(" (book)")
		}
	}
	sb.WriteString("\n")
	if s.Clock.Timed {
		white, black := s.ClockText()
		sb.WriteString(fmt.Sprintf("clock  white %s  black %s\n", white, black))
	}
	if len(s.MovesSAN) > 0 {
		sb.WriteString("moves  " + formatRecentMoves(s.MovesSAN) + "\n")
	}
	if s.Hint != "" {
		sb.WriteString("hint   " + s.Hint + "\n")
	}
	switch s.State {
	case game.GameOver:
		sb.WriteString(formatOutcome(s.Result, s.Method))
	case game.AwaitingOpponentMove:
		sb.WriteString("engine is thinking...")
	case game.AwaitingBackendConfirm:
		sb.WriteString("waiting for the server to confirm...")
	default:
		sb.WriteString("your move")
	}
	return sb.String()
}

func (f *Formatter) grid(s game.Snapshot) string {
	rows := expandPlacement(s.FEN)
	highlight := map[string]bool{s.LastMove[0]: true, s.LastMove[1]: true}

	var sb strings.Builder
	for i := 0; i < 8; i++ {
		rank := 7 - i
		if s.Orientation == nchess.Black {
			rank = i
		}
		sb.WriteString(fmt.Sprintf("%d ", rank+1))
		for j := 0; j < 8; j++ {
			file := j
			if s.Orientation == nchess.Black {
				file = 7 - j
			}
			sq := string(rune('a'+file)) + string(rune('1'+rank))
			cell := f.glyph(rows[rank][file])
			switch {
			case sq == s.Check:
				sb.WriteString("!" + cell)
			case highlight[sq]:
				sb.WriteString("*" + cell)
			default:
				sb.WriteString(" " + cell)
			}
		}
		sb.WriteString("\n")
	}
	sb.WriteString("  ")
	for j := 0; j < 8; j++ {
		file := j
		if s.Orientation == nchess.Black {
			file = 7 - j
		}
		sb.WriteString(" " + string(rune('a'+file)))
	}
	return sb.String()
}

// expandPlacement returns rows indexed by rank (0 = rank 1) then file.
func expandPlacement(fen string) [8][8]byte {
	var rows [8][8]byte
	for r := range rows {
		for c := range rows[r] {
			rows[r][c] = '.'
		}
	}
	placement, _, _ := strings.Cut(strings.TrimSpace(fen), " ")
	for i, row := range strings.Split(placement, "/") {
		if i > 7 {
			break
		}
		rank := 7 - i
		file := 0
		for _, ch := range row {
			if ch >= '1' && ch <= '8' {
				file += int(ch - '0')
				continue
			}
			if file < 8 {
				rows[rank][file] = byte(ch)
			}
			file++
		}
	}
	return rows
}

var unicodePieces = map[byte]string{
	'K': "♔", 'Q': "♕", 'R': "♖", 'B': "♗", 'N': "♘", 'P': "♙",
	'k': "♚", 'q': "♛", 'r': "♜", 'b': "♝", 'n': "♞", 'p': "♟",
}

func (f *Formatter) glyph(b byte) string {
	if f.unicode {
		if g, ok := unicodePieces[b]; ok {
			return g
		}
	}
	return string(b)
}

// Notice renders a user-facing message.
func (f *Formatter) Notice(n game.Notice) string {
	if n.Blocking {
		return "!! " + n.Text
	}
	return "-- " + n.Text
}

func (f *Formatter) History(games []chessdto.ChessGame) string {
	if len(games) == 0 {
		return "No archived games yet."
	}
	var sb strings.Builder
	sb.WriteString(historyHeader)
	sb.WriteByte('\n')
	for _, g := range games {
		sb.WriteString(fmt.Sprintf("#%d %s %s vs %s (%s, %d moves)\n",
			g.ID, formatResultBadge(g.Result), formatShortTime(g.EndedAt), g.Opponent, g.ResultMethod, len(g.MovesSAN)))
		if d := formatGameDuration(time.Duration(g.DurationSec) * time.Second); d != "" {
			sb.WriteString("   took " + d + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (f *Formatter) Game(g *chessdto.ChessGame) string {
	if g == nil {
		return "Game not found."
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Game #%d\n", g.ID))
	sb.WriteString(fmt.Sprintf("result   %s (%s)\n", g.Result, g.ResultMethod))
	sb.WriteString(fmt.Sprintf("side     %s vs %s level %d\n", g.HumanSide, g.Opponent, g.Level))
	if g.TimeControl != "" {
		sb.WriteString("control  " + g.TimeControl + "\n")
	}
	if !g.StartedAt.IsZero() {
		sb.WriteString("started  " + formatShortTime(g.StartedAt) + "\n")
	}
	if g.PGN != "" {
		sb.WriteString("\n" + strings.TrimSpace(g.PGN))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (f *Formatter) Help() string {
	return helpHeader + `
  new [white|black|both] [level] [M+I]
                           start a game from the initial position
  fen <fen>                load a position
  pgn <file>               load a game
  scan <image>             read a position from a board photo
  e2e4                     move (promotion defaults to queen)
  targets <square>         list legal destinations
  first | prev | next | last
  flip | hint | resign | retry
  export                   print the PGN
  png <file>               save the board as an image
  chat <question>          ask the assistant about the position
  history | game <id>
  quit`
}

func formatBar(percent float64) string {
	filled := int(percent/100*barWidth + 0.5)
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled) + "]"
}

func sideName(c nchess.Color) string {
	if c == nchess.Black {
		return "black"
	}
	return "white"
}

func formatRecentMoves(moves []string) string {
	if len(moves) == 0 {
		return "-"
	}
	start := 0
	if len(moves) > recentMoveLimit {
		start = len(moves) - recentMoveLimit
		if start%2 == 1 {
			start--
		}
	}
	var parts []string
	if start > 0 {
		parts = append(parts, "...")
	}
	for i := start; i < len(moves); i++ {
		if i%2 == 0 {
			parts = append(parts, fmt.Sprintf("%d.", i/2+1))
		}
		parts = append(parts, moves[i])
	}
	return strings.Join(parts, " ")
}

func formatOutcome(result, method string) string {
	switch result {
	case "1-0":
		return "White wins by " + method
	case "0-1":
		return "Black wins by " + method
	case "1/2-1/2":
		return "Draw by " + method
	default:
		return "Game over"
	}
}

func formatResultBadge(result string) string {
	switch result {
	case "1-0", "0-1", "1/2-1/2":
		return "[" + result + "]"
	default:
		return "[*]"
	}
}

func formatShortTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatGameDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

// clockLine is the one-line clock shown on ticks.
func clockLine(s game.Snapshot) string {
	return fmt.Sprintf("white %s  black %s", clock.Format(s.Clock.White), clock.Format(s.Clock.Black))
}
