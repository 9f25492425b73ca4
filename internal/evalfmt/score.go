package evalfmt

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Kind distinguishes the score encodings the engines and backend emit.
type Kind int

const (
	Unknown Kind = iota
	Pawns
	Mate
)

// MateBase is the pawn-scale magnitude used when a mate distance travels as a
// plain number. A value v with |v| >= threshold decodes to MateBase-|v| moves.
const MateBase = 1000.0

// Score is always relative to White.
type Score struct {
	Kind  Kind
	Pawns float64
	// Mate is the signed distance to mate in moves; positive favours White.
	Mate int
}

func PawnScore(p float64) Score { return Score{Kind: Pawns, Pawns: p} }

func MateScore(n int) Score { return Score{Kind: Mate, Mate: n} }

func (s Score) Known() bool { return s.Kind != Unknown }

// FromUCI converts an engine score token ("cp" or "mate") reported relative to
// the side to move into a White-relative score.
func FromUCI(kind string, value int, sideToMove nchess.Color) Score {
	sign := 1
	if sideToMove == nchess.Black {
		sign = -1
	}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "cp":
		return PawnScore(float64(sign*value) / 100)
	case "mate":
		return MateScore(sign * value)
	default:
		return Score{}
	}
}

// ParseScore accepts the textual forms used on the wire: "+1.25", "-0.40",
// "M3", "M-2", "-M2", "#3". Anything else yields an Unknown score.
func ParseScore(raw string) Score {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Score{}
	}
	neg := false
	body := text
	if strings.HasPrefix(body, "-") && len(body) > 1 && (body[1] == 'M' || body[1] == 'm' || body[1] == '#') {
		neg = true
		body = body[1:]
	}
	if body[0] == 'M' || body[0] == 'm' || body[0] == '#' {
		n, err := strconv.Atoi(strings.TrimPrefix(body[1:], "+"))
		if err != nil {
			return Score{}
		}
		if neg {
			n = -n
		}
		return MateScore(n)
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Score{}
	}
	return PawnScore(v)
}

// Normalize folds pawn values at or beyond threshold into a mate score.
func (s Score) Normalize(threshold float64) Score {
	if s.Kind != Pawns || threshold <= 0 {
		return s
	}
	mag := math.Abs(s.Pawns)
	if mag < threshold {
		return s
	}
	moves := int(math.Round(MateBase - mag))
	if moves < 0 {
		moves = 0
	}
	if s.Pawns < 0 {
		moves = -moves
	}
	return Score{Kind: Mate, Mate: moves, Pawns: s.Pawns}
}

// String renders the wire form understood by ParseScore.
func (s Score) String() string {
	switch s.Kind {
	case Pawns:
		return FormatPawns(s.Pawns)
	case Mate:
		return FormatMate(s.Mate)
	default:
		return ""
	}
}

// FormatPawns prints two decimals with an explicit plus sign for positive
// values and no sign for zero.
func FormatPawns(v float64) string {
	rounded := math.Round(v*100) / 100
	switch {
	case rounded > 0:
		return fmt.Sprintf("+%.2f", rounded)
	case rounded == 0:
		return "0.00"
	default:
		return fmt.Sprintf("%.2f", rounded)
	}
}

func FormatMate(n int) string {
	if n < 0 {
		return fmt.Sprintf("M-%d", -n)
	}
	return fmt.Sprintf("M+%d", n)
}
