package evalfmt

import (
	nchess "github.com/corentings/chess/v2"
)

const (
	// DefaultMateThreshold is the pawn magnitude from which a numeric score is
	// read as a mate encoding.
	DefaultMateThreshold = 900.0

	barClamp = 10.0
)

// Terminal describes how a position ended, if it did.
type Terminal int

const (
	NotTerminal Terminal = iota
	Checkmate
	Drawn
)

// Position is everything the advantage bar needs to know.
type Position struct {
	Score      Score
	Terminal   Terminal
	SideToMove nchess.Color
}

// Display is the advantage bar state: Percent is White's share in [0,100].
type Display struct {
	Text    string
	Percent float64
}

var neutral = Display{Text: "0.00", Percent: 50}

// Neutral is shown for missing or unreadable scores.
func Neutral() Display { return neutral }

// Present maps a position's evaluation to the bar. It never fails: anything it
// cannot read comes back neutral.
func Present(p Position, mateThreshold float64) Display {
	switch p.Terminal {
	case Checkmate:
		if p.SideToMove == nchess.Black {
			return Display{Text: "1-0", Percent: 100}
		}
		return Display{Text: "0-1", Percent: 0}
	case Drawn:
		return Display{Text: "1/2-1/2", Percent: 50}
	}

	s := p.Score.Normalize(mateThreshold)
	switch s.Kind {
	case Mate:
		pct := 0.0
		switch {
		case s.Mate > 0:
			pct = 100
		case s.Mate == 0 && s.Pawns != 0:
			if s.Pawns > 0 {
				pct = 100
			}
		case s.Mate == 0:
			// M0: the side to move is already mated.
			if p.SideToMove == nchess.Black {
				pct = 100
			}
		}
		return Display{Text: FormatMate(s.Mate), Percent: pct}
	case Pawns:
		clamped := s.Pawns
		if clamped > barClamp {
			clamped = barClamp
		}
		if clamped < -barClamp {
			clamped = -barClamp
		}
		return Display{Text: FormatPawns(s.Pawns), Percent: 50 + (clamped/20)*100}
	default:
		return neutral
	}
}

// PresentText is Present for callers holding only the wire string.
func PresentText(raw string, sideToMove nchess.Color, mateThreshold float64) Display {
	return Present(Position{Score: ParseScore(raw), SideToMove: sideToMove}, mateThreshold)
}
