package consoleview

import (
	"github.com/park285/Cheese-chess-client/internal/domain"
	"github.com/park285/Cheese-chess-client/pkg/chessdto"
)

func toDTOGame(g *domain.ChessGame) *chessdto.ChessGame {
	if g == nil {
		return nil
	}
	return &chessdto.ChessGame{
		ID:           g.ID,
		SessionUUID:  g.SessionUUID,
		HumanSide:    g.HumanSide,
		Opponent:     g.Opponent,
		Level:        g.Level,
		TimeControl:  g.TimeControl,
		Result:       g.Result,
		ResultMethod: g.ResultMethod,
		MovesSAN:     append([]string{}, g.MovesSAN...),
		PGN:          g.PGN,
		StartedAt:    g.StartedAt,
		EndedAt:      g.EndedAt,
		DurationSec:  int64(g.Duration.Seconds()),
	}
}

// ToDTOGames converts archive records for display.
func ToDTOGames(games []*domain.ChessGame) []chessdto.ChessGame {
	out := make([]chessdto.ChessGame, 0, len(games))
	for _, g := range games {
		if d := toDTOGame(g); d != nil {
			out = append(out, *d)
		}
	}
	return out
}

// ToDTOGame converts a single archive record; nil stays nil.
func ToDTOGame(g *domain.ChessGame) *chessdto.ChessGame { return toDTOGame(g) }
