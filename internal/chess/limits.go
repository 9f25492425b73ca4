package chess

import "github.com/park285/Cheese-chess-client/internal/chess/uci"

// Limits turns a per-move budget into search limits. A positive budget wins
// over the level default; the depth cap only applies when no time is given.
func (l Level) Limits(budgetMillis int) uci.Limits {
	if budgetMillis > 0 {
		return uci.Limits{MoveTimeMillis: budgetMillis}
	}
	if l.MoveTimeMillis > 0 {
		return uci.Limits{MoveTimeMillis: l.MoveTimeMillis}
	}
	return uci.Limits{Depth: l.DepthCap}
}
