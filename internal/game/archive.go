package game

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Cheese-chess-client/internal/archive"
	"github.com/park285/Cheese-chess-client/internal/domain"
)

const archiveTimeout = 10 * time.Second

// archiveAsync hands a finished session to the archiver. Caller holds c.mu.
func (c *Controller) archiveAsync(s *Session) {
	if c.archiver == nil {
		return
	}
	record := c.recordLocked(s)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), archiveTimeout)
		defer cancel()
		id, err := c.archiver.Save(ctx, record)
		switch {
		case errors.Is(err, archive.ErrDuplicateGame):
			c.logger.Debug("game_already_archived", zap.String("session_id", s.ID))
		case err != nil:
			c.logger.Warn("game_archive_failed", zap.String("session_id", s.ID), zap.Error(err))
		default:
			c.logger.Info("game_archived", zap.String("session_id", s.ID), zap.Int64("game_id", id))
		}
	}()
}

func (c *Controller) recordLocked(s *Session) *domain.ChessGame {
	plies := s.History.Plies()
	uci := make([]string, 0, len(plies)-1)
	san := make([]string, 0, len(plies)-1)
	for _, p := range plies[1:] {
		uci = append(uci, p.UCI)
		san = append(san, p.SAN)
	}
	pgn, err := c.positions.PGN(s.StartFEN, uci, s.Result)
	if err != nil {
		c.logger.Debug("pgn_export_failed", zap.String("session_id", s.ID), zap.Error(err))
	}
	opponent := c.cfg.EngineName
	if s.Options.Seat == SeatBoth {
		opponent = "human"
	}
	return &domain.ChessGame{
		SessionUUID:  s.ID,
		HumanSide:    s.Options.Seat.String(),
		Opponent:     opponent,
		Level:        s.Options.Level,
		TimeControl:  s.Options.TimeControl.String(),
		Result:       s.Result,
		ResultMethod: s.Method,
		StartFEN:     s.StartFEN,
		MovesUCI:     uci,
		MovesSAN:     san,
		PGN:          pgn,
		StartedAt:    s.StartedAt,
		EndedAt:      s.EndedAt,
		Duration:     s.EndedAt.Sub(s.StartedAt),
	}
}
