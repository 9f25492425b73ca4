package archive

import (
	"context"
	"errors"

	"github.com/park285/Cheese-chess-client/internal/domain"
)

var (
	ErrDuplicateGame = errors.New("chess game already exists")
	ErrNotFound      = errors.New("chess game not found")
)

// Archive stores finished games. A session is archived at most once.
type Archive interface {
	Save(ctx context.Context, game *domain.ChessGame) (int64, error)
	Recent(ctx context.Context, limit int) ([]*domain.ChessGame, error)
	Get(ctx context.Context, id int64) (*domain.ChessGame, error)
}

const defaultRecentLimit = 10
