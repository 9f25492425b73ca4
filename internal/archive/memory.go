package archive

import (
	"context"
	"sort"
	"sync"

	"github.com/park285/Cheese-chess-client/internal/domain"
)

// Memory is the in-process archive used when no database is configured.
type Memory struct {
	mu        sync.RWMutex
	nextID    int64
	byID      map[int64]*domain.ChessGame
	bySession map[string]int64
}

func NewMemory() *Memory {
	return &Memory{
		byID:      make(map[int64]*domain.ChessGame),
		bySession: make(map[string]int64),
	}
}

func (m *Memory) Save(_ context.Context, game *domain.ChessGame) (int64, error) {
	if game == nil {
		return 0, ErrDuplicateGame
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.bySession[game.SessionUUID]; exists {
		return 0, ErrDuplicateGame
	}
	m.nextID++
	dup := cloneGame(game)
	dup.ID = m.nextID
	m.byID[dup.ID] = dup
	m.bySession[game.SessionUUID] = dup.ID
	return dup.ID, nil
}

func (m *Memory) Recent(_ context.Context, limit int) ([]*domain.ChessGame, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	m.mu.RLock()
	items := make([]*domain.ChessGame, 0, len(m.byID))
	for _, g := range m.byID {
		items = append(items, cloneGame(g))
	}
	m.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].ID > items[j].ID
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *Memory) Get(_ context.Context, id int64) (*domain.ChessGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneGame(g), nil
}

func cloneGame(g *domain.ChessGame) *domain.ChessGame {
	dup := *g
	dup.MovesUCI = append([]string(nil), g.MovesUCI...)
	dup.MovesSAN = append([]string(nil), g.MovesSAN...)
	return &dup
}
