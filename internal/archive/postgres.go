package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/Cheese-chess-client/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS chess_games (
	id            BIGSERIAL PRIMARY KEY,
	session_uuid  TEXT NOT NULL UNIQUE,
	human_side    TEXT NOT NULL,
	opponent      TEXT NOT NULL,
	level         INTEGER NOT NULL,
	time_control  TEXT NOT NULL,
	result        TEXT NOT NULL,
	result_method TEXT NOT NULL,
	start_fen     TEXT NOT NULL,
	moves_uci     JSONB NOT NULL,
	moves_san     JSONB NOT NULL,
	pgn           TEXT NOT NULL,
	started_at    TIMESTAMPTZ NOT NULL,
	ended_at      TIMESTAMPTZ NOT NULL,
	duration_ms   BIGINT
)`

const selectColumns = `
	id,
	session_uuid,
	human_side,
	opponent,
	level,
	time_control,
	result,
	result_method,
	start_fen,
	moves_uci,
	moves_san,
	pgn,
	started_at,
	ended_at,
	duration_ms`

// Open connects to Postgres and makes sure the games table exists.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (r *Postgres) Save(ctx context.Context, game *domain.ChessGame) (int64, error) {
	if game == nil {
		return 0, fmt.Errorf("nil chess game payload")
	}

	movesUCI, err := json.Marshal(nonNil(game.MovesUCI))
	if err != nil {
		return 0, fmt.Errorf("marshal moves_uci: %w", err)
	}
	movesSAN, err := json.Marshal(nonNil(game.MovesSAN))
	if err != nil {
		return 0, fmt.Errorf("marshal moves_san: %w", err)
	}

	const query = `
		INSERT INTO chess_games (
			session_uuid,
			human_side,
			opponent,
			level,
			time_control,
			result,
			result_method,
			start_fen,
			moves_uci,
			moves_san,
			pgn,
			started_at,
			ended_at,
			duration_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10::jsonb, $11, $12, $13, $14)
		ON CONFLICT (session_uuid) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err = r.db.QueryRowContext(
		ctx,
		query,
		game.SessionUUID,
		game.HumanSide,
		game.Opponent,
		game.Level,
		game.TimeControl,
		game.Result,
		game.ResultMethod,
		game.StartFEN,
		movesUCI,
		movesSAN,
		game.PGN,
		game.StartedAt,
		game.EndedAt,
		game.Duration.Milliseconds(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !id.Valid) {
		return 0, ErrDuplicateGame
	}
	if err != nil {
		return 0, fmt.Errorf("insert chess game: %w", err)
	}
	return id.Int64, nil
}

func (r *Postgres) Recent(ctx context.Context, limit int) ([]*domain.ChessGame, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	rows, err := r.db.QueryContext(ctx, `SELECT`+selectColumns+`
		FROM chess_games
		ORDER BY ended_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select chess games: %w", err)
	}
	defer rows.Close()

	games := make([]*domain.ChessGame, 0, limit)
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chess games: %w", err)
	}
	return games, nil
}

func (r *Postgres) Get(ctx context.Context, id int64) (*domain.ChessGame, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+selectColumns+`
		FROM chess_games
		WHERE id = $1`, id)
	game, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return game, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(s scanner) (*domain.ChessGame, error) {
	var (
		game         domain.ChessGame
		movesUCIJSON []byte
		movesSANJSON []byte
		durationMS   sql.NullInt64
	)
	if err := s.Scan(
		&game.ID,
		&game.SessionUUID,
		&game.HumanSide,
		&game.Opponent,
		&game.Level,
		&game.TimeControl,
		&game.Result,
		&game.ResultMethod,
		&game.StartFEN,
		&movesUCIJSON,
		&movesSANJSON,
		&game.PGN,
		&game.StartedAt,
		&game.EndedAt,
		&durationMS,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan chess game: %w", err)
	}
	if durationMS.Valid {
		game.Duration = time.Duration(durationMS.Int64) * time.Millisecond
	}
	if err := json.Unmarshal(movesUCIJSON, &game.MovesUCI); err != nil {
		return nil, fmt.Errorf("unmarshal moves_uci: %w", err)
	}
	if err := json.Unmarshal(movesSANJSON, &game.MovesSAN); err != nil {
		return nil, fmt.Errorf("unmarshal moves_san: %w", err)
	}
	return &game, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
