package evalcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/Cheese-chess-client/internal/engine"
	"github.com/park285/Cheese-chess-client/internal/evalfmt"
)

const DefaultTTL = 24 * time.Hour

type entry struct {
	Score    string `json:"score"`
	BestMove string `json:"best_move,omitempty"`
}

// Cache memoises deep evaluations in Redis. Redis errors never fail a lookup;
// the wrapped evaluator answers instead.
type Cache struct {
	rdb    *redis.Client
	next   engine.Evaluator
	ttl    time.Duration
	logger *zap.Logger
}

func New(rdb *redis.Client, next engine.Evaluator, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{rdb: rdb, next: next, ttl: ttl, logger: logger}
}

// Open connects to the Redis server at url and checks it answers.
func Open(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(strings.TrimSpace(url))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Key identifies a position regardless of its move counters.
func Key(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) > 4 {
		fields = fields[:4]
	}
	sum := sha256.Sum256([]byte(strings.Join(fields, " ")))
	return "eval:" + hex.EncodeToString(sum[:])
}

func (c *Cache) Evaluate(ctx context.Context, fen string) (engine.Evaluation, error) {
	key := Key(fen)
	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var e entry
			if jerr := json.Unmarshal(raw, &e); jerr == nil {
				return engine.Evaluation{Score: evalfmt.ParseScore(e.Score), BestMove: e.BestMove}, nil
			}
			c.logger.Warn("evalcache_decode_error", zap.String("key", key))
		case errors.Is(err, redis.Nil):
		default:
			c.logger.Warn("evalcache_get_error", zap.String("key", key), zap.Error(err))
		}
	}

	ev, err := c.next.Evaluate(ctx, fen)
	if err != nil {
		return engine.Evaluation{}, err
	}
	if c.rdb != nil && ev.Score.Known() {
		raw, _ := json.Marshal(entry{Score: ev.Score.String(), BestMove: ev.BestMove})
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.Warn("evalcache_set_error", zap.String("key", key), zap.Error(err))
		}
	}
	return ev, nil
}
