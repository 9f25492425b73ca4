package evalcache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/park285/Cheese-chess-client/internal/engine"
	"github.com/park285/Cheese-chess-client/internal/evalfmt"
)

type countingEvaluator struct {
	calls int32
	ev    engine.Evaluation
	err   error
}

func (c *countingEvaluator) Evaluate(context.Context, string) (engine.Evaluation, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.ev, c.err
}

func newCache(t *testing.T, next engine.Evaluator) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, next, time.Minute, nil), mr
}

const fen = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"

func TestCacheHit(t *testing.T) {
	next := &countingEvaluator{ev: engine.Evaluation{Score: evalfmt.PawnScore(0.3), BestMove: "c7c5"}}
	c, mr := newCache(t, next)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := c.Evaluate(ctx, fen)
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if got.Score.String() != "+0.30" || got.BestMove != "c7c5" {
			t.Fatalf("unexpected evaluation %+v", got)
		}
	}
	if next.calls != 1 {
		t.Fatalf("expected one backend call, got %d", next.calls)
	}
	if !mr.Exists(Key(fen)) {
		t.Fatalf("entry not stored")
	}
	if ttl := mr.TTL(Key(fen)); ttl != time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := c.Evaluate(ctx, fen); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if next.calls != 2 {
		t.Fatalf("expired entry should be recomputed, calls=%d", next.calls)
	}
}

func TestKeyIgnoresCounters(t *testing.T) {
	if Key(fen) != Key("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 7 12") {
		t.Fatalf("move counters must not change the key")
	}
	if Key(fen) == Key("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e3 0 1") {
		t.Fatalf("side to move must change the key")
	}
}

func TestCacheDegradesWhenRedisDown(t *testing.T) {
	next := &countingEvaluator{ev: engine.Evaluation{Score: evalfmt.MateScore(2)}}
	c, mr := newCache(t, next)
	mr.Close()
	got, err := c.Evaluate(context.Background(), fen)
	if err != nil || got.Score != evalfmt.MateScore(2) {
		t.Fatalf("expected pass-through, got %+v %v", got, err)
	}
}

func TestCacheSkipsFailuresAndUnknown(t *testing.T) {
	next := &countingEvaluator{err: errors.New("backend down")}
	c, mr := newCache(t, next)
	if _, err := c.Evaluate(context.Background(), fen); err == nil {
		t.Fatalf("expected error")
	}
	next.err = nil
	next.ev = engine.Evaluation{}
	if _, err := c.Evaluate(context.Background(), fen); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if mr.Exists(Key(fen)) {
		t.Fatalf("unknown score must not be cached")
	}
}
