package clientbuilder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/park285/Cheese-chess-client/internal/archive"
	"github.com/park285/Cheese-chess-client/internal/config"
	"github.com/park285/Cheese-chess-client/internal/engine"
	"github.com/park285/Cheese-chess-client/internal/game"
)

func baseConfig() *config.AppConfig {
	return &config.AppConfig{
		EngineBackend:  config.EngineLocal,
		EngineName:     "stockfish",
		StockfishPath:  "/nonexistent/stockfish",
		SkillLevel:     8,
		MoveTimeMillis: 200,
		HumanSide:      "black",
		TimeControl:    "3+2",
		MateThreshold:  900,
	}
}

func TestNewLocalWithoutStores(t *testing.T) {
	d, err := New(context.Background(), baseConfig(), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer d.Close()

	if _, ok := d.Archive.(*archive.Memory); !ok {
		t.Fatalf("expected memory archive, got %T", d.Archive)
	}
	if _, ok := d.Opponent.(*engine.Local); !ok {
		t.Fatalf("expected local engine, got %T", d.Opponent)
	}
	if d.Backend != nil || d.Hub != nil {
		t.Fatalf("backend and hub should be off")
	}
	if d.Defaults.Seat != game.SeatBlack || d.Defaults.TimeControl.Minutes != 3 || d.Defaults.TimeControl.Increment != 2 {
		t.Fatalf("unexpected defaults %+v", d.Defaults)
	}
	if snap := d.Controller.Snapshot(); snap.State != game.Idle {
		t.Fatalf("expected idle controller, got %s", snap.State)
	}
}

func TestNewRemoteWithCacheAndFeed(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	cfg := baseConfig()
	cfg.EngineBackend = config.EngineRemote
	cfg.APIBaseURL = "http://127.0.0.1:1"
	cfg.RedisURL = "redis://" + mr.Addr()
	cfg.FeedAddr = "127.0.0.1:0"
	cfg.ConfirmMoves = true
	cfg.MovePath = "/v2/move"

	d, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer d.Close()

	if d.Backend == nil || d.Hub == nil || d.rdb == nil {
		t.Fatalf("expected backend, hub and redis to be wired")
	}
	if _, ok := d.Opponent.(*engine.Remote); !ok {
		t.Fatalf("expected remote engine, got %T", d.Opponent)
	}
	if got := paths(cfg).Move; got != "/v2/move" {
		t.Fatalf("path override ignored: %s", got)
	}
}

func TestWarmReportsMissingEngine(t *testing.T) {
	d, err := New(context.Background(), baseConfig(), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Warm(ctx); !errors.Is(err, engine.ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}

	remote := &Deps{Opponent: engine.NewRemote(nil, "remote", nil)}
	if err := remote.Warm(ctx); err != nil {
		t.Fatalf("remote engine needs no warm-up, got %v", err)
	}
}

func TestNewRejectsBadRedis(t *testing.T) {
	cfg := baseConfig()
	cfg.RedisURL = "http://not-redis"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected redis url error")
	}
}

func TestHeaders(t *testing.T) {
	cfg := baseConfig()
	cfg.XUserID = "u1"
	h := headers(cfg)()
	if h["X-User-Id"] != "u1" {
		t.Fatalf("missing user header: %v", h)
	}
	if _, ok := h["X-Session-Id"]; ok {
		t.Fatalf("empty session id should be omitted")
	}
}
