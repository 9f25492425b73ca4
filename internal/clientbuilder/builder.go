package clientbuilder

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/Cheese-chess-client/internal/archive"
	"github.com/park285/Cheese-chess-client/internal/backend"
	"github.com/park285/Cheese-chess-client/internal/clock"
	"github.com/park285/Cheese-chess-client/internal/config"
	"github.com/park285/Cheese-chess-client/internal/engine"
	"github.com/park285/Cheese-chess-client/internal/evalcache"
	"github.com/park285/Cheese-chess-client/internal/feed"
	"github.com/park285/Cheese-chess-client/internal/game"
	"github.com/park285/Cheese-chess-client/internal/msgcat"
	"github.com/park285/Cheese-chess-client/internal/position"
)

const (
	connectTimeout = 5 * time.Second
	hintBudget     = 300
)

type Deps struct {
	Controller *game.Controller
	Backend    *backend.Client
	Opponent   engine.Gateway
	Archive    archive.Archive
	Hub        *feed.Hub
	Messages   *msgcat.Catalog
	Defaults   game.GameOptions

	db  *sql.DB
	rdb *redis.Client
}

// New wires every component selected by cfg. Redis and Postgres are optional:
// without them deep evaluations are not cached and games are archived in
// memory.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deps{}

	defaults, err := defaultOptions(cfg)
	if err != nil {
		return nil, err
	}
	d.Defaults = defaults

	messages, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	d.Messages = messages

	if cfg.APIBaseURL != "" {
		d.Backend = backend.NewClient(cfg.APIBaseURL,
			backend.WithTimeout(cfg.APITimeout),
			backend.WithPaths(paths(cfg)),
			backend.WithHeaderProvider(headers(cfg)),
			backend.WithLogger(logger.Named("backend")),
		)
	}

	var evaluator engine.Evaluator
	switch cfg.EngineBackend {
	case config.EngineRemote:
		d.Opponent = engine.NewRemote(d.Backend, cfg.EngineName, logger.Named("engine"))
		evaluator = engine.NewBackendEvaluator(d.Backend)
	default:
		local := engine.NewLocal(engine.ProcessLauncher(cfg.StockfishPath, logger.Named("uci")),
			engine.WithLocalLogger(logger.Named("engine")),
			engine.WithDeepBudget(cfg.DeepEvalMillis),
		)
		d.Opponent = local
		if d.Backend != nil {
			evaluator = engine.NewBackendEvaluator(d.Backend)
		} else {
			evaluator = local
		}
	}

	if cfg.RedisURL != "" {
		cctx, cancel := context.WithTimeout(ctx, connectTimeout)
		rdb, err := evalcache.Open(cctx, cfg.RedisURL)
		cancel()
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("init eval cache: %w", err)
		}
		d.rdb = rdb
		evaluator = evalcache.New(rdb, evaluator, cfg.EvalCacheTTL, logger.Named("evalcache"))
	}

	if cfg.DatabaseURL != "" {
		cctx, cancel := context.WithTimeout(ctx, connectTimeout)
		db, err := archive.Open(cctx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("init archive: %w", err)
		}
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(30 * time.Minute)
		d.db = db
		d.Archive = archive.NewPostgres(db)
	} else {
		d.Archive = archive.NewMemory()
	}

	deps := game.Deps{
		Positions: position.New(),
		Opponent:  d.Opponent,
		Evaluator: evaluator,
		Hinter:    engine.NewHinter(d.Opponent, defaults.Level, hintBudget),
		Clock:     clock.New(clock.WithLogger(logger.Named("clock"))),
		Archiver:  d.Archive,
		Messages:  messages,
	}
	if d.Backend != nil {
		deps.Scanner = d.Backend
		if cfg.ConfirmMoves {
			deps.Confirmer = d.Backend
		}
	}
	d.Controller = game.New(deps, game.Config{
		MateThreshold: cfg.MateThreshold,
		EngineName:    cfg.EngineName,
	}, logger.Named("game"))

	if cfg.FeedAddr != "" {
		d.Hub = feed.NewHub(feed.WithHubLogger(logger.Named("feed")))
		d.Controller.AddView(d.Hub)
	}
	return d, nil
}

func defaultOptions(cfg *config.AppConfig) (game.GameOptions, error) {
	seat, err := game.ParseSeat(cfg.HumanSide)
	if err != nil {
		return game.GameOptions{}, err
	}
	tc, err := clock.ParseControl(cfg.TimeControl)
	if err != nil {
		return game.GameOptions{}, err
	}
	return game.GameOptions{
		Seat:        seat,
		Level:       cfg.SkillLevel,
		MoveTime:    cfg.MoveTimeMillis,
		TimeControl: tc,
	}, nil
}

func paths(cfg *config.AppConfig) backend.Paths {
	p := backend.DefaultPaths()
	override := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	override(&p.Confirm, cfg.ConfirmPath)
	override(&p.Move, cfg.MovePath)
	override(&p.Evaluate, cfg.EvaluatePath)
	override(&p.AnalyzeImage, cfg.AnalyzeImagePath)
	override(&p.Chat, cfg.ChatPath)
	return p
}

func headers(cfg *config.AppConfig) backend.HeaderProvider {
	return func() map[string]string {
		h := map[string]string{}
		if cfg.XUserID != "" {
			h["X-User-Id"] = cfg.XUserID
		}
		if cfg.XSessionID != "" {
			h["X-Session-Id"] = cfg.XSessionID
		}
		return h
	}
}

// Warm starts a local engine process ahead of the first search. Remote
// engines have nothing to warm.
func (d *Deps) Warm(ctx context.Context) error {
	w, ok := d.Opponent.(interface{ Warm(context.Context) error })
	if !ok {
		return nil
	}
	return w.Warm(ctx)
}

// Close stops the controller and releases every connection New opened.
func (d *Deps) Close() error {
	var errs []string
	if d.Controller != nil {
		if err := d.Controller.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if d.Hub != nil {
		d.Hub.Close()
	}
	if d.Opponent != nil {
		if err := d.Opponent.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if d.rdb != nil {
		if err := d.rdb.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close: %s", strings.Join(errs, "; "))
	}
	return nil
}
