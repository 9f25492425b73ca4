package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Cheese-chess-client/internal/chess"
	"github.com/park285/Cheese-chess-client/internal/chess/uci"
	"github.com/park285/Cheese-chess-client/internal/evalfmt"
)

const (
	defaultStartTimeout = 10 * time.Second
	defaultDeepBudget   = 1500
)

// Launcher starts a worker and completes its handshake.
type Launcher func(ctx context.Context) (*uci.Session, error)

// ProcessLauncher runs the engine binary at path.
func ProcessLauncher(path string, logger *zap.Logger) Launcher {
	return func(ctx context.Context) (*uci.Session, error) {
		return uci.NewSession(ctx, path, uci.Options{}, logger)
	}
}

type LocalOption func(*Local)

func WithLocalLogger(l *zap.Logger) LocalOption {
	return func(e *Local) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithStartTimeout(d time.Duration) LocalOption {
	return func(e *Local) {
		if d > 0 {
			e.startTimeout = d
		}
	}
}

// WithDeepBudget sets the search time used by Evaluate.
func WithDeepBudget(ms int) LocalOption {
	return func(e *Local) {
		if ms > 0 {
			e.deepBudget = ms
		}
	}
}

// Local runs a single UCI worker, started on first use. Concurrent callers
// wait for the same startup; a failed startup is reported to every later
// caller without retrying.
type Local struct {
	launch       Launcher
	logger       *zap.Logger
	startTimeout time.Duration
	deepBudget   int

	busy sync.Mutex

	mu       sync.Mutex
	started  bool
	ready    chan struct{}
	session  *uci.Session
	startErr error
	closed   bool
}

func NewLocal(launch Launcher, opts ...LocalOption) *Local {
	l := &Local{
		launch:       launch,
		logger:       zap.NewNop(),
		startTimeout: defaultStartTimeout,
		deepBudget:   defaultDeepBudget,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Local) acquire(ctx context.Context) (*uci.Session, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, fmt.Errorf("%w: closed", ErrEngineUnavailable)
	}
	if !l.started {
		l.started = true
		l.ready = make(chan struct{})
		go l.start(l.ready)
	}
	ready := l.ready
	l.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-ready:
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.startErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, l.startErr)
	}
	if l.session == nil {
		return nil, fmt.Errorf("%w: worker lost", ErrEngineUnavailable)
	}
	return l.session, nil
}

func (l *Local) start(ready chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), l.startTimeout)
	defer cancel()

	var (
		s   *uci.Session
		err error
	)
	if l.launch == nil {
		err = fmt.Errorf("no launcher configured")
	} else {
		s, err = l.launch(ctx)
	}

	l.mu.Lock()
	if l.closed && s != nil {
		_ = s.Close()
		s = nil
	}
	l.session, l.startErr = s, err
	l.mu.Unlock()
	close(ready)

	if err != nil {
		l.logger.Error("engine_start_failed", zap.Error(err))
		return
	}
	l.logger.Info("engine_started")
}

// discard drops a worker that failed mid-search so the next call relaunches.
func (l *Local) discard(s *uci.Session) {
	l.mu.Lock()
	if l.session == s {
		l.session = nil
		l.started = false
	}
	l.mu.Unlock()
	_ = s.Close()
}

// Warm starts the worker without searching.
func (l *Local) Warm(ctx context.Context) error {
	_, err := l.acquire(ctx)
	return err
}

func (l *Local) GetMove(ctx context.Context, req Request) (Result, error) {
	s, err := l.acquire(ctx)
	if err != nil {
		return Result{}, err
	}
	l.busy.Lock()
	defer l.busy.Unlock()
	start := time.Now()

	level := chess.ForSkill(req.Level)
	if err := s.Configure(ctx, level.Options()); err != nil {
		l.discard(s)
		return Result{}, fmt.Errorf("%w: configure: %v", ErrNoMoveAvailable, err)
	}
	resp, err := s.Search(ctx, uci.SearchRequest{FEN: req.FEN, Limits: level.Limits(req.BudgetMillis)})
	if err != nil {
		l.discard(s)
		return Result{}, fmt.Errorf("%w: %v", ErrNoMoveAvailable, err)
	}
	if !validMove(resp.BestMove) {
		return Result{}, fmt.Errorf("%w: engine returned %q", ErrNoMoveAvailable, resp.BestMove)
	}

	res := Result{Move: resp.BestMove, Duration: time.Since(start)}
	if best, ok := resp.Best(); ok && best.Scored {
		res.Score = evalfmt.FromUCI(best.Score.Kind, best.Score.Value, sideToMove(req.FEN))
	}
	l.logger.Debug("engine_move",
		zap.String("fen", req.FEN),
		zap.String("move_uci", res.Move),
		zap.String("evaluation", res.Evaluation()),
		zap.Duration("took", res.Duration))
	return res, nil
}

// Evaluate runs a full-strength search and reports its score and best move.
func (l *Local) Evaluate(ctx context.Context, fen string) (Evaluation, error) {
	res, err := l.GetMove(ctx, Request{FEN: fen, Level: chess.MaxSkill, BudgetMillis: l.deepBudget})
	if err != nil {
		return Evaluation{}, err
	}
	return Evaluation{Score: res.Score, BestMove: res.Move}, nil
}

func (l *Local) Close() error {
	l.mu.Lock()
	l.closed = true
	s := l.session
	l.session = nil
	l.mu.Unlock()
	if s != nil {
		return s.Close()
	}
	return nil
}
