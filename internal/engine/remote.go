package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Cheese-chess-client/internal/backend"
	"github.com/park285/Cheese-chess-client/internal/evalfmt"
)

// MoveRequester is the backend call behind Remote.
type MoveRequester interface {
	RequestMove(ctx context.Context, req backend.MoveRequest) (backend.MoveResponse, error)
}

// Remote asks the backend's move service. Every failure, transport or
// rejection, is reported as ErrNoMoveAvailable.
type Remote struct {
	client     MoveRequester
	engineName string
	logger     *zap.Logger
}

func NewRemote(client MoveRequester, engineName string, logger *zap.Logger) *Remote {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(engineName) == "" {
		engineName = "stockfish"
	}
	return &Remote{client: client, engineName: engineName, logger: logger}
}

func (r *Remote) GetMove(ctx context.Context, req Request) (Result, error) {
	if r.client == nil {
		return Result{}, fmt.Errorf("%w: no backend configured", ErrNoMoveAvailable)
	}
	start := time.Now()
	in := backend.MoveRequest{
		FEN:        req.FEN,
		Engine:     r.engineName,
		SkillLevel: req.Level,
		TimeLimit:  float64(req.BudgetMillis) / 1000,
	}
	if req.Increment > 0 {
		inc := req.Increment
		in.Increment = &inc
	}
	resp, err := r.client.RequestMove(ctx, in)
	if err != nil {
		r.logger.Warn("remote_move_failed", zap.String("fen", req.FEN), zap.Error(err))
		return Result{}, fmt.Errorf("%w: %v", ErrNoMoveAvailable, err)
	}
	mv := strings.ToLower(strings.TrimSpace(resp.MoveUCI))
	if !validMove(mv) {
		return Result{}, fmt.Errorf("%w: backend returned %q", ErrNoMoveAvailable, resp.MoveUCI)
	}
	return Result{
		Move:     mv,
		FEN:      resp.FEN,
		Score:    evalfmt.ParseScore(string(resp.Evaluation)),
		Duration: time.Since(start),
	}, nil
}

func (r *Remote) Close() error { return nil }

// DeepSearcher is the backend call behind BackendEvaluator.
type DeepSearcher interface {
	DeepEvaluate(ctx context.Context, fen string) (backend.EngineResults, error)
}

// BackendEvaluator adapts the backend deep evaluation endpoint.
type BackendEvaluator struct {
	client DeepSearcher
}

func NewBackendEvaluator(client DeepSearcher) *BackendEvaluator {
	return &BackendEvaluator{client: client}
}

func (b *BackendEvaluator) Evaluate(ctx context.Context, fen string) (Evaluation, error) {
	res, err := b.client.DeepEvaluate(ctx, fen)
	if err != nil {
		return Evaluation{}, err
	}
	return Evaluation{
		Score:    evalfmt.ParseScore(string(res.SearchScore)),
		BestMove: strings.TrimSpace(res.BestMove),
	}, nil
}
