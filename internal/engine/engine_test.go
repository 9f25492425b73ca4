package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/park285/Cheese-chess-client/internal/backend"
	"github.com/park285/Cheese-chess-client/internal/chess/uci"
	"github.com/park285/Cheese-chess-client/internal/chess/uci/ucitest"
	"github.com/park285/Cheese-chess-client/internal/evalfmt"
)

const blackToMove = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"

func workerLauncher(w *ucitest.Worker, launches *int32) Launcher {
	return func(ctx context.Context) (*uci.Session, error) {
		if launches != nil {
			atomic.AddInt32(launches, 1)
		}
		return uci.Attach(ctx, w.Stdin(), w.Stdout(), w.Close, uci.Options{}, nil)
	}
}

func TestLocalNormalizesScoreToWhite(t *testing.T) {
	w := ucitest.New(ucitest.BestMove("info depth 10 score cp 150 pv e2e4", "e2e4"))
	l := NewLocal(workerLauncher(w, nil))
	defer l.Close()

	res, err := l.GetMove(context.Background(), Request{FEN: blackToMove, Level: 5, BudgetMillis: 200})
	if err != nil {
		t.Fatalf("get move: %v", err)
	}
	if res.Move != "e2e4" || res.Evaluation() != "-1.50" {
		t.Fatalf("unexpected result move=%s eval=%s", res.Move, res.Evaluation())
	}

	got := w.Received()
	want := []string{
		"setoption name Skill Level value 5",
		"position fen " + blackToMove,
		"go movetime 200",
	}
	for _, line := range want {
		found := false
		for _, g := range got {
			if g == line {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("worker never received %q: %v", line, got)
		}
	}
}

func TestLocalStartsOnceForConcurrentCallers(t *testing.T) {
	w := ucitest.New(ucitest.BestMove("info depth 1 score mate 2 pv d1h5", "d1h5"))
	release := make(chan struct{})
	var launches int32
	inner := workerLauncher(w, &launches)
	l := NewLocal(func(ctx context.Context) (*uci.Session, error) {
		<-release
		return inner(ctx)
	})
	defer l.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := l.GetMove(context.Background(), Request{FEN: "startpos", Level: 20, BudgetMillis: 10})
			if err == nil && res.Score != evalfmt.MateScore(2) {
				err = errors.New("unexpected score " + res.Evaluation())
			}
			errs <- err
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("caller failed: %v", err)
		}
	}
	if n := atomic.LoadInt32(&launches); n != 1 {
		t.Fatalf("expected one worker, launched %d", n)
	}
}

func TestLocalStartupFailureIsSticky(t *testing.T) {
	var launches int32
	l := NewLocal(func(context.Context) (*uci.Session, error) {
		atomic.AddInt32(&launches, 1)
		return nil, errors.New("binary missing")
	})
	for i := 0; i < 2; i++ {
		_, err := l.GetMove(context.Background(), Request{FEN: "startpos"})
		if !errors.Is(err, ErrEngineUnavailable) {
			t.Fatalf("expected ErrEngineUnavailable, got %v", err)
		}
	}
	if atomic.LoadInt32(&launches) != 1 {
		t.Fatalf("startup must not be retried")
	}
}

func TestLocalWaitHonoursContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	l := NewLocal(func(context.Context) (*uci.Session, error) {
		<-block
		return nil, errors.New("never")
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.GetMove(ctx, Request{FEN: "startpos"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
}

func TestLocalNoMove(t *testing.T) {
	w := ucitest.New(ucitest.BestMove("info depth 0 score mate 0", "(none)"))
	l := NewLocal(workerLauncher(w, nil))
	defer l.Close()
	if _, err := l.GetMove(context.Background(), Request{FEN: "startpos", BudgetMillis: 10}); !errors.Is(err, ErrNoMoveAvailable) {
		t.Fatalf("expected ErrNoMoveAvailable, got %v", err)
	}
}

type fakeRequester struct {
	resp backend.MoveResponse
	err  error
	got  backend.MoveRequest
}

func (f *fakeRequester) RequestMove(_ context.Context, req backend.MoveRequest) (backend.MoveResponse, error) {
	f.got = req
	return f.resp, f.err
}

func TestRemoteMapsFailures(t *testing.T) {
	f := &fakeRequester{err: &backend.RejectedError{Op: "request move", Message: "busy"}}
	r := NewRemote(f, "", nil)
	if _, err := r.GetMove(context.Background(), Request{FEN: "f"}); !errors.Is(err, ErrNoMoveAvailable) {
		t.Fatalf("expected ErrNoMoveAvailable, got %v", err)
	}
	f.err = nil
	f.resp = backend.MoveResponse{Success: true, MoveUCI: "zz"}
	if _, err := r.GetMove(context.Background(), Request{FEN: "f"}); !errors.Is(err, ErrNoMoveAvailable) {
		t.Fatalf("malformed move must be rejected, got %v", err)
	}
}

func TestRemoteRequest(t *testing.T) {
	f := &fakeRequester{resp: backend.MoveResponse{Success: true, MoveUCI: "E7E5", FEN: "next", Evaluation: "-0.30"}}
	r := NewRemote(f, "komodo", nil)
	res, err := r.GetMove(context.Background(), Request{FEN: "f", Level: 9, BudgetMillis: 1500, Increment: 2})
	if err != nil {
		t.Fatalf("get move: %v", err)
	}
	if res.Move != "e7e5" || res.FEN != "next" || res.Evaluation() != "-0.30" {
		t.Fatalf("unexpected result %+v", res)
	}
	if f.got.Engine != "komodo" || f.got.SkillLevel != 9 || f.got.TimeLimit != 1.5 || f.got.Increment == nil || *f.got.Increment != 2 {
		t.Fatalf("unexpected request %+v", f.got)
	}
}

type fakeGateway struct{ move string }

func (g fakeGateway) GetMove(context.Context, Request) (Result, error) {
	return Result{Move: g.move}, nil
}
func (g fakeGateway) Close() error { return nil }

func TestHinter(t *testing.T) {
	h := NewHinter(fakeGateway{move: "g1f3"}, 20, 100)
	mv, err := h.Hint(context.Background(), "startpos")
	if err != nil || mv != "g1f3" {
		t.Fatalf("hint: %q %v", mv, err)
	}
	var nilHinter *Hinter
	if _, err := nilHinter.Hint(context.Background(), "x"); !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
}

type fakeDeep struct{ res backend.EngineResults }

func (f fakeDeep) DeepEvaluate(context.Context, string) (backend.EngineResults, error) {
	return f.res, nil
}

func TestBackendEvaluator(t *testing.T) {
	ev := NewBackendEvaluator(fakeDeep{res: backend.EngineResults{SearchScore: "M-3", BestMove: " a1a2 "}})
	got, err := ev.Evaluate(context.Background(), "f")
	if err != nil || got.Score != evalfmt.MateScore(-3) || got.BestMove != "a1a2" {
		t.Fatalf("unexpected %+v %v", got, err)
	}
}
