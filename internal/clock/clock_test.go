package clock

import (
	"sync"
	"testing"
	"time"

	nchess "github.com/corentings/chess/v2"
)

type fakeTicker struct {
	ch      chan time.Time
	factory *fakeFactory
	once    sync.Once
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }

func (f *fakeTicker) Stop() {
	f.once.Do(func() {
		f.factory.mu.Lock()
		f.factory.active--
		f.factory.mu.Unlock()
	})
}

type fakeFactory struct {
	mu      sync.Mutex
	active  int
	tickers []*fakeTicker
}

func (f *fakeFactory) New(time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time), factory: f}
	f.tickers = append(f.tickers, t)
	f.active++
	return t
}

func (f *fakeFactory) last() *fakeTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tickers[len(f.tickers)-1]
}

func (f *fakeFactory) running() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func newTestClock(t *testing.T) (*Clock, *fakeFactory, chan [2]int) {
	t.Helper()
	ff := &fakeFactory{}
	c := New(WithTicker(ff.New))
	ticks := make(chan [2]int, 512)
	c.OnTick(func(w, b int) { ticks <- [2]int{w, b} })
	return c, ff, ticks
}

func tickOnce(t *testing.T, ft *fakeTicker, ticks <-chan [2]int) [2]int {
	t.Helper()
	select {
	case ft.ch <- time.Now():
	case <-time.After(time.Second):
		t.Fatalf("countdown not listening")
	}
	select {
	case got := <-ticks:
		return got
	case <-time.After(time.Second):
		t.Fatalf("tick not observed")
	}
	return [2]int{}
}

func TestInitSetsBothSides(t *testing.T) {
	c, ff, _ := newTestClock(t)
	c.Init(5)
	if c.Remaining(nchess.White) != 300 || c.Remaining(nchess.Black) != 300 {
		t.Fatalf("unexpected remaining %d/%d", c.Remaining(nchess.White), c.Remaining(nchess.Black))
	}
	if !c.Timed() || c.Active() != nchess.NoColor || ff.running() != 0 {
		t.Fatalf("init must leave the clock stopped")
	}
}

func TestFlagFallNamesWinner(t *testing.T) {
	c, ff, ticks := newTestClock(t)
	flags := make(chan nchess.Color, 1)
	c.OnFlag(func(w nchess.Color) { flags <- w })
	c.Init(5)
	c.Start(nchess.White, 0, 0)

	ft := ff.last()
	for i := 0; i < 300; i++ {
		tickOnce(t, ft, ticks)
	}
	select {
	case w := <-flags:
		if w != nchess.Black {
			t.Fatalf("expected black to win on time, got %v", w)
		}
	case <-time.After(time.Second):
		t.Fatalf("flag fall not raised")
	}
	if c.Remaining(nchess.White) != 0 || c.Remaining(nchess.Black) != 300 {
		t.Fatalf("unexpected remaining %d/%d", c.Remaining(nchess.White), c.Remaining(nchess.Black))
	}
	if c.Timed() || c.Active() != nchess.NoColor || ff.running() != 0 {
		t.Fatalf("clock must be stopped and untimed after flag fall")
	}
}

func TestDoubleStartKeepsOneCountdown(t *testing.T) {
	c, ff, ticks := newTestClock(t)
	c.Init(1)
	c.Start(nchess.White, 0, 0)
	first := ff.last()
	c.Start(nchess.White, 0, 0)
	if ff.running() != 1 {
		t.Fatalf("expected one running countdown, got %d", ff.running())
	}
	if ff.last() == first {
		t.Fatalf("second start must replace the ticker")
	}
	got := tickOnce(t, ff.last(), ticks)
	if got[0] != 59 {
		t.Fatalf("expected 59 after one tick, got %d", got[0])
	}
	got = tickOnce(t, ff.last(), ticks)
	if got[0] != 58 || got[1] != 60 {
		t.Fatalf("expected 58/60, got %v", got)
	}
}

func TestIncrementCreditedOncePerPly(t *testing.T) {
	c, _, _ := newTestClock(t)
	c.Init(1)
	c.Start(nchess.White, 2, 0)
	if c.Remaining(nchess.Black) != 60 || c.Remaining(nchess.White) != 60 {
		t.Fatalf("no credit before the first move")
	}
	c.Start(nchess.Black, 2, 1)
	c.Start(nchess.Black, 2, 1)
	if got := c.Remaining(nchess.White); got != 62 {
		t.Fatalf("white should be credited once, got %d", got)
	}
	c.Start(nchess.White, 2, 2)
	if got := c.Remaining(nchess.Black); got != 62 {
		t.Fatalf("black should be credited, got %d", got)
	}
	if c.Active() != nchess.White {
		t.Fatalf("white should be running")
	}
}

func TestResetStopsAndZeroes(t *testing.T) {
	c, ff, _ := newTestClock(t)
	c.Init(3)
	c.Start(nchess.Black, 0, 0)
	c.Reset()
	if ff.running() != 0 || c.Timed() || c.Remaining(nchess.White) != 0 || c.Remaining(nchess.Black) != 0 {
		t.Fatalf("reset incomplete")
	}
	c.Start(nchess.White, 0, 0)
	if ff.running() != 0 {
		t.Fatalf("untimed clock must not start")
	}
}

func TestParseControl(t *testing.T) {
	cases := map[string]Control{
		"":     {},
		"none": {},
		"5+3":  {Minutes: 5, Increment: 3},
		"10":   {Minutes: 10},
	}
	for raw, want := range cases {
		got, err := ParseControl(raw)
		if err != nil || got != want {
			t.Fatalf("%q: got %+v, %v", raw, got, err)
		}
	}
	for _, raw := range []string{"x+1", "5+y", "-1"} {
		if _, err := ParseControl(raw); err == nil {
			t.Fatalf("%q: expected error", raw)
		}
	}
	if Format(65) != "1:05" {
		t.Fatalf("format: %q", Format(65))
	}
}
