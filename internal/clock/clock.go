package clock

import (
	"fmt"
	"sync"
	"time"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"
)

// Ticker is the periodic source driving the countdown.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

func systemTicker(d time.Duration) Ticker { return realTicker{t: time.NewTicker(d)} }

type Option func(*Clock)

func WithTicker(f TickerFactory) Option {
	return func(c *Clock) {
		if f != nil {
			c.newTicker = f
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Clock) {
		if l != nil {
			c.logger = l
		}
	}
}

// Clock is a two-sided countdown in whole seconds. At most one side counts
// down at a time.
type Clock struct {
	mu        sync.Mutex
	remaining [2]int
	active    nchess.Color
	timed     bool
	credited  map[int]struct{}

	ticker Ticker
	stopCh chan struct{}
	gen    uint64

	onFlag func(winner nchess.Color)
	onTick func(white, black int)

	newTicker TickerFactory
	logger    *zap.Logger
}

func New(opts ...Option) *Clock {
	c := &Clock{
		active:    nchess.NoColor,
		credited:  make(map[int]struct{}),
		newTicker: systemTicker,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func slot(color nchess.Color) int {
	if color == nchess.Black {
		return 1
	}
	return 0
}

func other(color nchess.Color) nchess.Color {
	if color == nchess.White {
		return nchess.Black
	}
	return nchess.White
}

// OnFlag registers the flag-fall callback. It runs outside the clock lock.
func (c *Clock) OnFlag(fn func(winner nchess.Color)) {
	c.mu.Lock()
	c.onFlag = fn
	c.mu.Unlock()
}

// OnTick registers a callback invoked after every decrement.
func (c *Clock) OnTick(fn func(white, black int)) {
	c.mu.Lock()
	c.onTick = fn
	c.mu.Unlock()
}

// Reset stops the countdown, zeroes both sides and clears the timed flag.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Clock) resetLocked() {
	c.stopLocked()
	c.remaining = [2]int{}
	c.timed = false
	c.credited = make(map[int]struct{})
}

// Init resets the clock and gives both sides minutes*60 seconds. The clock
// stays stopped until Start.
func (c *Clock) Init(minutes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	if minutes <= 0 {
		return
	}
	c.remaining = [2]int{minutes * 60, minutes * 60}
	c.timed = true
}

// Start credits the side that produced ply with increment (once per ply), then
// runs colorToMove's countdown. Any previous countdown is stopped first.
func (c *Clock) Start(colorToMove nchess.Color, increment int, ply int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.timed {
		return
	}
	if ply > 0 && increment > 0 {
		if _, done := c.credited[ply]; !done {
			c.credited[ply] = struct{}{}
			c.remaining[slot(other(colorToMove))] += increment
		}
	}
	c.stopLocked()

	c.active = colorToMove
	c.gen++
	c.ticker = c.newTicker(time.Second)
	c.stopCh = make(chan struct{})
	go c.run(c.ticker, c.stopCh, c.gen)
}

// Stop halts the running countdown, if any.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Clock) stopLocked() {
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
	if c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
	}
	c.active = nchess.NoColor
}

func (c *Clock) run(t Ticker, stop <-chan struct{}, gen uint64) {
	for {
		select {
		case <-stop:
			return
		case <-t.C():
			if !c.tick(gen) {
				return
			}
		}
	}
}

// tick decrements the active side. It returns false once this countdown is over.
func (c *Clock) tick(gen uint64) bool {
	c.mu.Lock()
	if gen != c.gen || c.active == nchess.NoColor {
		c.mu.Unlock()
		return false
	}
	side := c.active
	i := slot(side)
	c.remaining[i]--
	white, black := c.remaining[0], c.remaining[1]
	onTick := c.onTick

	if c.remaining[i] > 0 {
		c.mu.Unlock()
		if onTick != nil {
			onTick(white, black)
		}
		return true
	}

	c.remaining[i] = 0
	c.timed = false
	c.stopLocked()
	winner := other(side)
	onFlag := c.onFlag
	c.mu.Unlock()

	c.logger.Info("clock_flag_fall", zap.String("flagged", colorName(side)), zap.String("winner", colorName(winner)))
	if onTick != nil {
		if side == nchess.White {
			white = 0
		} else {
			black = 0
		}
		onTick(white, black)
	}
	if onFlag != nil {
		onFlag(winner)
	}
	return false
}

// Remaining returns color's seconds left.
func (c *Clock) Remaining(color nchess.Color) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining[slot(color)]
}

// Active returns the side counting down, or NoColor.
func (c *Clock) Active() nchess.Color {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *Clock) Timed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timed
}

// Format renders seconds as m:ss.
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func colorName(c nchess.Color) string {
	switch c {
	case nchess.White:
		return "white"
	case nchess.Black:
		return "black"
	default:
		return "none"
	}
}
