package consoleview

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"github.com/park285/Cheese-chess-client/internal/game"
	"github.com/park285/Cheese-chess-client/internal/render"
)

const (
	snapshotFile  = "board.png"
	renderTimeout = 5 * time.Second
)

type Option func(*Presenter)

// WithClockTicks prints a clock line whenever only the clocks changed.
func WithClockTicks(on bool) Option {
	return func(p *Presenter) { p.ticks = on }
}

// WithSnapshotDir writes a PNG of every new board into dir.
func WithSnapshotDir(dir string) Option {
	return func(p *Presenter) { p.snapshotDir = dir }
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Presenter) {
		if l != nil {
			p.logger = l
		}
	}
}

// Presenter is a game.View that prints to a terminal.
type Presenter struct {
	mu          sync.Mutex
	out         io.Writer
	format      *Formatter
	ticks       bool
	snapshotDir string
	logger      *zap.Logger
	lastKey     string
	lastClock   string
}

func NewPresenter(out io.Writer, format *Formatter, opts ...Option) *Presenter {
	if format == nil {
		format = NewFormatter(false)
	}
	p := &Presenter{out: out, format: format, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Sync prints the board when anything other than the clocks changed.
func (p *Presenter) Sync(s game.Snapshot) {
	key := boardKey(s)
	p.mu.Lock()
	defer p.mu.Unlock()

	if key == p.lastKey {
		if !p.ticks || !s.Clock.Timed {
			return
		}
		line := clockLine(s)
		if line == p.lastClock {
			return
		}
		p.lastClock = line
		p.println(line)
		return
	}
	p.lastKey = key
	p.lastClock = clockLine(s)
	p.println(p.format.Board(s))
	if p.snapshotDir != "" && s.State != game.Idle {
		p.writeImage(s)
	}
}

func (p *Presenter) Notice(n game.Notice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.println(p.format.Notice(n))
}

// Print writes free text such as command output.
func (p *Presenter) Print(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.println(text)
}

func (p *Presenter) println(text string) {
	if _, err := fmt.Fprintln(p.out, text); err != nil {
		p.logger.Debug("console_write_failed", zap.Error(err))
	}
}

func (p *Presenter) writeImage(s game.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), renderTimeout)
	defer cancel()
	png, err := render.PNG(ctx, s.FEN, ImageOptions(s))
	if err != nil {
		p.logger.Warn("board_render_failed", zap.Error(err))
		return
	}
	path := filepath.Join(p.snapshotDir, snapshotFile)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		p.logger.Warn("board_write_failed", zap.String("path", path), zap.Error(err))
	}
}

// ImageOptions maps a snapshot onto render options.
func ImageOptions(s game.Snapshot) render.Options {
	opts := render.Options{
		Flipped:  s.Orientation == nchess.Black,
		LastMove: s.LastMove,
		Check:    s.Check,
		Hint:     s.Hint,
		Header:   strings.TrimSpace(s.Eval.Text + "  " + s.Opening),
	}
	return opts
}

func boardKey(s game.Snapshot) string {
	return fmt.Sprintf("%s|%s|%d|%d|%d|%s|%s|%s|%s",
		s.SessionID, s.State, s.Cursor, s.Length, s.Orientation, s.FEN, s.Eval.Text, s.Hint, s.Result)
}
