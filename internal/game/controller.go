package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	nchess "github.com/corentings/chess/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/Cheese-chess-client/internal/clock"
	"github.com/park285/Cheese-chess-client/internal/engine"
	"github.com/park285/Cheese-chess-client/internal/history"
	"github.com/park285/Cheese-chess-client/internal/position"
)

// Session is one game, replaced wholesale by every new game or load.
type Session struct {
	ID          string
	StartFEN    string
	History     *history.Store
	Options     GameOptions
	Orientation nchess.Color
	State       State
	Result      string
	Method      string
	StartedAt   time.Time
	EndedAt     time.Time

	// pending is the locally applied move awaiting confirmation.
	pending         *position.Applied
	opponentRunning bool
}

// Deps are the collaborators of a Controller. Only Positions is required.
type Deps struct {
	Positions *position.Engine
	Opponent  engine.Gateway
	Evaluator engine.Evaluator
	Hinter    *engine.Hinter
	Confirmer Confirmer
	Scanner   Scanner
	Clock     *clock.Clock
	Archiver  Archiver
	Messages  Messages
}

// Controller owns the session and sequences human moves, backend
// confirmation and automated replies.
type Controller struct {
	mu      sync.Mutex
	session *Session

	positions *position.Engine
	opponent  engine.Gateway
	evaluator engine.Evaluator
	hinter    *engine.Hinter
	confirmer Confirmer
	scanner   Scanner
	clock     *clock.Clock
	archiver  Archiver
	messages  Messages

	viewsMu sync.RWMutex
	views   []View

	cfg    Config
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(deps Deps, cfg Config, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Positions == nil {
		deps.Positions = position.New()
	}
	if deps.Clock == nil {
		deps.Clock = clock.New(clock.WithLogger(logger))
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		positions: deps.Positions,
		opponent:  deps.Opponent,
		evaluator: deps.Evaluator,
		hinter:    deps.Hinter,
		confirmer: deps.Confirmer,
		scanner:   deps.Scanner,
		clock:     deps.Clock,
		archiver:  deps.Archiver,
		messages:  deps.Messages,
		cfg:       cfg.withDefaults(),
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
	c.clock.OnFlag(c.onFlag)
	c.clock.OnTick(func(int, int) { c.publish() })
	return c
}

// AddView registers a sink for snapshots and notices.
func (c *Controller) AddView(v View) {
	if v == nil {
		return
	}
	c.viewsMu.Lock()
	c.views = append(c.views, v)
	c.viewsMu.Unlock()
}

// NewGame starts from the standard position.
func (c *Controller) NewGame(ctx context.Context, opts GameOptions) (Snapshot, error) {
	return c.LoadFEN(ctx, position.StartFEN, opts)
}

// LoadFEN replaces the session with one starting at fen.
func (c *Controller) LoadFEN(ctx context.Context, fen string, opts GameOptions) (Snapshot, error) {
	start, err := c.positions.Start(fen)
	if err != nil {
		return Snapshot{}, c.rejectPosition(err)
	}
	return c.begin(start, nil, opts), nil
}

// LoadPGN replaces the session with the main line of pgn, cursor on its last ply.
func (c *Controller) LoadPGN(ctx context.Context, pgn string, opts GameOptions) (Snapshot, error) {
	start, applied, err := c.positions.ParsePGN(pgn)
	if err != nil {
		return Snapshot{}, c.rejectPosition(err)
	}
	return c.begin(start, applied, opts), nil
}

// LoadScan asks the backend to read a board from an image and loads it.
func (c *Controller) LoadScan(ctx context.Context, filename string, image []byte, opts GameOptions) (Snapshot, error) {
	if c.scanner == nil {
		c.notify(NoticeScanFailed, map[string]string{"Reason": "image analysis is not configured"}, false)
		return Snapshot{}, fmt.Errorf("%w: image analysis is not configured", ErrInvalidPosition)
	}
	resp, err := c.scanner.AnalyzeImage(ctx, filename, image)
	if err != nil {
		c.logger.Warn("scan_failed", zap.String("file", filename), zap.Error(err))
		c.notify(NoticeScanFailed, map[string]string{"Reason": err.Error()}, false)
		return Snapshot{}, fmt.Errorf("scan: %w", err)
	}
	return c.LoadFEN(ctx, resp.FEN, opts)
}

func (c *Controller) rejectPosition(err error) error {
	c.logger.Info("position_rejected", zap.Error(err))
	c.notify(NoticePositionInvalid, map[string]string{"Reason": err.Error()}, true)
	return fmt.Errorf("%w: %v", ErrInvalidPosition, err)
}

func (c *Controller) begin(start history.Ply, applied []position.Applied, opts GameOptions) Snapshot {
	s := &Session{
		ID:          uuid.NewString(),
		StartFEN:    start.FEN,
		History:     history.New(start),
		Options:     opts,
		Orientation: nchess.White,
		StartedAt:   time.Now(),
	}
	if opts.Seat == SeatBlack {
		s.Orientation = nchess.Black
	}
	for _, a := range applied {
		idx := s.History.Record(a.Ply())
		c.annotate(s, idx)
	}

	c.mu.Lock()
	c.session = s
	c.clock.Reset()
	if opts.TimeControl.Enabled() {
		c.clock.Init(opts.TimeControl.Minutes)
	}
	last := s.History.Current()
	c.logger.Info("game_started",
		zap.String("session_id", s.ID),
		zap.String("fen", s.StartFEN),
		zap.String("seat", opts.Seat.String()),
		zap.Int("plies", s.History.Len()-1),
	)
	finished := c.advanceLocked(s, s.History.Cursor(), last)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publishSnapshot(snap)
	c.afterAdvance(s, finished)
	c.evaluateAsync(s, s.History.Cursor(), last.FEN)
	return snap
}

// Drag is a human attempt to move the piece on from to to, playing color.
func (c *Controller) Drag(ctx context.Context, color nchess.Color, from, to string) error {
	c.mu.Lock()
	s := c.session
	if s == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	switch s.State {
	case GameOver:
		c.mu.Unlock()
		return ErrGameOver
	case ValidatingMove, AwaitingBackendConfirm:
		c.mu.Unlock()
		return ErrMoveInFlight
	case AwaitingOpponentMove:
		c.mu.Unlock()
		return ErrNotYourTurn
	}

	base := s.History.Cursor()
	cur := s.History.Current()
	turn, err := c.positions.Turn(cur.FEN)
	if err != nil || turn != color || !s.Options.Seat.Human(color) {
		c.mu.Unlock()
		return ErrNotYourTurn
	}
	if cur.Status.Terminal() {
		c.mu.Unlock()
		return ErrGameOver
	}

	s.State = ValidatingMove
	applied, err := c.positions.Continue(s.StartFEN, s.History.UCIMoves(base), from+to)
	if err != nil {
		s.State = AwaitingHumanMove
		c.mu.Unlock()
		return fmt.Errorf("%w: %s%s", ErrIllegalMove, from, to)
	}
	s.pending = &applied
	s.State = AwaitingBackendConfirm
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publishSnapshot(snap)

	if err := c.confirm(ctx, cur.FEN, applied); err != nil {
		c.mu.Lock()
		if c.session == s {
			s.pending = nil
			s.State = AwaitingHumanMove
		}
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.logger.Warn("move_confirm_failed",
			zap.String("session_id", s.ID),
			zap.String("move_uci", applied.UCI),
			zap.Error(err),
		)
		c.notify(NoticeConfirmFailed, map[string]string{"Move": applied.SAN, "Reason": reason(err)}, false)
		c.publishSnapshot(snap)
		return fmt.Errorf("%w: %v", ErrConfirmRejected, err)
	}

	c.mu.Lock()
	if c.session != s {
		c.mu.Unlock()
		return ErrNoSession
	}
	if s.State != AwaitingBackendConfirm {
		c.mu.Unlock()
		return ErrGameOver
	}
	s.pending = nil
	s.History.Seek(base)
	idx := s.History.Record(applied.Ply())
	c.annotate(s, idx)
	finished := c.advanceLocked(s, idx, applied.Ply())
	snap = c.snapshotLocked()
	c.mu.Unlock()

	c.publishSnapshot(snap)
	c.afterAdvance(s, finished)
	c.evaluateAsync(s, idx, applied.FEN)
	return nil
}

func (c *Controller) confirm(ctx context.Context, fen string, applied position.Applied) error {
	if c.confirmer == nil {
		return nil
	}
	cctx, cancel := context.WithTimeout(ctx, c.cfg.ConfirmTimeout)
	defer cancel()
	resp, err := c.confirmer.ConfirmMove(cctx, fen, applied.UCI)
	if err != nil {
		return err
	}
	if resp.FEN != "" && fieldsPrefix(resp.FEN, 4) != fieldsPrefix(applied.FEN, 4) {
		c.logger.Warn("confirm_fen_mismatch", zap.String("local", applied.FEN), zap.String("remote", resp.FEN))
	}
	return nil
}

// advanceLocked picks the state after ply idx was recorded. It reports whether
// the game just ended.
func (c *Controller) advanceLocked(s *Session, idx int, ply history.Ply) bool {
	turn, err := c.positions.Turn(ply.FEN)
	if err != nil {
		turn = nchess.White
	}
	if ply.Status.Terminal() {
		result, method := outcome(ply.Status, turn)
		c.finishLocked(s, result, method)
		return true
	}
	if s.Options.TimeControl.Enabled() && idx > 0 {
		c.clock.Start(turn, s.Options.TimeControl.Increment, idx)
	}
	if s.Options.Seat.Human(turn) {
		s.State = AwaitingHumanMove
	} else {
		s.State = AwaitingOpponentMove
	}
	return false
}

func (c *Controller) afterAdvance(s *Session, finished bool) {
	if finished {
		c.mu.Lock()
		data := map[string]string{"Result": s.Result, "Method": s.Method}
		c.mu.Unlock()
		c.notify(NoticeGameOver, data, false)
		return
	}
	c.startOpponent(s)
}

func (c *Controller) finishLocked(s *Session, result, method string) {
	if s.State == GameOver {
		return
	}
	s.State = GameOver
	s.Result = result
	s.Method = method
	s.EndedAt = time.Now()
	s.pending = nil
	c.clock.Stop()
	c.logger.Info("game_over",
		zap.String("session_id", s.ID),
		zap.String("result", result),
		zap.String("method", method),
		zap.Int("plies", s.History.Len()-1),
	)
	c.archiveAsync(s)
}

func outcome(status history.Status, sideToMove nchess.Color) (string, string) {
	switch status {
	case history.Checkmate:
		if sideToMove == nchess.Black {
			return "1-0", "checkmate"
		}
		return "0-1", "checkmate"
	case history.Stalemate:
		return "1/2-1/2", "stalemate"
	default:
		return "1/2-1/2", "draw"
	}
}

func winResult(winner nchess.Color) string {
	if winner == nchess.White {
		return "1-0"
	}
	return "0-1"
}

// startOpponent launches the automated reply if one is due and not running.
func (c *Controller) startOpponent(s *Session) {
	c.mu.Lock()
	if c.session != s || s.State != AwaitingOpponentMove || s.opponentRunning {
		c.mu.Unlock()
		return
	}
	s.opponentRunning = true
	c.wg.Add(1)
	c.mu.Unlock()
	go c.playOpponent(s)
}

func (c *Controller) playOpponent(s *Session) {
	defer c.wg.Done()

	c.mu.Lock()
	idx := s.History.Len() - 1
	cur, _ := s.History.At(idx)
	line := s.History.UCIMoves(idx)
	req := engine.Request{
		FEN:          cur.FEN,
		Level:        s.Options.Level,
		BudgetMillis: c.budgetLocked(s, cur.FEN),
		Increment:    s.Options.TimeControl.Increment,
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publishSnapshot(snap)

	res, err := c.requestMove(req)
	var applied position.Applied
	if err == nil {
		applied, err = c.positions.Continue(s.StartFEN, line, res.Move)
		if err != nil {
			err = fmt.Errorf("%w: engine played %q: %v", engine.ErrNoMoveAvailable, res.Move, err)
		}
	}

	c.mu.Lock()
	s.opponentRunning = false
	if c.session != s || s.State != AwaitingOpponentMove || s.History.Len()-1 != idx {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.mu.Unlock()
		c.logger.Warn("opponent_move_failed", zap.String("session_id", s.ID), zap.String("fen", req.FEN), zap.Error(err))
		c.notify(NoticeEngineUnavailable, map[string]string{"Engine": c.cfg.EngineName}, true)
		return
	}
	if res.Score.Known() {
		s.History.SetScore(idx, cur.FEN, res.Score)
	}
	s.History.Seek(idx)
	next := s.History.Record(applied.Ply())
	c.annotate(s, next)
	finished := c.advanceLocked(s, next, applied.Ply())
	snap = c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Debug("opponent_moved", zap.String("session_id", s.ID), zap.String("move_uci", applied.UCI), zap.Int("ply", next))
	c.publishSnapshot(snap)
	c.afterAdvance(s, finished)
	c.evaluateAsync(s, next, applied.FEN)
}

func (c *Controller) requestMove(req engine.Request) (engine.Result, error) {
	if c.opponent == nil {
		return engine.Result{}, ErrEngineUnavailable
	}
	timeout := time.Duration(req.BudgetMillis)*time.Millisecond + c.cfg.MoveTimeout
	ctx, cancel := context.WithTimeout(c.ctx, timeout)
	defer cancel()
	return c.opponent.GetMove(ctx, req)
}

// budgetLocked caps the configured move time at a thirtieth of the engine's
// remaining clock.
func (c *Controller) budgetLocked(s *Session, fen string) int {
	budget := s.Options.MoveTime
	if !s.Options.TimeControl.Enabled() {
		return budget
	}
	turn, err := c.positions.Turn(fen)
	if err != nil {
		return budget
	}
	limit := c.clock.Remaining(turn) * 1000 / 30
	if limit < 50 {
		limit = 50
	}
	if budget <= 0 || budget > limit {
		budget = limit
	}
	return budget
}

// RetryOpponent re-issues the automated move after a failure.
func (c *Controller) RetryOpponent(ctx context.Context) error {
	c.mu.Lock()
	s := c.session
	if s == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	if s.State != AwaitingOpponentMove {
		c.mu.Unlock()
		return ErrNotYourTurn
	}
	c.mu.Unlock()
	c.startOpponent(s)
	return nil
}

// annotate recomputes the opening name of ply idx.
func (c *Controller) annotate(s *Session, idx int) {
	ply, err := s.History.At(idx)
	if err != nil {
		return
	}
	name, book := c.positions.Opening(s.StartFEN, s.History.UCIMoves(idx))
	s.History.SetOpening(idx, ply.FEN, name, book)
}

// evaluateAsync requests a deep evaluation of ply idx. The result is stored
// by index; the view is refreshed only if the cursor is still there.
func (c *Controller) evaluateAsync(s *Session, idx int, fen string) {
	if c.evaluator == nil {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(c.ctx, c.cfg.EvalTimeout)
		defer cancel()
		res, err := c.evaluator.Evaluate(ctx, fen)
		if err != nil {
			c.logger.Debug("deep_eval_failed", zap.Int("ply", idx), zap.String("fen", fen), zap.Error(err))
			return
		}
		stored := false
		if res.Score.Known() {
			stored = s.History.SetScore(idx, fen, res.Score)
		}
		if res.BestMove != "" {
			stored = s.History.SetHint(idx, fen, res.BestMove) || stored
		}
		if !stored {
			return
		}
		c.mu.Lock()
		visible := c.session == s && s.History.Cursor() == idx
		c.mu.Unlock()
		if visible {
			c.publish()
		}
	}()
}

// RequestHint computes a best-move suggestion for the cursor position.
func (c *Controller) RequestHint(ctx context.Context) (string, error) {
	c.mu.Lock()
	s := c.session
	if s == nil {
		c.mu.Unlock()
		return "", ErrNoSession
	}
	idx := s.History.Cursor()
	fen := s.History.Current().FEN
	c.mu.Unlock()

	if c.hinter == nil {
		return "", ErrEngineUnavailable
	}
	mv, err := c.hinter.Hint(ctx, fen)
	if err != nil {
		if errors.Is(err, engine.ErrEngineUnavailable) {
			return "", fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
		}
		return "", err
	}
	s.History.SetHint(idx, fen, mv)
	c.publish()
	return mv, nil
}

// LegalTargets lists destination squares for the piece on from at the cursor.
func (c *Controller) LegalTargets(from string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	return c.positions.Targets(c.session.History.Current().FEN, from)
}

func (c *Controller) First() Snapshot { return c.navigate((*history.Store).First) }
func (c *Controller) Prev() Snapshot  { return c.navigate((*history.Store).Prev) }
func (c *Controller) Next() Snapshot  { return c.navigate((*history.Store).Next) }
func (c *Controller) Last() Snapshot  { return c.navigate((*history.Store).Last) }

func (c *Controller) navigate(move func(*history.Store) int) Snapshot {
	c.mu.Lock()
	if c.session != nil {
		move(c.session.History)
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publishSnapshot(snap)
	return snap
}

// Flip toggles the board orientation.
func (c *Controller) Flip() Snapshot {
	c.mu.Lock()
	if s := c.session; s != nil {
		if s.Orientation == nchess.White {
			s.Orientation = nchess.Black
		} else {
			s.Orientation = nchess.White
		}
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publishSnapshot(snap)
	return snap
}

// Resign ends the game in favour of color's opponent.
func (c *Controller) Resign(color nchess.Color) error {
	c.mu.Lock()
	s := c.session
	if s == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	if s.State == GameOver {
		c.mu.Unlock()
		return ErrGameOver
	}
	if !s.Options.Seat.Human(color) {
		c.mu.Unlock()
		return ErrNotYourTurn
	}
	winner := opposite(color)
	c.finishLocked(s, winResult(winner), "resignation")
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(NoticeResigned, map[string]string{"Loser": colorLabel(color), "Winner": colorLabel(winner)}, false)
	c.publishSnapshot(snap)
	return nil
}

func (c *Controller) onFlag(winner nchess.Color) {
	c.mu.Lock()
	s := c.session
	if s == nil || s.State == GameOver {
		c.mu.Unlock()
		return
	}
	// A flag raised by a replaced session's clock finds the new one still
	// holding time (or untimed).
	if !s.Options.TimeControl.Enabled() || c.clock.Remaining(opposite(winner)) > 0 {
		c.mu.Unlock()
		c.logger.Debug("stale_flag_ignored", zap.String("session_id", s.ID))
		return
	}
	c.finishLocked(s, winResult(winner), "timeout")
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(NoticeFlagFall, map[string]string{"Loser": colorLabel(opposite(winner)), "Winner": colorLabel(winner)}, true)
	c.publishSnapshot(snap)
}

// PGN exports the whole line with the result marker once the game is over.
func (c *Controller) PGN() (string, error) {
	c.mu.Lock()
	s := c.session
	if s == nil {
		c.mu.Unlock()
		return "", ErrNoSession
	}
	start, moves, result := s.StartFEN, s.History.UCIMoves(s.History.Len()-1), s.Result
	c.mu.Unlock()
	return c.positions.PGN(start, moves, result)
}

// Wait blocks until background work (opponent moves, evaluations, archiving)
// has drained.
func (c *Controller) Wait() { c.wg.Wait() }

// Close cancels background work and stops the clock.
func (c *Controller) Close() error {
	c.cancel()
	c.clock.Stop()
	c.wg.Wait()
	return nil
}

func (c *Controller) notify(kind NoticeKind, data map[string]string, blocking bool) {
	text := string(kind)
	if c.messages != nil {
		rendered, err := c.messages.Render("notice."+string(kind), data)
		if err != nil {
			c.logger.Debug("notice_render_failed", zap.String("kind", string(kind)), zap.Error(err))
		} else {
			text = rendered
		}
	}
	n := Notice{Kind: kind, Text: text, Blocking: blocking}
	c.viewsMu.RLock()
	views := append([]View(nil), c.views...)
	c.viewsMu.RUnlock()
	for _, v := range views {
		v.Notice(n)
	}
}

func (c *Controller) publish() {
	c.mu.Lock()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publishSnapshot(snap)
}

func (c *Controller) publishSnapshot(snap Snapshot) {
	c.viewsMu.RLock()
	views := append([]View(nil), c.views...)
	c.viewsMu.RUnlock()
	for _, v := range views {
		v.Sync(snap)
	}
}

func reason(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func opposite(color nchess.Color) nchess.Color {
	if color == nchess.White {
		return nchess.Black
	}
	return nchess.White
}

func colorLabel(color nchess.Color) string {
	if color == nchess.Black {
		return "Black"
	}
	return "White"
}
