package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultReadyTimeout  = 4 * time.Second
	newGameRetryAttempts = 3
	newGameRetryDelay    = 150 * time.Millisecond
	lineBuffer           = 64
)

var ErrClosed = errors.New("uci session closed")

type Options struct {
	SkillLevel int
	Threads    int
	HashMB     int
}

type Limits struct {
	Depth          int
	MoveTimeMillis int
	NodeCap        int
}

// Score is a raw engine score: Kind is "cp" or "mate", Value is relative to
// the side to move.
type Score struct {
	Kind  string
	Value int
}

type Candidate struct {
	Move      string
	Score     Score
	Scored    bool
	Principal []string
}

type Session struct {
	stdin  io.WriteCloser
	closer func() error
	logger *zap.Logger

	lines   chan string
	readErr error
	done    chan struct{}

	mu        sync.Mutex
	search    sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewSession launches the engine binary and runs the uci/isready handshake.
// ctx bounds the handshake only; the process outlives it.
func NewSession(ctx context.Context, binaryPath string, opt Options, logger *zap.Logger) (*Session, error) {
	if err := validateOptions(opt); err != nil {
		return nil, err
	}

	cmd := exec.Command(binaryPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutPipe.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	closer := func() error {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		_ = cmd.Wait()
		return nil
	}
	return Attach(ctx, stdin, stdoutPipe, closer, opt, logger)
}

// Attach runs the handshake over an already connected worker. closer, if set,
// is called once from Close after stdin is closed.
func Attach(ctx context.Context, stdin io.WriteCloser, stdout io.Reader, closer func() error, opt Options, logger *zap.Logger) (*Session, error) {
	if err := validateOptions(opt); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		stdin:  stdin,
		closer: closer,
		logger: logger,
		lines:  make(chan string, lineBuffer),
		done:   make(chan struct{}),
	}
	go s.readLoop(stdout)

	if err := s.initialize(ctx, opt); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) readLoop(r io.Reader) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		select {
		case s.lines <- strings.TrimSpace(sc.Text()):
		case <-s.done:
			s.readErr = ErrClosed
			close(s.lines)
			return
		}
	}
	if err := sc.Err(); err != nil {
		s.readErr = err
	} else {
		s.readErr = io.EOF
	}
	close(s.lines)
}

type SearchRequest struct {
	FEN    string
	Moves  []string
	Limits Limits
}

type SearchResponse struct {
	Candidates []Candidate
	BestMove   string
	Ponder     string
}

// Best returns the principal candidate, if the engine reported one.
func (r SearchResponse) Best() (Candidate, bool) {
	if len(r.Candidates) == 0 {
		return Candidate{}, false
	}
	return r.Candidates[0], true
}

// Search runs one search. Only one search runs at a time per session.
func (s *Session) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	s.search.Lock()
	defer s.search.Unlock()

	s.drain()

	goTokens, err := GoTokens(req.Limits)
	if err != nil {
		return SearchResponse{}, err
	}
	positionCmd := buildPositionCommand(req.FEN, req.Moves)
	if err := s.send(positionCmd); err != nil {
		return SearchResponse{}, fmt.Errorf("send position: %w", err)
	}
	goCmd := strings.Join(goTokens, " ")
	if err := s.send(goCmd + "\n"); err != nil {
		return SearchResponse{}, fmt.Errorf("send go: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, computeSearchTimeout(req.Limits))
	defer cancel()

	candidates := make(map[int]Candidate)
	for {
		line, err := s.readLine(searchCtx)
		if err != nil {
			s.logger.Warn("uci_read_error",
				zap.String("position", strings.TrimSpace(positionCmd)),
				zap.String("go", goCmd),
				zap.Error(err))
			return SearchResponse{}, fmt.Errorf("read line: %w", err)
		}
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "info "):
			if pv, cand, ok := parseInfo(line); ok {
				candidates[pv] = mergeCandidate(candidates[pv], cand)
			}
		case strings.HasPrefix(line, "bestmove"):
			resp := SearchResponse{Candidates: collapseCandidates(candidates)}
			parts := strings.Fields(line)
			if len(parts) >= 2 && parts[1] != "(none)" {
				resp.BestMove = parts[1]
			}
			if len(parts) >= 4 && parts[2] == "ponder" {
				resp.Ponder = parts[3]
			}
			return resp, nil
		}
	}
}

// drain discards output left over from an abandoned exchange.
func (s *Session) drain() {
	for {
		select {
		case _, ok := <-s.lines:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func buildPositionCommand(fen string, moves []string) string {
	var sb strings.Builder
	if strings.TrimSpace(fen) == "" || fen == "startpos" {
		sb.WriteString("position startpos")
	} else {
		sb.WriteString("position fen ")
		sb.WriteString(strings.TrimSpace(fen))
	}
	if len(moves) > 0 {
		sb.WriteString(" moves ")
		sb.WriteString(strings.Join(moves, " "))
	}
	sb.WriteString("\n")
	return sb.String()
}

func validateOptions(opt Options) error {
	if opt.SkillLevel < 0 || opt.SkillLevel > 20 {
		return fmt.Errorf("skill level %d out of range 0-20", opt.SkillLevel)
	}
	if opt.HashMB < 0 {
		return fmt.Errorf("hash size must be >= 0: %d", opt.HashMB)
	}
	if opt.Threads < 0 {
		return fmt.Errorf("threads must be >= 0: %d", opt.Threads)
	}
	return nil
}

// GoTokens builds the go command for l.
func GoTokens(l Limits) ([]string, error) {
	args := []string{"go"}
	if l.Depth > 0 {
		args = append(args, "depth", strconv.Itoa(l.Depth))
	}
	if l.MoveTimeMillis > 0 {
		args = append(args, "movetime", strconv.Itoa(l.MoveTimeMillis))
	}
	if l.NodeCap > 0 {
		args = append(args, "nodes", strconv.Itoa(l.NodeCap))
	}
	if len(args) == 1 {
		return nil, fmt.Errorf("no search limits specified")
	}
	return args, nil
}

func computeSearchTimeout(l Limits) time.Duration {
	if l.MoveTimeMillis > 0 {
		ms := l.MoveTimeMillis + 2000
		return time.Duration(ms) * time.Millisecond * 3
	}
	if l.Depth > 0 {
		base := time.Duration(l.Depth) * 300 * time.Millisecond
		if base < 6*time.Second {
			base = 6 * time.Second
		}
		if base > 20*time.Second {
			base = 20 * time.Second
		}
		return base
	}
	return 6 * time.Second
}

// parseInfo reads multipv, score and pv from an info line. Lines with neither
// a score nor a pv are ignored.
func parseInfo(line string) (int, Candidate, bool) {
	parts := strings.Fields(line)
	var (
		multipv = 1
		cand    Candidate
		pvIdx   = -1
	)

	for i := 0; i < len(parts); i++ {
		switch parts[i] {
		case "multipv":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					multipv = v
				}
				i++
			}
		case "score":
			if i+2 < len(parts) {
				kind := parts[i+1]
				if kind == "cp" || kind == "mate" {
					if v, err := strconv.Atoi(parts[i+2]); err == nil {
						cand.Score = Score{Kind: kind, Value: v}
						cand.Scored = true
					}
				}
				i += 2
			}
		case "pv":
			pvIdx = i + 1
			i = len(parts)
		}
	}

	if pvIdx > 0 && pvIdx < len(parts) {
		cand.Principal = append([]string(nil), parts[pvIdx:]...)
		cand.Move = cand.Principal[0]
	}
	if !cand.Scored && cand.Move == "" {
		return 0, Candidate{}, false
	}
	return multipv, cand, true
}

// mergeCandidate keeps the last known score and pv for a multipv slot.
func mergeCandidate(prev, next Candidate) Candidate {
	if !next.Scored {
		next.Score, next.Scored = prev.Score, prev.Scored
	}
	if next.Move == "" {
		next.Move, next.Principal = prev.Move, prev.Principal
	}
	return next
}

func collapseCandidates(m map[int]Candidate) []Candidate {
	if len(m) == 0 {
		return nil
	}
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	result := make([]Candidate, 0, len(keys))
	for _, k := range keys {
		result = append(result, m[k])
	}
	return result
}

func (s *Session) EnsureReady(ctx context.Context) error {
	readyCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(readyCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func (s *Session) NewGame(ctx context.Context) error {
	if err := s.send("ucinewgame\n"); err != nil {
		return fmt.Errorf("send ucinewgame: %w", err)
	}

	for attempt := 1; attempt <= newGameRetryAttempts; attempt++ {
		err := s.EnsureReady(ctx)
		if err == nil {
			return nil
		}
		if attempt == newGameRetryAttempts {
			return err
		}
		s.logger.Warn("uci_ready_retry", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(newGameRetryDelay):
		}
	}
	return nil
}

// Configure sends the strength options and waits until the worker has taken
// them.
func (s *Session) Configure(ctx context.Context, opt Options) error {
	if err := validateOptions(opt); err != nil {
		return err
	}
	if err := s.applyOptions(opt); err != nil {
		return err
	}
	return s.EnsureReady(ctx)
}

func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.stdin != nil {
			s.stdin.Close()
		}
		if s.closer != nil {
			s.closeErr = s.closer()
		}
	})
	return s.closeErr
}

func (s *Session) initialize(ctx context.Context, opt Options) error {
	initCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("uci\n"); err != nil {
		return fmt.Errorf("send uci: %w", err)
	}
	if err := s.awaitToken(initCtx, "uciok"); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}

	if err := s.applyOptions(opt); err != nil {
		return err
	}

	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(initCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func (s *Session) applyOptions(opt Options) error {
	var cmds []string
	if opt.Threads > 0 {
		cmds = append(cmds, fmt.Sprintf("setoption name Threads value %d\n", opt.Threads))
	}
	if opt.HashMB > 0 {
		cmds = append(cmds, fmt.Sprintf("setoption name Hash value %d\n", opt.HashMB))
	}
	cmds = append(cmds, fmt.Sprintf("setoption name Skill Level value %d\n", opt.SkillLevel))
	for _, cmd := range cmds {
		if err := s.send(cmd); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}
	return nil
}

func (s *Session) send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	_, err := io.WriteString(s.stdin, msg)
	return err
}

func (s *Session) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(line, token) {
			return nil
		}
	}
}

func (s *Session) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-s.lines:
		if !ok {
			return "", s.readErr
		}
		return line, nil
	}
}
