package feed

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/Cheese-chess-client/pkg/chessdto"
)

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
	Failed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Failed:
		return "failed"
	default:
		return "disconnected"
	}
}

type FrameHandler func(chessdto.Frame)

// Subscriber follows a hub from another process, reconnecting with backoff.
type Subscriber struct {
	url     string
	headers func() map[string]string

	mu      sync.Mutex
	conn    *websocket.Conn
	state   State
	onFrame []FrameHandler
	onState []func(State)

	maxReconnect int
	pingInterval time.Duration

	root     context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup
	logger   *zap.Logger
}

type SubscriberOption func(*Subscriber)

func WithReconnect(attempts int) SubscriberOption {
	return func(s *Subscriber) { s.maxReconnect = attempts }
}

func WithPingInterval(d time.Duration) SubscriberOption {
	return func(s *Subscriber) {
		if d > 0 {
			s.pingInterval = d
		}
	}
}

// WithHeaders injects handshake headers; empty keys or values are skipped.
func WithHeaders(fn func() map[string]string) SubscriberOption {
	return func(s *Subscriber) { s.headers = fn }
}

func WithSubscriberLogger(l *zap.Logger) SubscriberOption {
	return func(s *Subscriber) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewSubscriber(url string, opts ...SubscriberOption) *Subscriber {
	root, cancel := context.WithCancel(context.Background())
	s := &Subscriber{
		url:          url,
		maxReconnect: 5,
		pingInterval: 30 * time.Second,
		root:         root,
		cancel:       cancel,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnFrame registers a handler; handlers run on the reader goroutine.
func (s *Subscriber) OnFrame(fn FrameHandler) {
	s.mu.Lock()
	s.onFrame = append(s.onFrame, fn)
	s.mu.Unlock()
}

func (s *Subscriber) OnState(fn func(State)) {
	s.mu.Lock()
	s.onState = append(s.onState, fn)
	s.mu.Unlock()
}

func (s *Subscriber) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect dials once. On failure the subscriber keeps retrying in the
// background if reconnects are enabled.
func (s *Subscriber) Connect(ctx context.Context) error {
	s.setState(Connecting)
	if err := s.dial(ctx); err != nil {
		s.setState(Failed)
		s.scheduleReconnect()
		return err
	}
	return nil
}

func (s *Subscriber) dial(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, s.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      s.buildHeaders(),
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.setState(Connected)

	s.wg.Add(2)
	go s.listen(conn)
	go s.pingLoop(conn)
	return nil
}

func (s *Subscriber) listen(conn *websocket.Conn) {
	defer s.wg.Done()
	for {
		var frame chessdto.Frame
		if err := wsjson.Read(s.root, conn, &frame); err != nil {
			if s.root.Err() != nil {
				return
			}
			s.logger.Debug("feed_read_failed", zap.String("url", s.url), zap.Error(err))
			s.drop(conn, websocket.StatusGoingAway, "reconnect")
			s.scheduleReconnect()
			return
		}
		s.mu.Lock()
		handlers := append([]FrameHandler(nil), s.onFrame...)
		s.mu.Unlock()
		for _, fn := range handlers {
			fn(frame)
		}
	}
}

func (s *Subscriber) pingLoop(conn *websocket.Conn) {
	defer s.wg.Done()
	t := time.NewTicker(s.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-s.root.Done():
			return
		case <-t.C:
			s.mu.Lock()
			current := s.conn == conn
			s.mu.Unlock()
			if !current {
				return
			}
			ctx, cancel := context.WithTimeout(s.root, 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				s.drop(conn, websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

// drop closes conn if it is still the active connection.
func (s *Subscriber) drop(conn *websocket.Conn, code websocket.StatusCode, reason string) {
	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.mu.Unlock()
	_ = conn.Close(code, reason)
	s.setState(Disconnected)
}

func (s *Subscriber) scheduleReconnect() {
	if s.maxReconnect <= 0 || s.root.Err() != nil {
		return
	}
	s.setState(Reconnecting)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for attempt := 1; attempt <= s.maxReconnect; attempt++ {
			select {
			case <-s.root.Done():
				return
			case <-time.After(backoffDuration(attempt)):
			}
			if err := s.dial(s.root); err != nil {
				s.logger.Debug("feed_reconnect_failed", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
			return
		}
		s.setState(Failed)
	}()
}

func (s *Subscriber) setState(st State) {
	s.mu.Lock()
	s.state = st
	handlers := append([]func(State){}, s.onState...)
	s.mu.Unlock()
	for _, fn := range handlers {
		fn(st)
	}
}

func (s *Subscriber) buildHeaders() http.Header {
	hdr := http.Header{}
	if s.headers == nil {
		return hdr
	}
	for k, v := range s.headers() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}

// Close stops reconnecting, closes the connection and waits for goroutines.
func (s *Subscriber) Close(ctx context.Context) error {
	s.stopOnce.Do(s.cancel)
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "close")
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		s.setState(Disconnected)
		return nil
	}
}

var errNotConnected = errors.New("feed subscriber not connected")

// Wait blocks until ctx ends or the subscriber gives up reconnecting.
func (s *Subscriber) Wait(ctx context.Context) error {
	t := time.NewTicker(200 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if s.State() == Failed {
				return errNotConnected
			}
		}
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}
