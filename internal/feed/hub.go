package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/Cheese-chess-client/internal/game"
	"github.com/park285/Cheese-chess-client/pkg/chessdto"
)

const (
	// Path is where subscribers connect.
	Path = "/ws"

	subscriberBuffer    = 16
	defaultWriteTimeout = 5 * time.Second
)

// Hub fans board snapshots and notices out to websocket subscribers. Slow
// subscribers miss frames rather than stall the game.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan []byte]struct{}
	last   []byte
	closed bool

	origins      []string
	writeTimeout time.Duration
	logger       *zap.Logger
}

type HubOption func(*Hub)

// WithOriginPatterns allows cross-origin browsers matching patterns.
func WithOriginPatterns(patterns ...string) HubOption {
	return func(h *Hub) { h.origins = append(h.origins, patterns...) }
}

func WithWriteTimeout(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

func WithHubLogger(l *zap.Logger) HubOption {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		subs:         make(map[chan []byte]struct{}),
		writeTimeout: defaultWriteTimeout,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Sync implements game.View.
func (h *Hub) Sync(s game.Snapshot) {
	dto := s.DTO()
	h.broadcast(chessdto.Frame{Type: "snapshot", Snapshot: &dto}, true)
}

// Notice implements game.View.
func (h *Hub) Notice(n game.Notice) {
	dto := game.NoticeDTO(n)
	h.broadcast(chessdto.Frame{Type: "notice", Notice: &dto}, false)
}

func (h *Hub) broadcast(frame chessdto.Frame, keep bool) {
	b, err := json.Marshal(frame)
	if err != nil {
		h.logger.Warn("feed_marshal_failed", zap.String("type", frame.Type), zap.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if keep {
		h.last = b
	}
	for ch := range h.subs {
		select {
		case ch <- b:
		default:
		}
	}
}

func (h *Hub) add() (chan []byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	ch := make(chan []byte, subscriberBuffer)
	if h.last != nil {
		ch <- h.last
	}
	h.subs[ch] = struct{}{}
	return ch, true
}

func (h *Hub) remove(ch chan []byte) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Subscribers reports the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// ServeHTTP upgrades the request and streams frames until either side leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		OriginPatterns:  h.origins,
	})
	if err != nil {
		h.logger.Debug("feed_accept_failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	ch, ok := h.add()
	if !ok {
		_ = conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	defer h.remove(ch)
	h.logger.Debug("feed_subscribed", zap.String("remote", r.RemoteAddr))

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		case b, ok := <-ch:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "shutting down")
				return
			}
			wctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, b)
			cancel()
			if err != nil {
				h.logger.Debug("feed_write_failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
				return
			}
		}
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

// ListenAndServe serves the hub at Path on addr until ctx is cancelled.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle(Path, h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	h.logger.Info("feed_listening", zap.String("addr", addr), zap.String("path", Path))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	h.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
