package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

// Paths are the endpoint paths under the base URL.
type Paths struct {
	Health       string
	Confirm      string
	Move         string
	Evaluate     string
	AnalyzeImage string
	Chat         string
}

func DefaultPaths() Paths {
	return Paths{
		Health:       "/health",
		Confirm:      "/api/move",
		Move:         "/api/bot_move",
		Evaluate:     "/api/evaluate",
		AnalyzeImage: "/api/analyze_image",
		Chat:         "/api/chat",
	}
}

type Client struct {
	baseURL string
	http    *fasthttp.Client
	stream  *fasthttp.Client
	headers HeaderProvider
	paths   Paths
	logger  *zap.Logger

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) {
		c.http.MaxConnsPerHost = n
		c.stream.MaxConnsPerHost = n
	}
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithPaths overrides endpoint paths; empty fields keep their defaults.
func WithPaths(p Paths) Option {
	return func(c *Client) {
		set := func(dst *string, v string) {
			if strings.TrimSpace(v) != "" {
				*dst = v
			}
		}
		set(&c.paths.Health, p.Health)
		set(&c.paths.Confirm, p.Confirm)
		set(&c.paths.Move, p.Move)
		set(&c.paths.Evaluate, p.Evaluate)
		set(&c.paths.AnalyzeImage, p.AnalyzeImage)
		set(&c.paths.Chat, p.Chat)
	}
}

// WithDial replaces the connection dialer.
func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *Client) {
		c.http.Dial = dial
		c.stream.Dial = dial
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 30 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		stream:         &fasthttp.Client{WriteTimeout: 10 * time.Second, MaxConnsPerHost: 4, StreamResponseBody: true},
		paths:          DefaultPaths(),
		logger:         zap.NewNop(),
		defaultTimeout: 15 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// Ping checks the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.doJSON(ctx, fasthttp.MethodGet, c.paths.Health, nil, nil, false)
}

// ConfirmMove asks the backend to authorise uci played from fen.
func (c *Client) ConfirmMove(ctx context.Context, fen, uci string) (ConfirmResponse, error) {
	var resp ConfirmResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, c.paths.Confirm, ConfirmRequest{Move: uci, FEN: fen}, &resp, false); err != nil {
		return ConfirmResponse{}, err
	}
	if !resp.Success {
		return resp, &RejectedError{Op: "confirm move", Message: resp.Error}
	}
	return resp, nil
}

// RequestMove asks the remote engine to play from req.FEN.
func (c *Client) RequestMove(ctx context.Context, req MoveRequest) (MoveResponse, error) {
	var resp MoveResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, c.paths.Move, req, &resp, false); err != nil {
		return MoveResponse{}, err
	}
	if !resp.Success || strings.TrimSpace(resp.MoveUCI) == "" {
		return resp, &RejectedError{Op: "request move", Message: resp.Error}
	}
	return resp, nil
}

// DeepEvaluate requests the backend's long search for fen. It is idempotent
// and retried on 5xx.
func (c *Client) DeepEvaluate(ctx context.Context, fen string) (EngineResults, error) {
	var resp EvaluateResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, c.paths.Evaluate, EvaluateRequest{FEN: fen}, &resp, true); err != nil {
		return EngineResults{}, err
	}
	if !resp.Success {
		return EngineResults{}, &RejectedError{Op: "deep evaluation", Message: resp.Error}
	}
	return resp.EngineResults, nil
}

// AnalyzeImage uploads a board picture and returns the recognised position.
func (c *Client) AnalyzeImage(ctx context.Context, filename string, image []byte) (AnalyzeResponse, error) {
	if len(image) == 0 {
		return AnalyzeResponse{}, errors.New("analyze image: empty upload")
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return AnalyzeResponse{}, fmt.Errorf("build multipart: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return AnalyzeResponse{}, fmt.Errorf("build multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return AnalyzeResponse{}, fmt.Errorf("build multipart: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.baseURL + c.paths.AnalyzeImage)
	req.Header.SetContentType(mw.FormDataContentType())
	c.applyHeaders(req)
	req.SetBody(body.Bytes())

	if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		return AnalyzeResponse{}, fmt.Errorf("request failed: %w", err)
	}
	if err := statusError(resp); err != nil {
		return AnalyzeResponse{}, err
	}
	var out AnalyzeResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return AnalyzeResponse{}, fmt.Errorf("decode response: %w", err)
	}
	if !out.Success || strings.TrimSpace(out.FEN) == "" {
		return out, &RejectedError{Op: "analyze image", Message: out.Error}
	}
	return out, nil
}

// Chat posts the question and copies the streamed plain-text answer into w as
// it arrives.
func (c *Client) Chat(ctx context.Context, in ChatRequest, w io.Writer) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.baseURL + c.paths.Chat)
	req.Header.SetContentType("application/json")
	c.applyHeaders(req)
	req.SetBody(payload)

	if err := c.stream.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if err := statusError(resp); err != nil {
		return err
	}
	if bs := resp.BodyStream(); bs != nil {
		if _, err := io.Copy(w, ctxReader{ctx: ctx, r: bs}); err != nil {
			return fmt.Errorf("read chat stream: %w", err)
		}
		return nil
	}
	if _, err := w.Write(resp.Body()); err != nil {
		return fmt.Errorf("write chat answer: %w", err)
	}
	return nil
}

// ctxReader stops a streamed copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}

func (c *Client) applyHeaders(req *fasthttp.Request) {
	if c.headers == nil {
		return
	}
	for k, v := range c.headers() {
		if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
			req.Header.Set(k, v)
		}
	}
}

func statusError(resp *fasthttp.Response) error {
	status := resp.StatusCode()
	if status >= 200 && status < 300 {
		return nil
	}
	return &StatusError{Code: status, Body: truncate(string(resp.Body()), 512)}
}

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend api error: status=%d body=%s", e.Code, e.Body)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	url := c.baseURL + path
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(url)
	req.Header.SetContentType("application/json")
	c.applyHeaders(req)

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry {
		attempts = c.retryMax
		if attempts <= 0 {
			attempts = 1
		}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			if attempt == attempts || !retry {
				return fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			c.logger.Warn("backend_retry", zap.String("path", path), zap.Int("attempt", attempt), zap.Error(err))
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if err := statusError(resp); err != nil {
			if attempt == attempts || !retry || !shouldRetryStatus(resp.StatusCode()) {
				return err
			}
			lastErr = err
			c.logger.Warn("backend_retry", zap.String("path", path), zap.Int("attempt", attempt), zap.Int("status", resp.StatusCode()))
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		clientDL := time.Now().Add(c.defaultTimeout)
		if dl.Before(clientDL) {
			return dl
		}
		return clientDL
	}
	return time.Now().Add(c.defaultTimeout)
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
