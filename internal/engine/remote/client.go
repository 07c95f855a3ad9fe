package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/park285/duchess-board/internal/engine"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

var ErrStatus = errors.New("remote engine: unexpected status")

// Client reaches an engine host over HTTP.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	logger  *zap.Logger

	timeout  time.Duration
	retryMax int
}

var _ engine.Boundary = (*Client)(nil)

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithRetry(n int) Option {
	return func(c *Client) { c.retryMax = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDial replaces the connection dialer, e.g. with an in-memory listener.
func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		logger:   zap.NewNop(),
		timeout:  5 * time.Second,
		retryMax: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) MakeMove(ctx context.Context, fen, from, to string) (string, error) {
	return c.call(ctx, PathMakeMove, Request{FEN: fen, From: from, To: to})
}

func (c *Client) FindBestMove(ctx context.Context, fen string) (string, error) {
	return c.call(ctx, PathFindBestMove, Request{FEN: fen})
}

func (c *Client) CheckEndGame(ctx context.Context, fen string) (string, error) {
	return c.call(ctx, PathCheckEndGame, Request{FEN: fen})
}

// Healthy reports whether the engine host answers its health probe.
func (c *Client) Healthy(ctx context.Context) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(c.baseURL + PathHealth)
	if err := c.http.DoDeadline(req, resp, c.deadline(ctx)); err != nil {
		return fmt.Errorf("health probe: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("%w: health status=%d", ErrStatus, resp.StatusCode())
	}
	return nil
}

// call posts in to path. Boundary calls have no side effects on the host, so
// transport failures and 5xx replies are retried with backoff.
func (c *Client) call(ctx context.Context, path string, in Request) (string, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	attempts := max(c.retryMax, 1)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := sleepContext(ctx, backoff(attempt-1)); err != nil {
				return "", lastErr
			}
		}
		if err := c.http.DoDeadline(req, resp, c.deadline(ctx)); err != nil {
			lastErr = fmt.Errorf("request %s: %w", path, err)
			c.logger.Warn("remote_engine_request_failed", zap.String("path", path), zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			lastErr = fmt.Errorf("%w: path=%s status=%d body=%s", ErrStatus, path, status, truncate(string(resp.Body()), 256))
			if !retryableStatus(status) {
				return "", lastErr
			}
			continue
		}
		var out Response
		if err := json.Unmarshal(resp.Body(), &out); err != nil {
			return "", fmt.Errorf("decode %s response: %w", path, err)
		}
		return out.Result, nil
	}
	return "", lastErr
}

func (c *Client) deadline(ctx context.Context) time.Time {
	dl := time.Now().Add(c.timeout)
	if ctxDL, ok := ctx.Deadline(); ok && ctxDL.Before(dl) {
		return ctxDL
	}
	return dl
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoff doubles from 50ms, capped at 1.6s.
func backoff(attempt int) time.Duration {
	attempt = min(max(attempt, 1), 6)
	return time.Duration(1<<uint(attempt-1)) * 50 * time.Millisecond
}

func retryableStatus(code int) bool {
	switch code {
	case fasthttp.StatusInternalServerError, fasthttp.StatusBadGateway,
		fasthttp.StatusServiceUnavailable, fasthttp.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
