package remote

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"strings"
	"testing"
	"unicode/utf8"
	"time"

	"github.com/park285/duchess-board/internal/engine"
	"github.com/park285/duchess-board/internal/engine/enginetest"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

const afterE4 = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"

func serve(t *testing.T, b engine.Boundary, opts ...Option) *Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: Handler(b, time.Second, nil)}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		_ = srv.Shutdown()
		_ = ln.Close()
	})
	opts = append([]Option{
		WithDial(func(string) (net.Conn, error) { return ln.Dial() }),
		WithTimeout(2 * time.Second),
	}, opts...)
	return NewClient("http://engine.test", opts...)
}

func TestClientRoundTrip(t *testing.T) {
	fake := &enginetest.Scripted{}
	fake.QueueMove(afterE4)
	fake.QueueBest(afterE4)
	fake.QueueEnding(engine.TokenCheckmateBlack)
	c := serve(t, fake)
	ctx := context.Background()

	got, err := c.MakeMove(ctx, "start", "e2", "e4")
	if err != nil || got != afterE4 {
		t.Fatalf("MakeMove = %q, %v", got, err)
	}
	got, err = c.FindBestMove(ctx, "start")
	if err != nil || got != afterE4 {
		t.Fatalf("FindBestMove = %q, %v", got, err)
	}
	got, err = c.CheckEndGame(ctx, afterE4)
	if err != nil || got != engine.TokenCheckmateBlack {
		t.Fatalf("CheckEndGame = %q, %v", got, err)
	}

	calls := fake.CallsTo("make_move")
	if len(calls) != 1 || calls[0].From != "e2" || calls[0].To != "e4" {
		t.Fatalf("make_move arguments not forwarded: %+v", calls)
	}
}

type flaky struct {
	enginetest.Scripted
	failures atomic.Int32
}

func (f *flaky) CheckEndGame(ctx context.Context, fen string) (string, error) {
	if f.failures.Add(-1) >= 0 {
		return "", errors.New("engine busy")
	}
	return engine.TokenNone, nil
}

func TestClientRetriesServerErrors(t *testing.T) {
	f := &flaky{}
	f.failures.Store(2)
	c := serve(t, f, WithRetry(3))

	got, err := c.CheckEndGame(context.Background(), afterE4)
	if err != nil {
		t.Fatalf("CheckEndGame after retries: %v", err)
	}
	if got != engine.TokenNone {
		t.Fatalf("CheckEndGame = %q", got)
	}
}

func TestClientGivesUpAfterRetries(t *testing.T) {
	f := &flaky{}
	f.failures.Store(10)
	c := serve(t, f, WithRetry(2))

	_, err := c.CheckEndGame(context.Background(), afterE4)
	if !errors.Is(err, ErrStatus) {
		t.Fatalf("expected ErrStatus, got %v", err)
	}
}

func TestHandlerMalformedBodyIsIllegalInput(t *testing.T) {
	h := Handler(&enginetest.Scripted{}, 0, nil)
	var rc fasthttp.RequestCtx
	rc.Request.Header.SetMethod(fasthttp.MethodPost)
	rc.Request.SetRequestURI(PathMakeMove)
	rc.Request.SetBodyString("{not json")
	h(&rc)
	if rc.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("status = %d", rc.Response.StatusCode())
	}
	if body := string(rc.Response.Body()); body != `{"result":"illegal_input"}` {
		t.Fatalf("body = %s", body)
	}
}

func TestHandlerRoutes(t *testing.T) {
	h := Handler(&enginetest.Scripted{}, 0, nil)

	var health fasthttp.RequestCtx
	health.Request.Header.SetMethod(fasthttp.MethodGet)
	health.Request.SetRequestURI(PathHealth)
	h(&health)
	if health.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("health status = %d", health.Response.StatusCode())
	}

	var unknown fasthttp.RequestCtx
	unknown.Request.Header.SetMethod(fasthttp.MethodPost)
	unknown.Request.SetRequestURI("/resign")
	h(&unknown)
	if unknown.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("unknown route status = %d", unknown.Response.StatusCode())
	}

	var wrongMethod fasthttp.RequestCtx
	wrongMethod.Request.Header.SetMethod(fasthttp.MethodGet)
	wrongMethod.Request.SetRequestURI(PathFindBestMove)
	h(&wrongMethod)
	if wrongMethod.Response.StatusCode() != fasthttp.StatusMethodNotAllowed {
		t.Fatalf("GET on boundary route status = %d", wrongMethod.Response.StatusCode())
	}
}

func TestHealthy(t *testing.T) {
	c := serve(t, &enginetest.Scripted{})
	if err := c.Healthy(context.Background()); err != nil {
		t.Fatalf("Healthy: %v", err)
	}
}

func TestBackoffCapped(t *testing.T) {
	if backoff(1) != 50*time.Millisecond || backoff(2) != 100*time.Millisecond {
		t.Fatalf("unexpected early backoff")
	}
	if backoff(50) != backoff(6) {
		t.Fatalf("backoff not capped")
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	in := strings.Repeat("x", 255) + "\u4e16\u754c"
	got := truncate(in, 256)
	if !utf8.ValidString(got) {
		t.Fatalf("truncate produced invalid UTF-8: %q", got)
	}
	if got != strings.Repeat("x", 255) {
		t.Fatalf("truncate = %q", got)
	}
	if truncate("ok", 256) != "ok" {
		t.Fatalf("short input changed")
	}
}
