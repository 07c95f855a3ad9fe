package remote

import (
	"context"
	"encoding/json"
	"time"

	"github.com/park285/duchess-board/internal/engine"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Handler serves boundary over the routes the Client calls. Each call is
// bounded by timeout when it is positive.
func Handler(boundary engine.Boundary, timeout time.Duration, logger *zap.Logger) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{boundary: boundary, timeout: timeout, logger: logger}
	return h.serve
}

type handler struct {
	boundary engine.Boundary
	timeout  time.Duration
	logger   *zap.Logger
}

func (h *handler) serve(rc *fasthttp.RequestCtx) {
	path := string(rc.Path())
	if path == PathHealth {
		if !rc.IsGet() {
			rc.SetStatusCode(fasthttp.StatusMethodNotAllowed)
			return
		}
		writeJSON(rc, fasthttp.StatusOK, map[string]string{"status": "ok"})
		return
	}

	var call func(context.Context, Request) (string, error)
	switch path {
	case PathMakeMove:
		call = func(ctx context.Context, r Request) (string, error) {
			return h.boundary.MakeMove(ctx, r.FEN, r.From, r.To)
		}
	case PathFindBestMove:
		call = func(ctx context.Context, r Request) (string, error) {
			return h.boundary.FindBestMove(ctx, r.FEN)
		}
	case PathCheckEndGame:
		call = func(ctx context.Context, r Request) (string, error) {
			return h.boundary.CheckEndGame(ctx, r.FEN)
		}
	default:
		writeJSON(rc, fasthttp.StatusNotFound, errorResponse{Error: "unknown route"})
		return
	}
	if !rc.IsPost() {
		rc.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		return
	}

	var req Request
	if err := json.Unmarshal(rc.PostBody(), &req); err != nil {
		// malformed arguments are a boundary answer, not a transport failure
		writeJSON(rc, fasthttp.StatusOK, Response{Result: engine.TokenIllegalInput})
		return
	}

	ctx := context.Context(rc)
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	started := time.Now()
	result, err := call(ctx, req)
	if err != nil {
		h.logger.Error("engine_call_failed", zap.String("path", path), zap.String("fen", req.FEN), zap.Error(err))
		writeJSON(rc, fasthttp.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	h.logger.Debug("engine_call",
		zap.String("path", path),
		zap.String("fen", req.FEN),
		zap.String("result", truncate(result, 120)),
		zap.Duration("took", time.Since(started)),
	)
	writeJSON(rc, fasthttp.StatusOK, Response{Result: result})
}

func writeJSON(rc *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		rc.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	rc.SetStatusCode(status)
	rc.SetContentType("application/json")
	rc.SetBody(body)
}
