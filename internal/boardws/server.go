// Package boardws serves the board widget over a WebSocket: each connection
// gets its own session controller and the widget's events drive it.
package boardws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/park285/duchess-board/internal/position"
	"github.com/park285/duchess-board/internal/session"
	"github.com/park285/duchess-board/pkg/boarddto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type Server struct {
	engine   session.Engine
	cfg      session.Config
	ctrlOpts []session.Option
	logger   *zap.Logger

	pingInterval   time.Duration
	writeTimeout   time.Duration
	originPatterns []string

	active atomic.Int64
}

type Option func(*Server)

// WithControllerOptions passes opts to every per-connection controller.
func WithControllerOptions(opts ...session.Option) Option {
	return func(s *Server) { s.ctrlOpts = append(s.ctrlOpts, opts...) }
}

func WithPingInterval(d time.Duration) Option {
	return func(s *Server) { s.pingInterval = d }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// WithOriginPatterns allows cross-origin boards matching patterns.
func WithOriginPatterns(patterns ...string) Option {
	return func(s *Server) { s.originPatterns = append(s.originPatterns, patterns...) }
}

func NewServer(eng session.Engine, cfg session.Config, logger *zap.Logger, opts ...Option) (*Server, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine:       eng,
		cfg:          cfg,
		logger:       logger,
		pingInterval: 30 * time.Second,
		writeTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Active reports the number of open board connections.
func (s *Server) Active() int64 { return s.active.Load() }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  s.originPatterns,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		s.logger.Warn("board_accept_failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	s.active.Add(1)
	defer s.active.Add(-1)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	v := newView(ctx, conn, s.writeTimeout, s.logger)
	ctrl, err := session.New(s.engine, v, v, s.cfg, append([]session.Option{session.WithLogger(s.logger)}, s.ctrlOpts...)...)
	if err != nil {
		s.logger.Error("board_controller_init_failed", zap.Error(err))
		_ = conn.Close(websocket.StatusInternalError, "controller unavailable")
		return
	}
	defer ctrl.Close()

	logger := s.logger.With(zap.String("remote", r.RemoteAddr))
	logger.Info("board_connected")

	go s.pingLoop(ctx, conn, cancel, logger)
	// a reload raised by a timer must interrupt a blocked read
	go func() {
		select {
		case <-v.reloadCh:
			_ = conn.Close(websocket.StatusNormalClosure, "reload")
		case <-ctx.Done():
		}
	}()

	status, reason := s.readLoop(ctx, conn, ctrl, v, logger)
	_ = conn.Close(status, reason)
	logger.Info("board_disconnected", zap.String("reason", reason))
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, ctrl *session.Controller, v *view, logger *zap.Logger) (websocket.StatusCode, string) {
	for {
		var in boarddto.Inbound
		if err := wsjson.Read(ctx, conn, &in); err != nil {
			if v.reloaded.Load() {
				return websocket.StatusNormalClosure, "reload"
			}
			if ctx.Err() != nil {
				return websocket.StatusGoingAway, "shutdown"
			}
			if websocket.CloseStatus(err) != -1 {
				return websocket.StatusNormalClosure, "peer closed"
			}
			logger.Debug("board_read_failed", zap.Error(err))
			return websocket.StatusProtocolError, "bad frame"
		}
		err := s.dispatch(ctx, ctrl, v, in)
		if v.reloaded.Load() {
			return websocket.StatusNormalClosure, "reload"
		}
		if err != nil {
			logger.Debug("board_command_rejected", zap.String("type", in.Type), zap.Error(err))
			_ = v.fail(errorCode(err), err)
		}
	}
}

func (s *Server) dispatch(ctx context.Context, ctrl *session.Controller, v *view, in boarddto.Inbound) error {
	switch strings.TrimSpace(in.Type) {
	case boarddto.TypeNewGame:
		side := position.White
		if in.Orientation != "" {
			parsed, err := position.ParseSide(in.Orientation)
			if err != nil {
				return err
			}
			side = parsed
		}
		return ctrl.NewGame(ctx, side)
	case boarddto.TypeDrop:
		ev := session.DropEvent{
			Source: in.Source,
			Target: in.Target,
			Piece:  in.Piece,
			Board:  position.Board(in.Board),
		}
		if ctrl.Drop(ctx, ev) == session.Snapback {
			return v.snapback(ev)
		}
		return nil
	case boarddto.TypeMoveEnd:
		ctrl.AnimationComplete()
		return nil
	case boarddto.TypeSuggest:
		return ctrl.Suggest(ctx)
	case boarddto.TypeUndo:
		return ctrl.Undo(ctx)
	default:
		return fmt.Errorf("%w: %q", errUnknownFrame, in.Type)
	}
}

var errUnknownFrame = errors.New("unknown frame type")

func errorCode(err error) string {
	switch {
	case errors.Is(err, session.ErrNoSession):
		return "no_game"
	case errors.Is(err, session.ErrNotHumanTurn):
		return "not_your_turn"
	case errors.Is(err, position.ErrInvalidSide):
		return "bad_orientation"
	case errors.Is(err, errUnknownFrame):
		return "unknown_frame"
	default:
		return "internal"
	}
}

// pingLoop drops the connection after two missed pongs in a row.
func (s *Server) pingLoop(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc, logger *zap.Logger) {
	if s.pingInterval <= 0 {
		return
	}
	t := time.NewTicker(s.pingInterval)
	defer t.Stop()
	misses := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pingCtx, done := context.WithTimeout(ctx, 3*time.Second)
			err := conn.Ping(pingCtx)
			done()
			if err == nil {
				misses = 0
				continue
			}
			misses++
			if misses >= 2 {
				logger.Info("board_ping_timeout", zap.Error(err))
				cancel()
				return
			}
		}
	}
}
