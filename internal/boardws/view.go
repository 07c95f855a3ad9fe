package boardws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/park285/duchess-board/internal/position"
	"github.com/park285/duchess-board/internal/session"
	"github.com/park285/duchess-board/pkg/boarddto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// view renders controller output as frames on one connection.
type view struct {
	ctx          context.Context
	conn         *websocket.Conn
	writeTimeout time.Duration
	logger       *zap.Logger

	reloaded   atomic.Bool
	reloadOnce sync.Once
	// reloadCh is closed once the reload frame has been sent.
	reloadCh chan struct{}
}

var errReloaded = errors.New("board is reloading")

func newView(ctx context.Context, conn *websocket.Conn, writeTimeout time.Duration, logger *zap.Logger) *view {
	return &view{ctx: ctx, conn: conn, writeTimeout: writeTimeout, logger: logger, reloadCh: make(chan struct{})}
}

var (
	_ session.View     = (*view)(nil)
	_ session.Reloader = (*view)(nil)
)

func (v *view) SetOrientation(side position.Side) error {
	return v.send(boarddto.Outbound{Type: boarddto.TypeOrientation, Orientation: string(side)})
}

func (v *view) SetPosition(pos position.Position) error {
	board, err := pos.Board()
	if err != nil {
		return fmt.Errorf("decode position for view: %w", err)
	}
	return v.send(boarddto.Outbound{Type: boarddto.TypePosition, FEN: string(pos), Board: board})
}

func (v *view) ShowMoves(labels session.MoveLabels) error {
	return v.send(boarddto.Outbound{
		Type:  boarddto.TypeMoves,
		Moves: &boarddto.Moves{Current: labels.Current, Previous: labels.Previous},
	})
}

func (v *view) Notify(n session.Notice) error {
	return v.send(boarddto.Outbound{
		Type: boarddto.TypeNotice,
		Notice: &boarddto.Notice{
			Kind:     string(n.Kind),
			Key:      n.Key,
			Text:     n.Text,
			Blocking: n.Kind == session.NoticeFatal,
		},
	})
}

// Reload tells the board to reload itself and closes the connection; the
// reloaded page starts over on a new one.
func (v *view) Reload(cause error) {
	v.reloadOnce.Do(func() {
		if err := v.send(boarddto.Outbound{Type: boarddto.TypeReload}); err != nil {
			v.logger.Warn("board_reload_send_failed", zap.Error(err))
		}
		v.logger.Info("board_reload", zap.Error(cause))
		v.reloaded.Store(true)
		close(v.reloadCh)
	})
}

func (v *view) snapback(ev session.DropEvent) error {
	return v.send(boarddto.Outbound{Type: boarddto.TypeSnapback, Source: ev.Source, Target: ev.Target})
}

func (v *view) fail(code string, err error) error {
	return v.send(boarddto.Outbound{Type: boarddto.TypeError, Error: &boarddto.Error{Code: code, Message: err.Error()}})
}

func (v *view) send(frame boarddto.Outbound) error {
	if v.reloaded.Load() {
		return errReloaded
	}
	ctx, cancel := context.WithTimeout(v.ctx, v.writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, v.conn, frame); err != nil {
		return fmt.Errorf("write %s frame: %w", frame.Type, err)
	}
	return nil
}
