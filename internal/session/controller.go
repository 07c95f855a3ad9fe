package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/park285/duchess-board/internal/engine"
	"github.com/park285/duchess-board/internal/history"
	"github.com/park285/duchess-board/internal/position"
	"go.uber.org/zap"
)

const (
	DefaultEngineDelay   = 100 * time.Millisecond
	DefaultEngineTimeout = 30 * time.Second
)

type Config struct {
	// EngineDelay lets the view settle its drop animation before the engine
	// reply redraws the board.
	EngineDelay time.Duration
	// EngineTimeout bounds each engine call made from a scheduled task.
	EngineTimeout time.Duration
	// GuardStaleTasks cancels pending tasks on reset, undo and failure and
	// drops any that still fire for an older session. With false, tasks are
	// fire-and-forget and run against whatever session is current.
	GuardStaleTasks bool
}

func DefaultConfig() Config {
	return Config{
		EngineDelay:     DefaultEngineDelay,
		EngineTimeout:   DefaultEngineTimeout,
		GuardStaleTasks: true,
	}
}

// Session is one live game. It is replaced, never reinitialised.
type Session struct {
	ID          string
	Orientation position.Side
	History     *history.History
	Labels      MoveLabels
}

func newSession(orientation position.Side) *Session {
	return &Session{
		ID:          uuid.NewString(),
		Orientation: orientation,
		History:     history.New(position.Start),
	}
}

// Human is the side the person plays: the side shown at the bottom.
func (s *Session) Human() position.Side { return s.Orientation }

// current is the last history entry; a session's history is never empty.
func (s *Session) current() position.Position {
	pos, _ := s.History.Current()
	return pos
}

// Controller serializes every trigger (view event, button, timer) through one
// mutex, so each runs to completion before the next starts.
type Controller struct {
	engine   Engine
	view     View
	reloader Reloader
	messages Messages
	sched    Scheduler
	cfg      Config
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   State
	session *Session
	epoch   uint64
	pending map[uint64]Task
	nextID  uint64
	closed  bool
}

type Option func(*Controller)

func WithScheduler(s Scheduler) Option {
	return func(c *Controller) {
		if s != nil {
			c.sched = s
		}
	}
}

func WithMessages(m Messages) Option {
	return func(c *Controller) { c.messages = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(eng Engine, view View, reloader Reloader, cfg Config, opts ...Option) (*Controller, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if view == nil {
		return nil, fmt.Errorf("view is required")
	}
	if reloader == nil {
		return nil, fmt.Errorf("reloader is required")
	}
	if cfg.EngineDelay < 0 {
		return nil, fmt.Errorf("engine delay must be >= 0: %v", cfg.EngineDelay)
	}
	if cfg.EngineTimeout <= 0 {
		cfg.EngineTimeout = DefaultEngineTimeout
	}
	c := &Controller{
		engine:   eng,
		view:     view,
		reloader: reloader,
		sched:    TimerScheduler{},
		cfg:      cfg,
		logger:   zap.NewNop(),
		pending:  make(map[uint64]Task),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c, nil
}

// NewGame discards any current game and starts one with the human playing
// orientation. When the human plays black the engine's first move is
// scheduled immediately.
func (c *Controller) NewGame(ctx context.Context, orientation position.Side) error {
	if !orientation.Valid() {
		return fmt.Errorf("%w: %q", position.ErrInvalidSide, orientation)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.resetLocked(orientation)
	c.notify(Notice{Kind: NoticeInfo, Key: "notice.new_game"}, map[string]any{"Side": sideName(orientation)})
	return nil
}

func (c *Controller) resetLocked(orientation position.Side) {
	c.invalidateLocked()
	c.session = newSession(orientation)
	c.state = AwaitingHuman
	c.logger.Info("session_new_game",
		zap.String("session_id", c.session.ID),
		zap.String("orientation", string(orientation)),
	)
	c.viewCall("set_orientation", c.view.SetOrientation(orientation))
	c.viewCall("set_position", c.view.SetPosition(position.Start))
	c.viewCall("show_moves", c.view.ShowMoves(MoveLabels{}))
	c.continueLocked()
}

// Drop handles a human gesture. The engine decides legality; Snapback means
// the view must revert the piece.
func (c *Controller) Drop(ctx context.Context, ev DropEvent) DropResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != AwaitingHuman || c.session == nil {
		c.logger.Debug("session_drop_ignored",
			zap.String("state", c.state.String()),
			zap.String("source", ev.Source),
			zap.String("target", ev.Target),
		)
		return Snapback
	}
	// "offboard" and "spare" endpoints are gestures, not moves
	if ev.Source == ev.Target || !position.ValidSquare(ev.Source) || !position.ValidSquare(ev.Target) {
		return Snapback
	}
	s := c.session
	before := s.current()
	reply, err := c.engine.ApplyMove(ctx, before, ev.Source, ev.Target)
	if err != nil {
		c.failLocked(err)
		return Snapback
	}
	if reply.Kind == engine.ReplyIllegal {
		c.logger.Debug("session_move_rejected",
			zap.String("session_id", s.ID),
			zap.String("source", ev.Source),
			zap.String("target", ev.Target),
		)
		return Snapback
	}
	if err := c.recordLocked(reply.Position); err != nil {
		c.failLocked(err)
		return Snapback
	}
	c.compareViewBoard(ev, reply.Position)
	c.logger.Debug("session_human_move",
		zap.String("session_id", s.ID),
		zap.String("source", ev.Source),
		zap.String("target", ev.Target),
		zap.String("fen", string(reply.Position)),
	)
	if c.endOfGameLocked(ctx) {
		if c.session == nil {
			return Snapback
		}
		return Accepted
	}
	c.state = AwaitingEngine
	c.scheduleLocked("engine_reply", func(ctx context.Context) {
		// redraw first: castling and promotion leave the view's own board wrong
		c.viewCall("set_position", c.view.SetPosition(c.session.current()))
		c.engineTurnLocked(ctx)
	})
	return Accepted
}

// AnimationComplete re-syncs the view with the current position.
func (c *Controller) AnimationComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return
	}
	c.viewCall("set_position", c.view.SetPosition(c.session.current()))
}

// Suggest lets the engine play the human's move.
func (c *Controller) Suggest(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ErrNoSession
	}
	if c.state != AwaitingHuman {
		return fmt.Errorf("%w: state %s", ErrNotHumanTurn, c.state)
	}
	c.engineTurnLocked(ctx)
	return nil
}

// Undo takes back the last full turn. When no full turn can be removed the
// game restarts with the same orientation.
func (c *Controller) Undo(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ErrNoSession
	}
	s := c.session
	if err := s.History.UndoPair(); err != nil || s.History.Len() < 2 {
		c.logger.Info("session_undo_reset", zap.String("session_id", s.ID), zap.Int("history_len", s.History.Len()))
		c.resetLocked(s.Orientation)
		c.notify(Notice{Kind: NoticeInfo, Key: "notice.undo_reset"}, nil)
		return nil
	}
	c.invalidateLocked()
	current := s.current()
	c.logger.Info("session_undo", zap.String("session_id", s.ID), zap.String("fen", string(current)))
	c.viewCall("set_position", c.view.SetPosition(current))
	c.showLabelsLocked()
	c.continueLocked()
	return nil
}

// Snapshot copies the controller state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{State: c.state, Pending: len(c.pending)}
	if c.session != nil {
		snap.SessionID = c.session.ID
		snap.Orientation = c.session.Orientation
		snap.History = c.session.History.All()
		snap.Labels = c.session.Labels
	}
	return snap
}

// Close stops pending tasks and drops the session. Further triggers are
// ignored or fail with ErrClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.stopPendingLocked()
	c.epoch++
	c.session = nil
	c.state = Idle
	c.cancel()
}

// engineTurnLocked asks the engine for a move on the current position.
func (c *Controller) engineTurnLocked(ctx context.Context) {
	s := c.session
	c.state = AwaitingEngine
	reply, err := c.engine.BestMove(ctx, s.current())
	if err != nil {
		c.failLocked(err)
		return
	}
	if err := c.recordLocked(reply.Position); err != nil {
		c.failLocked(err)
		return
	}
	c.viewCall("set_position", c.view.SetPosition(reply.Position))
	c.logger.Debug("session_engine_move", zap.String("session_id", s.ID), zap.String("fen", string(reply.Position)))
	if c.endOfGameLocked(ctx) {
		return
	}
	c.continueLocked()
}

// continueLocked picks the awaiting state from the side to move: the human's
// side waits for a drop, otherwise an engine turn is scheduled.
func (c *Controller) continueLocked() {
	s := c.session
	side, err := s.current().SideToMove()
	if err != nil {
		c.failLocked(err)
		return
	}
	if side == s.Human() {
		c.state = AwaitingHuman
		return
	}
	c.state = AwaitingEngine
	c.scheduleLocked("engine_turn", c.engineTurnLocked)
}

func (c *Controller) recordLocked(pos position.Position) error {
	s := c.session
	if err := s.History.Record(pos); err != nil {
		return fmt.Errorf("record position: %w", err)
	}
	c.showLabelsLocked()
	return nil
}

func (c *Controller) showLabelsLocked() {
	s := c.session
	labels := MoveLabels{Current: c.label("moves.current", s.current())}
	if prev, ok := s.History.Previous(); ok {
		labels.Previous = c.label("moves.previous", prev)
	}
	s.Labels = labels
	c.viewCall("show_moves", c.view.ShowMoves(labels))
}

// endOfGameLocked runs end-game detection on the current position and reports
// whether play stopped, either at a terminal state or on failure.
func (c *Controller) endOfGameLocked(ctx context.Context) bool {
	s := c.session
	end, err := c.engine.CheckEndGame(ctx, s.current())
	if err != nil {
		c.failLocked(err)
		return true
	}
	switch end.Outcome {
	case engine.OutcomeNone:
		return false
	case engine.OutcomeDraw:
		c.finishLocked(Notice{Kind: NoticeTerminal, Key: "notice.draw"}, nil)
		return true
	case engine.OutcomeCheckmate:
		c.finishLocked(Notice{Kind: NoticeTerminal, Key: "notice.checkmate"}, map[string]any{"Side": sideName(end.Mated)})
		return true
	default:
		c.failLocked(fmt.Errorf("%w: end-game reply %q", engine.ErrUnrecoverable, end.Raw))
		return true
	}
}

func (c *Controller) finishLocked(n Notice, data map[string]any) {
	c.stopPendingLocked()
	c.state = GameOver
	c.logger.Info("session_game_over", zap.String("session_id", c.session.ID), zap.String("notice", n.Key))
	c.notify(n, data)
}

// failLocked is the unrecoverable path: one blocking notice, then one reload.
func (c *Controller) failLocked(cause error) {
	if !errors.Is(cause, engine.ErrUnrecoverable) {
		cause = fmt.Errorf("%w: %v", engine.ErrUnrecoverable, cause)
	}
	id := ""
	if c.session != nil {
		id = c.session.ID
	}
	c.logger.Error("session_unrecoverable", zap.String("session_id", id), zap.Error(cause))
	c.invalidateLocked()
	c.session = nil
	c.state = Idle
	c.notify(Notice{Kind: NoticeFatal, Key: "notice.fatal"}, map[string]any{"Reason": reasonOf(cause)})
	c.reloader.Reload(cause)
}

// invalidateLocked moves to a new task epoch and, when guarding, stops the
// tasks of the old one.
func (c *Controller) invalidateLocked() {
	if c.cfg.GuardStaleTasks {
		c.stopPendingLocked()
	}
	c.epoch++
}

func (c *Controller) stopPendingLocked() {
	for id, t := range c.pending {
		t.Stop()
		delete(c.pending, id)
	}
}

// scheduleLocked runs fn after EngineDelay under the controller lock.
func (c *Controller) scheduleLocked(name string, fn func(ctx context.Context)) {
	c.nextID++
	id, epoch, sessionID := c.nextID, c.epoch, c.session.ID
	c.pending[id] = c.sched.AfterFunc(c.cfg.EngineDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.pending, id)
		if c.closed || c.session == nil {
			return
		}
		if c.cfg.GuardStaleTasks && (c.epoch != epoch || c.session.ID != sessionID) {
			c.logger.Debug("session_stale_task_dropped", zap.String("task", name), zap.String("session_id", sessionID))
			return
		}
		ctx, cancel := context.WithTimeout(c.ctx, c.cfg.EngineTimeout)
		defer cancel()
		fn(ctx)
	})
}

func (c *Controller) notify(n Notice, data map[string]any) {
	n.Text = c.render(n.Key, data)
	c.viewCall("notify", c.view.Notify(n))
}

func (c *Controller) label(key string, pos position.Position) string {
	return c.render(key, map[string]any{"Position": string(pos)})
}

func (c *Controller) render(key string, data map[string]any) string {
	if c.messages != nil {
		text, err := c.messages.Render(key, data)
		if err == nil {
			return text
		}
		c.logger.Warn("session_message_render_failed", zap.String("key", key), zap.Error(err))
	}
	return fallbackText(key, data)
}

func (c *Controller) viewCall(op string, err error) {
	if err != nil {
		c.logger.Warn("session_view_call_failed", zap.String("op", op), zap.Error(err))
	}
}

// compareViewBoard logs when the view's own board disagrees with the engine's
// placement, which is expected for castling, en passant and promotion.
func (c *Controller) compareViewBoard(ev DropEvent, accepted position.Position) {
	if len(ev.Board) == 0 {
		return
	}
	encoded, err := position.Encode(ev.Board, ev.Piece)
	if err != nil {
		c.logger.Debug("session_view_board_invalid", zap.Error(err))
		return
	}
	if encoded.Placement() != accepted.Placement() {
		c.logger.Debug("session_view_board_diverged",
			zap.String("view", encoded.Placement()),
			zap.String("engine", accepted.Placement()),
		)
	}
}

func fallbackText(key string, data map[string]any) string {
	get := func(k string) string {
		if v, ok := data[k]; ok {
			return fmt.Sprint(v)
		}
		return ""
	}
	switch key {
	case "notice.checkmate":
		return get("Side") + " is in checkmate."
	case "notice.draw":
		return "The game is drawn."
	case "notice.fatal":
		return "The engine failed. Reloading."
	case "moves.current", "moves.previous":
		return get("Position")
	default:
		return ""
	}
}

func sideName(s position.Side) string {
	switch s {
	case position.White:
		return "White"
	case position.Black:
		return "Black"
	default:
		return strings.TrimSpace(string(s))
	}
}

func reasonOf(err error) string {
	msg := err.Error()
	if len(msg) <= 160 {
		return msg
	}
	n := 160
	for n > 0 && !utf8.RuneStart(msg[n]) {
		n--
	}
	return msg[:n]
}
