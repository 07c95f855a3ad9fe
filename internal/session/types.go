// Package session owns the game-session state machine: it sequences human
// drops and engine replies, keeps the move history and drives a board view.
package session

import (
	"context"
	"errors"

	"github.com/park285/duchess-board/internal/engine"
	"github.com/park285/duchess-board/internal/position"
)

var (
	ErrNoSession    = errors.New("session: no game in progress")
	ErrNotHumanTurn = errors.New("session: not awaiting a human move")
	ErrClosed       = errors.New("session: controller closed")
)

type State int

const (
	Idle State = iota
	AwaitingHuman
	AwaitingEngine
	GameOver
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingHuman:
		return "awaiting_human"
	case AwaitingEngine:
		return "awaiting_engine"
	case GameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

type NoticeKind string

const (
	NoticeInfo     NoticeKind = "info"
	NoticeTerminal NoticeKind = "terminal"
	NoticeFatal    NoticeKind = "fatal"
)

// Notice is a user-facing message. Fatal notices are blocking on the view side.
type Notice struct {
	Kind NoticeKind
	Key  string
	Text string
}

// MoveLabels are the plain-text move displays; the zero value clears them.
type MoveLabels struct {
	Current  string
	Previous string
}

// DropEvent is a drag-and-drop gesture reported by the board view.
type DropEvent struct {
	Source string
	Target string
	// Piece is the moved piece code, e.g. "wP".
	Piece string
	// Board is the view's board after the drop, if it reported one.
	Board position.Board
}

type DropResult int

const (
	// Snapback tells the view to revert the gesture.
	Snapback DropResult = iota
	Accepted
)

func (r DropResult) String() string {
	if r == Accepted {
		return "accepted"
	}
	return "snapback"
}

// View is the board widget as seen by the controller. Every call is a sink;
// errors are logged and never change session state.
type View interface {
	SetOrientation(side position.Side) error
	SetPosition(pos position.Position) error
	ShowMoves(labels MoveLabels) error
	Notify(n Notice) error
}

// Reloader performs the full reload that follows an unrecoverable failure.
type Reloader interface {
	Reload(cause error)
}

type ReloadFunc func(cause error)

func (f ReloadFunc) Reload(cause error) { f(cause) }

// Engine is the decoded engine boundary; *engine.Client implements it.
type Engine interface {
	ApplyMove(ctx context.Context, pos position.Position, from, to string) (engine.MoveReply, error)
	BestMove(ctx context.Context, pos position.Position) (engine.MoveReply, error)
	CheckEndGame(ctx context.Context, pos position.Position) (engine.EndGame, error)
}

var _ Engine = (*engine.Client)(nil)

// Messages renders notice and label text; *msgcat.Catalog implements it.
type Messages interface {
	Render(key string, data any) (string, error)
}

// Snapshot is a copy of the controller's state for inspection.
type Snapshot struct {
	State       State
	SessionID   string
	Orientation position.Side
	History     []position.Position
	Labels      MoveLabels
	Pending     int
}

// Current returns the last history entry, or "" when no game exists.
func (s Snapshot) Current() position.Position {
	if len(s.History) == 0 {
		return ""
	}
	return s.History[len(s.History)-1]
}
