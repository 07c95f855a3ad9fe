// Package history keeps the ordered positions reached in a game.
package history

import (
	"errors"

	"github.com/park285/duchess-board/internal/position"
)

var (
	ErrAbsentPosition  = errors.New("history: absent position")
	ErrUndoUnavailable = errors.New("history: no full turn to undo")
	ErrEmpty           = errors.New("history: empty")
)

// History is an append-only stack of positions, earliest first. Entry 0 is
// the position the game started from.
type History struct {
	entries []position.Position
}

// New returns a history reset to initial.
func New(initial position.Position) *History {
	h := &History{}
	h.Reset(initial)
	return h
}

// Reset replaces the stack with a single element.
func (h *History) Reset(initial position.Position) {
	h.entries = []position.Position{initial}
}

// Record appends pos.
func (h *History) Record(pos position.Position) error {
	if pos.IsZero() {
		return ErrAbsentPosition
	}
	h.entries = append(h.entries, pos)
	return nil
}

// UndoPair removes the two most recent positions. The start entry is never
// removed: with fewer than three entries the stack is left untouched and
// ErrUndoUnavailable is returned.
func (h *History) UndoPair() error {
	if len(h.entries) < 3 {
		return ErrUndoUnavailable
	}
	h.entries = append([]position.Position(nil), h.entries[:len(h.entries)-2]...)
	return nil
}

func (h *History) Len() int { return len(h.entries) }

// Current returns the most recent position.
func (h *History) Current() (position.Position, error) {
	if len(h.entries) == 0 {
		return "", ErrEmpty
	}
	return h.entries[len(h.entries)-1], nil
}

// Previous returns the position before Current, or false at the start.
func (h *History) Previous() (position.Position, bool) {
	if len(h.entries) < 2 {
		return "", false
	}
	return h.entries[len(h.entries)-2], true
}

// Start returns entry 0.
func (h *History) Start() (position.Position, error) {
	if len(h.entries) == 0 {
		return "", ErrEmpty
	}
	return h.entries[0], nil
}

// All returns a copy of the entries.
func (h *History) All() []position.Position {
	return append([]position.Position(nil), h.entries...)
}
