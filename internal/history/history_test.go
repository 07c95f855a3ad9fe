package history

import (
	"errors"
	"reflect"
	"testing"

	"github.com/park285/duchess-board/internal/position"
)

const (
	afterE4 position.Position = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq"
	afterE5 position.Position = "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq"
	afterF3 position.Position = "rnbqkbnr/pppp1ppp/8/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq"
)

func TestRecordGrowsByOne(t *testing.T) {
	h := New(position.Start)
	for i, p := range []position.Position{afterE4, afterE5, afterF3} {
		if err := h.Record(p); err != nil {
			t.Fatalf("Record: %v", err)
		}
		if h.Len() != i+2 {
			t.Fatalf("expected len %d, got %d", i+2, h.Len())
		}
		cur, err := h.Current()
		if err != nil || cur != p {
			t.Fatalf("Current = %q, %v; want %q", cur, err, p)
		}
	}
}

func TestRecordRejectsAbsent(t *testing.T) {
	h := New(position.Start)
	if err := h.Record(""); !errors.Is(err, ErrAbsentPosition) {
		t.Fatalf("expected ErrAbsentPosition, got %v", err)
	}
	if h.Len() != 1 {
		t.Fatalf("absent record must not grow history")
	}
}

func TestUndoPairInvertsTwoRecords(t *testing.T) {
	h := New(position.Start)
	_ = h.Record(afterE4)
	before := h.All()

	_ = h.Record(afterE5)
	_ = h.Record(afterF3)
	if err := h.UndoPair(); err != nil {
		t.Fatalf("UndoPair: %v", err)
	}
	if !reflect.DeepEqual(before, h.All()) {
		t.Fatalf("expected %v after undo, got %v", before, h.All())
	}
}

func TestUndoPairKeepsStart(t *testing.T) {
	h := New(position.Start)
	if err := h.UndoPair(); !errors.Is(err, ErrUndoUnavailable) {
		t.Fatalf("expected ErrUndoUnavailable on start-only history, got %v", err)
	}
	_ = h.Record(afterE4)
	if err := h.UndoPair(); !errors.Is(err, ErrUndoUnavailable) {
		t.Fatalf("expected ErrUndoUnavailable with one move, got %v", err)
	}
	if h.Len() != 2 {
		t.Fatalf("failed undo must leave history untouched, len=%d", h.Len())
	}
	start, _ := h.Start()
	if start != position.Start {
		t.Fatalf("start entry changed: %q", start)
	}
}

func TestResetAndPrevious(t *testing.T) {
	h := New(position.Start)
	if _, ok := h.Previous(); ok {
		t.Fatalf("no previous expected at start")
	}
	_ = h.Record(afterE4)
	if prev, ok := h.Previous(); !ok || prev != position.Start {
		t.Fatalf("Previous = %q, %v", prev, ok)
	}
	h.Reset(position.Start)
	if h.Len() != 1 {
		t.Fatalf("Reset must leave one entry, got %d", h.Len())
	}
}
