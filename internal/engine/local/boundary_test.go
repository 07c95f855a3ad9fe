package local

import (
	"context"
	"errors"
	"testing"

	"github.com/park285/duchess-board/internal/engine"
	"github.com/park285/duchess-board/internal/position"
)

const (
	foolsMate = "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3"
	stalemate = "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1"
	promotion = "7k/P7/8/8/8/8/8/K7 w - - 0 1"
)

type fixedSearcher struct {
	move string
	err  error
}

func (f fixedSearcher) Search(context.Context, string) (string, error) { return f.move, f.err }

func newBoundary(t *testing.T, s Searcher) *Boundary {
	t.Helper()
	b, err := New(s, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func TestMakeMoveAcceptsLegalMove(t *testing.T) {
	b := newBoundary(t, NewRandomSearcher(1))
	raw, err := b.MakeMove(context.Background(), string(position.Start), "e2", "e4")
	if err != nil {
		t.Fatalf("MakeMove: %v", err)
	}
	pos, err := position.Parse(raw)
	if err != nil {
		t.Fatalf("reply %q is not a position: %v", raw, err)
	}
	if side, _ := pos.SideToMove(); side != position.Black {
		t.Fatalf("side to move = %s, want black", side)
	}
	if pos.Placement() != "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR" {
		t.Fatalf("unexpected placement %q", pos.Placement())
	}
}

func TestMakeMoveRejections(t *testing.T) {
	b := newBoundary(t, NewRandomSearcher(1))
	ctx := context.Background()
	cases := []struct {
		name     string
		fen      string
		from, to string
		want     string
	}{
		{"illegal pawn jump", string(position.Start), "e2", "e5", engine.TokenIllegal},
		{"wrong side", string(position.Start), "e7", "e5", engine.TokenIllegal},
		{"empty square", string(position.Start), "e4", "e5", engine.TokenIllegal},
		{"bad square", string(position.Start), "z9", "e4", engine.TokenIllegalInput},
		{"bad fen", "not a fen", "e2", "e4", engine.TokenIllegalInput},
	}
	for _, tc := range cases {
		got, err := b.MakeMove(ctx, tc.fen, tc.from, tc.to)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestMakeMovePromotesToQueen(t *testing.T) {
	b := newBoundary(t, NewRandomSearcher(1))
	raw, err := b.MakeMove(context.Background(), promotion, "a7", "a8")
	if err != nil {
		t.Fatalf("MakeMove: %v", err)
	}
	pos, err := position.Parse(raw)
	if err != nil {
		t.Fatalf("reply %q is not a position: %v", raw, err)
	}
	board, err := pos.Board()
	if err != nil {
		t.Fatalf("Board: %v", err)
	}
	if board["a8"] != "wQ" {
		t.Fatalf("a8 = %q, want wQ", board["a8"])
	}
}

func TestCheckEndGame(t *testing.T) {
	b := newBoundary(t, NewRandomSearcher(1))
	ctx := context.Background()
	cases := map[string]string{
		string(position.Start): engine.TokenNone,
		foolsMate:              engine.TokenCheckmateWhite,
		stalemate:              engine.TokenDraw,
		"garbage":              engine.TokenIllegalInput,
	}
	for fen, want := range cases {
		got, err := b.CheckEndGame(ctx, fen)
		if err != nil {
			t.Fatalf("CheckEndGame(%q): %v", fen, err)
		}
		if got != want {
			t.Fatalf("CheckEndGame(%q) = %q, want %q", fen, got, want)
		}
	}
}

func TestFindBestMoveAppliesSearcherMove(t *testing.T) {
	b := newBoundary(t, fixedSearcher{move: "g1f3"})
	raw, err := b.FindBestMove(context.Background(), string(position.Start))
	if err != nil {
		t.Fatalf("FindBestMove: %v", err)
	}
	pos, err := position.Parse(raw)
	if err != nil {
		t.Fatalf("reply %q is not a position: %v", raw, err)
	}
	board, _ := pos.Board()
	if board["f3"] != "wN" {
		t.Fatalf("f3 = %q, want wN", board["f3"])
	}
}

func TestFindBestMoveFailures(t *testing.T) {
	ctx := context.Background()

	over := newBoundary(t, NewRandomSearcher(1))
	if got, err := over.FindBestMove(ctx, foolsMate); err != nil || got != engine.TokenIllegalInput {
		t.Fatalf("finished game: got %q err=%v", got, err)
	}

	broken := newBoundary(t, fixedSearcher{err: errors.New("engine crashed")})
	if _, err := broken.FindBestMove(ctx, string(position.Start)); err == nil {
		t.Fatalf("expected searcher error to surface")
	}

	bogus := newBoundary(t, fixedSearcher{move: "e2e5"})
	if _, err := bogus.FindBestMove(ctx, string(position.Start)); err == nil {
		t.Fatalf("expected illegal searched move to surface as error")
	}
}

func TestRandomSearcherPlaysLegalMoves(t *testing.T) {
	s := NewRandomSearcher(42)
	b := newBoundary(t, s)
	ctx := context.Background()
	pos := string(position.Start)
	for i := 0; i < 6; i++ {
		next, err := b.FindBestMove(ctx, pos)
		if err != nil {
			t.Fatalf("ply %d: %v", i, err)
		}
		if _, err := position.Parse(next); err != nil {
			t.Fatalf("ply %d: reply %q is not a position", i, next)
		}
		pos = next
	}

	if _, err := s.Search(ctx, stalemate); !errors.Is(err, ErrNoLegalMoves) {
		t.Fatalf("stalemate search err = %v, want ErrNoLegalMoves", err)
	}
}

func TestNewRequiresSearcher(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Fatalf("expected error for nil searcher")
	}
}
