// Package local implements the engine boundary in-process on top of the
// corentings/chess rules library.
package local

import (
	"context"
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/duchess-board/internal/engine"
	"github.com/park285/duchess-board/internal/position"
	"go.uber.org/zap"
)

var ErrNoLegalMoves = errors.New("no legal moves in position")

// Searcher picks a move for the side to move and returns it in UCI notation.
type Searcher interface {
	Search(ctx context.Context, fen string) (string, error)
}

// Boundary answers make_move / find_best_move / check_end_game in-process.
type Boundary struct {
	searcher Searcher
	logger   *zap.Logger
}

var _ engine.Boundary = (*Boundary)(nil)

func New(searcher Searcher, logger *zap.Logger) (*Boundary, error) {
	if searcher == nil {
		return nil, fmt.Errorf("move searcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Boundary{searcher: searcher, logger: logger}, nil
}

// MakeMove checks from→to on fen and returns the position for the opponent,
// "illegal" for a rejected move or "illegal_input" for malformed arguments.
func (b *Boundary) MakeMove(ctx context.Context, fen, from, to string) (string, error) {
	pos, err := position.Parse(fen)
	if err != nil {
		b.logger.Debug("make_move_bad_input", zap.String("fen", fen), zap.Error(err))
		return engine.TokenIllegalInput, nil
	}
	from = strings.ToLower(strings.TrimSpace(from))
	to = strings.ToLower(strings.TrimSpace(to))
	if !position.ValidSquare(from) || !position.ValidSquare(to) {
		return engine.TokenIllegalInput, nil
	}
	game, err := newGame(pos)
	if err != nil {
		return engine.TokenIllegalInput, nil
	}
	move := from + to
	if promotes(pos, from, to) {
		move += "q"
	}
	if err := game.PushNotationMove(move, nchess.UCINotation{}, nil); err != nil {
		return engine.TokenIllegal, nil
	}
	return game.FEN(), nil
}

// FindBestMove asks the searcher for a move and returns the resulting position.
func (b *Boundary) FindBestMove(ctx context.Context, fen string) (string, error) {
	pos, err := position.Parse(fen)
	if err != nil {
		return engine.TokenIllegalInput, nil
	}
	game, err := newGame(pos)
	if err != nil {
		return engine.TokenIllegalInput, nil
	}
	if game.Outcome() != nchess.NoOutcome {
		return engine.TokenIllegalInput, nil
	}
	move, err := b.searcher.Search(ctx, pos.Full())
	if err != nil {
		if errors.Is(err, ErrNoLegalMoves) {
			return engine.TokenIllegalInput, nil
		}
		return "", fmt.Errorf("search: %w", err)
	}
	move = strings.ToLower(strings.TrimSpace(move))
	if err := game.PushNotationMove(move, nchess.UCINotation{}, nil); err != nil {
		return "", fmt.Errorf("apply searched move %q: %w", move, err)
	}
	b.logger.Debug("find_best_move", zap.String("fen", string(pos)), zap.String("move", move))
	return game.FEN(), nil
}

// CheckEndGame reports none, draw or which side is checkmated.
func (b *Boundary) CheckEndGame(ctx context.Context, fen string) (string, error) {
	pos, err := position.Parse(fen)
	if err != nil {
		return engine.TokenIllegalInput, nil
	}
	game, err := newGame(pos)
	if err != nil {
		return engine.TokenIllegalInput, nil
	}
	switch game.Outcome() {
	case nchess.WhiteWon:
		return engine.EncodeEndGame(engine.OutcomeCheckmate, position.Black), nil
	case nchess.BlackWon:
		return engine.EncodeEndGame(engine.OutcomeCheckmate, position.White), nil
	case nchess.Draw:
		return engine.EncodeEndGame(engine.OutcomeDraw, ""), nil
	default:
		return engine.EncodeEndGame(engine.OutcomeNone, ""), nil
	}
}

func newGame(pos position.Position) (*nchess.Game, error) {
	opt, err := nchess.FEN(pos.Full())
	if err != nil {
		return nil, fmt.Errorf("parse fen %q: %w", pos, err)
	}
	return nchess.NewGame(opt), nil
}

// promotes reports whether a pawn on from reaches the last rank on to.
func promotes(pos position.Position, from, to string) bool {
	board, err := pos.Board()
	if err != nil {
		return false
	}
	switch board[from] {
	case "wP":
		return strings.HasSuffix(to, "8")
	case "bP":
		return strings.HasSuffix(to, "1")
	default:
		return false
	}
}
