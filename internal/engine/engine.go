// Package engine defines the narrow call boundary to a move engine and decodes
// its string replies into tagged results.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/park285/duchess-board/internal/position"
	"go.uber.org/zap"
)

// ErrUnrecoverable marks a reply or transport failure the caller must not
// try to recover from locally.
var ErrUnrecoverable = errors.New("engine: unrecoverable boundary failure")

// Boundary is the raw surface of a move engine. Implementations return the
// documented tokens or a FEN string; an error means the call itself failed.
type Boundary interface {
	MakeMove(ctx context.Context, fen, from, to string) (string, error)
	FindBestMove(ctx context.Context, fen string) (string, error)
	CheckEndGame(ctx context.Context, fen string) (string, error)
}

// Client decodes Boundary replies once so callers never inspect raw strings.
type Client struct {
	boundary Boundary
	logger   *zap.Logger
}

func NewClient(b Boundary, logger *zap.Logger) (*Client, error) {
	if b == nil {
		return nil, fmt.Errorf("engine boundary is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{boundary: b, logger: logger}, nil
}

// ApplyMove asks the engine to play from→to on pos. The reply is either a
// new position or ReplyIllegal; anything else returns ErrUnrecoverable.
func (c *Client) ApplyMove(ctx context.Context, pos position.Position, from, to string) (MoveReply, error) {
	raw, err := c.boundary.MakeMove(ctx, string(pos), strings.ToLower(from), strings.ToLower(to))
	if err != nil {
		return c.transportFailure("make_move", pos, err)
	}
	reply := DecodeMoveReply(raw)
	if reply.Kind == ReplyUnrecoverable {
		return reply, c.unrecognised("make_move", pos, raw)
	}
	return reply, nil
}

// BestMove asks the engine for its reply on pos. Only a position is valid.
func (c *Client) BestMove(ctx context.Context, pos position.Position) (MoveReply, error) {
	raw, err := c.boundary.FindBestMove(ctx, string(pos))
	if err != nil {
		return c.transportFailure("find_best_move", pos, err)
	}
	reply := DecodeMoveReply(raw)
	if reply.Kind != ReplyPosition {
		reply.Kind = ReplyUnrecoverable
		return reply, c.unrecognised("find_best_move", pos, raw)
	}
	return reply, nil
}

// CheckEndGame reports whether pos ends the game.
func (c *Client) CheckEndGame(ctx context.Context, pos position.Position) (EndGame, error) {
	raw, err := c.boundary.CheckEndGame(ctx, string(pos))
	if err != nil {
		c.logger.Error("engine_transport_error",
			zap.String("call", "check_end_game"),
			zap.String("fen", string(pos)),
			zap.Error(err),
		)
		return EndGame{Outcome: OutcomeUnrecoverable}, fmt.Errorf("%w: check_end_game: %v", ErrUnrecoverable, err)
	}
	end := DecodeEndGame(raw)
	if end.Outcome == OutcomeUnrecoverable {
		return end, c.unrecognised("check_end_game", pos, raw)
	}
	return end, nil
}

func (c *Client) transportFailure(call string, pos position.Position, err error) (MoveReply, error) {
	c.logger.Error("engine_transport_error",
		zap.String("call", call),
		zap.String("fen", string(pos)),
		zap.Error(err),
	)
	return MoveReply{Kind: ReplyUnrecoverable}, fmt.Errorf("%w: %s: %v", ErrUnrecoverable, call, err)
}

func (c *Client) unrecognised(call string, pos position.Position, raw string) error {
	c.logger.Error("engine_unrecognised_reply",
		zap.String("call", call),
		zap.String("fen", string(pos)),
		zap.String("reply", truncate(raw, 128)),
	)
	return fmt.Errorf("%w: %s replied %q", ErrUnrecoverable, call, truncate(raw, 128))
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
