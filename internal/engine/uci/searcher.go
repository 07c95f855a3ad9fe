package uci

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Searcher answers best-move requests from a pooled engine process.
type Searcher struct {
	pool    *Pool
	options Options
	limits  Limits
	logger  *zap.Logger
}

func NewSearcher(pool *Pool, opt Options, limits Limits, logger *zap.Logger) (*Searcher, error) {
	if pool == nil {
		return nil, fmt.Errorf("uci pool is required")
	}
	if err := opt.validate(); err != nil {
		return nil, err
	}
	if _, err := limits.goCommand(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Searcher{pool: pool, options: opt, limits: limits, logger: logger}, nil
}

// Search returns the engine's move for fen in UCI notation.
func (s *Searcher) Search(ctx context.Context, fen string) (move string, err error) {
	proc, err := s.pool.Acquire(ctx, s.options)
	if err != nil {
		return "", fmt.Errorf("acquire engine: %w", err)
	}
	defer func() { s.pool.Release(proc, err) }()

	move, info, err := proc.BestMove(ctx, fen, s.limits)
	if err != nil {
		return "", err
	}
	s.logger.Debug("uci_best_move",
		zap.String("fen", fen),
		zap.String("move", move),
		zap.Int("depth", info.Depth),
		zap.Int("eval_cp", info.EvalCP),
	)
	return move, nil
}
