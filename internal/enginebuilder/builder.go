// Package enginebuilder assembles the engine boundary selected by config.
package enginebuilder

import (
	"context"
	"errors"
	"fmt"

	"github.com/park285/duchess-board/internal/config"
	"github.com/park285/duchess-board/internal/engine"
	"github.com/park285/duchess-board/internal/engine/local"
	"github.com/park285/duchess-board/internal/engine/remote"
	"github.com/park285/duchess-board/internal/engine/uci"
	"github.com/park285/duchess-board/internal/position"
	"go.uber.org/zap"
)

type Deps struct {
	// Boundary is the raw engine surface, served as-is by the engine host.
	Boundary engine.Boundary
	// Client decodes Boundary replies for the session controller.
	Client *engine.Client

	closers []func() error
}

// Close releases engine processes started for the boundary.
func (d *Deps) Close() error {
	var errs []error
	for _, c := range d.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// New builds the boundary for cfg.EngineMode. Remote mode never starts a
// local engine; uci mode checks the binary but starts processes lazily.
func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	deps := &Deps{}

	switch cfg.EngineMode {
	case config.EngineRemote:
		deps.Boundary = remote.NewClient(cfg.EngineURL,
			remote.WithTimeout(cfg.EngineTimeout),
			remote.WithLogger(logger.Named("remote")),
		)
	case config.EngineUCI:
		pool, err := uci.NewPool(uci.PoolConfig{BinaryPath: cfg.StockfishPath, Logger: logger.Named("uci")})
		if err != nil {
			return nil, fmt.Errorf("init uci pool: %w", err)
		}
		deps.closers = append(deps.closers, pool.Close)
		level := uci.Level{
			Options: uci.Options{Threads: cfg.UCIThreads, HashMB: cfg.UCIHashMB, SkillLevel: cfg.UCISkill},
			Limits:  uci.Limits{Depth: cfg.UCIDepth, MoveTime: cfg.UCIMoveTime},
		}
		if cfg.UCILevel != "" {
			if level, err = uci.LookupLevel(cfg.UCILevel); err != nil {
				_ = deps.Close()
				return nil, err
			}
		}
		searcher, err := uci.NewSearcher(pool, level.Options, level.Limits, logger.Named("uci"))
		if err != nil {
			_ = deps.Close()
			return nil, fmt.Errorf("init uci searcher: %w", err)
		}
		if deps.Boundary, err = local.New(searcher, logger.Named("local")); err != nil {
			_ = deps.Close()
			return nil, err
		}
	case config.EngineLocal:
		b, err := local.New(local.NewRandomSearcher(cfg.RandomSeed), logger.Named("local"))
		if err != nil {
			return nil, err
		}
		deps.Boundary = b
	default:
		return nil, fmt.Errorf("unknown engine mode %q", cfg.EngineMode)
	}

	client, err := engine.NewClient(deps.Boundary, logger.Named("engine"))
	if err != nil {
		_ = deps.Close()
		return nil, err
	}
	deps.Client = client
	logger.Info("engine_ready", zap.String("mode", cfg.EngineMode))
	return deps, nil
}

// Probe checks the boundary answers an end-game query on the start position.
func (d *Deps) Probe(ctx context.Context) error {
	end, err := d.Client.CheckEndGame(ctx, position.Start)
	if err != nil {
		return fmt.Errorf("engine probe: %w", err)
	}
	if end.Outcome != engine.OutcomeNone {
		return fmt.Errorf("engine probe: start position reported %s", end.Outcome)
	}
	return nil
}
