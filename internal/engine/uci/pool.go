package uci

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

var errAtCapacity = errors.New("uci pool at capacity")

type PoolConfig struct {
	BinaryPath string
	// Capacity caps live processes per option set; 0 picks from NumCPU.
	Capacity int
	Logger   *zap.Logger
}

// Pool keeps warm engine processes, one bucket per distinct Options.
type Pool struct {
	binaryPath string
	capacity   int
	logger     *zap.Logger

	mu      sync.Mutex
	buckets map[string]*bucket
	owners  map[*Process]*bucket
}

func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.BinaryPath == "" {
		return nil, fmt.Errorf("engine binary path required")
	}
	if _, err := os.Stat(cfg.BinaryPath); err != nil {
		return nil, fmt.Errorf("engine binary check: %w", err)
	}
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = min(max(runtime.NumCPU(), 2), 4)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		binaryPath: cfg.BinaryPath,
		capacity:   capacity,
		logger:     logger,
		buckets:    make(map[string]*bucket),
		owners:     make(map[*Process]*bucket),
	}, nil
}

// Acquire returns an idle process for opt, starting one when the bucket has
// room, otherwise waiting for a Release.
func (p *Pool) Acquire(ctx context.Context, opt Options) (*Process, error) {
	b := p.bucketFor(opt)
	for {
		select {
		case proc := <-b.idle:
			if p.revive(ctx, proc) {
				p.own(proc, b)
				return proc, nil
			}
			continue
		default:
		}

		proc, err := b.spawn(ctx, p.binaryPath, p.logger)
		if err == nil {
			p.own(proc, b)
			return proc, nil
		}
		if !errors.Is(err, errAtCapacity) {
			return nil, err
		}

		select {
		case proc := <-b.idle:
			if p.revive(ctx, proc) {
				p.own(proc, b)
				return proc, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Release hands proc back. A non-nil err retires the process.
func (p *Pool) Release(proc *Process, err error) {
	if proc == nil {
		return
	}
	p.mu.Lock()
	b, ok := p.owners[proc]
	delete(p.owners, proc)
	p.mu.Unlock()
	if !ok {
		_ = proc.Close()
		return
	}
	if err != nil || !b.put(proc) {
		b.retire(proc)
	}
}

func (p *Pool) Close() error {
	p.mu.Lock()
	buckets := make([]*bucket, 0, len(p.buckets))
	for _, b := range p.buckets {
		buckets = append(buckets, b)
	}
	p.owners = make(map[*Process]*bucket)
	p.mu.Unlock()

	var errs []error
	for _, b := range buckets {
		errs = append(errs, b.drain()...)
	}
	return errors.Join(errs...)
}

func (p *Pool) revive(ctx context.Context, proc *Process) bool {
	if proc == nil {
		return false
	}
	if err := proc.Ready(ctx); err != nil {
		p.logger.Warn("uci_process_unresponsive", zap.Error(err))
		p.bucketOf(proc).retire(proc)
		return false
	}
	return true
}

func (p *Pool) own(proc *Process, b *bucket) {
	p.mu.Lock()
	p.owners[proc] = b
	p.mu.Unlock()
}

func (p *Pool) bucketOf(proc *Process) *bucket {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, b := range p.buckets {
		if b.holds(proc) {
			return b
		}
	}
	return &bucket{}
}

func (p *Pool) bucketFor(opt Options) *bucket {
	key := opt.key()
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.buckets[key]
	if !ok {
		b = &bucket{opt: opt, capacity: p.capacity, idle: make(chan *Process, p.capacity), live: make(map[*Process]struct{})}
		p.buckets[key] = b
	}
	return b
}

type bucket struct {
	opt      Options
	capacity int
	idle     chan *Process

	mu      sync.Mutex
	live    map[*Process]struct{}
	booting int
}

func (b *bucket) spawn(ctx context.Context, binaryPath string, logger *zap.Logger) (*Process, error) {
	b.mu.Lock()
	if len(b.live)+b.booting >= b.capacity {
		b.mu.Unlock()
		return nil, errAtCapacity
	}
	b.booting++
	b.mu.Unlock()

	proc, err := Start(ctx, binaryPath, b.opt, logger)

	b.mu.Lock()
	b.booting--
	if err == nil {
		b.live[proc] = struct{}{}
	}
	b.mu.Unlock()
	return proc, err
}

func (b *bucket) holds(proc *Process) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.live[proc]
	return ok
}

func (b *bucket) put(proc *Process) bool {
	select {
	case b.idle <- proc:
		return true
	default:
		return false
	}
}

func (b *bucket) retire(proc *Process) {
	if proc == nil {
		return
	}
	_ = proc.Close()
	if b.live == nil {
		return
	}
	b.mu.Lock()
	delete(b.live, proc)
	b.mu.Unlock()
}

func (b *bucket) drain() []error {
	var errs []error
	for {
		select {
		case proc := <-b.idle:
			if proc == nil {
				continue
			}
			if err := proc.Close(); err != nil {
				errs = append(errs, err)
			}
			b.mu.Lock()
			delete(b.live, proc)
			b.mu.Unlock()
		default:
			return errs
		}
	}
}
