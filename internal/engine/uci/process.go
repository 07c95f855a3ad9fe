// Package uci drives an external UCI engine binary (stockfish) and exposes it
// as a best-move searcher for the local boundary.
package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	handshakeTimeout = 4 * time.Second
	readyAttempts    = 3
	readyRetryDelay  = 150 * time.Millisecond
)

var ErrNoBestMove = errors.New("uci: engine returned no move")

// Options are the engine-wide settings applied after the uci handshake.
type Options struct {
	Threads    int
	HashMB     int
	SkillLevel int
	// Elo caps playing strength when > 0.
	Elo int
}

func (o Options) key() string {
	return fmt.Sprintf("t%d/h%d/s%d/e%d", o.Threads, o.HashMB, o.SkillLevel, o.Elo)
}

func (o Options) validate() error {
	if o.SkillLevel < 0 || o.SkillLevel > 20 {
		return fmt.Errorf("skill level %d out of range 0-20", o.SkillLevel)
	}
	if o.HashMB <= 0 {
		return fmt.Errorf("hash size must be > 0: %d", o.HashMB)
	}
	if o.Elo < 0 {
		return fmt.Errorf("elo must be >= 0: %d", o.Elo)
	}
	return nil
}

func (o Options) commands() []string {
	threads := o.Threads
	if threads <= 0 {
		threads = 1
	}
	cmds := []string{
		"setoption name Threads value " + strconv.Itoa(threads),
		"setoption name Hash value " + strconv.Itoa(o.HashMB),
		"setoption name Skill Level value " + strconv.Itoa(o.SkillLevel),
	}
	if o.Elo > 0 {
		cmds = append(cmds,
			"setoption name UCI_LimitStrength value true",
			"setoption name UCI_Elo value "+strconv.Itoa(o.Elo),
		)
	}
	return cmds
}

// Limits bound one search. At least one field must be set.
type Limits struct {
	Depth    int
	MoveTime time.Duration
}

func (l Limits) goCommand() (string, error) {
	args := []string{"go"}
	if l.Depth > 0 {
		args = append(args, "depth", strconv.Itoa(l.Depth))
	}
	if ms := l.MoveTime.Milliseconds(); ms > 0 {
		args = append(args, "movetime", strconv.FormatInt(ms, 10))
	}
	if len(args) == 1 {
		return "", fmt.Errorf("no search limits specified")
	}
	return strings.Join(args, " "), nil
}

// deadline is how long a search may run before the process is considered hung.
func (l Limits) deadline() time.Duration {
	if l.MoveTime > 0 {
		return 3 * (l.MoveTime + 2*time.Second)
	}
	d := time.Duration(l.Depth) * 300 * time.Millisecond
	if d < 6*time.Second {
		d = 6 * time.Second
	}
	if d > 20*time.Second {
		d = 20 * time.Second
	}
	return d
}

// Info is the last principal variation reported for a search.
type Info struct {
	Depth  int
	EvalCP int
	PV     []string
}

// Process is one running engine binary. Searches are serialized.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	logger *zap.Logger

	writeMu  sync.Mutex
	searchMu sync.Mutex
}

// Start launches binaryPath and completes the uci/isready handshake.
func Start(ctx context.Context, binaryPath string, opt Options, logger *zap.Logger) (*Process, error) {
	if err := opt.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cmd := exec.Command(binaryPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, fmt.Errorf("start engine %s: %w", binaryPath, err)
	}
	p := &Process{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
		logger: logger,
	}
	if err := p.handshake(ctx, opt); err != nil {
		_ = p.Close()
		return nil, err
	}
	logger.Debug("uci_process_started", zap.String("binary", binaryPath), zap.Int("pid", cmd.Process.Pid))
	return p, nil
}

func (p *Process) handshake(ctx context.Context, opt Options) error {
	ctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()
	if err := p.send("uci"); err != nil {
		return fmt.Errorf("send uci: %w", err)
	}
	if err := p.await(ctx, "uciok"); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}
	for _, c := range opt.commands() {
		if err := p.send(c); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}
	return p.ready(ctx)
}

func (p *Process) ready(ctx context.Context) error {
	if err := p.send("isready"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := p.await(ctx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

// Ready confirms the process still answers isready.
func (p *Process) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()
	return p.ready(ctx)
}

// NewGame clears engine state between unrelated positions.
func (p *Process) NewGame(ctx context.Context) error {
	if err := p.send("ucinewgame"); err != nil {
		return fmt.Errorf("send ucinewgame: %w", err)
	}
	var err error
	for attempt := 1; attempt <= readyAttempts; attempt++ {
		if err = p.Ready(ctx); err == nil {
			return nil
		}
		p.logger.Warn("uci_ready_retry", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readyRetryDelay):
		}
	}
	return err
}

// BestMove searches fen within limits and returns the engine's move in UCI
// notation together with the last reported principal variation.
func (p *Process) BestMove(ctx context.Context, fen string, limits Limits) (string, Info, error) {
	p.searchMu.Lock()
	defer p.searchMu.Unlock()

	goCmd, err := limits.goCommand()
	if err != nil {
		return "", Info{}, err
	}
	if err := p.send(positionCommand(fen)); err != nil {
		return "", Info{}, fmt.Errorf("send position: %w", err)
	}
	if err := p.send(goCmd); err != nil {
		return "", Info{}, fmt.Errorf("send go: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, limits.deadline())
	defer cancel()

	var last Info
	for {
		line, err := p.readLine(ctx)
		if err != nil {
			p.logger.Warn("uci_search_read_failed",
				zap.String("fen", fen),
				zap.String("go", goCmd),
				zap.Error(err),
			)
			return "", last, fmt.Errorf("read search output: %w", err)
		}
		switch {
		case strings.HasPrefix(line, "info "):
			if info, ok := parseInfo(line); ok {
				last = info
			}
		case strings.HasPrefix(line, "bestmove"):
			move := parseBestMove(line)
			if move == "" {
				return "", last, ErrNoBestMove
			}
			return move, last, nil
		}
	}
}

func (p *Process) Close() error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if p.stdin != nil {
		_, _ = io.WriteString(p.stdin, "quit\n")
		p.stdin.Close()
	}
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	return p.cmd.Wait()
}

func (p *Process) send(line string) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_, err := io.WriteString(p.stdin, line+"\n")
	return err
}

func (p *Process) await(ctx context.Context, token string) error {
	for {
		line, err := p.readLine(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(line, token) {
			return nil
		}
	}
}

func (p *Process) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := p.stdout.ReadString('\n')
		ch <- result{line: strings.TrimSpace(line), err: err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		return res.line, res.err
	}
}

func positionCommand(fen string) string {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == "startpos" {
		return "position startpos"
	}
	return "position fen " + fen
}

// parseBestMove extracts the move from "bestmove e2e4 ponder e7e5";
// "(none)" means the side to move has no legal moves.
func parseBestMove(line string) string {
	parts := strings.Fields(line)
	if len(parts) < 2 || parts[1] == "(none)" || parts[1] == "0000" {
		return ""
	}
	return parts[1]
}

func parseInfo(line string) (Info, bool) {
	parts := strings.Fields(line)
	var info Info
	pv := -1
	for i := 1; i < len(parts) && pv < 0; i++ {
		switch parts[i] {
		case "depth":
			if i+1 < len(parts) {
				info.Depth, _ = strconv.Atoi(parts[i+1])
				i++
			}
		case "score":
			if i+2 < len(parts) {
				v, err := strconv.Atoi(parts[i+2])
				if err == nil {
					switch parts[i+1] {
					case "cp":
						info.EvalCP = v
					case "mate":
						info.EvalCP = mateScore
						if v < 0 {
							info.EvalCP = -mateScore
						}
					}
				}
				i += 2
			}
		case "pv":
			pv = i + 1
		}
	}
	if pv < 0 || pv >= len(parts) {
		return Info{}, false
	}
	info.PV = append([]string(nil), parts[pv:]...)
	return info, true
}

const mateScore = 30000
