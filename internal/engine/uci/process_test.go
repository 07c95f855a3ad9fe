package uci

import (
	"testing"
	"time"
)

func TestLimitsGoCommand(t *testing.T) {
	cases := []struct {
		limits Limits
		want   string
	}{
		{Limits{Depth: 12}, "go depth 12"},
		{Limits{MoveTime: 250 * time.Millisecond}, "go movetime 250"},
		{Limits{Depth: 8, MoveTime: time.Second}, "go depth 8 movetime 1000"},
	}
	for _, tc := range cases {
		got, err := tc.limits.goCommand()
		if err != nil {
			t.Fatalf("goCommand(%+v) error: %v", tc.limits, err)
		}
		if got != tc.want {
			t.Fatalf("goCommand(%+v) = %q, want %q", tc.limits, got, tc.want)
		}
	}
	if _, err := (Limits{}).goCommand(); err == nil {
		t.Fatalf("expected error for empty limits")
	}
}

func TestLimitsDeadlineClamp(t *testing.T) {
	if got := (Limits{Depth: 1}).deadline(); got != 6*time.Second {
		t.Fatalf("shallow depth deadline = %v", got)
	}
	if got := (Limits{Depth: 200}).deadline(); got != 20*time.Second {
		t.Fatalf("deep depth deadline = %v", got)
	}
	if got := (Limits{MoveTime: time.Second}).deadline(); got != 9*time.Second {
		t.Fatalf("movetime deadline = %v", got)
	}
}

func TestParseInfo(t *testing.T) {
	info, ok := parseInfo("info depth 14 seldepth 20 multipv 1 score cp 31 nodes 12345 pv e2e4 e7e5 g1f3")
	if !ok {
		t.Fatalf("expected info line to parse")
	}
	if info.Depth != 14 || info.EvalCP != 31 {
		t.Fatalf("unexpected info: %+v", info)
	}
	if len(info.PV) != 3 || info.PV[0] != "e2e4" {
		t.Fatalf("unexpected pv: %v", info.PV)
	}

	mated, ok := parseInfo("info depth 3 score mate -2 pv h7h6")
	if !ok || mated.EvalCP != -mateScore {
		t.Fatalf("mate score not mapped: %+v ok=%v", mated, ok)
	}

	if _, ok := parseInfo("info string NNUE evaluation enabled"); ok {
		t.Fatalf("info without pv should be ignored")
	}
}

func TestParseBestMove(t *testing.T) {
	if got := parseBestMove("bestmove e7e8q ponder a2a3"); got != "e7e8q" {
		t.Fatalf("parseBestMove = %q", got)
	}
	if got := parseBestMove("bestmove (none)"); got != "" {
		t.Fatalf("expected empty move for (none), got %q", got)
	}
}

func TestOptionsValidateAndKey(t *testing.T) {
	if err := (Options{HashMB: 16, SkillLevel: 21}).validate(); err == nil {
		t.Fatalf("expected skill level error")
	}
	if err := (Options{HashMB: 0}).validate(); err == nil {
		t.Fatalf("expected hash error")
	}
	a := Options{HashMB: 16, SkillLevel: 5}
	b := Options{HashMB: 16, SkillLevel: 6}
	if a.key() == b.key() {
		t.Fatalf("distinct options share pool key %q", a.key())
	}
	cmds := a.commands()
	for _, c := range cmds {
		if c == "setoption name UCI_LimitStrength value true" {
			t.Fatalf("strength limit applied without elo")
		}
	}
}

func TestPositionCommand(t *testing.T) {
	if got := positionCommand(""); got != "position startpos" {
		t.Fatalf("positionCommand(empty) = %q", got)
	}
	fen := "8/8/8/8/8/8/8/K6k w - - 0 1"
	if got := positionCommand(fen); got != "position fen "+fen {
		t.Fatalf("positionCommand = %q", got)
	}
}

func TestNewPoolRequiresBinary(t *testing.T) {
	if _, err := NewPool(PoolConfig{}); err == nil {
		t.Fatalf("expected error for empty binary path")
	}
	if _, err := NewPool(PoolConfig{BinaryPath: "/nonexistent/stockfish"}); err == nil {
		t.Fatalf("expected error for missing binary")
	}
}
