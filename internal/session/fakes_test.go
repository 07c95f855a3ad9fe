package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/park285/duchess-board/internal/engine"
	"github.com/park285/duchess-board/internal/engine/enginetest"
	"github.com/park285/duchess-board/internal/msgcat"
	"github.com/park285/duchess-board/internal/position"
)

const (
	afterE4  = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"
	afterE5  = "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 0 2"
	afterNf3 = "rnbqkbnr/pppp1ppp/8/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq - 1 2"
	afterNc6 = "r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3"
)

type recordingView struct {
	mu           sync.Mutex
	orientations []position.Side
	positions    []position.Position
	labels       []MoveLabels
	notices      []Notice
	failWith     error
}

func (v *recordingView) SetOrientation(side position.Side) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.orientations = append(v.orientations, side)
	return v.failWith
}

func (v *recordingView) SetPosition(pos position.Position) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.positions = append(v.positions, pos)
	return v.failWith
}

func (v *recordingView) ShowMoves(labels MoveLabels) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.labels = append(v.labels, labels)
	return v.failWith
}

func (v *recordingView) Notify(n Notice) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notices = append(v.notices, n)
	return v.failWith
}

func (v *recordingView) lastPosition() position.Position {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.positions) == 0 {
		return ""
	}
	return v.positions[len(v.positions)-1]
}

func (v *recordingView) lastLabels() MoveLabels {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.labels) == 0 {
		return MoveLabels{}
	}
	return v.labels[len(v.labels)-1]
}

func (v *recordingView) noticesOf(kind NoticeKind) []Notice {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []Notice
	for _, n := range v.notices {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

type countingReloader struct {
	mu     sync.Mutex
	causes []error
}

func (r *countingReloader) Reload(cause error) {
	r.mu.Lock()
	r.causes = append(r.causes, cause)
	r.mu.Unlock()
}

func (r *countingReloader) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.causes)
}

type harness struct {
	ctrl     *Controller
	engine   *enginetest.Scripted
	view     *recordingView
	reloader *countingReloader
	sched    *ManualScheduler
}

func newHarness(t *testing.T, guard bool) *harness {
	t.Helper()
	fake := &enginetest.Scripted{DefaultEnding: engine.TokenNone}
	client, err := engine.NewClient(fake, nil)
	if err != nil {
		t.Fatalf("engine.NewClient: %v", err)
	}
	catalog, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	h := &harness{
		engine:   fake,
		view:     &recordingView{},
		reloader: &countingReloader{},
		sched:    &ManualScheduler{},
	}
	cfg := DefaultConfig()
	cfg.GuardStaleTasks = guard
	h.ctrl, err = New(client, h.view, h.reloader, cfg, WithScheduler(h.sched), WithMessages(catalog))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(h.ctrl.Close)
	return h
}

func (h *harness) mustState(t *testing.T, want State) Snapshot {
	t.Helper()
	snap := h.ctrl.Snapshot()
	if snap.State != want {
		t.Fatalf("state = %s, want %s", snap.State, want)
	}
	return snap
}

func (h *harness) checkHistoryInvariant(t *testing.T, accepted int) {
	t.Helper()
	snap := h.ctrl.Snapshot()
	if len(snap.History) != 1+accepted {
		t.Fatalf("history len = %d, want %d", len(snap.History), 1+accepted)
	}
	if snap.History[0] != position.Start {
		t.Fatalf("history[0] = %q, want start", snap.History[0])
	}
}

var errBoom = errors.New("boom")
