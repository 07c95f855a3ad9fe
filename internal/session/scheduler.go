package session

import (
	"sync"
	"time"
)

// Task is a scheduled callback that can be stopped before it fires.
type Task interface {
	// Stop prevents the callback from running; it reports false if the
	// callback already ran or was stopped.
	Stop() bool
}

type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Task
}

// TimerScheduler schedules on the runtime timer heap.
type TimerScheduler struct{}

func (TimerScheduler) AfterFunc(d time.Duration, fn func()) Task {
	return time.AfterFunc(d, fn)
}

// ManualScheduler queues callbacks until the test fires them, so timing is
// deterministic.
type ManualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	delay time.Duration
	fn    func()

	mu   sync.Mutex
	done bool
}

func (t *manualTask) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

func (t *manualTask) claim() bool { return t.Stop() }

func (m *ManualScheduler) AfterFunc(d time.Duration, fn func()) Task {
	t := &manualTask{delay: d, fn: fn}
	m.mu.Lock()
	m.tasks = append(m.tasks, t)
	m.mu.Unlock()
	return t
}

// Pending counts callbacks that have neither fired nor been stopped.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		t.mu.Lock()
		if !t.done {
			n++
		}
		t.mu.Unlock()
	}
	return n
}

// Scheduled counts every callback ever scheduled, fired or not.
func (m *ManualScheduler) Scheduled() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// FireNext runs the oldest live callback and reports whether one ran.
func (m *ManualScheduler) FireNext() bool {
	m.mu.Lock()
	var next *manualTask
	for _, t := range m.tasks {
		if t.claim() {
			next = t
			break
		}
	}
	m.mu.Unlock()
	if next == nil {
		return false
	}
	next.fn()
	return true
}

// FireAll runs live callbacks, including ones scheduled while firing, until
// none remain or limit callbacks have run.
func (m *ManualScheduler) FireAll(limit int) int {
	n := 0
	for n < limit && m.FireNext() {
		n++
	}
	return n
}

// FireStale runs the oldest callback even if it was stopped, reproducing a
// timer that fires after its owner tried to cancel it.
func (m *ManualScheduler) FireStale() bool {
	m.mu.Lock()
	if len(m.tasks) == 0 {
		m.mu.Unlock()
		return false
	}
	t := m.tasks[0]
	m.tasks = m.tasks[1:]
	m.mu.Unlock()
	t.claim()
	t.fn()
	return true
}
