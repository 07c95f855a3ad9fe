// Package enginetest provides a scripted engine boundary for tests.
package enginetest

import (
	"context"
	"fmt"
	"sync"
)

// Call records one boundary invocation.
type Call struct {
	Method string
	FEN    string
	From   string
	To     string
}

// Scripted answers boundary calls from per-method queues. An exhausted queue
// falls back to the method's default reply, if any.
type Scripted struct {
	mu sync.Mutex

	moves   []string
	best    []string
	endings []string

	DefaultMove   string
	DefaultBest   string
	DefaultEnding string
	Err           error

	calls []Call
}

func (s *Scripted) QueueMove(replies ...string) { s.mu.Lock(); s.moves = append(s.moves, replies...); s.mu.Unlock() }
func (s *Scripted) QueueBest(replies ...string) { s.mu.Lock(); s.best = append(s.best, replies...); s.mu.Unlock() }
func (s *Scripted) QueueEnding(replies ...string) {
	s.mu.Lock()
	s.endings = append(s.endings, replies...)
	s.mu.Unlock()
}

// Calls returns a copy of the recorded invocations.
func (s *Scripted) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo returns the recorded invocations of method.
func (s *Scripted) CallsTo(method string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (s *Scripted) MakeMove(_ context.Context, fen, from, to string) (string, error) {
	return s.next(Call{Method: "make_move", FEN: fen, From: from, To: to}, &s.moves, s.DefaultMove)
}

func (s *Scripted) FindBestMove(_ context.Context, fen string) (string, error) {
	return s.next(Call{Method: "find_best_move", FEN: fen}, &s.best, s.DefaultBest)
}

func (s *Scripted) CheckEndGame(_ context.Context, fen string) (string, error) {
	return s.next(Call{Method: "check_end_game", FEN: fen}, &s.endings, s.DefaultEnding)
}

func (s *Scripted) next(c Call, queue *[]string, fallback string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
	if s.Err != nil {
		return "", s.Err
	}
	if len(*queue) == 0 {
		if fallback == "" {
			return "", fmt.Errorf("enginetest: no scripted reply for %s", c.Method)
		}
		return fallback, nil
	}
	reply := (*queue)[0]
	*queue = (*queue)[1:]
	return reply, nil
}
