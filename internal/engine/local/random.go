package local

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	nchess "github.com/corentings/chess/v2"
)

// RandomSearcher plays a uniformly random legal move. It performs no
// evaluation and is meant for development hosts without a UCI binary.
type RandomSearcher struct {
	mu   sync.Mutex
	rand *rand.Rand
}

// NewRandomSearcher seeds the searcher; seed 0 uses the clock.
func NewRandomSearcher(seed int64) *RandomSearcher {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomSearcher{rand: rand.New(rand.NewSource(seed))}
}

func (s *RandomSearcher) Search(ctx context.Context, fen string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return "", fmt.Errorf("parse fen %q: %w", fen, err)
	}
	game := nchess.NewGame(opt)
	moves := game.ValidMoves()
	if len(moves) == 0 {
		return "", ErrNoLegalMoves
	}
	s.mu.Lock()
	idx := s.rand.Intn(len(moves))
	s.mu.Unlock()
	return moves[idx].String(), nil
}
