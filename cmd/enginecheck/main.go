package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/park285/duchess-board/internal/engine"
	"github.com/park285/duchess-board/internal/engine/remote"
	"github.com/park285/duchess-board/internal/position"
)

func main() {
	baseURL := os.Getenv("DUCHESS_ENGINE_URL")
	if baseURL == "" {
		log.Fatal("DUCHESS_ENGINE_URL is required")
	}

	client := remote.NewClient(baseURL, remote.WithTimeout(8*time.Second), remote.WithRetry(1))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := client.Healthy(ctx); err != nil {
		log.Fatalf("/healthz error: %v", err)
	}
	log.Printf("/healthz ok")

	decoded, err := engine.NewClient(client, nil)
	if err != nil {
		log.Fatalf("engine client: %v", err)
	}

	moved, err := decoded.ApplyMove(ctx, position.Start, "e2", "e4")
	if err != nil {
		log.Fatalf("/make_move error: %v", err)
	}
	log.Printf("/make_move e2e4 -> %s (%s)", moved.Kind, moved.Raw)

	illegal, err := decoded.ApplyMove(ctx, position.Start, "e2", "e5")
	if err != nil {
		log.Fatalf("/make_move error: %v", err)
	}
	if illegal.Kind != engine.ReplyIllegal {
		log.Printf("warning: e2e5 was not rejected: %s", illegal.Raw)
	} else {
		log.Printf("/make_move e2e5 -> illegal")
	}

	if moved.Kind == engine.ReplyPosition {
		best, err := decoded.BestMove(ctx, moved.Position)
		if err != nil {
			log.Fatalf("/find_best_move error: %v", err)
		}
		log.Printf("/find_best_move -> %s", best.Position)
	}

	end, err := decoded.CheckEndGame(ctx, position.Start)
	if err != nil {
		log.Fatalf("/check_end_game error: %v", err)
	}
	log.Printf("/check_end_game start -> %s", end.Outcome)
}
