package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/park285/duchess-board/internal/boardws"
	appcfg "github.com/park285/duchess-board/internal/config"
	"github.com/park285/duchess-board/internal/enginebuilder"
	"github.com/park285/duchess-board/internal/msgcat"
	"github.com/park285/duchess-board/internal/obslog"
	"github.com/park285/duchess-board/internal/session"
	"go.uber.org/zap"
)

var requiredMessages = []string{
	"notice.checkmate",
	"notice.draw",
	"notice.fatal",
	"notice.new_game",
	"notice.undo_reset",
	"moves.current",
	"moves.previous",
}

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config_error", zap.Error(err))
	}

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		logger.Fatal("messages_init_error", zap.Error(err))
	}
	if err := catalog.Require(requiredMessages...); err != nil {
		logger.Fatal("messages_incomplete", zap.Error(err))
	}

	deps, err := enginebuilder.New(cfg, logger)
	if err != nil {
		logger.Fatal("engine_init_error", zap.Error(err))
	}
	defer func() { _ = deps.Close() }()

	probeCtx, cancel := context.WithTimeout(context.Background(), cfg.EngineTimeout)
	if err := deps.Probe(probeCtx); err != nil {
		logger.Warn("engine_probe_failed", zap.Error(err))
	}
	cancel()

	boards, err := boardws.NewServer(deps.Client, session.Config{
		EngineDelay:     cfg.EngineDelay,
		EngineTimeout:   cfg.EngineTimeout,
		GuardStaleTasks: cfg.GuardStaleTasks,
	}, logger.Named("board"),
		boardws.WithControllerOptions(session.WithMessages(catalog)),
		boardws.WithOriginPatterns(cfg.AllowedOrigins...),
	)
	if err != nil {
		logger.Fatal("board_server_init_error", zap.Error(err))
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Get("/ws", boards.ServeHTTP)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "boards": boards.Active(), "engine": cfg.EngineMode})
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("board_host_listening", zap.String("addr", cfg.ListenAddr), zap.String("engine", cfg.EngineMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("board_host_error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("board_host_shutdown_error", zap.Error(err))
	}
}
