package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcfg "github.com/park285/duchess-board/internal/config"
	"github.com/park285/duchess-board/internal/enginebuilder"
	"github.com/park285/duchess-board/internal/engine/remote"
	"github.com/park285/duchess-board/internal/obslog"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

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
	if cfg.EngineMode == appcfg.EngineRemote {
		logger.Fatal("config_error", zap.String("reason", "engine host cannot use DUCHESS_ENGINE=remote"))
	}

	deps, err := enginebuilder.New(cfg, logger)
	if err != nil {
		logger.Fatal("engine_init_error", zap.Error(err))
	}
	defer func() { _ = deps.Close() }()

	srv := &fasthttp.Server{
		Name:         "duchess-engine",
		Handler:      remote.Handler(deps.Boundary, cfg.EngineTimeout, logger.Named("http")),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.EngineTimeout + 5*time.Second,
	}
	go func() {
		logger.Info("engine_host_listening", zap.String("addr", cfg.EngineListenAddr), zap.String("engine", cfg.EngineMode))
		if err := srv.ListenAndServe(cfg.EngineListenAddr); err != nil {
			logger.Fatal("engine_host_error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	if err := srv.Shutdown(); err != nil {
		logger.Warn("engine_host_shutdown_error", zap.Error(err))
	}
}
