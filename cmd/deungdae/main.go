package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gongdo-labs/deungdae/internal/config"
	"github.com/gongdo-labs/deungdae/internal/extract"
	"github.com/gongdo-labs/deungdae/internal/loader"
	"github.com/gongdo-labs/deungdae/internal/server"
	"github.com/gongdo-labs/deungdae/internal/store"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging installs the process-wide structured logger.
func setupLogging(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// runServeMode runs the HTTP server until a shutdown signal arrives.
func runServeMode(srv *server.Server, logger *slog.Logger) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	select {
	case sig := <-signalCh:
		logger.Info("received signal, shutting down", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
			os.Exit(1)
		}
		if err := <-serverErrCh; err != nil {
			logger.Error("server stopped with error", "error", err)
			os.Exit(1)
		}

	case err := <-serverErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
}

// runLoadMode batch-loads the data directory into the reference store.
func runLoadMode(cfg *config.Config, engine *extract.Service, ref *store.Store, logger *slog.Logger) {
	l := loader.New(engine, ref, logger)

	summary, err := l.LoadDir(context.Background(), cfg.DataDir)
	if err != nil {
		logger.Error("batch load failed", "error", err)
		os.Exit(1)
	}
	if len(summary.Failed) > 0 {
		logger.Warn("some documents failed", "failed", summary.Failed)
		os.Exit(1)
	}
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogging(cfg)

	if version != "dev" {
		cfg.Version = version
	}
	if cfg.IsDebug() {
		logger.Debug("starting", "config", cfg.String())
	}

	engine := extract.NewService(cfg.MaxFileSize)

	ref, err := store.New(cfg.RefDB)
	if err != nil {
		logger.Error("opening reference store", "path", cfg.RefDB, "error", err)
		os.Exit(1)
	}
	defer ref.Close()

	if cfg.IsLoadMode() {
		runLoadMode(cfg, engine, ref, logger)
		return
	}

	client, err := store.New(cfg.ClientDB)
	if err != nil {
		logger.Error("opening client store", "path", cfg.ClientDB, "error", err)
		os.Exit(1)
	}
	defer client.Close()

	srv := server.New(cfg.Address(), engine, ref, client, logger)
	runServeMode(srv, logger)
}

func printVersion() {
	fmt.Printf("deungdae %s\n", version)
	fmt.Printf("  build time: %s\n", buildTime)
	fmt.Printf("  git commit: %s\n", gitCommit)
	fmt.Printf("  go version: %s\n", runtime.Version())
	fmt.Printf("  platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
