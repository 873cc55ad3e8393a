package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/stadtaev/racereplay/internal/config"
	"github.com/stadtaev/racereplay/internal/database"
	"github.com/stadtaev/racereplay/internal/migrations"
	"github.com/stadtaev/racereplay/internal/race"
	"github.com/stadtaev/racereplay/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}
	}
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	store := race.NewSQLiteStore(db)
	if cfg.SeedDemo {
		if err := race.SeedDemo(ctx, logger, store); err != nil {
			return fmt.Errorf("seeding demo race: %w", err)
		}
	}

	// --- Replay sessions ---
	sessions := server.NewSessionRegistry(logger, cfg.TickInterval)
	defer sessions.Close()

	admin, err := server.NewAdminAuth(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("initializing admin auth: %w", err)
	}

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, db, store, sessions, admin)

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}
