package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cimillas/ticket-resale/internal/app"
	"github.com/cimillas/ticket-resale/internal/clock"
	"github.com/cimillas/ticket-resale/internal/config"
	"github.com/cimillas/ticket-resale/internal/signer"
	"github.com/cimillas/ticket-resale/internal/storage/memory"
	"github.com/cimillas/ticket-resale/internal/storage/postgres"
	"github.com/cimillas/ticket-resale/internal/storage/sqlite"
	transporthttp "github.com/cimillas/ticket-resale/internal/transport/http"
	"github.com/cimillas/ticket-resale/migrations"
)

const (
	startupTimeout  = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("api exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:], slog.Default())
	if err != nil {
		return err
	}
	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	startupCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	store, err := openStore(startupCtx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer store.close()

	clk := clock.NewSystem()
	handler := transporthttp.NewRouter(transporthttp.RouterConfig{
		Tickets:     app.NewTicketService(store.repo, clk),
		Verifier:    signer.NewVerifier(clk, cfg.SignatureMaxSkew),
		Health:      store.ping,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("api listening", "addr", server.Addr, "storage", cfg.Storage.Type)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server stopped")
	return nil
}

// store bundles the selected ticket repository with its lifecycle hooks.
type store struct {
	repo  app.TicketRepository
	ping  func(ctx context.Context) error
	close func()
}

func openStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*store, error) {
	switch cfg.Type {
	case config.StoragePostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to db: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("db ping: %w", err)
		}
		applied, err := migrations.Apply(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		for _, name := range applied {
			logger.Info("applied migration", "name", name)
		}
		return &store{
			repo:  postgres.NewTicketRepository(pool),
			ping:  pool.Ping,
			close: pool.Close,
		}, nil

	case config.StorageSQLite:
		pool, err := sqlite.Open(cfg.SQLitePath, cfg.SQLitePoolSize, logger)
		if err != nil {
			return nil, err
		}
		return &store{
			repo:  sqlite.NewTicketRepository(pool),
			ping:  pool.Ping,
			close: func() { _ = pool.Close() },
		}, nil

	case config.StorageMemory:
		logger.Warn("using in-memory ticket store, state is lost on exit")
		return &store{
			repo:  memory.NewTicketRepository(),
			close: func() {},
		}, nil
	}
	return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
}
