// Package main is the entry point for the TutorHub background worker.
//
// The worker runs periodic maintenance, currently the attachment retention
// sweep: terminal offerings past the retention window lose their stored
// files and their attachment metadata is nulled out.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tutorhub/tutorhub/config"
	"github.com/tutorhub/tutorhub/internal/infrastructure/persistence/postgres"
	"github.com/tutorhub/tutorhub/internal/infrastructure/scheduler"
	"github.com/tutorhub/tutorhub/internal/infrastructure/scheduler/jobs"
	"github.com/tutorhub/tutorhub/pkg/logging"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.Setup(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	logger.Info("starting worker",
		"app", cfg.App.Name,
		"version", cfg.App.Version,
		"env", cfg.App.Environment,
	)

	var conn *postgres.Connection
	if cfg.Database.URL != "" {
		conn, err = postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	} else {
		conn, err = postgres.NewConnection(ctx, postgres.DefaultConfig())
	}
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer conn.Close()

	if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	offerings := postgres.NewOfferingRepository(conn)

	sched := scheduler.New(logger)

	cleanup := jobs.NewCleanupAttachments(offerings, jobs.DiskRemover{}, 0, logger)
	if err := sched.Register(cleanup, scheduler.DailyAt(3, 0)); err != nil {
		return err
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer stopCancel()

	done := make(chan struct{})
	go func() {
		_ = sched.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-stopCtx.Done():
		logger.Warn("scheduler stop timed out", "timeout", cfg.App.ShutdownTimeout)
	}

	logger.Info("worker stopped")
	return nil
}
