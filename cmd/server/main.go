// Package main is the entry point for the TutorHub API server.
//
// The server owns the full request path: REST endpoints, the WebSocket hub,
// channel authorization, and the in-process event pipeline that fans domain
// events out to listeners and the real-time transport.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/tutorhub/tutorhub/config"
	"github.com/tutorhub/tutorhub/internal/application/command"
	"github.com/tutorhub/tutorhub/internal/application/eventhandler"
	"github.com/tutorhub/tutorhub/internal/application/query"
	"github.com/tutorhub/tutorhub/internal/domain/dashboard"
	"github.com/tutorhub/tutorhub/internal/domain/notification"
	"github.com/tutorhub/tutorhub/internal/domain/policy"
	"github.com/tutorhub/tutorhub/internal/domain/shared"
	"github.com/tutorhub/tutorhub/internal/infrastructure/messaging"
	"github.com/tutorhub/tutorhub/internal/infrastructure/notify"
	"github.com/tutorhub/tutorhub/internal/infrastructure/persistence/postgres"
	"github.com/tutorhub/tutorhub/internal/infrastructure/persistence/redis"
	"github.com/tutorhub/tutorhub/internal/infrastructure/realtime"
	httpiface "github.com/tutorhub/tutorhub/internal/interface/http"
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
	// ─────────────────────────────────────────────────────────────────────
	// Configuration and logging
	// ─────────────────────────────────────────────────────────────────────

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.Setup(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	logger.Info("starting server",
		"app", cfg.App.Name,
		"version", cfg.App.Version,
		"env", cfg.App.Environment,
	)

	// ─────────────────────────────────────────────────────────────────────
	// Persistence
	// ─────────────────────────────────────────────────────────────────────

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

	users := postgres.NewUserRepository(conn)
	userProfiles := postgres.NewProfileRepository(conn)
	offerings := postgres.NewOfferingRepository(conn)
	messages := postgres.NewMessageRepository(conn)
	tutors := postgres.NewTutorRepository(conn)

	// ─────────────────────────────────────────────────────────────────────
	// Redis, real-time hub, and transport
	// ─────────────────────────────────────────────────────────────────────

	hub := realtime.NewHub(logger)

	var (
		transport shared.Transport = hub
		dashCache dashboard.Cache  = noopDashboardCache{}
		snapCache query.SnapshotCache
	)

	if !cfg.Redis.Disabled {
		cache, err := redis.NewCache(redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer cache.Close()

		bridge := realtime.NewBridge(cache.Client(), hub, logger)
		go func() {
			if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("realtime bridge stopped", "error", err)
			}
		}()
		transport = bridge

		dc := redis.NewDashboardCache(cache)
		dashCache = dc
		snapCache = dc
	} else {
		logger.Warn("redis disabled: single-node transport, no dashboard cache")
	}

	// ─────────────────────────────────────────────────────────────────────
	// Event pipeline
	// ─────────────────────────────────────────────────────────────────────

	busCfg := messaging.DefaultEventBusConfig()
	busCfg.Logger = logger
	bus := messaging.NewInMemoryEventBus(busCfg)
	defer bus.Close()

	dispatcher := messaging.NewDispatcher(messaging.DispatcherConfig{Logger: logger})
	defer dispatcher.Stop()
	dispatcher.Use(messaging.RecoveryMiddleware(logger))
	dispatcher.Use(messaging.LoggingMiddleware(logger))

	broadcaster := messaging.NewBroadcaster(transport, logger)

	// Every broadcastable type except dashboard updates goes through the
	// generic broadcaster. Dashboard updates are re-broadcast by their own
	// listener so the originating socket can be excluded.
	for _, et := range []shared.EventType{
		shared.EventOfferingCreated,
		shared.EventOfferingUpdated,
		shared.EventAttachmentsUploaded,
		shared.EventMessageSent,
	} {
		if err := dispatcher.Register(et, messaging.Registration{
			Name:    "broadcaster",
			Handler: broadcaster.Handle,
			Async:   true,
		}); err != nil {
			return err
		}
	}

	onDashboard := eventhandler.NewOnDashboardUpdated(dashCache, broadcaster, logger)
	if err := dispatcher.Register(shared.EventDashboardUpdated, onDashboard.Registration()); err != nil {
		return err
	}

	sender := notify.NewQueuedSender(map[notification.ChannelType]notify.Deliverer{
		notification.ChannelEmail: notify.NewLogDeliverer(notification.ChannelEmail, logger),
		notification.ChannelPush:  notify.NewLogDeliverer(notification.ChannelPush, logger),
	}, cfg.Notifications.QueueSize, logger)
	defer sender.Close()

	onVerified := eventhandler.NewOnTutorVerified(sender, logger)
	for et, reg := range onVerified.Registrations() {
		if err := dispatcher.Register(et, reg); err != nil {
			return err
		}
	}

	if err := dispatcher.Attach(bus); err != nil {
		return err
	}

	// ─────────────────────────────────────────────────────────────────────
	// Application layer
	// ─────────────────────────────────────────────────────────────────────

	policies := policy.NewSet()

	commands := httpiface.Commands{
		CreateOffering:    command.NewCreateOfferingHandler(offerings, users, policies, bus, logger),
		UpdateOffering:    command.NewUpdateOfferingHandler(offerings, users, policies, bus, logger),
		DeleteOffering:    command.NewDeleteOfferingHandler(offerings, users, policies, logger),
		AcceptOffering:    command.NewAcceptOfferingHandler(offerings, users, policies, bus, logger),
		UploadAttachments: command.NewUploadAttachmentsHandler(offerings, users, policies, bus, logger),
		SendMessage:       command.NewSendMessageHandler(messages, offerings, users, policies, bus, logger),
		DeleteMessage:     command.NewDeleteMessageHandler(messages, users, policies, logger),
		TutorProfile:      command.NewTutorProfileHandler(tutors, users, policies, logger),
		VerifyTutor:       command.NewVerifyTutorHandler(tutors, users, policies, bus, logger),
		UserProfile:       command.NewUserProfileHandler(userProfiles, users, policies, logger),
	}

	queries := httpiface.Queries{
		Dashboard: query.NewGetDashboardHandler(offerings, snapCache, logger),
	}

	// ─────────────────────────────────────────────────────────────────────
	// HTTP server
	// ─────────────────────────────────────────────────────────────────────

	grantSecret := cfg.Realtime.GrantSecret
	if grantSecret == "" {
		// Development fallback. Validate rejects this in production.
		grantSecret = "dev-grant-secret"
	}

	server := httpiface.NewServer(httpiface.Config{
		Host:           cfg.HTTP.Host,
		Port:           cfg.HTTP.Port,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}, httpiface.Dependencies{
		Commands:    commands,
		Queries:     queries,
		Users:       users,
		Offerings:   offerings,
		Messages:    messages,
		Tutors:      tutors,
		Policies:    policies,
		Hub:         hub,
		ChannelAuth: realtime.NewChannelAuth(grantSecret),
		Sessions:    httpiface.NewSessionAuth(grantSecret),
		Logger:      logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// ─────────────────────────────────────────────────────────────────────
	// Graceful shutdown
	// ─────────────────────────────────────────────────────────────────────

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	logger.Info("server stopped")
	return nil
}

// noopDashboardCache satisfies dashboard.Cache when Redis is disabled. There
// is nothing cached, so there is nothing to invalidate.
type noopDashboardCache struct{}

func (noopDashboardCache) Invalidate(context.Context, uuid.UUID) error { return nil }
