// Package eventhandler contains the asynchronous listeners reacting to
// domain events. Listeners are the reactive half of the system: they perform
// side effects (cache invalidation, re-broadcasts, notification delivery)
// outside the request that raised the event, and each one is isolated - a
// failing listener never rolls back the mutation that triggered it.
package eventhandler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tutorhub/tutorhub/internal/domain/dashboard"
	"github.com/tutorhub/tutorhub/internal/domain/shared"
	"github.com/tutorhub/tutorhub/internal/infrastructure/messaging"
)

// DashboardRetryDeadline bounds how long the dashboard listener may be
// retried before the refresh is abandoned.
const DashboardRetryDeadline = 5 * time.Minute

// OnDashboardUpdated handles dashboard.UpdatedEvent.
//
// It invalidates the student's cached dashboard snapshot and then re-broadcasts
// the update to the student's private channel, excluding the connection that
// triggered it so the original actor's client is not redundantly notified.
type OnDashboardUpdated struct {
	cache       dashboard.Cache
	broadcaster *messaging.Broadcaster
	logger      *slog.Logger
}

// NewOnDashboardUpdated creates the dashboard update listener.
func NewOnDashboardUpdated(cache dashboard.Cache, broadcaster *messaging.Broadcaster, logger *slog.Logger) *OnDashboardUpdated {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnDashboardUpdated{
		cache:       cache,
		broadcaster: broadcaster,
		logger:      logger.With("handler", "on_dashboard_updated"),
	}
}

// Registration returns the dispatcher registration for this listener: async,
// retried up to the bounded deadline, abandoned beyond it.
func (h *OnDashboardUpdated) Registration() messaging.Registration {
	return messaging.Registration{
		Name:          "dashboard-cache-refresh",
		Handler:       h.Handle,
		Async:         true,
		RetryDeadline: DashboardRetryDeadline,
	}
}

// Handle implements shared.EventHandler.
//
// Invalidation is idempotent (the key is removed, never updated in place), so
// a retried execution is harmless. The broadcast is best-effort and does not
// fail the listener.
func (h *OnDashboardUpdated) Handle(event shared.Event) error {
	updated, ok := event.(dashboard.UpdatedEvent)
	if !ok {
		h.logger.Warn("received unexpected event", "event_type", event.EventType())
		return nil
	}

	ctx := context.Background()

	if err := h.cache.Invalidate(ctx, updated.UserID); err != nil {
		// Returning the error lets the dispatcher retry inside the
		// deadline window; a stale cache entry is worth a retry.
		return fmt.Errorf("invalidate dashboard cache: %w", err)
	}

	h.logger.Debug("dashboard cache invalidated",
		"user_id", updated.UserID,
		"update_type", updated.UpdateType,
	)

	h.broadcaster.Broadcast(ctx, updated, updated.SocketID())
	return nil
}
