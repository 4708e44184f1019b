// Package query contains the read-side handlers. Queries never mutate state
// and never raise events.
package query

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tutorhub/tutorhub/internal/domain/offering"
	"github.com/tutorhub/tutorhub/pkg/timeutil"
)

// GetDashboardQuery requests a student's dashboard snapshot.
type GetDashboardQuery struct {
	UserID uuid.UUID
}

// Validate validates the query.
func (q GetDashboardQuery) Validate() error {
	if q.UserID == uuid.Nil {
		return errors.New("get_dashboard: user_id is required")
	}
	return nil
}

// OfferingSummaryDTO is one offering row on the dashboard.
type OfferingSummaryDTO struct {
	ID        uuid.UUID       `json:"id"`
	Title     string          `json:"title"`
	Status    offering.Status `json:"status"`
	Budget    float64         `json:"budget"`
	UpdatedAt string          `json:"updated_at"`
}

// DashboardDTO is the snapshot served to the dashboard view. It is what the
// cache stores; dashboard.updated events tell clients to refetch it.
type DashboardDTO struct {
	UserID     uuid.UUID            `json:"user_id"`
	Posted     []OfferingSummaryDTO `json:"posted"`
	Accepted   []OfferingSummaryDTO `json:"accepted"`
	OpenCount  int                  `json:"open_count"`
	ComputedAt string               `json:"computed_at"`
}

// SnapshotCache is the cache surface the query needs. Satisfied by the Redis
// dashboard cache; a nil cache disables read-through.
type SnapshotCache interface {
	Get(ctx context.Context, userID uuid.UUID, dest interface{}) error
	Put(ctx context.Context, userID uuid.UUID, snapshot interface{}) error
}

// GetDashboardHandler assembles dashboard snapshots with cache read-through.
type GetDashboardHandler struct {
	offerings offering.Repository
	cache     SnapshotCache
	logger    *slog.Logger
}

// NewGetDashboardHandler creates the handler. Cache may be nil.
func NewGetDashboardHandler(offerings offering.Repository, cache SnapshotCache, logger *slog.Logger) *GetDashboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetDashboardHandler{
		offerings: offerings,
		cache:     cache,
		logger:    logger.With("query", "get_dashboard"),
	}
}

// Handle returns the snapshot, serving from cache when possible. A cache
// error on either side degrades to a recompute; the database stays the
// source of truth.
func (h *GetDashboardHandler) Handle(ctx context.Context, q GetDashboardQuery) (*DashboardDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	if h.cache != nil {
		var cached DashboardDTO
		if err := h.cache.Get(ctx, q.UserID, &cached); err == nil {
			return &cached, nil
		}
	}

	dto, err := h.compute(ctx, q.UserID)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.Put(ctx, q.UserID, dto); err != nil {
			h.logger.Warn("snapshot cache write failed", "user_id", q.UserID, "error", err)
		}
	}
	return dto, nil
}

func (h *GetDashboardHandler) compute(ctx context.Context, userID uuid.UUID) (*DashboardDTO, error) {
	opts := offering.ListOptions{Limit: 20}

	posted, err := h.offerings.ListByRequester(ctx, userID, opts)
	if err != nil {
		return nil, err
	}
	accepted, err := h.offerings.ListByTutor(ctx, userID, opts)
	if err != nil {
		return nil, err
	}

	dto := &DashboardDTO{
		UserID:     userID,
		Posted:     summarize(posted),
		Accepted:   summarize(accepted),
		ComputedAt: timeutil.ISO8601(time.Now()),
	}
	for _, o := range posted {
		if o.Status == offering.StatusPending || o.Status == offering.StatusOpen {
			dto.OpenCount++
		}
	}
	return dto, nil
}

func summarize(offerings []*offering.Offering) []OfferingSummaryDTO {
	out := make([]OfferingSummaryDTO, 0, len(offerings))
	for _, o := range offerings {
		out = append(out, OfferingSummaryDTO{
			ID:        o.ID,
			Title:     o.Title,
			Status:    o.Status,
			Budget:    o.Budget,
			UpdatedAt: timeutil.ISO8601(o.UpdatedAt),
		})
	}
	return out
}
