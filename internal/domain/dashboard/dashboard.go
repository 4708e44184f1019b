// Package dashboard contains the student dashboard update event and the
// cache contract behind it.
//
// The dashboard cache entry is the only shared mutable resource in the event
// core. It is always invalidated, never updated in place: a concurrent writer
// simply removes the key and the next read recomputes the snapshot.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tutorhub/tutorhub/internal/domain/shared"
)

// CacheKey returns the cache key holding a student's dashboard snapshot.
func CacheKey(userID uuid.UUID) string {
	return fmt.Sprintf("student.dashboard.%s", userID)
}

// Cache invalidates cached dashboard snapshots keyed by student id.
type Cache interface {
	// Invalidate removes the student's cached snapshot. Removing an absent
	// key is not an error; invalidation is safe to repeat.
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

// UpdatedEvent is emitted whenever something requires a student's dashboard
// to refresh. The listener invalidates the cached snapshot and re-broadcasts
// to the student's private channel, excluding the originating connection.
type UpdatedEvent struct {
	shared.BaseEvent
	UserID     uuid.UUID
	UpdateType string                 // free-form tag, e.g. "offering_accepted"
	Data       map[string]interface{} // opaque payload passed through as-is
	Socket     string                 // originating connection, "" if unknown
}

// NewUpdatedEvent creates an UpdatedEvent for the given student.
func NewUpdatedEvent(userID uuid.UUID, updateType string, data map[string]interface{}, socketID string) UpdatedEvent {
	return UpdatedEvent{
		BaseEvent:  shared.NewBaseEvent(shared.EventDashboardUpdated, userID.String()),
		UserID:     userID,
		UpdateType: updateType,
		Data:       data,
		Socket:     socketID,
	}
}

// Channels implements shared.Broadcastable.
func (e UpdatedEvent) Channels() []shared.Channel {
	return []shared.Channel{shared.PrivateChannel("student", e.UserID.String())}
}

// BroadcastPayload implements shared.Broadcastable.
func (e UpdatedEvent) BroadcastPayload() map[string]interface{} {
	return map[string]interface{}{
		"type":      e.UpdateType,
		"data":      e.Data,
		"timestamp": e.OccurredAt().Format(time.RFC3339),
	}
}

// SocketID implements shared.SocketScoped.
func (e UpdatedEvent) SocketID() string {
	return e.Socket
}
