package offering

import (
	"fmt"
	"time"

	"github.com/tutorhub/tutorhub/internal/domain/shared"
	"github.com/tutorhub/tutorhub/internal/domain/user"
)

// PublicChannelName is the shared channel carrying the global offering list.
const PublicChannelName = "offerings"

// Snapshot is the immutable offering state captured when an event is raised.
// Relation data (requester, tutor) is resolved eagerly at construction so the
// event never re-queries mutable state.
type Snapshot struct {
	ID              string
	Title           string
	Status          Status
	Budget          float64
	AttachmentCount int
	Requester       user.Identity
	Tutor           *user.Identity
	UpdatedAt       time.Time
}

// Snapshot captures the offering's current state together with the resolved
// requester and tutor identities.
func (o *Offering) Snapshot(requester user.Identity, tutor *user.Identity) Snapshot {
	return Snapshot{
		ID:              o.ID.String(),
		Title:           o.Title,
		Status:          o.Status,
		Budget:          o.Budget,
		AttachmentCount: len(o.Attachments),
		Requester:       requester,
		Tutor:           tutor,
		UpdatedAt:       o.UpdatedAt,
	}
}

func (s Snapshot) payload() map[string]interface{} {
	p := map[string]interface{}{
		"id":     s.ID,
		"title":  s.Title,
		"status": s.Status.String(),
		"budget": s.Budget,
		"requester": map[string]interface{}{
			"id":   s.Requester.ID.String(),
			"name": s.Requester.Name,
		},
		"updated_at": s.UpdatedAt.Format(time.RFC3339),
	}
	if s.Tutor != nil {
		p["tutor"] = map[string]interface{}{
			"id":   s.Tutor.ID.String(),
			"name": s.Tutor.Name,
		}
	}
	return p
}

// ═══════════════════════════════════════════════════════════════════════════
// OFFERING CREATED
// ═══════════════════════════════════════════════════════════════════════════

// CreatedEvent is emitted when a new offering is persisted.
// It fans out to the public offering list channel.
type CreatedEvent struct {
	shared.BaseEvent
	Offering Snapshot
}

// NewCreatedEvent creates a CreatedEvent from a persisted offering.
func NewCreatedEvent(o *Offering, requester user.Identity) CreatedEvent {
	return CreatedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventOfferingCreated, o.ID.String()),
		Offering:  o.Snapshot(requester, nil),
	}
}

// Channels implements shared.Broadcastable.
func (e CreatedEvent) Channels() []shared.Channel {
	return []shared.Channel{shared.PublicChannel(PublicChannelName)}
}

// BroadcastPayload implements shared.Broadcastable.
func (e CreatedEvent) BroadcastPayload() map[string]interface{} {
	return e.Offering.payload()
}

// ═══════════════════════════════════════════════════════════════════════════
// OFFERING UPDATED
// ═══════════════════════════════════════════════════════════════════════════

// UpdatedEvent is emitted when an offering mutates (edit, accept, complete,
// cancel). It fans out to the public list channel and to the offering's own
// private channel, with a human-readable message.
type UpdatedEvent struct {
	shared.BaseEvent
	Offering Snapshot
	Message  string
}

// NewUpdatedEvent creates an UpdatedEvent with the given human-readable
// message, e.g. "Offering accepted by Jane".
func NewUpdatedEvent(o *Offering, requester user.Identity, tutor *user.Identity, message string) UpdatedEvent {
	return UpdatedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventOfferingUpdated, o.ID.String()),
		Offering:  o.Snapshot(requester, tutor),
		Message:   message,
	}
}

// Channels implements shared.Broadcastable.
func (e UpdatedEvent) Channels() []shared.Channel {
	return []shared.Channel{
		shared.PublicChannel(PublicChannelName),
		shared.PrivateChannel("offering", e.Offering.ID),
	}
}

// BroadcastPayload implements shared.Broadcastable.
func (e UpdatedEvent) BroadcastPayload() map[string]interface{} {
	p := e.Offering.payload()
	p["message"] = e.Message
	return p
}

// ═══════════════════════════════════════════════════════════════════════════
// ATTACHMENTS UPLOADED
// ═══════════════════════════════════════════════════════════════════════════

// AttachmentsUploadedEvent is emitted when files are added to an offering.
// Only the offering's private channel is notified.
type AttachmentsUploadedEvent struct {
	shared.BaseEvent
	OfferingID string
	Count      int
}

// NewAttachmentsUploadedEvent creates an AttachmentsUploadedEvent.
func NewAttachmentsUploadedEvent(o *Offering, uploaded int) AttachmentsUploadedEvent {
	return AttachmentsUploadedEvent{
		BaseEvent:  shared.NewBaseEvent(shared.EventAttachmentsUploaded, o.ID.String()),
		OfferingID: o.ID.String(),
		Count:      uploaded,
	}
}

// Channels implements shared.Broadcastable.
func (e AttachmentsUploadedEvent) Channels() []shared.Channel {
	return []shared.Channel{shared.PrivateChannel("offering", e.OfferingID)}
}

// BroadcastPayload implements shared.Broadcastable.
func (e AttachmentsUploadedEvent) BroadcastPayload() map[string]interface{} {
	return map[string]interface{}{
		"offering_id":      e.OfferingID,
		"attachment_count": e.Count,
		"message":          fmt.Sprintf("%d file(s) uploaded", e.Count),
	}
}
