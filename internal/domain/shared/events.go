package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Offering events
	EventOfferingCreated     EventType = "offering.created"
	EventOfferingUpdated     EventType = "offering.updated"
	EventAttachmentsUploaded EventType = "offering.attachments_uploaded"

	// Message events
	EventMessageSent EventType = "message.sent"

	// Dashboard events
	EventDashboardUpdated EventType = "dashboard.updated"

	// Tutor verification events (internal only, no channel broadcast)
	EventTutorVerified EventType = "tutor.verified"
	EventTutorRejected EventType = "tutor.rejected"
)

// Event is the base interface for all domain events.
//
// Events are immutable value snapshots: every piece of relation data a
// downstream consumer needs (requester name, sender identity, ...) is resolved
// eagerly at construction time, never re-queried later.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string
}

// Broadcastable is implemented by events that fan out to real-time channels.
//
// BroadcastPayload is computed lazily at dispatch time and must be a flat,
// serializable map - never the raw entity. This keeps the wire shape decoupled
// from the storage shape and prevents leaking unrelated fields.
type Broadcastable interface {
	Event

	// Channels returns the channels this event is delivered to.
	Channels() []Channel

	// BroadcastPayload returns the flat wire payload for this event.
	BroadcastPayload() map[string]interface{}
}

// SocketScoped is implemented by events that originate from a specific client
// connection. Listeners use the socket ID to "broadcast to others": deliver to
// every channel subscriber except the connection that triggered the event.
type SocketScoped interface {
	// SocketID returns the originating connection ID, or "" if unknown.
	SocketID() string
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
	}
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
