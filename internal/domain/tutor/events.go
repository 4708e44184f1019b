package tutor

import (
	"github.com/tutorhub/tutorhub/internal/domain/shared"
	"github.com/tutorhub/tutorhub/internal/domain/user"
)

// VerifiedEvent is emitted when an admin approves a tutor profile.
//
// It is internal only: no channel broadcast, consumed solely by the
// notification listener. The owning user is resolved eagerly when the event
// is raised; Owner is nil when the relation is absent, and the listener
// treats that as a silent no-op.
type VerifiedEvent struct {
	shared.BaseEvent
	Profile Profile
	Owner   *user.User
}

// NewVerifiedEvent creates a VerifiedEvent.
func NewVerifiedEvent(p *Profile, owner *user.User) VerifiedEvent {
	return VerifiedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventTutorVerified, p.ID.String()),
		Profile:   *p,
		Owner:     owner,
	}
}

// RejectedEvent is emitted when an admin rejects a tutor profile.
// Analogous to VerifiedEvent, selecting the rejected notification variant.
type RejectedEvent struct {
	shared.BaseEvent
	Profile Profile
	Owner   *user.User
	Reason  string
}

// NewRejectedEvent creates a RejectedEvent.
func NewRejectedEvent(p *Profile, owner *user.User, reason string) RejectedEvent {
	return RejectedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventTutorRejected, p.ID.String()),
		Profile:   *p,
		Owner:     owner,
		Reason:    reason,
	}
}
