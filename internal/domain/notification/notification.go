// Package notification contains the notification domain: typed notifications,
// delivery channels, and the sender contract the listeners enqueue through.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tutorhub/tutorhub/internal/domain/tutor"
	"github.com/tutorhub/tutorhub/internal/domain/user"
)

// Type identifies a notification template.
type Type string

const (
	// TypeTutorApproved - a tutor's credentials were approved.
	TypeTutorApproved Type = "tutor_approved"

	// TypeTutorRejected - a tutor's credentials were rejected, with reason.
	TypeTutorRejected Type = "tutor_rejected"
)

// IsValid reports whether the type is a known template.
func (t Type) IsValid() bool {
	switch t {
	case TypeTutorApproved, TypeTutorRejected:
		return true
	default:
		return false
	}
}

// ChannelType is the delivery channel for a notification.
type ChannelType string

const (
	// ChannelEmail delivers by email.
	ChannelEmail ChannelType = "email"

	// ChannelPush delivers by web/mobile push.
	ChannelPush ChannelType = "push"
)

// Notification is one queued notification addressed to a user.
type Notification struct {
	ID          uuid.UUID
	RecipientID uuid.UUID
	Type        Type
	Subject     string
	Body        string
	Context     map[string]string
	Channels    []ChannelType
	CreatedAt   time.Time
}

// Sender enqueues notifications for asynchronous delivery.
// Delivery is best-effort and never blocks the triggering mutation.
type Sender interface {
	Send(ctx context.Context, n *Notification) error
}

// NewTutorApproved builds the approved-variant notification for the profile
// owner, parameterized by the profile's fields.
func NewTutorApproved(owner *user.User, profile tutor.Profile) *Notification {
	return &Notification{
		ID:          uuid.New(),
		RecipientID: owner.ID,
		Type:        TypeTutorApproved,
		Subject:     "Your tutor profile has been approved",
		Body: fmt.Sprintf(
			"Hi %s, your tutor profile (%s) passed verification. You can now accept offerings.",
			owner.Name, profile.Expertise),
		Context: map[string]string{
			"profile_id": profile.ID.String(),
			"expertise":  profile.Expertise,
		},
		Channels:  []ChannelType{ChannelEmail, ChannelPush},
		CreatedAt: time.Now().UTC(),
	}
}

// NewTutorRejected builds the rejected-variant notification, carrying the
// rejection reason.
func NewTutorRejected(owner *user.User, profile tutor.Profile, reason string) *Notification {
	if reason == "" {
		reason = "credentials could not be verified"
	}
	return &Notification{
		ID:          uuid.New(),
		RecipientID: owner.ID,
		Type:        TypeTutorRejected,
		Subject:     "Your tutor profile was not approved",
		Body: fmt.Sprintf(
			"Hi %s, your tutor profile (%s) was not approved: %s.",
			owner.Name, profile.Expertise, reason),
		Context: map[string]string{
			"profile_id": profile.ID.String(),
			"expertise":  profile.Expertise,
			"reason":     reason,
		},
		Channels:  []ChannelType{ChannelEmail},
		CreatedAt: time.Now().UTC(),
	}
}
