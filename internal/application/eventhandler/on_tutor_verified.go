package eventhandler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tutorhub/tutorhub/internal/domain/notification"
	"github.com/tutorhub/tutorhub/internal/domain/shared"
	"github.com/tutorhub/tutorhub/internal/domain/tutor"
	"github.com/tutorhub/tutorhub/internal/infrastructure/messaging"
)

// OnTutorVerified handles tutor.VerifiedEvent and tutor.RejectedEvent.
//
// For each verification decision it enqueues exactly one notification to the
// profile owner, selecting the approved or rejected template. When the owner
// relation is absent the listener is a silent no-op, never an error.
type OnTutorVerified struct {
	sender notification.Sender
	logger *slog.Logger
}

// NewOnTutorVerified creates the verification notification listener.
func NewOnTutorVerified(sender notification.Sender, logger *slog.Logger) *OnTutorVerified {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnTutorVerified{
		sender: sender,
		logger: logger.With("handler", "on_tutor_verified"),
	}
}

// Registrations returns the dispatcher registrations for both verification
// outcomes.
func (h *OnTutorVerified) Registrations() map[shared.EventType]messaging.Registration {
	return map[shared.EventType]messaging.Registration{
		shared.EventTutorVerified: {
			Name:    "tutor-verified-notification",
			Handler: h.Handle,
			Async:   true,
		},
		shared.EventTutorRejected: {
			Name:    "tutor-rejected-notification",
			Handler: h.Handle,
			Async:   true,
		},
	}
}

// Handle implements shared.EventHandler.
func (h *OnTutorVerified) Handle(event shared.Event) error {
	var n *notification.Notification

	switch e := event.(type) {
	case tutor.VerifiedEvent:
		if e.Owner == nil {
			h.logger.Warn("verified profile has no owner", "profile_id", e.Profile.ID)
			return nil
		}
		n = notification.NewTutorApproved(e.Owner, e.Profile)

	case tutor.RejectedEvent:
		if e.Owner == nil {
			h.logger.Warn("rejected profile has no owner", "profile_id", e.Profile.ID)
			return nil
		}
		n = notification.NewTutorRejected(e.Owner, e.Profile, e.Reason)

	default:
		h.logger.Warn("received unexpected event", "event_type", event.EventType())
		return nil
	}

	if err := h.sender.Send(context.Background(), n); err != nil {
		return fmt.Errorf("enqueue %s notification: %w", n.Type, err)
	}

	h.logger.Info("verification notification enqueued",
		"type", n.Type,
		"recipient_id", n.RecipientID,
	)
	return nil
}
