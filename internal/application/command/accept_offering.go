package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tutorhub/tutorhub/internal/domain/dashboard"
	"github.com/tutorhub/tutorhub/internal/domain/offering"
	"github.com/tutorhub/tutorhub/internal/domain/policy"
	"github.com/tutorhub/tutorhub/internal/domain/shared"
	"github.com/tutorhub/tutorhub/internal/domain/user"
)

// AcceptOfferingCommand contains the data for a tutor to take an offering.
type AcceptOfferingCommand struct {
	// ActorID is the tutor accepting the offering.
	ActorID uuid.UUID

	// OfferingID is the offering being accepted.
	OfferingID uuid.UUID

	// SocketID is the originating connection, used to broadcast the
	// requester's dashboard refresh to others. Optional.
	SocketID string
}

// Validate validates the command.
func (c AcceptOfferingCommand) Validate() error {
	if c.ActorID == uuid.Nil {
		return errors.New("accept_offering: actor_id is required")
	}
	if c.OfferingID == uuid.Nil {
		return errors.New("accept_offering: offering_id is required")
	}
	return nil
}

// AcceptOfferingHandler handles the pending -> accepted transition.
type AcceptOfferingHandler struct {
	offerings offering.Repository
	users     user.Repository
	policies  policy.Set
	publisher shared.EventPublisher
	logger    *slog.Logger
}

// NewAcceptOfferingHandler creates the handler.
func NewAcceptOfferingHandler(
	offerings offering.Repository,
	users user.Repository,
	policies policy.Set,
	publisher shared.EventPublisher,
	logger *slog.Logger,
) *AcceptOfferingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AcceptOfferingHandler{
		offerings: offerings,
		users:     users,
		policies:  policies,
		publisher: publisher,
		logger:    logger.With("command", "accept_offering"),
	}
}

// Handle assigns the tutor to a pending offering. The transition happens
// exactly once: once tutor_id is set the accept policy denies every later
// attempt.
func (h *AcceptOfferingHandler) Handle(ctx context.Context, cmd AcceptOfferingCommand) (*offering.Offering, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	actor, err := h.users.GetByID(ctx, cmd.ActorID)
	if err != nil {
		return nil, fmt.Errorf("load actor: %w", err)
	}

	o, err := h.offerings.GetByID(ctx, cmd.OfferingID)
	if err != nil {
		return nil, fmt.Errorf("load offering: %w", err)
	}

	if !h.policies.Offering.Accept(actor, o) {
		return nil, shared.Denied("offering", "Accept")
	}

	if err := o.Accept(actor.ID); err != nil {
		return nil, err
	}

	if err := h.offerings.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("persist offering: %w", err)
	}

	requester, err := h.users.GetByID(ctx, o.UserID)
	if err != nil {
		// The mutation stands; the event just loses the requester name.
		h.logger.Warn("requester lookup failed", "user_id", o.UserID, "error", err)
		requester = &user.User{ID: o.UserID}
	}

	tutorIdentity := actor.Identity()
	h.publish(offering.NewUpdatedEvent(o, requester.Identity(), &tutorIdentity,
		fmt.Sprintf("Offering accepted by %s", actor.Name)))

	h.publish(dashboard.NewUpdatedEvent(o.UserID, "offering_accepted", map[string]interface{}{
		"offering_id": o.ID.String(),
		"tutor_name":  actor.Name,
	}, cmd.SocketID))

	h.logger.Info("offering accepted",
		"offering_id", o.ID,
		"tutor_id", actor.ID,
	)
	return o, nil
}

func (h *AcceptOfferingHandler) publish(event shared.Event) {
	if err := h.publisher.Publish(event); err != nil {
		h.logger.Warn("event publish failed", "event_type", event.EventType(), "error", err)
	}
}
