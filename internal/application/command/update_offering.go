package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tutorhub/tutorhub/internal/domain/offering"
	"github.com/tutorhub/tutorhub/internal/domain/policy"
	"github.com/tutorhub/tutorhub/internal/domain/shared"
	"github.com/tutorhub/tutorhub/internal/domain/user"
)

// UpdateOfferingCommand contains the data to edit a pending offering.
type UpdateOfferingCommand struct {
	ActorID     uuid.UUID
	OfferingID  uuid.UUID
	Title       string
	Description string
	Budget      float64
}

// Validate validates the command.
func (c UpdateOfferingCommand) Validate() error {
	if c.ActorID == uuid.Nil {
		return errors.New("update_offering: actor_id is required")
	}
	if c.OfferingID == uuid.Nil {
		return errors.New("update_offering: offering_id is required")
	}
	if c.Title == "" {
		return errors.New("update_offering: title is required")
	}
	return nil
}

// UpdateOfferingHandler handles owner edits to a pending offering.
type UpdateOfferingHandler struct {
	offerings offering.Repository
	users     user.Repository
	policies  policy.Set
	publisher shared.EventPublisher
	logger    *slog.Logger
}

// NewUpdateOfferingHandler creates the handler.
func NewUpdateOfferingHandler(
	offerings offering.Repository,
	users user.Repository,
	policies policy.Set,
	publisher shared.EventPublisher,
	logger *slog.Logger,
) *UpdateOfferingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UpdateOfferingHandler{
		offerings: offerings,
		users:     users,
		policies:  policies,
		publisher: publisher,
		logger:    logger.With("command", "update_offering"),
	}
}

// Handle edits the offering on behalf of its owner.
func (h *UpdateOfferingHandler) Handle(ctx context.Context, cmd UpdateOfferingCommand) (*offering.Offering, error) {
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

	if !h.policies.Offering.Update(actor, o) {
		return nil, shared.Denied("offering", "Update")
	}

	if err := o.Edit(cmd.Title, cmd.Description, cmd.Budget); err != nil {
		return nil, err
	}

	if err := h.offerings.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("persist offering: %w", err)
	}

	h.publish(offering.NewUpdatedEvent(o, actor.Identity(), nil, "Offering updated"))

	h.logger.Info("offering updated", "offering_id", o.ID, "user_id", actor.ID)
	return o, nil
}

func (h *UpdateOfferingHandler) publish(event shared.Event) {
	if err := h.publisher.Publish(event); err != nil {
		h.logger.Warn("event publish failed", "event_type", event.EventType(), "error", err)
	}
}
