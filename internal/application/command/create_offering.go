// Package command contains the write operations of the marketplace. Every
// command follows the same shape: check the policy, commit the mutation,
// then raise events. Events are published only after the mutation committed,
// and publishing is best-effort - a broadcast or listener problem never rolls
// the mutation back.
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

// CreateOfferingCommand contains the data to post a new offering.
type CreateOfferingCommand struct {
	// ActorID is the student posting the offering.
	ActorID uuid.UUID

	// Title of the assignment request.
	Title string

	// Description of the work.
	Description string

	// Budget offered, in the platform currency.
	Budget float64
}

// Validate validates the command.
func (c CreateOfferingCommand) Validate() error {
	if c.ActorID == uuid.Nil {
		return errors.New("create_offering: actor_id is required")
	}
	if c.Title == "" {
		return errors.New("create_offering: title is required")
	}
	return nil
}

// CreateOfferingHandler handles offering creation.
type CreateOfferingHandler struct {
	offerings offering.Repository
	users     user.Repository
	policies  policy.Set
	publisher shared.EventPublisher
	logger    *slog.Logger
}

// NewCreateOfferingHandler creates the handler.
func NewCreateOfferingHandler(
	offerings offering.Repository,
	users user.Repository,
	policies policy.Set,
	publisher shared.EventPublisher,
	logger *slog.Logger,
) *CreateOfferingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CreateOfferingHandler{
		offerings: offerings,
		users:     users,
		policies:  policies,
		publisher: publisher,
		logger:    logger.With("command", "create_offering"),
	}
}

// Handle posts a new offering on behalf of the actor.
func (h *CreateOfferingHandler) Handle(ctx context.Context, cmd CreateOfferingCommand) (*offering.Offering, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	actor, err := h.users.GetByID(ctx, cmd.ActorID)
	if err != nil {
		return nil, fmt.Errorf("load actor: %w", err)
	}

	if !h.policies.Offering.Create(actor) {
		return nil, shared.Denied("offering", "Create")
	}

	o, err := offering.New(actor.ID, cmd.Title, cmd.Description, cmd.Budget)
	if err != nil {
		return nil, err
	}

	if err := h.offerings.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("persist offering: %w", err)
	}

	h.publish(offering.NewCreatedEvent(o, actor.Identity()))

	h.logger.Info("offering created",
		"offering_id", o.ID,
		"user_id", actor.ID,
	)
	return o, nil
}

func (h *CreateOfferingHandler) publish(event shared.Event) {
	if err := h.publisher.Publish(event); err != nil {
		h.logger.Warn("event publish failed", "event_type", event.EventType(), "error", err)
	}
}
