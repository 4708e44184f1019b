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

// UploadAttachmentsCommand contains the files to attach to an offering.
// The files are already stored; the command records their metadata.
type UploadAttachmentsCommand struct {
	ActorID    uuid.UUID
	OfferingID uuid.UUID
	Files      []offering.Attachment
}

// Validate validates the command.
func (c UploadAttachmentsCommand) Validate() error {
	if c.ActorID == uuid.Nil {
		return errors.New("upload_attachments: actor_id is required")
	}
	if c.OfferingID == uuid.Nil {
		return errors.New("upload_attachments: offering_id is required")
	}
	if len(c.Files) == 0 {
		return errors.New("upload_attachments: at least one file is required")
	}
	return nil
}

// UploadAttachmentsHandler handles attaching uploaded files to an offering.
type UploadAttachmentsHandler struct {
	offerings offering.Repository
	users     user.Repository
	policies  policy.Set
	publisher shared.EventPublisher
	logger    *slog.Logger
}

// NewUploadAttachmentsHandler creates the handler.
func NewUploadAttachmentsHandler(
	offerings offering.Repository,
	users user.Repository,
	policies policy.Set,
	publisher shared.EventPublisher,
	logger *slog.Logger,
) *UploadAttachmentsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadAttachmentsHandler{
		offerings: offerings,
		users:     users,
		policies:  policies,
		publisher: publisher,
		logger:    logger.With("command", "upload_attachments"),
	}
}

// Handle records the uploaded files on the offering and notifies the
// offering's private channel. Participants may attach files while the
// offering is active; the edit policy covers the owner-while-pending case
// and the message policy covers the accepted phase.
func (h *UploadAttachmentsHandler) Handle(ctx context.Context, cmd UploadAttachmentsCommand) (*offering.Offering, error) {
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

	if !h.policies.Offering.Update(actor, o) && !h.policies.Message.Create(actor, o) {
		return nil, shared.Denied("offering", "UploadAttachments")
	}

	o.AddAttachments(cmd.Files)

	if err := h.offerings.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("persist offering: %w", err)
	}

	h.publish(offering.NewAttachmentsUploadedEvent(o, len(cmd.Files)))

	h.logger.Info("attachments uploaded",
		"offering_id", o.ID,
		"user_id", actor.ID,
		"count", len(cmd.Files),
	)
	return o, nil
}

func (h *UploadAttachmentsHandler) publish(event shared.Event) {
	if err := h.publisher.Publish(event); err != nil {
		h.logger.Warn("event publish failed", "event_type", event.EventType(), "error", err)
	}
}
