package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tutorhub/tutorhub/internal/domain/message"
	"github.com/tutorhub/tutorhub/internal/domain/policy"
	"github.com/tutorhub/tutorhub/internal/domain/shared"
	"github.com/tutorhub/tutorhub/internal/domain/user"
)

// DeleteMessageCommand contains the data to retract a chat message.
type DeleteMessageCommand struct {
	ActorID   uuid.UUID
	MessageID uuid.UUID
}

// Validate validates the command.
func (c DeleteMessageCommand) Validate() error {
	if c.ActorID == uuid.Nil {
		return errors.New("delete_message: actor_id is required")
	}
	if c.MessageID == uuid.Nil {
		return errors.New("delete_message: message_id is required")
	}
	return nil
}

// DeleteMessageHandler handles the time-bounded message retraction. The
// policy reads the wall clock at decision time, so the same call permitted
// at minute four is denied at minute six.
type DeleteMessageHandler struct {
	messages message.Repository
	users    user.Repository
	policies policy.Set
	logger   *slog.Logger
}

// NewDeleteMessageHandler creates the handler.
func NewDeleteMessageHandler(
	messages message.Repository,
	users user.Repository,
	policies policy.Set,
	logger *slog.Logger,
) *DeleteMessageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeleteMessageHandler{
		messages: messages,
		users:    users,
		policies: policies,
		logger:   logger.With("command", "delete_message"),
	}
}

// Handle removes the message when the sender is still inside the delete
// window.
func (h *DeleteMessageHandler) Handle(ctx context.Context, cmd DeleteMessageCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	actor, err := h.users.GetByID(ctx, cmd.ActorID)
	if err != nil {
		return fmt.Errorf("load actor: %w", err)
	}

	m, err := h.messages.GetByID(ctx, cmd.MessageID)
	if err != nil {
		return fmt.Errorf("load message: %w", err)
	}

	if !h.policies.Message.Delete(actor, m) {
		return shared.Denied("message", "Delete")
	}

	if err := h.messages.Delete(ctx, m.ID); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	h.logger.Info("message deleted", "message_id", m.ID, "user_id", actor.ID)
	return nil
}
