package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tutorhub/tutorhub/internal/domain/dashboard"
	"github.com/tutorhub/tutorhub/internal/domain/message"
	"github.com/tutorhub/tutorhub/internal/domain/offering"
	"github.com/tutorhub/tutorhub/internal/domain/policy"
	"github.com/tutorhub/tutorhub/internal/domain/shared"
	"github.com/tutorhub/tutorhub/internal/domain/user"
)

// SendMessageCommand contains the data for a chat message on an offering.
type SendMessageCommand struct {
	ActorID     uuid.UUID
	OfferingID  uuid.UUID
	Content     string
	Attachments []offering.Attachment

	// SocketID is the originating connection, excluded from the other
	// participant's dashboard re-broadcast. Optional.
	SocketID string
}

// Validate validates the command.
func (c SendMessageCommand) Validate() error {
	if c.ActorID == uuid.Nil {
		return errors.New("send_message: actor_id is required")
	}
	if c.OfferingID == uuid.Nil {
		return errors.New("send_message: offering_id is required")
	}
	if c.Content == "" && len(c.Attachments) == 0 {
		return errors.New("send_message: content or attachments required")
	}
	return nil
}

// SendMessageHandler handles chat messages between the requester and the
// accepted tutor.
type SendMessageHandler struct {
	messages  message.Repository
	offerings offering.Repository
	users     user.Repository
	policies  policy.Set
	publisher shared.EventPublisher
	logger    *slog.Logger
}

// NewSendMessageHandler creates the handler.
func NewSendMessageHandler(
	messages message.Repository,
	offerings offering.Repository,
	users user.Repository,
	policies policy.Set,
	publisher shared.EventPublisher,
	logger *slog.Logger,
) *SendMessageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SendMessageHandler{
		messages:  messages,
		offerings: offerings,
		users:     users,
		policies:  policies,
		publisher: publisher,
		logger:    logger.With("command", "send_message"),
	}
}

// Handle posts a message on an accepted offering. The live chat update goes
// to the offering's presence channel; when the other participant is the
// requester their dashboard refresh is raised as well.
func (h *SendMessageHandler) Handle(ctx context.Context, cmd SendMessageCommand) (*message.Message, error) {
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

	if !h.policies.Message.Create(actor, o) {
		return nil, shared.Denied("message", "Create")
	}

	m, err := message.New(o.ID, actor.ID, cmd.Content, cmd.Attachments)
	if err != nil {
		return nil, err
	}

	if err := h.messages.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}

	h.publish(message.NewSentEvent(m, actor.Identity()))

	// A tutor's message is news for the requester's dashboard. Requester
	// messages only touch the chat.
	if actor.ID != o.UserID {
		h.publish(dashboard.NewUpdatedEvent(o.UserID, "message_received", map[string]interface{}{
			"offering_id": o.ID.String(),
			"message_id":  m.ID.String(),
			"sender_name": actor.Name,
		}, cmd.SocketID))
	}

	h.logger.Info("message sent",
		"message_id", m.ID,
		"offering_id", o.ID,
		"user_id", actor.ID,
	)
	return m, nil
}

func (h *SendMessageHandler) publish(event shared.Event) {
	if err := h.publisher.Publish(event); err != nil {
		h.logger.Warn("event publish failed", "event_type", event.EventType(), "error", err)
	}
}
