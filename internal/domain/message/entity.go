// Package message contains the chat messages exchanged on an accepted
// offering between its requester and its tutor.
package message

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tutorhub/tutorhub/internal/domain/offering"
	"github.com/tutorhub/tutorhub/internal/domain/shared"
	"github.com/tutorhub/tutorhub/internal/domain/user"
)

// DeleteWindow is how long a sender may delete their own message.
const DeleteWindow = 5 * time.Minute

// Message is one chat message on an offering. Messages are immutable after
// creation: there is no edit path, only a time-bounded delete.
type Message struct {
	ID          uuid.UUID
	OfferingID  uuid.UUID
	UserID      uuid.UUID // sender: requester or accepted tutor
	Content     string
	Attachments []offering.Attachment
	CreatedAt   time.Time
}

// New creates a message from the given sender on the given offering.
func New(offeringID, senderID uuid.UUID, content string, attachments []offering.Attachment) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" && len(attachments) == 0 {
		return nil, shared.NewDomainError("message", "New", shared.ErrEmptyValue,
			"message needs content or attachments")
	}

	return &Message{
		ID:          uuid.New(),
		OfferingID:  offeringID,
		UserID:      senderID,
		Content:     content,
		Attachments: attachments,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// MESSAGE SENT EVENT
// ═══════════════════════════════════════════════════════════════════════════

// SentEvent is emitted when a message is persisted. It fans out to the
// offering's presence channel so both parties see the chat live.
type SentEvent struct {
	shared.BaseEvent
	MessageID   string
	OfferingID  string
	Content     string
	Attachments []offering.Attachment
	Sender      user.Identity
	CreatedAt   time.Time
}

// NewSentEvent creates a SentEvent with the sender identity resolved eagerly.
func NewSentEvent(m *Message, sender user.Identity) SentEvent {
	return SentEvent{
		BaseEvent:   shared.NewBaseEvent(shared.EventMessageSent, m.OfferingID.String()),
		MessageID:   m.ID.String(),
		OfferingID:  m.OfferingID.String(),
		Content:     m.Content,
		Attachments: m.Attachments,
		Sender:      sender,
		CreatedAt:   m.CreatedAt,
	}
}

// Channels implements shared.Broadcastable.
func (e SentEvent) Channels() []shared.Channel {
	return []shared.Channel{shared.PresenceChannel("offering", e.OfferingID)}
}

// BroadcastPayload implements shared.Broadcastable.
func (e SentEvent) BroadcastPayload() map[string]interface{} {
	p := map[string]interface{}{
		"id":         e.MessageID,
		"content":    e.Content,
		"created_at": e.CreatedAt.Format(time.RFC3339),
		"sender": map[string]interface{}{
			"id":   e.Sender.ID.String(),
			"name": e.Sender.Name,
		},
	}
	if len(e.Attachments) > 0 {
		files := make([]map[string]interface{}, 0, len(e.Attachments))
		for _, a := range e.Attachments {
			files = append(files, map[string]interface{}{
				"path":          a.Path,
				"original_name": a.OriginalName,
			})
		}
		p["attachments"] = files
	}
	return p
}
