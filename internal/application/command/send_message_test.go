package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorhub/tutorhub/internal/domain/dashboard"
	"github.com/tutorhub/tutorhub/internal/domain/message"
	"github.com/tutorhub/tutorhub/internal/domain/offering"
	"github.com/tutorhub/tutorhub/internal/domain/policy"
	"github.com/tutorhub/tutorhub/internal/domain/shared"
	"github.com/tutorhub/tutorhub/internal/domain/user"
)

func acceptedOfferingFixture(t *testing.T) (*user.User, *user.User, *offering.Offering) {
	t.Helper()
	requester := newStudent(t, "Aida")
	tut := newTutor(t, "Bek", true)
	o := newPendingOffering(t, requester)
	require.NoError(t, o.Accept(tut.ID))
	return requester, tut, o
}

func TestSendMessageByRequesterSkipsDashboard(t *testing.T) {
	requester, tut, o := acceptedOfferingFixture(t)

	messages := newMemMessages()
	pub := &capturePublisher{}
	h := NewSendMessageHandler(messages, newMemOfferings(o), newMemUsers(requester, tut), policy.NewSet(), pub, nil)

	m, err := h.Handle(context.Background(), SendMessageCommand{
		ActorID:    requester.ID,
		OfferingID: o.ID,
		Content:    "when can we start?",
	})
	require.NoError(t, err)

	stored, err := messages.GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, requester.ID, stored.UserID)

	// A requester message only touches the chat; no dashboard refresh.
	require.Len(t, pub.events, 1)
	sent, ok := pub.events[0].(message.SentEvent)
	require.True(t, ok)
	assert.Equal(t, requester.Name, sent.Sender.Name)
	channels := sent.Channels()
	require.Len(t, channels, 1)
	assert.Equal(t, shared.ChannelPresence, channels[0].Kind)
	assert.Equal(t, "offering."+o.ID.String(), channels[0].Name)
}

func TestSendMessageByTutorRefreshesRequesterDashboard(t *testing.T) {
	requester, tut, o := acceptedOfferingFixture(t)

	pub := &capturePublisher{}
	h := NewSendMessageHandler(newMemMessages(), newMemOfferings(o), newMemUsers(requester, tut), policy.NewSet(), pub, nil)

	m, err := h.Handle(context.Background(), SendMessageCommand{
		ActorID:    tut.ID,
		OfferingID: o.ID,
		Content:    "tomorrow at noon",
		SocketID:   "sock-3",
	})
	require.NoError(t, err)

	require.Len(t, pub.events, 2)
	assert.Equal(t, shared.EventMessageSent, pub.events[0].EventType())

	dash, ok := pub.events[1].(dashboard.UpdatedEvent)
	require.True(t, ok)
	assert.Equal(t, requester.ID, dash.UserID)
	assert.Equal(t, "message_received", dash.UpdateType)
	assert.Equal(t, m.ID.String(), dash.Data["message_id"])
	assert.Equal(t, tut.Name, dash.Data["sender_name"])
	assert.Equal(t, "sock-3", dash.SocketID())
}

func TestSendMessageDeniedForNonParticipant(t *testing.T) {
	requester, tut, o := acceptedOfferingFixture(t)
	stranger := newStudent(t, "Chingiz")

	messages := newMemMessages()
	pub := &capturePublisher{}
	h := NewSendMessageHandler(messages, newMemOfferings(o), newMemUsers(requester, tut, stranger), policy.NewSet(), pub, nil)

	_, err := h.Handle(context.Background(), SendMessageCommand{
		ActorID:    stranger.ID,
		OfferingID: o.ID,
		Content:    "hello?",
	})
	assert.True(t, shared.IsDenied(err))
	assert.Empty(t, messages.byID)
	assert.Empty(t, pub.events)
}

func TestSendMessageDeniedBeforeAcceptance(t *testing.T) {
	requester := newStudent(t, "Aida")
	o := newPendingOffering(t, requester)

	pub := &capturePublisher{}
	h := NewSendMessageHandler(newMemMessages(), newMemOfferings(o), newMemUsers(requester), policy.NewSet(), pub, nil)

	_, err := h.Handle(context.Background(), SendMessageCommand{
		ActorID:    requester.ID,
		OfferingID: o.ID,
		Content:    "anyone there?",
	})
	assert.True(t, shared.IsDenied(err))
	assert.Empty(t, pub.events)
}

func TestSendMessageRequiresContentOrAttachments(t *testing.T) {
	requester, tut, o := acceptedOfferingFixture(t)

	h := NewSendMessageHandler(newMemMessages(), newMemOfferings(o), newMemUsers(requester, tut), policy.NewSet(), &capturePublisher{}, nil)

	_, err := h.Handle(context.Background(), SendMessageCommand{
		ActorID:    requester.ID,
		OfferingID: o.ID,
	})
	assert.Error(t, err)
}
