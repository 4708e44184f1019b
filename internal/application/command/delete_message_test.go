package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorhub/tutorhub/internal/domain/message"
	"github.com/tutorhub/tutorhub/internal/domain/policy"
	"github.com/tutorhub/tutorhub/internal/domain/shared"
)

func policiesAt(clock func() time.Time) policy.Set {
	set := policy.NewSet()
	set.Message.Clock = clock
	return set
}

func TestDeleteMessageInsideWindow(t *testing.T) {
	requester, tut, o := acceptedOfferingFixture(t)
	m, err := message.New(o.ID, tut.ID, "typo, ignore this", nil)
	require.NoError(t, err)

	messages := newMemMessages(m)
	clock := func() time.Time { return m.CreatedAt.Add(4 * time.Minute) }
	h := NewDeleteMessageHandler(messages, newMemUsers(requester, tut), policiesAt(clock), nil)

	require.NoError(t, h.Handle(context.Background(), DeleteMessageCommand{
		ActorID:   tut.ID,
		MessageID: m.ID,
	}))

	_, err = messages.GetByID(context.Background(), m.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteMessageDeniedAfterWindow(t *testing.T) {
	requester, tut, o := acceptedOfferingFixture(t)
	m, err := message.New(o.ID, tut.ID, "old message", nil)
	require.NoError(t, err)

	messages := newMemMessages(m)

	// The window is evaluated against the wall clock at decision time: the
	// same call permitted at minute four is denied at minute six.
	clock := func() time.Time { return m.CreatedAt.Add(6 * time.Minute) }
	h := NewDeleteMessageHandler(messages, newMemUsers(requester, tut), policiesAt(clock), nil)

	err = h.Handle(context.Background(), DeleteMessageCommand{
		ActorID:   tut.ID,
		MessageID: m.ID,
	})
	assert.True(t, shared.IsDenied(err))

	_, err = messages.GetByID(context.Background(), m.ID)
	assert.NoError(t, err)
}

func TestDeleteMessageDeniedForNonSender(t *testing.T) {
	requester, tut, o := acceptedOfferingFixture(t)
	m, err := message.New(o.ID, tut.ID, "tutor's message", nil)
	require.NoError(t, err)

	messages := newMemMessages(m)
	clock := func() time.Time { return m.CreatedAt.Add(time.Minute) }
	h := NewDeleteMessageHandler(messages, newMemUsers(requester, tut), policiesAt(clock), nil)

	err = h.Handle(context.Background(), DeleteMessageCommand{
		ActorID:   requester.ID,
		MessageID: m.ID,
	})
	assert.True(t, shared.IsDenied(err))
}
