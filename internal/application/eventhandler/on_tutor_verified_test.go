package eventhandler

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorhub/tutorhub/internal/domain/notification"
	"github.com/tutorhub/tutorhub/internal/domain/shared"
	"github.com/tutorhub/tutorhub/internal/domain/tutor"
	"github.com/tutorhub/tutorhub/internal/domain/user"
)

type fakeSender struct {
	sent []*notification.Notification
	err  error
}

func (f *fakeSender) Send(_ context.Context, n *notification.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

func newVerifiedProfile(t *testing.T) (*tutor.Profile, *user.User) {
	t.Helper()
	owner := &user.User{ID: uuid.New(), Name: "Dana", Role: user.RoleTutor}
	p, err := tutor.NewProfile(owner.ID, "algebra", "bio", 25)
	require.NoError(t, err)
	return p, owner
}

func TestTutorVerifiedSendsExactlyOneNotification(t *testing.T) {
	sender := &fakeSender{}
	h := NewOnTutorVerified(sender, nil)

	p, owner := newVerifiedProfile(t)

	require.NoError(t, h.Handle(tutor.NewVerifiedEvent(p, owner)))

	require.Len(t, sender.sent, 1)
	n := sender.sent[0]
	assert.Equal(t, notification.TypeTutorApproved, n.Type)
	assert.Equal(t, owner.ID, n.RecipientID)
	assert.Contains(t, n.Body, owner.Name)
}

func TestTutorRejectedCarriesReason(t *testing.T) {
	sender := &fakeSender{}
	h := NewOnTutorVerified(sender, nil)

	p, owner := newVerifiedProfile(t)

	require.NoError(t, h.Handle(tutor.NewRejectedEvent(p, owner, "diploma unreadable")))

	require.Len(t, sender.sent, 1)
	n := sender.sent[0]
	assert.Equal(t, notification.TypeTutorRejected, n.Type)
	assert.Contains(t, n.Body, "diploma unreadable")
	assert.Equal(t, "diploma unreadable", n.Context["reason"])
}

func TestNilOwnerIsSilentNoOp(t *testing.T) {
	sender := &fakeSender{}
	h := NewOnTutorVerified(sender, nil)

	p, _ := newVerifiedProfile(t)

	assert.NoError(t, h.Handle(tutor.NewVerifiedEvent(p, nil)))
	assert.NoError(t, h.Handle(tutor.NewRejectedEvent(p, nil, "reason")))
	assert.Empty(t, sender.sent)
}

func TestEnqueueFailurePropagates(t *testing.T) {
	sender := &fakeSender{err: errors.New("queue full")}
	h := NewOnTutorVerified(sender, nil)

	p, owner := newVerifiedProfile(t)

	assert.Error(t, h.Handle(tutor.NewVerifiedEvent(p, owner)))
}

func TestRegistrationsCoverBothOutcomes(t *testing.T) {
	h := NewOnTutorVerified(&fakeSender{}, nil)

	regs := h.Registrations()
	assert.Contains(t, regs, shared.EventTutorVerified)
	assert.Contains(t, regs, shared.EventTutorRejected)
	for _, reg := range regs {
		assert.True(t, reg.Async)
	}
}
