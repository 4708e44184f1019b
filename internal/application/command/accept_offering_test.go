package command

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorhub/tutorhub/internal/domain/dashboard"
	"github.com/tutorhub/tutorhub/internal/domain/offering"
	"github.com/tutorhub/tutorhub/internal/domain/policy"
	"github.com/tutorhub/tutorhub/internal/domain/shared"
	"github.com/tutorhub/tutorhub/internal/domain/user"
)

func newStudent(t *testing.T, name string) *user.User {
	t.Helper()
	u, err := user.New(name, name+"@example.com", user.RoleStudent)
	require.NoError(t, err)
	return u
}

func newTutor(t *testing.T, name string, verified bool) *user.User {
	t.Helper()
	u, err := user.New(name, name+"@example.com", user.RoleTutor)
	require.NoError(t, err)
	u.IsVerified = verified
	return u
}

func newAdmin(t *testing.T, name string) *user.User {
	t.Helper()
	u, err := user.New(name, name+"@example.com", user.RoleAdmin)
	require.NoError(t, err)
	return u
}

func newPendingOffering(t *testing.T, requester *user.User) *offering.Offering {
	t.Helper()
	o, err := offering.New(requester.ID, "Calculus help", "limits and series", 40)
	require.NoError(t, err)
	return o
}

func TestAcceptOfferingByVerifiedTutor(t *testing.T) {
	requester := newStudent(t, "Aida")
	tut := newTutor(t, "Bek", true)
	o := newPendingOffering(t, requester)

	offerings := newMemOfferings(o)
	pub := &capturePublisher{}
	h := NewAcceptOfferingHandler(offerings, newMemUsers(requester, tut), policy.NewSet(), pub, nil)

	got, err := h.Handle(context.Background(), AcceptOfferingCommand{
		ActorID:    tut.ID,
		OfferingID: o.ID,
		SocketID:   "sock-7",
	})
	require.NoError(t, err)

	assert.Equal(t, offering.StatusAccepted, got.Status)
	require.NotNil(t, got.TutorID)
	assert.Equal(t, tut.ID, *got.TutorID)

	// One offering.updated fanning out to the public list and the offering's
	// private channel, then one dashboard refresh for the requester.
	require.Len(t, pub.events, 2)

	updated, ok := pub.events[0].(offering.UpdatedEvent)
	require.True(t, ok)
	assert.Contains(t, updated.Message, tut.Name)
	assert.Equal(t, requester.ID, updated.Offering.Requester.ID)
	require.NotNil(t, updated.Offering.Tutor)
	assert.Equal(t, tut.ID, updated.Offering.Tutor.ID)
	channels := updated.Channels()
	require.Len(t, channels, 2)
	assert.Equal(t, "offerings", channels[0].Name)
	assert.Equal(t, "offering."+o.ID.String(), channels[1].Name)
	assert.Equal(t, shared.ChannelPrivate, channels[1].Kind)

	dash, ok := pub.events[1].(dashboard.UpdatedEvent)
	require.True(t, ok)
	assert.Equal(t, requester.ID, dash.UserID)
	assert.Equal(t, "offering_accepted", dash.UpdateType)
	assert.Equal(t, tut.Name, dash.Data["tutor_name"])
	assert.Equal(t, "sock-7", dash.SocketID())
}

func TestAcceptOfferingDeniedForUnverifiedTutor(t *testing.T) {
	requester := newStudent(t, "Aida")
	tut := newTutor(t, "Bek", false)
	o := newPendingOffering(t, requester)

	offerings := newMemOfferings(o)
	pub := &capturePublisher{}
	h := NewAcceptOfferingHandler(offerings, newMemUsers(requester, tut), policy.NewSet(), pub, nil)

	_, err := h.Handle(context.Background(), AcceptOfferingCommand{ActorID: tut.ID, OfferingID: o.ID})
	assert.True(t, shared.IsDenied(err))

	// Denied before mutation: nothing persisted, nothing published.
	stored, _ := offerings.GetByID(context.Background(), o.ID)
	assert.Equal(t, offering.StatusPending, stored.Status)
	assert.Nil(t, stored.TutorID)
	assert.Empty(t, pub.events)
}

func TestAcceptOfferingDeniedForStudent(t *testing.T) {
	requester := newStudent(t, "Aida")
	other := newStudent(t, "Chingiz")
	o := newPendingOffering(t, requester)

	pub := &capturePublisher{}
	h := NewAcceptOfferingHandler(newMemOfferings(o), newMemUsers(requester, other), policy.NewSet(), pub, nil)

	_, err := h.Handle(context.Background(), AcceptOfferingCommand{ActorID: other.ID, OfferingID: o.ID})
	assert.True(t, shared.IsDenied(err))
	assert.Empty(t, pub.events)
}

func TestAcceptOfferingIsExactlyOnce(t *testing.T) {
	requester := newStudent(t, "Aida")
	first := newTutor(t, "Bek", true)
	second := newTutor(t, "Dana", true)
	o := newPendingOffering(t, requester)

	pub := &capturePublisher{}
	h := NewAcceptOfferingHandler(newMemOfferings(o), newMemUsers(requester, first, second), policy.NewSet(), pub, nil)

	_, err := h.Handle(context.Background(), AcceptOfferingCommand{ActorID: first.ID, OfferingID: o.ID})
	require.NoError(t, err)

	_, err = h.Handle(context.Background(), AcceptOfferingCommand{ActorID: second.ID, OfferingID: o.ID})
	assert.True(t, shared.IsDenied(err))
	assert.Equal(t, first.ID, *o.TutorID)
}

func TestAcceptOfferingSurvivesMissingRequester(t *testing.T) {
	requester := newStudent(t, "Aida")
	tut := newTutor(t, "Bek", true)
	o := newPendingOffering(t, requester)

	// The requester account is gone; the mutation still stands and the event
	// carries the bare requester id.
	pub := &capturePublisher{}
	h := NewAcceptOfferingHandler(newMemOfferings(o), newMemUsers(tut), policy.NewSet(), pub, nil)

	got, err := h.Handle(context.Background(), AcceptOfferingCommand{ActorID: tut.ID, OfferingID: o.ID})
	require.NoError(t, err)
	assert.Equal(t, offering.StatusAccepted, got.Status)

	require.Len(t, pub.events, 2)
	updated := pub.events[0].(offering.UpdatedEvent)
	assert.Equal(t, requester.ID, updated.Offering.Requester.ID)
	assert.Empty(t, updated.Offering.Requester.Name)
}

func TestAcceptOfferingValidation(t *testing.T) {
	h := NewAcceptOfferingHandler(newMemOfferings(), newMemUsers(), policy.NewSet(), &capturePublisher{}, nil)

	_, err := h.Handle(context.Background(), AcceptOfferingCommand{OfferingID: uuid.New()})
	assert.Error(t, err)

	_, err = h.Handle(context.Background(), AcceptOfferingCommand{ActorID: uuid.New()})
	assert.Error(t, err)
}
