package policy

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/tutorhub/tutorhub/internal/domain/message"
	"github.com/tutorhub/tutorhub/internal/domain/offering"
	"github.com/tutorhub/tutorhub/internal/domain/tutor"
	"github.com/tutorhub/tutorhub/internal/domain/user"
)

func newActor(role user.Role) *user.User {
	u := &user.User{
		ID:   uuid.New(),
		Name: "actor",
		Role: role,
	}
	if role == user.RoleAdmin {
		u.IsAdmin = true
	}
	return u
}

func newOffering(ownerID uuid.UUID, status offering.Status) *offering.Offering {
	return &offering.Offering{
		ID:     uuid.New(),
		Title:  "calculus homework",
		Status: status,
		UserID: ownerID,
	}
}

func TestOfferingCreate(t *testing.T) {
	p := Offering{}

	assert.True(t, p.Create(newActor(user.RoleStudent)))
	assert.False(t, p.Create(newActor(user.RoleTutor)))
	assert.False(t, p.Create(newActor(user.RoleAdmin)))
}

func TestOfferingUpdate(t *testing.T) {
	p := Offering{}
	owner := newActor(user.RoleStudent)
	stranger := newActor(user.RoleStudent)

	o := newOffering(owner.ID, offering.StatusPending)
	assert.True(t, p.Update(owner, o))
	assert.False(t, p.Update(stranger, o))

	for _, status := range []offering.Status{
		offering.StatusOpen, offering.StatusAccepted,
		offering.StatusCompleted, offering.StatusCancelled,
	} {
		o := newOffering(owner.ID, status)
		assert.False(t, p.Update(owner, o), "status %s must not be editable", status)
	}
}

func TestOfferingDelete(t *testing.T) {
	p := Offering{}
	owner := newActor(user.RoleStudent)

	assert.True(t, p.Delete(owner, newOffering(owner.ID, offering.StatusPending)))
	assert.True(t, p.Delete(owner, newOffering(owner.ID, offering.StatusOpen)))

	// For every status outside {pending, open}, delete is denied for
	// every actor, including the owner.
	actors := []*user.User{owner, newActor(user.RoleTutor), newActor(user.RoleAdmin)}
	for _, status := range []offering.Status{
		offering.StatusAccepted, offering.StatusCompleted, offering.StatusCancelled,
	} {
		o := newOffering(owner.ID, status)
		for _, actor := range actors {
			assert.False(t, p.Delete(actor, o), "status %s actor %s", status, actor.Role)
		}
	}
}

func TestOfferingAccept(t *testing.T) {
	p := Offering{}
	owner := newActor(user.RoleStudent)

	verified := newActor(user.RoleTutor)
	verified.IsVerified = true
	unverified := newActor(user.RoleTutor)

	o := newOffering(owner.ID, offering.StatusPending)
	assert.True(t, p.Accept(verified, o))
	assert.False(t, p.Accept(unverified, o))
	assert.False(t, p.Accept(owner, o), "students cannot accept")

	// Non-pending offerings cannot be accepted.
	assert.False(t, p.Accept(verified, newOffering(owner.ID, offering.StatusAccepted)))

	// An offering with a tutor already set is never acceptable again.
	taken := newOffering(owner.ID, offering.StatusPending)
	tutorID := uuid.New()
	taken.TutorID = &tutorID
	assert.False(t, p.Accept(verified, taken))
}

func TestMessageViewAndCreate(t *testing.T) {
	p := Message{}
	owner := newActor(user.RoleStudent)
	tut := newActor(user.RoleTutor)
	stranger := newActor(user.RoleStudent)

	o := newOffering(owner.ID, offering.StatusAccepted)
	o.TutorID = &tut.ID

	assert.True(t, p.View(owner, o))
	assert.True(t, p.View(tut, o))
	assert.False(t, p.View(stranger, o))

	assert.True(t, p.Create(owner, o))
	assert.True(t, p.Create(tut, o))
	assert.False(t, p.Create(stranger, o))

	// Messaging is closed outside the accepted status, even for participants.
	pending := newOffering(owner.ID, offering.StatusPending)
	assert.False(t, p.Create(owner, pending))
	done := newOffering(owner.ID, offering.StatusCompleted)
	done.TutorID = &tut.ID
	assert.False(t, p.Create(tut, done))
}

func TestMessageUpdateAlwaysDenied(t *testing.T) {
	p := Message{}
	sender := newActor(user.RoleStudent)

	m := &message.Message{
		ID:        uuid.New(),
		UserID:    sender.ID,
		Content:   "hello",
		CreatedAt: time.Now(),
	}

	assert.False(t, p.Update(sender, m))
	assert.False(t, p.Update(newActor(user.RoleAdmin), m))
}

func TestMessageDeleteWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := Message{Clock: func() time.Time { return now }}

	sender := newActor(user.RoleStudent)
	other := newActor(user.RoleTutor)

	fresh := &message.Message{ID: uuid.New(), UserID: sender.ID, CreatedAt: now.Add(-time.Minute)}
	assert.True(t, p.Delete(sender, fresh))
	assert.False(t, p.Delete(other, fresh), "only the sender may delete")

	atBoundary := &message.Message{ID: uuid.New(), UserID: sender.ID, CreatedAt: now.Add(-5 * time.Minute)}
	assert.True(t, p.Delete(sender, atBoundary))

	// Past the window, even the sender is denied.
	stale := &message.Message{ID: uuid.New(), UserID: sender.ID, CreatedAt: now.Add(-6 * time.Minute)}
	assert.False(t, p.Delete(sender, stale))
}

func TestMessageDeleteUsesDecisionTimeClock(t *testing.T) {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := Message{Clock: func() time.Time { return current }}

	sender := newActor(user.RoleStudent)
	m := &message.Message{ID: uuid.New(), UserID: sender.ID, CreatedAt: current}

	assert.True(t, p.Delete(sender, m))

	// Same policy value, later clock reading: the decision flips because the
	// clock is read at decision time, not captured at construction.
	current = current.Add(10 * time.Minute)
	assert.False(t, p.Delete(sender, m))
}

func TestTutorProfilePolicies(t *testing.T) {
	p := TutorProfile{}
	tut := newActor(user.RoleTutor)

	assert.True(t, p.Create(tut, false))
	assert.False(t, p.Create(tut, true), "one profile per user")
	assert.False(t, p.Create(newActor(user.RoleStudent), false))

	profile := &tutor.Profile{ID: uuid.New(), UserID: tut.ID}
	assert.True(t, p.Update(tut, profile))
	assert.True(t, p.Delete(tut, profile))
	assert.False(t, p.Update(newActor(user.RoleTutor), profile))

	assert.True(t, p.Verify(newActor(user.RoleAdmin)))
	assert.False(t, p.Verify(tut))
	assert.False(t, p.Verify(newActor(user.RoleStudent)))

	// is_admin alone is not enough without the admin role.
	fake := newActor(user.RoleTutor)
	fake.IsAdmin = true
	assert.False(t, p.Verify(fake))
}

func TestUserProfilePolicies(t *testing.T) {
	p := UserProfile{}
	someone := newActor(user.RoleStudent)

	assert.True(t, p.Create(someone, false))
	assert.False(t, p.Create(someone, true))

	profile := &user.Profile{ID: uuid.New(), UserID: someone.ID}
	assert.True(t, p.Update(someone, profile))
	assert.True(t, p.Delete(someone, profile))
	assert.False(t, p.Update(newActor(user.RoleStudent), profile))
	assert.True(t, p.View(newActor(user.RoleTutor), profile))
}
