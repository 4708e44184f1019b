// Package policy implements the authorization decision layer: for each
// (actor, action, target) triple, a pure function returns a boolean decision
// from the actor and target snapshots alone. Policies never mutate state and
// never perform I/O; commands translate a false decision into
// shared.ErrForbidden before any mutation happens.
package policy

import (
	"time"

	"github.com/tutorhub/tutorhub/internal/domain/message"
	"github.com/tutorhub/tutorhub/internal/domain/offering"
	"github.com/tutorhub/tutorhub/internal/domain/tutor"
	"github.com/tutorhub/tutorhub/internal/domain/user"
)

// ═══════════════════════════════════════════════════════════════════════════
// OFFERING
// ═══════════════════════════════════════════════════════════════════════════

// Offering decides what an actor may do with an offering.
type Offering struct{}

// Create permits only students to post offerings.
func (Offering) Create(actor *user.User) bool {
	return actor.Role == user.RoleStudent
}

// View permits anyone to view an offering.
func (Offering) View(*user.User, *offering.Offering) bool {
	return true
}

// List permits anyone to browse offerings.
func (Offering) List(*user.User) bool {
	return true
}

// Update permits the owner to edit, and only while the offering is pending.
func (Offering) Update(actor *user.User, o *offering.Offering) bool {
	return actor.ID == o.UserID && o.Status == offering.StatusPending
}

// Delete permits the owner to remove the offering before a tutor is engaged.
func (Offering) Delete(actor *user.User, o *offering.Offering) bool {
	if actor.ID != o.UserID {
		return false
	}
	return o.Status == offering.StatusPending || o.Status == offering.StatusOpen
}

// Accept permits a verified tutor to take a pending offering that has no
// tutor yet.
func (Offering) Accept(actor *user.User, o *offering.Offering) bool {
	return actor.Role == user.RoleTutor &&
		actor.IsVerified &&
		o.Status == offering.StatusPending &&
		o.TutorID == nil
}

// ═══════════════════════════════════════════════════════════════════════════
// MESSAGE
// ═══════════════════════════════════════════════════════════════════════════

// Message decides what an actor may do with chat messages.
//
// The delete rule is time-bounded, so the decision uses a wall clock read at
// decision time, never a cached timestamp. Clock is injectable for tests and
// defaults to time.Now.
type Message struct {
	Clock func() time.Time
}

func (p Message) now() time.Time {
	if p.Clock != nil {
		return p.Clock()
	}
	return time.Now()
}

// View permits the offering's requester and its accepted tutor.
func (Message) View(actor *user.User, o *offering.Offering) bool {
	return o.Participant(actor.ID)
}

// Create permits participants to message only while the offering is accepted.
func (Message) Create(actor *user.User, o *offering.Offering) bool {
	return o.Status == offering.StatusAccepted && o.Participant(actor.ID)
}

// Update always denies: messages are immutable.
func (Message) Update(*user.User, *message.Message) bool {
	return false
}

// Delete permits the sender, within the delete window of creation.
func (p Message) Delete(actor *user.User, m *message.Message) bool {
	if actor.ID != m.UserID {
		return false
	}
	return p.now().Sub(m.CreatedAt) <= message.DeleteWindow
}

// ═══════════════════════════════════════════════════════════════════════════
// TUTOR PROFILE
// ═══════════════════════════════════════════════════════════════════════════

// TutorProfile decides what an actor may do with tutor profiles.
type TutorProfile struct{}

// Create permits a tutor to submit credentials once: hasProfile is the
// snapshot of whether the actor already owns a profile.
func (TutorProfile) Create(actor *user.User, hasProfile bool) bool {
	return actor.Role == user.RoleTutor && !hasProfile
}

// View permits anyone.
func (TutorProfile) View(*user.User, *tutor.Profile) bool {
	return true
}

// List permits anyone.
func (TutorProfile) List(*user.User) bool {
	return true
}

// Update permits only the owner.
func (TutorProfile) Update(actor *user.User, p *tutor.Profile) bool {
	return actor.ID == p.UserID
}

// Delete permits only the owner.
func (TutorProfile) Delete(actor *user.User, p *tutor.Profile) bool {
	return actor.ID == p.UserID
}

// Verify permits only admin actors.
func (TutorProfile) Verify(actor *user.User) bool {
	return actor.IsAdmin && actor.Role == user.RoleAdmin
}

// ═══════════════════════════════════════════════════════════════════════════
// USER PROFILE
// ═══════════════════════════════════════════════════════════════════════════

// UserProfile decides what an actor may do with user profiles.
type UserProfile struct{}

// Create permits any actor without an existing profile.
func (UserProfile) Create(_ *user.User, hasProfile bool) bool {
	return !hasProfile
}

// View permits anyone.
func (UserProfile) View(*user.User, *user.Profile) bool {
	return true
}

// List permits anyone.
func (UserProfile) List(*user.User) bool {
	return true
}

// Update permits only the owner.
func (UserProfile) Update(actor *user.User, p *user.Profile) bool {
	return actor.ID == p.UserID
}

// Delete permits only the owner.
func (UserProfile) Delete(actor *user.User, p *user.Profile) bool {
	return actor.ID == p.UserID
}

// Set bundles all policies for injection into the command layer.
type Set struct {
	Offering     Offering
	Message      Message
	TutorProfile TutorProfile
	UserProfile  UserProfile
}

// NewSet creates a policy set with the real wall clock.
func NewSet() Set {
	return Set{}
}
