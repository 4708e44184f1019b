package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tutorhub/tutorhub/internal/domain/message"
	"github.com/tutorhub/tutorhub/internal/domain/offering"
	"github.com/tutorhub/tutorhub/internal/domain/shared"
	"github.com/tutorhub/tutorhub/internal/domain/tutor"
	"github.com/tutorhub/tutorhub/internal/domain/user"
)

// In-memory repository fakes backing the handler tests.

type memUsers struct {
	byID map[uuid.UUID]*user.User
}

func newMemUsers(users ...*user.User) *memUsers {
	m := &memUsers{byID: make(map[uuid.UUID]*user.User)}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUsers) Create(_ context.Context, u *user.User) error {
	if _, ok := m.byID[u.ID]; ok {
		return shared.WrapError("user", "Create", shared.ErrAlreadyExists)
	}
	m.byID[u.ID] = u
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, shared.WrapError("user", "GetByID", shared.ErrNotFound)
	}
	return u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, shared.WrapError("user", "GetByEmail", shared.ErrNotFound)
}

func (m *memUsers) Update(_ context.Context, u *user.User) error {
	if _, ok := m.byID[u.ID]; !ok {
		return shared.WrapError("user", "Update", shared.ErrNotFound)
	}
	m.byID[u.ID] = u
	return nil
}

type memOfferings struct {
	byID map[uuid.UUID]*offering.Offering
}

func newMemOfferings(offerings ...*offering.Offering) *memOfferings {
	m := &memOfferings{byID: make(map[uuid.UUID]*offering.Offering)}
	for _, o := range offerings {
		m.byID[o.ID] = o
	}
	return m
}

func (m *memOfferings) Create(_ context.Context, o *offering.Offering) error {
	m.byID[o.ID] = o
	return nil
}

func (m *memOfferings) GetByID(_ context.Context, id uuid.UUID) (*offering.Offering, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, shared.WrapError("offering", "GetByID", shared.ErrNotFound)
	}
	return o, nil
}

func (m *memOfferings) Update(_ context.Context, o *offering.Offering) error {
	if _, ok := m.byID[o.ID]; !ok {
		return shared.WrapError("offering", "Update", shared.ErrNotFound)
	}
	m.byID[o.ID] = o
	return nil
}

func (m *memOfferings) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.byID[id]; !ok {
		return shared.WrapError("offering", "Delete", shared.ErrNotFound)
	}
	delete(m.byID, id)
	return nil
}

func (m *memOfferings) List(_ context.Context, _ offering.ListOptions) ([]*offering.Offering, error) {
	out := make([]*offering.Offering, 0, len(m.byID))
	for _, o := range m.byID {
		out = append(out, o)
	}
	return out, nil
}

func (m *memOfferings) ListByStatus(ctx context.Context, status offering.Status, opts offering.ListOptions) ([]*offering.Offering, error) {
	all, _ := m.List(ctx, opts)
	var out []*offering.Offering
	for _, o := range all {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memOfferings) ListByRequester(ctx context.Context, userID uuid.UUID, opts offering.ListOptions) ([]*offering.Offering, error) {
	all, _ := m.List(ctx, opts)
	var out []*offering.Offering
	for _, o := range all {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memOfferings) ListByTutor(ctx context.Context, tutorID uuid.UUID, opts offering.ListOptions) ([]*offering.Offering, error) {
	all, _ := m.List(ctx, opts)
	var out []*offering.Offering
	for _, o := range all {
		if o.TutorID != nil && *o.TutorID == tutorID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memOfferings) FindCleanupCandidates(_ context.Context, updatedBefore time.Time) ([]*offering.Offering, error) {
	var out []*offering.Offering
	for _, o := range m.byID {
		if o.Status.IsTerminal() && o.Attachments != nil && o.UpdatedAt.Before(updatedBefore) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memOfferings) MarkFilesCleaned(_ context.Context, id uuid.UUID, cleanedAt time.Time) error {
	o, ok := m.byID[id]
	if !ok {
		return shared.WrapError("offering", "MarkFilesCleaned", shared.ErrNotFound)
	}
	o.MarkFilesCleaned(cleanedAt)
	return nil
}

type memMessages struct {
	byID map[uuid.UUID]*message.Message
}

func newMemMessages(messages ...*message.Message) *memMessages {
	m := &memMessages{byID: make(map[uuid.UUID]*message.Message)}
	for _, msg := range messages {
		m.byID[msg.ID] = msg
	}
	return m
}

func (m *memMessages) Create(_ context.Context, msg *message.Message) error {
	m.byID[msg.ID] = msg
	return nil
}

func (m *memMessages) GetByID(_ context.Context, id uuid.UUID) (*message.Message, error) {
	msg, ok := m.byID[id]
	if !ok {
		return nil, shared.WrapError("message", "GetByID", shared.ErrNotFound)
	}
	return msg, nil
}

func (m *memMessages) ListByOffering(_ context.Context, offeringID uuid.UUID) ([]*message.Message, error) {
	var out []*message.Message
	for _, msg := range m.byID {
		if msg.OfferingID == offeringID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memMessages) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.byID[id]; !ok {
		return shared.WrapError("message", "Delete", shared.ErrNotFound)
	}
	delete(m.byID, id)
	return nil
}

type memTutors struct {
	byID map[uuid.UUID]*tutor.Profile
}

func newMemTutors(profiles ...*tutor.Profile) *memTutors {
	m := &memTutors{byID: make(map[uuid.UUID]*tutor.Profile)}
	for _, p := range profiles {
		m.byID[p.ID] = p
	}
	return m
}

func (m *memTutors) Create(_ context.Context, p *tutor.Profile) error {
	for _, existing := range m.byID {
		if existing.UserID == p.UserID {
			return shared.WrapError("tutor", "Create", shared.ErrAlreadyExists)
		}
	}
	m.byID[p.ID] = p
	return nil
}

func (m *memTutors) GetByID(_ context.Context, id uuid.UUID) (*tutor.Profile, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, shared.WrapError("tutor", "GetByID", shared.ErrNotFound)
	}
	return p, nil
}

func (m *memTutors) GetByUserID(_ context.Context, userID uuid.UUID) (*tutor.Profile, error) {
	for _, p := range m.byID {
		if p.UserID == userID {
			return p, nil
		}
	}
	return nil, shared.WrapError("tutor", "GetByUserID", shared.ErrNotFound)
}

func (m *memTutors) Update(_ context.Context, p *tutor.Profile) error {
	if _, ok := m.byID[p.ID]; !ok {
		return shared.WrapError("tutor", "Update", shared.ErrNotFound)
	}
	m.byID[p.ID] = p
	return nil
}

func (m *memTutors) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.byID[id]; !ok {
		return shared.WrapError("tutor", "Delete", shared.ErrNotFound)
	}
	delete(m.byID, id)
	return nil
}

func (m *memTutors) ExistsForUser(_ context.Context, userID uuid.UUID) (bool, error) {
	for _, p := range m.byID {
		if p.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memTutors) ListPending(_ context.Context) ([]*tutor.Profile, error) {
	var out []*tutor.Profile
	for _, p := range m.byID {
		if p.VerificationStatus == tutor.VerificationPending {
			out = append(out, p)
		}
	}
	return out, nil
}

// capturePublisher records published events in order.
type capturePublisher struct {
	events []shared.Event
}

func (c *capturePublisher) Publish(event shared.Event) error {
	c.events = append(c.events, event)
	return nil
}

func (c *capturePublisher) ofType(t shared.EventType) []shared.Event {
	var out []shared.Event
	for _, e := range c.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}
