package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorhub/tutorhub/internal/domain/offering"
)

type stubOfferings struct {
	offering.Repository

	posted      []*offering.Offering
	accepted    []*offering.Offering
	listCalls   int
	requesterID uuid.UUID
}

func (s *stubOfferings) ListByRequester(_ context.Context, userID uuid.UUID, _ offering.ListOptions) ([]*offering.Offering, error) {
	s.listCalls++
	s.requesterID = userID
	return s.posted, nil
}

func (s *stubOfferings) ListByTutor(_ context.Context, _ uuid.UUID, _ offering.ListOptions) ([]*offering.Offering, error) {
	return s.accepted, nil
}

type stubCache struct {
	stored map[uuid.UUID]*DashboardDTO
	getErr error
	putErr error
	puts   int
}

func newStubCache() *stubCache {
	return &stubCache{stored: make(map[uuid.UUID]*DashboardDTO)}
}

func (c *stubCache) Get(_ context.Context, userID uuid.UUID, dest interface{}) error {
	if c.getErr != nil {
		return c.getErr
	}
	dto, ok := c.stored[userID]
	if !ok {
		return errors.New("cache miss")
	}
	*dest.(*DashboardDTO) = *dto
	return nil
}

func (c *stubCache) Put(_ context.Context, userID uuid.UUID, snapshot interface{}) error {
	c.puts++
	if c.putErr != nil {
		return c.putErr
	}
	c.stored[userID] = snapshot.(*DashboardDTO)
	return nil
}

func postedOfferings(t *testing.T, userID uuid.UUID, statuses ...offering.Status) []*offering.Offering {
	t.Helper()
	out := make([]*offering.Offering, 0, len(statuses))
	for _, status := range statuses {
		o, err := offering.New(userID, "Help needed", "", 10)
		require.NoError(t, err)
		o.Status = status
		o.UpdatedAt = time.Now().UTC()
		out = append(out, o)
	}
	return out
}

func TestGetDashboardComputesAndCaches(t *testing.T) {
	userID := uuid.New()
	repo := &stubOfferings{
		posted: postedOfferings(t, userID, offering.StatusPending, offering.StatusOpen, offering.StatusAccepted),
	}
	cache := newStubCache()
	h := NewGetDashboardHandler(repo, cache, nil)

	dto, err := h.Handle(context.Background(), GetDashboardQuery{UserID: userID})
	require.NoError(t, err)

	assert.Equal(t, userID, dto.UserID)
	assert.Len(t, dto.Posted, 3)
	assert.Equal(t, 2, dto.OpenCount)
	assert.NotEmpty(t, dto.ComputedAt)
	assert.Equal(t, 1, cache.puts)
}

func TestGetDashboardServesFromCache(t *testing.T) {
	userID := uuid.New()
	repo := &stubOfferings{}
	cache := newStubCache()
	cache.stored[userID] = &DashboardDTO{UserID: userID, OpenCount: 7}
	h := NewGetDashboardHandler(repo, cache, nil)

	dto, err := h.Handle(context.Background(), GetDashboardQuery{UserID: userID})
	require.NoError(t, err)

	assert.Equal(t, 7, dto.OpenCount)
	assert.Zero(t, repo.listCalls)
}

func TestGetDashboardDegradesOnCacheErrors(t *testing.T) {
	userID := uuid.New()
	repo := &stubOfferings{posted: postedOfferings(t, userID, offering.StatusPending)}
	cache := newStubCache()
	cache.getErr = errors.New("redis down")
	cache.putErr = errors.New("redis down")
	h := NewGetDashboardHandler(repo, cache, nil)

	dto, err := h.Handle(context.Background(), GetDashboardQuery{UserID: userID})
	require.NoError(t, err)
	assert.Equal(t, 1, dto.OpenCount)
}

func TestGetDashboardWorksWithoutCache(t *testing.T) {
	userID := uuid.New()
	repo := &stubOfferings{posted: postedOfferings(t, userID, offering.StatusAccepted)}
	h := NewGetDashboardHandler(repo, nil, nil)

	dto, err := h.Handle(context.Background(), GetDashboardQuery{UserID: userID})
	require.NoError(t, err)
	assert.Zero(t, dto.OpenCount)
	assert.Equal(t, userID, repo.requesterID)
}

func TestGetDashboardValidatesUser(t *testing.T) {
	h := NewGetDashboardHandler(&stubOfferings{}, nil, nil)

	_, err := h.Handle(context.Background(), GetDashboardQuery{})
	assert.Error(t, err)
}
