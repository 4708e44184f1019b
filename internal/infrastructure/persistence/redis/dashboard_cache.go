package redis

import (
	"context"

	"github.com/google/uuid"

	"github.com/tutorhub/tutorhub/internal/domain/dashboard"
)

// DashboardCache implements dashboard.Cache on the generic Redis cache.
type DashboardCache struct {
	cache *Cache
}

// NewDashboardCache creates a new DashboardCache.
func NewDashboardCache(cache *Cache) *DashboardCache {
	return &DashboardCache{cache: cache}
}

// Invalidate removes the student's cached dashboard snapshot. Deleting an
// absent key is a no-op in Redis, so repeated invalidation is safe.
func (d *DashboardCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return d.cache.Delete(ctx, dashboard.CacheKey(userID))
}

// Put stores a computed dashboard snapshot. Readers recompute on miss; the
// TTL bounds staleness if an invalidation is ever lost.
func (d *DashboardCache) Put(ctx context.Context, userID uuid.UUID, snapshot interface{}) error {
	return d.cache.Set(ctx, dashboard.CacheKey(userID), snapshot, TTLDashboard)
}

// Get loads a cached snapshot into dest. Returns ErrCacheMiss when absent.
func (d *DashboardCache) Get(ctx context.Context, userID uuid.UUID, dest interface{}) error {
	return d.cache.Get(ctx, dashboard.CacheKey(userID), dest)
}
