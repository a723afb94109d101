package profile

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

// CachedStore fronts a Store with a bounded TTL cache so hot profiles do
// not hit the backing database on every turn. Writes go through to the
// backend and refresh the cache.
type CachedStore struct {
	backend Store
	cache   *expirable.LRU[string, *UserProfile]
	logger  *zap.Logger
}

// NewCachedStore wraps backend with an LRU of maxEntries entries expiring
// after ttl.
func NewCachedStore(backend Store, maxEntries int, ttl time.Duration, logger *zap.Logger) *CachedStore {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	return &CachedStore{
		backend: backend,
		cache:   expirable.NewLRU[string, *UserProfile](maxEntries, nil, ttl),
		logger:  logger.Named("profile-cache"),
	}
}

func (c *CachedStore) Get(ctx context.Context, userID string) (*UserProfile, error) {
	if p, ok := c.cache.Get(userID); ok {
		return p, nil
	}
	p, err := c.backend.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		c.cache.Add(userID, p)
	}
	return p, nil
}

func (c *CachedStore) Put(ctx context.Context, p *UserProfile) error {
	if err := c.backend.Put(ctx, p); err != nil {
		// A stale cache entry would mask the failed write.
		c.cache.Remove(p.UserID)
		return err
	}
	c.cache.Add(p.UserID, p)
	return nil
}

func (c *CachedStore) Close() error {
	c.cache.Purge()
	return c.backend.Close()
}
