package store

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"bestsellers/models"
)

const (
	keySnapshot = "snapshot"
	keyFirst    = "first"
	keyCategory = "category:"
)

// Cached wraps a Store with a small expiring LRU over successful reads.
// Refreshes are infrequent, so reads between them are identical; a short
// TTL keeps staleness bounded and every replace-write purges the cache
// outright. Absence is never cached.
type Cached struct {
	inner Store
	lru   *expirable.LRU[string, models.Snapshot]
}

// NewCached builds the caching layer. size bounds distinct cached reads,
// ttl bounds staleness after an out-of-band write.
func NewCached(inner Store, size int, ttl time.Duration) *Cached {
	return &Cached{
		inner: inner,
		lru:   expirable.NewLRU[string, models.Snapshot](size, nil, ttl),
	}
}

func (c *Cached) get(ctx context.Context, key string, load func(context.Context) (*models.Snapshot, error)) (*models.Snapshot, error) {
	if cached, ok := c.lru.Get(key); ok {
		return &cached, nil
	}

	snapshot, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, *snapshot)
	return snapshot, nil
}

// GetSnapshot implements Store.
func (c *Cached) GetSnapshot(ctx context.Context) (*models.Snapshot, error) {
	return c.get(ctx, keySnapshot, c.inner.GetSnapshot)
}

// GetCategory implements Store.
func (c *Cached) GetCategory(ctx context.Context, slug string) (*models.Snapshot, error) {
	return c.get(ctx, keyCategory+slug, func(ctx context.Context) (*models.Snapshot, error) {
		return c.inner.GetCategory(ctx, slug)
	})
}

// GetFirstCategory implements Store.
func (c *Cached) GetFirstCategory(ctx context.Context) (*models.Snapshot, error) {
	return c.get(ctx, keyFirst, c.inner.GetFirstCategory)
}

// ReplaceSnapshot implements Store and purges every cached read so the new
// snapshot is visible immediately.
func (c *Cached) ReplaceSnapshot(ctx context.Context, categories models.ProductsByCategory, order []string) (*models.Snapshot, error) {
	snapshot, err := c.inner.ReplaceSnapshot(ctx, categories, order)
	if err != nil {
		return nil, err
	}
	c.lru.Purge()
	return snapshot, nil
}
