package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bestsellers/models"
)

// memoryStore is an in-memory Store used to exercise the cache layer.
type memoryStore struct {
	snapshot *models.Snapshot
	reads    int
	writes   int
}

func (m *memoryStore) GetSnapshot(ctx context.Context) (*models.Snapshot, error) {
	m.reads++
	if m.snapshot == nil {
		return nil, ErrNotFound
	}
	return m.snapshot, nil
}

func (m *memoryStore) GetCategory(ctx context.Context, slug string) (*models.Snapshot, error) {
	m.reads++
	if m.snapshot == nil {
		return nil, ErrNotFound
	}
	products, ok := m.snapshot.Categories[slug]
	if !ok {
		return nil, ErrNotFound
	}
	return &models.Snapshot{
		Categories: models.ProductsByCategory{slug: products},
		UpdatedAt:  m.snapshot.UpdatedAt,
		SourceURL:  m.snapshot.SourceURL,
	}, nil
}

func (m *memoryStore) GetFirstCategory(ctx context.Context) (*models.Snapshot, error) {
	m.reads++
	if m.snapshot == nil || len(m.snapshot.CategoryOrder) == 0 {
		return nil, ErrNotFound
	}
	first := m.snapshot.CategoryOrder[0]
	products, ok := m.snapshot.Categories[first]
	if !ok {
		return nil, ErrNotFound
	}
	return &models.Snapshot{
		Categories:    models.ProductsByCategory{first: products},
		CategoryOrder: m.snapshot.CategoryOrder,
		UpdatedAt:     m.snapshot.UpdatedAt,
		SourceURL:     m.snapshot.SourceURL,
	}, nil
}

func (m *memoryStore) ReplaceSnapshot(ctx context.Context, categories models.ProductsByCategory, order []string) (*models.Snapshot, error) {
	m.writes++
	m.snapshot = &models.Snapshot{
		Categories:    categories,
		CategoryOrder: order,
		UpdatedAt:     time.Now().UTC(),
		SourceURL:     testSourceURL,
	}
	return m.snapshot, nil
}

func seededMemoryStore() *memoryStore {
	return &memoryStore{
		snapshot: &models.Snapshot{
			Categories: models.ProductsByCategory{
				"livros": {{Rank: 1, Title: "Dom Casmurro", Href: "https://example.com/dp/1"}},
			},
			CategoryOrder: []string{"livros"},
			UpdatedAt:     time.Now().UTC(),
			SourceURL:     testSourceURL,
		},
	}
}

func TestCachedServesRepeatReadsFromMemory(t *testing.T) {
	inner := seededMemoryStore()
	cached := NewCached(inner, 16, time.Minute)
	ctx := context.Background()

	first, err := cached.GetSnapshot(ctx)
	require.NoError(t, err)
	second, err := cached.GetSnapshot(ctx)
	require.NoError(t, err)

	require.Equal(t, first.Categories, second.Categories)
	require.Equal(t, 1, inner.reads)
}

func TestCachedKeysCategoriesSeparately(t *testing.T) {
	inner := seededMemoryStore()
	inner.snapshot.Categories["games"] = []models.Product{{Rank: 1, Title: "Console", Href: "https://example.com/dp/2"}}
	cached := NewCached(inner, 16, time.Minute)
	ctx := context.Background()

	_, err := cached.GetCategory(ctx, "livros")
	require.NoError(t, err)
	_, err = cached.GetCategory(ctx, "games")
	require.NoError(t, err)
	_, err = cached.GetCategory(ctx, "livros")
	require.NoError(t, err)

	require.Equal(t, 2, inner.reads)
}

func TestCachedDoesNotCacheAbsence(t *testing.T) {
	inner := &memoryStore{}
	cached := NewCached(inner, 16, time.Minute)
	ctx := context.Background()

	_, err := cached.GetSnapshot(ctx)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = cached.GetSnapshot(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	require.Equal(t, 2, inner.reads)
}

func TestCachedReplacePurges(t *testing.T) {
	inner := seededMemoryStore()
	cached := NewCached(inner, 16, time.Minute)
	ctx := context.Background()

	_, err := cached.GetSnapshot(ctx)
	require.NoError(t, err)

	newCategories := models.ProductsByCategory{
		"games": {{Rank: 1, Title: "Console", Href: "https://example.com/dp/2"}},
	}
	written, err := cached.ReplaceSnapshot(ctx, newCategories, []string{"games"})
	require.NoError(t, err)
	require.Equal(t, 1, inner.writes)

	after, err := cached.GetSnapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, written.Categories, after.Categories)
	require.Equal(t, 2, inner.reads)
}

func TestCachedRoundTrip(t *testing.T) {
	// Write-then-read returns the written pair plus stamped metadata.
	inner := &memoryStore{}
	cached := NewCached(inner, 16, time.Minute)
	ctx := context.Background()

	categories := models.ProductsByCategory{
		"livros": {{Rank: 1, Title: "Dom Casmurro", Href: "https://example.com/dp/1"}},
	}
	order := []string{"livros"}

	written, err := cached.ReplaceSnapshot(ctx, categories, order)
	require.NoError(t, err)

	read, err := cached.GetSnapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, categories, read.Categories)
	require.Equal(t, order, read.CategoryOrder)
	require.Equal(t, written.UpdatedAt, read.UpdatedAt)
	require.Equal(t, testSourceURL, read.SourceURL)
}
