// Package store persists the bestseller snapshot as a single logical
// document and exposes the read patterns the API serves from.
package store

import (
	"context"
	"errors"

	"bestsellers/models"
)

// ErrNotFound reports that a read matched nothing. For projected reads it
// covers both a missing snapshot and a missing category inside an existing
// snapshot; callers that need the distinction must do a full read.
var ErrNotFound = errors.New("store: snapshot not found")

// Store is the access contract against the one "latest" snapshot record.
type Store interface {
	// GetSnapshot returns the whole snapshot, or ErrNotFound if a refresh
	// has never run.
	GetSnapshot(ctx context.Context) (*models.Snapshot, error)

	// GetCategory returns a snapshot projected down to the one requested
	// category plus its metadata.
	GetCategory(ctx context.Context, slug string) (*models.Snapshot, error)

	// GetFirstCategory resolves the first slug in the category order and
	// returns only that category's products.
	GetFirstCategory(ctx context.Context) (*models.Snapshot, error)

	// ReplaceSnapshot stamps updatedAt and the source URL and overwrites
	// the record wholesale. Concurrent writers race last-write-wins; a
	// refresh is always a complete resnapshot, never a patch.
	ReplaceSnapshot(ctx context.Context, categories models.ProductsByCategory, order []string) (*models.Snapshot, error)
}
