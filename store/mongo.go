package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bestsellers/config"
	"bestsellers/models"
)

// Identity of the single snapshot record: one source, one "latest" slot.
const (
	partitionKey = "source#amazon"
	sortKey      = "latest"
)

type snapshotDoc struct {
	PK            string                    `bson:"pk"`
	SK            string                    `bson:"sk"`
	SourceURL     string                    `bson:"sourceUrl"`
	UpdatedAt     time.Time                 `bson:"updatedAt"`
	Categories    models.ProductsByCategory `bson:"categories"`
	CategoryOrder []string                  `bson:"categoryOrder"`
}

func (d *snapshotDoc) snapshot() *models.Snapshot {
	return &models.Snapshot{
		Categories:    d.Categories,
		CategoryOrder: d.CategoryOrder,
		UpdatedAt:     d.UpdatedAt,
		SourceURL:     d.SourceURL,
	}
}

// Mongo implements Store on a MongoDB collection.
type Mongo struct {
	coll      *mongo.Collection
	sourceURL string
	opTimeout time.Duration
	now       func() time.Time
}

// NewMongo wraps an existing collection. sourceURL is stamped on every
// replace-write.
func NewMongo(coll *mongo.Collection, sourceURL string, opTimeout time.Duration) *Mongo {
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	return &Mongo{
		coll:      coll,
		sourceURL: sourceURL,
		opTimeout: opTimeout,
		now:       time.Now,
	}
}

// Connect dials MongoDB, pings it, and returns a Store over the configured
// collection.
func Connect(ctx context.Context, cfg config.MongoConfig, sourceURL string) (*Mongo, func(context.Context) error, error) {
	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(dialCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(dialCtx, nil); err != nil {
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	return NewMongo(coll, sourceURL, cfg.OpTimeout), client.Disconnect, nil
}

func (m *Mongo) filter() bson.M {
	return bson.M{"pk": partitionKey, "sk": sortKey}
}

func (m *Mongo) findOne(ctx context.Context, opts ...*options.FindOneOptions) (*snapshotDoc, error) {
	ctx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()

	var doc snapshotDoc
	err := m.coll.FindOne(ctx, m.filter(), opts...).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return &doc, nil
}

// GetSnapshot implements Store.
func (m *Mongo) GetSnapshot(ctx context.Context) (*models.Snapshot, error) {
	doc, err := m.findOne(ctx)
	if err != nil {
		return nil, err
	}
	return doc.snapshot(), nil
}

// GetCategory implements Store. The category subtree is projected
// server-side through its slug as a nested attribute name, which is why
// slugs are restricted to [a-z0-9-].
func (m *Mongo) GetCategory(ctx context.Context, slug string) (*models.Snapshot, error) {
	projection := bson.M{
		"categories." + slug: 1,
		"updatedAt":          1,
		"sourceUrl":          1,
	}
	doc, err := m.findOne(ctx, options.FindOne().SetProjection(projection))
	if err != nil {
		return nil, err
	}

	products, ok := doc.Categories[slug]
	if !ok {
		return nil, ErrNotFound
	}
	return &models.Snapshot{
		Categories: models.ProductsByCategory{slug: products},
		UpdatedAt:  doc.UpdatedAt,
		SourceURL:  doc.SourceURL,
	}, nil
}

// GetFirstCategory implements Store.
func (m *Mongo) GetFirstCategory(ctx context.Context) (*models.Snapshot, error) {
	projection := bson.M{
		"categories":    1,
		"categoryOrder": 1,
		"updatedAt":     1,
		"sourceUrl":     1,
	}
	doc, err := m.findOne(ctx, options.FindOne().SetProjection(projection))
	if err != nil {
		return nil, err
	}
	if len(doc.CategoryOrder) == 0 {
		return nil, ErrNotFound
	}

	first := doc.CategoryOrder[0]
	products, ok := doc.Categories[first]
	if !ok {
		return nil, ErrNotFound
	}
	return &models.Snapshot{
		Categories:    models.ProductsByCategory{first: products},
		CategoryOrder: doc.CategoryOrder,
		UpdatedAt:     doc.UpdatedAt,
		SourceURL:     doc.SourceURL,
	}, nil
}

// ReplaceSnapshot implements Store.
func (m *Mongo) ReplaceSnapshot(ctx context.Context, categories models.ProductsByCategory, order []string) (*models.Snapshot, error) {
	stamped := &models.Snapshot{
		Categories:    categories,
		CategoryOrder: order,
		UpdatedAt:     m.now().UTC().Truncate(time.Millisecond),
		SourceURL:     m.sourceURL,
	}

	doc := snapshotDoc{
		PK:            partitionKey,
		SK:            sortKey,
		SourceURL:     stamped.SourceURL,
		UpdatedAt:     stamped.UpdatedAt,
		Categories:    stamped.Categories,
		CategoryOrder: stamped.CategoryOrder,
	}

	opCtx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	if _, err := m.coll.ReplaceOne(opCtx, m.filter(), doc, opts); err != nil {
		return nil, fmt.Errorf("replace snapshot: %w", err)
	}
	return stamped, nil
}
