package store

import (
	"context"
	"time"

	"github.com/medrec/clinic-api/internal/model"
	"github.com/medrec/clinic-api/pkg/metrics"
)

// Instrument wraps a store so every collection call feeds the storage
// latency histogram. The blob store is passed through untouched;
// streaming durations say more about clients than about storage.
func Instrument(s Store, m *metrics.Metrics) Store {
	if m == nil {
		return s
	}
	return &instrumentedStore{inner: s, metrics: m}
}

type instrumentedStore struct {
	inner   Store
	metrics *metrics.Metrics
}

func (s *instrumentedStore) Collection(name string) Collection {
	return &instrumentedCollection{
		inner:   s.inner.Collection(name),
		name:    name,
		metrics: s.metrics,
	}
}

func (s *instrumentedStore) Blobs() BlobStore {
	return s.inner.Blobs()
}

type instrumentedCollection struct {
	inner   Collection
	name    string
	metrics *metrics.Metrics
}

func (c *instrumentedCollection) observe(op string, start time.Time) {
	c.metrics.StorageLatency.WithLabelValues(c.name, op).Observe(time.Since(start).Seconds())
}

func (c *instrumentedCollection) InsertOne(ctx context.Context, doc model.Document) error {
	defer c.observe("insert_one", time.Now())
	return c.inner.InsertOne(ctx, doc)
}

func (c *instrumentedCollection) FindOne(ctx context.Context, filter model.Document) (model.Document, error) {
	defer c.observe("find_one", time.Now())
	return c.inner.FindOne(ctx, filter)
}

func (c *instrumentedCollection) Find(ctx context.Context, filter model.Document, opts FindOptions) ([]model.Document, error) {
	defer c.observe("find", time.Now())
	return c.inner.Find(ctx, filter, opts)
}

func (c *instrumentedCollection) UpdateOne(ctx context.Context, filter, set model.Document) error {
	defer c.observe("update_one", time.Now())
	return c.inner.UpdateOne(ctx, filter, set)
}

func (c *instrumentedCollection) DeleteOne(ctx context.Context, filter model.Document) error {
	defer c.observe("delete_one", time.Now())
	return c.inner.DeleteOne(ctx, filter)
}

func (c *instrumentedCollection) DeleteMany(ctx context.Context, filter model.Document) (int64, error) {
	defer c.observe("delete_many", time.Now())
	return c.inner.DeleteMany(ctx, filter)
}

func (c *instrumentedCollection) EstimatedCount(ctx context.Context) (int64, error) {
	defer c.observe("estimated_count", time.Now())
	return c.inner.EstimatedCount(ctx)
}
