package store

import (
	"context"
	"errors"
	"io"

	"github.com/medrec/clinic-api/internal/model"
)

var (
	// ErrNoDocuments is returned by FindOne when nothing matches.
	ErrNoDocuments = errors.New("store: no documents in result")
	// ErrDuplicate is returned when a unique constraint is violated.
	ErrDuplicate = errors.New("store: duplicate value for unique field")
)

// Range matches a numeric field inclusively between From and To when
// used as a filter value.
type Range struct {
	From int64
	To   int64
}

// FindOptions carries ordering and paging for Find.
type FindOptions struct {
	SortField string
	Ascending bool
	Skip      int
	Limit     int
}

// Collection is the document-collection contract the access layer
// consumes. Filters are exact-match maps, except Range values.
type Collection interface {
	InsertOne(ctx context.Context, doc model.Document) error
	FindOne(ctx context.Context, filter model.Document) (model.Document, error)
	Find(ctx context.Context, filter model.Document, opts FindOptions) ([]model.Document, error)
	UpdateOne(ctx context.Context, filter model.Document, set model.Document) error
	DeleteOne(ctx context.Context, filter model.Document) error
	DeleteMany(ctx context.Context, filter model.Document) (int64, error)
	EstimatedCount(ctx context.Context) (int64, error)
}

// BlobStore holds binary content keyed by id.
type BlobStore interface {
	Put(ctx context.Context, id string, r io.Reader) (int64, error)
	Get(ctx context.Context, id string) (io.ReadCloser, error)
	Delete(ctx context.Context, id string) error
	Size(ctx context.Context, id string) (int64, error)
}

// Store bundles the collections the repositories operate on.
type Store interface {
	Collection(name string) Collection
	Blobs() BlobStore
}

// Collection names used across the repositories.
const (
	CollPatients  = "patients"
	CollVisits    = "visits"
	CollHistories = "medical_histories"
	CollUsers     = "users"
	CollPrivileges = "privileges"
	CollFiles     = "files"
	CollCanvases  = "canvases"
	CollAudit     = "audit_log"
)
