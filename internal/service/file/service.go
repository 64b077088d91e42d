// Package file implements the privilege-checked repository for
// patient-owned binary documents: metadata in the document store,
// content in the blob store, plus a quota-capped local download cache.
package file

import (
	"context"
	"errors"
	"io"

	"github.com/medrec/clinic-api/internal/authz"
	"github.com/medrec/clinic-api/internal/model"
	"github.com/medrec/clinic-api/internal/service/audit"
	"github.com/medrec/clinic-api/internal/service/guard"
	"github.com/medrec/clinic-api/internal/store"
	"github.com/medrec/clinic-api/internal/store/fsblob"
	pkgerrors "github.com/medrec/clinic-api/pkg/errors"
	"github.com/medrec/clinic-api/pkg/logger"
	"github.com/medrec/clinic-api/pkg/metrics"
)

type Service struct {
	files    store.Collection
	patients store.Collection
	blobs    store.BlobStore
	cache    *fsblob.Cache
	guard    *guard.Guard
	auditor  *audit.Service
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewService(files, patients store.Collection, blobs store.BlobStore, cache *fsblob.Cache,
	g *guard.Guard, auditor *audit.Service, log *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		files:    files,
		patients: patients,
		blobs:    blobs,
		cache:    cache,
		guard:    g,
		auditor:  auditor,
		logger:   log,
		metrics:  m,
	}
}

// Upload stores the content first, then its metadata. A metadata
// failure after a successful blob write leaves an orphaned blob; the
// two writes are independent by design.
func (s *Service) Upload(ctx context.Context, req model.UploadFileRequest, content io.Reader) (model.Document, error) {
	principal, _, err := s.guard.Require(ctx, authz.ActionCreate, authz.ResourceFile)
	if err != nil {
		return nil, err
	}
	if err := s.guard.ValidateStruct(req); err != nil {
		return nil, err
	}

	if _, err := s.patients.FindOne(ctx, model.Document{model.FieldID: req.PatientID}); err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return nil, pkgerrors.Validation("file references an unknown patient", nil)
		}
		return nil, pkgerrors.Internal(err)
	}

	doc := req.Document(0)
	id := guard.StampNew(doc, model.FileSchema.Version)

	size, err := s.blobs.Put(ctx, id, content)
	if err != nil {
		return nil, pkgerrors.Internal(err)
	}
	doc["size"] = size

	if err := s.files.InsertOne(ctx, doc); err != nil {
		return nil, pkgerrors.Internal(err)
	}

	s.auditor.Log(ctx, principal, authz.ActionCreate, authz.ResourceFile, id)
	return s.guard.ProjectForRead(ctx, principal.Role, authz.ResourceFile, doc), nil
}

func (s *Service) GetMeta(ctx context.Context, id string) (model.Document, error) {
	_, perm, err := s.guard.Require(ctx, authz.ActionRead, authz.ResourceFile)
	if err != nil {
		return nil, err
	}

	doc, err := s.files.FindOne(ctx, model.Document{model.FieldID: id})
	if err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return nil, pkgerrors.NotFound(authz.ResourceFile)
		}
		return nil, pkgerrors.Internal(err)
	}
	return authz.Project(doc, perm.Filter, model.FileSchema.ReadableFields()), nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID string, opts model.ListOptions) ([]model.Document, error) {
	_, perm, err := s.guard.Require(ctx, authz.ActionRead, authz.ResourceFile)
	if err != nil {
		return nil, err
	}
	opts = opts.Normalize()

	docs, err := s.files.Find(ctx, model.Document{"patientId": patientID}, store.FindOptions{
		SortField: model.FieldCreatedAt,
		Ascending: opts.Ascending,
		Skip:      opts.Offset,
		Limit:     opts.Limit,
	})
	if err != nil {
		return nil, pkgerrors.Internal(err)
	}
	return authz.ProjectAll(docs, perm.Filter, model.FileSchema.ReadableFields()), nil
}

// Open streams the stored content. The caller owns the ReadCloser.
func (s *Service) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	if _, _, err := s.guard.Require(ctx, authz.ActionRead, authz.ResourceFile); err != nil {
		return nil, err
	}
	r, err := s.blobs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return nil, pkgerrors.NotFound(authz.ResourceFile)
		}
		return nil, pkgerrors.Internal(err)
	}
	return r, nil
}

// Download copies the content into the local cache directory and
// returns the path. Denied when the configured directory-size budget
// would be exceeded, unless force is set.
func (s *Service) Download(ctx context.Context, id string, force bool) (string, error) {
	if _, _, err := s.guard.Require(ctx, authz.ActionRead, authz.ResourceFile); err != nil {
		return "", err
	}

	if _, err := s.files.FindOne(ctx, model.Document{model.FieldID: id}); err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return "", pkgerrors.NotFound(authz.ResourceFile)
		}
		return "", pkgerrors.Internal(err)
	}

	path, err := s.cache.Download(ctx, id, s.blobs, force)
	if err != nil {
		if errors.Is(err, fsblob.ErrQuotaExceeded) {
			if s.metrics != nil {
				s.metrics.BlobCacheRejected.Inc()
			}
			return "", pkgerrors.Conflict("download cache quota exceeded")
		}
		return "", pkgerrors.Internal(err)
	}
	if s.metrics != nil {
		s.metrics.BlobCacheBytes.Set(float64(s.cache.UsedBytes()))
	}
	return path, nil
}

// Delete removes metadata, stored content and any cached local copy.
func (s *Service) Delete(ctx context.Context, id string) error {
	principal, _, err := s.guard.Require(ctx, authz.ActionDelete, authz.ResourceFile)
	if err != nil {
		return err
	}

	if err := s.files.DeleteOne(ctx, model.Document{model.FieldID: id}); err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return pkgerrors.NotFound(authz.ResourceFile)
		}
		return pkgerrors.Internal(err)
	}
	if err := s.blobs.Delete(ctx, id); err != nil && !errors.Is(err, store.ErrNoDocuments) {
		return pkgerrors.Internal(err)
	}
	if err := s.cache.Remove(id); err != nil {
		s.logger.Error(err, "failed to drop cached copy", "id", id)
	}
	if s.metrics != nil {
		s.metrics.BlobCacheBytes.Set(float64(s.cache.UsedBytes()))
	}

	s.auditor.Log(ctx, principal, authz.ActionDelete, authz.ResourceFile, id)
	return nil
}
