// Package canvas implements the repository for standalone raster
// snapshots: dimensions and color space as metadata, pixels as a blob.
package canvas

import (
	"context"
	"errors"
	"io"

	"github.com/medrec/clinic-api/internal/authz"
	"github.com/medrec/clinic-api/internal/model"
	"github.com/medrec/clinic-api/internal/service/audit"
	"github.com/medrec/clinic-api/internal/service/guard"
	"github.com/medrec/clinic-api/internal/store"
	pkgerrors "github.com/medrec/clinic-api/pkg/errors"
	"github.com/medrec/clinic-api/pkg/logger"
)

type Service struct {
	canvases store.Collection
	blobs    store.BlobStore
	guard    *guard.Guard
	auditor  *audit.Service
	logger   *logger.Logger
}

func NewService(canvases store.Collection, blobs store.BlobStore, g *guard.Guard,
	auditor *audit.Service, log *logger.Logger) *Service {
	return &Service{
		canvases: canvases,
		blobs:    blobs,
		guard:    g,
		auditor:  auditor,
		logger:   log,
	}
}

func (s *Service) Save(ctx context.Context, req model.SaveCanvasRequest, content io.Reader) (model.Document, error) {
	principal, _, err := s.guard.Require(ctx, authz.ActionCreate, authz.ResourceCanvas)
	if err != nil {
		return nil, err
	}
	if err := s.guard.ValidateStruct(req); err != nil {
		return nil, err
	}

	doc := req.Document(0)
	id := guard.StampNew(doc, model.CanvasSchema.Version)

	size, err := s.blobs.Put(ctx, id, content)
	if err != nil {
		return nil, pkgerrors.Internal(err)
	}
	doc["size"] = size

	if err := s.canvases.InsertOne(ctx, doc); err != nil {
		return nil, pkgerrors.Internal(err)
	}

	s.auditor.Log(ctx, principal, authz.ActionCreate, authz.ResourceCanvas, id)
	return s.guard.ProjectForRead(ctx, principal.Role, authz.ResourceCanvas, doc), nil
}

func (s *Service) GetMeta(ctx context.Context, id string) (model.Document, error) {
	_, perm, err := s.guard.Require(ctx, authz.ActionRead, authz.ResourceCanvas)
	if err != nil {
		return nil, err
	}

	doc, err := s.canvases.FindOne(ctx, model.Document{model.FieldID: id})
	if err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return nil, pkgerrors.NotFound(authz.ResourceCanvas)
		}
		return nil, pkgerrors.Internal(err)
	}
	return authz.Project(doc, perm.Filter, model.CanvasSchema.ReadableFields()), nil
}

func (s *Service) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	if _, _, err := s.guard.Require(ctx, authz.ActionRead, authz.ResourceCanvas); err != nil {
		return nil, err
	}
	r, err := s.blobs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return nil, pkgerrors.NotFound(authz.ResourceCanvas)
		}
		return nil, pkgerrors.Internal(err)
	}
	return r, nil
}

func (s *Service) List(ctx context.Context, opts model.ListOptions) ([]model.Document, error) {
	_, perm, err := s.guard.Require(ctx, authz.ActionRead, authz.ResourceCanvas)
	if err != nil {
		return nil, err
	}
	opts = opts.Normalize()

	docs, err := s.canvases.Find(ctx, model.Document{}, store.FindOptions{
		SortField: model.FieldCreatedAt,
		Ascending: opts.Ascending,
		Skip:      opts.Offset,
		Limit:     opts.Limit,
	})
	if err != nil {
		return nil, pkgerrors.Internal(err)
	}
	return authz.ProjectAll(docs, perm.Filter, model.CanvasSchema.ReadableFields()), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	principal, _, err := s.guard.Require(ctx, authz.ActionDelete, authz.ResourceCanvas)
	if err != nil {
		return err
	}

	if err := s.canvases.DeleteOne(ctx, model.Document{model.FieldID: id}); err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return pkgerrors.NotFound(authz.ResourceCanvas)
		}
		return pkgerrors.Internal(err)
	}
	if err := s.blobs.Delete(ctx, id); err != nil && !errors.Is(err, store.ErrNoDocuments) {
		return pkgerrors.Internal(err)
	}

	s.auditor.Log(ctx, principal, authz.ActionDelete, authz.ResourceCanvas, id)
	return nil
}
