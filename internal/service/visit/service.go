// Package visit implements the privilege-checked visit repository.
// Visits are always scoped by their owning patient.
package visit

import (
	"context"
	"errors"

	"github.com/medrec/clinic-api/internal/authz"
	"github.com/medrec/clinic-api/internal/model"
	"github.com/medrec/clinic-api/internal/service/audit"
	"github.com/medrec/clinic-api/internal/service/guard"
	"github.com/medrec/clinic-api/internal/store"
	pkgerrors "github.com/medrec/clinic-api/pkg/errors"
	"github.com/medrec/clinic-api/pkg/logger"
)

type Service struct {
	visits   store.Collection
	patients store.Collection
	guard    *guard.Guard
	auditor  *audit.Service
	logger   *logger.Logger
}

func NewService(visits, patients store.Collection, g *guard.Guard,
	auditor *audit.Service, log *logger.Logger) *Service {
	return &Service{
		visits:   visits,
		patients: patients,
		guard:    g,
		auditor:  auditor,
		logger:   log,
	}
}

func (s *Service) Create(ctx context.Context, req model.CreateVisitRequest) (model.Document, error) {
	principal, _, err := s.guard.Require(ctx, authz.ActionCreate, authz.ResourceVisit)
	if err != nil {
		return nil, err
	}
	if err := s.guard.ValidateStruct(req); err != nil {
		return nil, err
	}

	if _, err := s.patients.FindOne(ctx, model.Document{model.FieldID: req.PatientID}); err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return nil, pkgerrors.Validation("visit references an unknown patient", nil)
		}
		return nil, pkgerrors.Internal(err)
	}

	doc := req.Document()
	id := guard.StampNew(doc, model.VisitSchema.Version)
	if err := s.visits.InsertOne(ctx, doc); err != nil {
		return nil, pkgerrors.Internal(err)
	}

	s.auditor.Log(ctx, principal, authz.ActionCreate, authz.ResourceVisit, id)
	return s.guard.ProjectForRead(ctx, principal.Role, authz.ResourceVisit, doc), nil
}

func (s *Service) Get(ctx context.Context, id string) (model.Document, error) {
	_, perm, err := s.guard.Require(ctx, authz.ActionRead, authz.ResourceVisit)
	if err != nil {
		return nil, err
	}

	doc, err := s.visits.FindOne(ctx, model.Document{model.FieldID: id})
	if err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return nil, pkgerrors.NotFound(authz.ResourceVisit)
		}
		return nil, pkgerrors.Internal(err)
	}
	return authz.Project(doc, perm.Filter, model.VisitSchema.ReadableFields()), nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID string, opts model.ListOptions) ([]model.Document, error) {
	_, perm, err := s.guard.Require(ctx, authz.ActionRead, authz.ResourceVisit)
	if err != nil {
		return nil, err
	}
	opts = opts.Normalize()

	docs, err := s.visits.Find(ctx, model.Document{"patientId": patientID}, store.FindOptions{
		SortField: model.FieldCreatedAt,
		Ascending: opts.Ascending,
		Skip:      opts.Offset,
		Limit:     opts.Limit,
	})
	if err != nil {
		return nil, pkgerrors.Internal(err)
	}
	return authz.ProjectAll(docs, perm.Filter, model.VisitSchema.ReadableFields()), nil
}

// ListByDateRange returns visits whose visitedAt falls inside the
// inclusive [from, to] window, optionally scoped to one patient.
func (s *Service) ListByDateRange(ctx context.Context, patientID string, from, to int64, opts model.ListOptions) ([]model.Document, error) {
	_, perm, err := s.guard.Require(ctx, authz.ActionRead, authz.ResourceVisit)
	if err != nil {
		return nil, err
	}
	if from > to {
		return nil, pkgerrors.Validation("date range start is after end", nil)
	}
	opts = opts.Normalize()

	filter := model.Document{"visitedAt": store.Range{From: from, To: to}}
	if patientID != "" {
		filter["patientId"] = patientID
	}
	docs, err := s.visits.Find(ctx, filter, store.FindOptions{
		SortField: "visitedAt",
		Ascending: opts.Ascending,
		Skip:      opts.Offset,
		Limit:     opts.Limit,
	})
	if err != nil {
		return nil, pkgerrors.Internal(err)
	}
	return authz.ProjectAll(docs, perm.Filter, model.VisitSchema.ReadableFields()), nil
}

func (s *Service) Update(ctx context.Context, id string, payload model.Document) (model.Document, error) {
	principal, perm, err := s.guard.Require(ctx, authz.ActionUpdate, authz.ResourceVisit)
	if err != nil {
		return nil, err
	}

	set := guard.StripBookkeeping(payload)
	if err := authz.CheckUpdatePayload(set, perm.Filter, model.VisitSchema.UpdatableFields(), authz.ResourceVisit); err != nil {
		return nil, err
	}
	if err := s.guard.ValidateUpdateValues(model.VisitSchema, set); err != nil {
		return nil, err
	}

	set = guard.StampUpdate(set)
	if err := s.visits.UpdateOne(ctx, model.Document{model.FieldID: id}, set); err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return nil, pkgerrors.NotFound(authz.ResourceVisit)
		}
		return nil, pkgerrors.Internal(err)
	}

	s.auditor.Log(ctx, principal, authz.ActionUpdate, authz.ResourceVisit, id)

	doc, err := s.visits.FindOne(ctx, model.Document{model.FieldID: id})
	if err != nil {
		return nil, pkgerrors.Internal(err)
	}
	return s.guard.ProjectForRead(ctx, principal.Role, authz.ResourceVisit, doc), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	principal, _, err := s.guard.Require(ctx, authz.ActionDelete, authz.ResourceVisit)
	if err != nil {
		return err
	}

	if err := s.visits.DeleteOne(ctx, model.Document{model.FieldID: id}); err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return pkgerrors.NotFound(authz.ResourceVisit)
		}
		return pkgerrors.Internal(err)
	}
	s.auditor.Log(ctx, principal, authz.ActionDelete, authz.ResourceVisit, id)
	return nil
}

func (s *Service) DeleteByPatient(ctx context.Context, patientID string) (int64, error) {
	principal, _, err := s.guard.Require(ctx, authz.ActionDelete, authz.ResourceVisit)
	if err != nil {
		return 0, err
	}

	n, err := s.visits.DeleteMany(ctx, model.Document{"patientId": patientID})
	if err != nil {
		return 0, pkgerrors.Internal(err)
	}
	s.auditor.Log(ctx, principal, authz.ActionDelete, authz.ResourceVisit, "patient:"+patientID)
	return n, nil
}
