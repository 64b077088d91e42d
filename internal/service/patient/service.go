// Package patient implements the privilege-checked patient repository.
package patient

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
	patients  store.Collection
	visits    store.Collection
	histories store.Collection
	guard     *guard.Guard
	auditor   *audit.Service
	logger    *logger.Logger
}

func NewService(patients, visits, histories store.Collection, g *guard.Guard,
	auditor *audit.Service, log *logger.Logger) *Service {
	return &Service{
		patients:  patients,
		visits:    visits,
		histories: histories,
		guard:     g,
		auditor:   auditor,
		logger:    log,
	}
}

func (s *Service) Create(ctx context.Context, req model.CreatePatientRequest) (model.Document, error) {
	principal, _, err := s.guard.Require(ctx, authz.ActionCreate, authz.ResourcePatient)
	if err != nil {
		return nil, err
	}
	if err := s.guard.ValidateStruct(req); err != nil {
		return nil, err
	}

	// One patient per social id; probe first for a clean error, the
	// storage unique index backstops races.
	if _, err := s.patients.FindOne(ctx, model.Document{"socialId": req.SocialID}); err == nil {
		return nil, pkgerrors.Conflict("patient with this social id already exists")
	} else if !errors.Is(err, store.ErrNoDocuments) {
		return nil, pkgerrors.Internal(err)
	}

	doc := req.Document()
	id := guard.StampNew(doc, model.PatientSchema.Version)
	if err := s.patients.InsertOne(ctx, doc); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, pkgerrors.Conflict("patient with this social id already exists")
		}
		return nil, pkgerrors.Internal(err)
	}

	s.auditor.Log(ctx, principal, authz.ActionCreate, authz.ResourcePatient, id)
	return s.guard.ProjectForRead(ctx, principal.Role, authz.ResourcePatient, doc), nil
}

func (s *Service) Get(ctx context.Context, id string) (model.Document, error) {
	_, perm, err := s.guard.Require(ctx, authz.ActionRead, authz.ResourcePatient)
	if err != nil {
		return nil, err
	}

	doc, err := s.patients.FindOne(ctx, model.Document{model.FieldID: id})
	if err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return nil, pkgerrors.NotFound(authz.ResourcePatient)
		}
		return nil, pkgerrors.Internal(err)
	}
	return authz.Project(doc, perm.Filter, model.PatientSchema.ReadableFields()), nil
}

func (s *Service) List(ctx context.Context, opts model.ListOptions) ([]model.Document, error) {
	_, perm, err := s.guard.Require(ctx, authz.ActionRead, authz.ResourcePatient)
	if err != nil {
		return nil, err
	}
	opts = opts.Normalize()

	docs, err := s.patients.Find(ctx, model.Document{}, store.FindOptions{
		SortField: model.FieldCreatedAt,
		Ascending: opts.Ascending,
		Skip:      opts.Offset,
		Limit:     opts.Limit,
	})
	if err != nil {
		return nil, pkgerrors.Internal(err)
	}
	return authz.ProjectAll(docs, perm.Filter, model.PatientSchema.ReadableFields()), nil
}

func (s *Service) Update(ctx context.Context, id string, payload model.Document) (model.Document, error) {
	principal, perm, err := s.guard.Require(ctx, authz.ActionUpdate, authz.ResourcePatient)
	if err != nil {
		return nil, err
	}

	set := guard.StripBookkeeping(payload)
	if err := authz.CheckUpdatePayload(set, perm.Filter, model.PatientSchema.UpdatableFields(), authz.ResourcePatient); err != nil {
		return nil, err
	}
	if err := s.guard.ValidateUpdateValues(model.PatientSchema, set); err != nil {
		return nil, err
	}

	set = guard.StampUpdate(set)
	if err := s.patients.UpdateOne(ctx, model.Document{model.FieldID: id}, set); err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return nil, pkgerrors.NotFound(authz.ResourcePatient)
		}
		if errors.Is(err, store.ErrDuplicate) {
			return nil, pkgerrors.Conflict("patient with this social id already exists")
		}
		return nil, pkgerrors.Internal(err)
	}

	s.auditor.Log(ctx, principal, authz.ActionUpdate, authz.ResourcePatient, id)

	doc, err := s.patients.FindOne(ctx, model.Document{model.FieldID: id})
	if err != nil {
		return nil, pkgerrors.Internal(err)
	}
	return s.guard.ProjectForRead(ctx, principal.Role, authz.ResourcePatient, doc), nil
}

// Delete removes the patient and its dependent visit and history
// documents. The steps are independent storage calls; a failure midway
// leaves earlier deletions committed.
func (s *Service) Delete(ctx context.Context, id string) error {
	principal, _, err := s.guard.Require(ctx, authz.ActionDelete, authz.ResourcePatient)
	if err != nil {
		return err
	}

	if err := s.patients.DeleteOne(ctx, model.Document{model.FieldID: id}); err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return pkgerrors.NotFound(authz.ResourcePatient)
		}
		return pkgerrors.Internal(err)
	}
	if _, err := s.visits.DeleteMany(ctx, model.Document{"patientId": id}); err != nil {
		return pkgerrors.Internal(err)
	}
	if _, err := s.histories.DeleteMany(ctx, model.Document{"patientId": id}); err != nil {
		return pkgerrors.Internal(err)
	}

	s.auditor.Log(ctx, principal, authz.ActionDelete, authz.ResourcePatient, id)
	return nil
}

// requireJoinPerms authorizes both sides of a patient+visits read. The
// join is visible only when the caller can read both; this runs before
// any storage call.
func (s *Service) requireJoinPerms(ctx context.Context) (authz.Permission, authz.Permission, error) {
	principal, patientPerm, err := s.guard.Require(ctx, authz.ActionRead, authz.ResourcePatient)
	if err != nil {
		return authz.Permission{}, authz.Permission{}, err
	}
	visitPerm, err := s.guard.Can(ctx, principal.Role, authz.ActionRead, authz.ResourceVisit)
	if err != nil {
		return authz.Permission{}, authz.Permission{}, err
	}
	if !visitPerm.Granted {
		return authz.Permission{}, authz.Permission{}, pkgerrors.Unauthorized(authz.ActionRead, authz.ResourceVisit)
	}
	return patientPerm, visitPerm, nil
}

// GetWithVisits returns a patient with its visits embedded, each side
// projected independently under its own resource's permission.
func (s *Service) GetWithVisits(ctx context.Context, id string) (model.Document, error) {
	patientPerm, visitPerm, err := s.requireJoinPerms(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := s.patients.FindOne(ctx, model.Document{model.FieldID: id})
	if err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return nil, pkgerrors.NotFound(authz.ResourcePatient)
		}
		return nil, pkgerrors.Internal(err)
	}

	visits, err := s.visits.Find(ctx, model.Document{"patientId": id}, store.FindOptions{
		SortField: "visitedAt",
	})
	if err != nil {
		return nil, pkgerrors.Internal(err)
	}

	projected := authz.Project(doc, patientPerm.Filter, model.PatientSchema.ReadableFields())
	projected["visits"] = authz.ProjectAll(visits, visitPerm.Filter, model.VisitSchema.ReadableFields())
	return projected, nil
}

func (s *Service) ListWithVisits(ctx context.Context, opts model.ListOptions) ([]model.Document, error) {
	patientPerm, visitPerm, err := s.requireJoinPerms(ctx)
	if err != nil {
		return nil, err
	}
	opts = opts.Normalize()

	patients, err := s.patients.Find(ctx, model.Document{}, store.FindOptions{
		SortField: model.FieldCreatedAt,
		Ascending: opts.Ascending,
		Skip:      opts.Offset,
		Limit:     opts.Limit,
	})
	if err != nil {
		return nil, pkgerrors.Internal(err)
	}

	out := make([]model.Document, 0, len(patients))
	for _, p := range patients {
		id, _ := p[model.FieldID].(string)
		visits, err := s.visits.Find(ctx, model.Document{"patientId": id}, store.FindOptions{
			SortField: "visitedAt",
		})
		if err != nil {
			return nil, pkgerrors.Internal(err)
		}
		projected := authz.Project(p, patientPerm.Filter, model.PatientSchema.ReadableFields())
		projected["visits"] = authz.ProjectAll(visits, visitPerm.Filter, model.VisitSchema.ReadableFields())
		out = append(out, projected)
	}
	return out, nil
}

func (s *Service) EstimatedCount(ctx context.Context) (int64, error) {
	if _, _, err := s.guard.Require(ctx, authz.ActionRead, authz.ResourcePatient); err != nil {
		return 0, err
	}
	n, err := s.patients.EstimatedCount(ctx)
	if err != nil {
		return 0, pkgerrors.Internal(err)
	}
	return n, nil
}
