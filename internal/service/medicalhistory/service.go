// Package medicalhistory implements the privilege-checked medical
// history repository. One history document exists per patient.
package medicalhistory

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
	histories store.Collection
	patients  store.Collection
	guard     *guard.Guard
	auditor   *audit.Service
	logger    *logger.Logger
}

func NewService(histories, patients store.Collection, g *guard.Guard,
	auditor *audit.Service, log *logger.Logger) *Service {
	return &Service{
		histories: histories,
		patients:  patients,
		guard:     g,
		auditor:   auditor,
		logger:    log,
	}
}

func (s *Service) Create(ctx context.Context, req model.CreateMedicalHistoryRequest) (model.Document, error) {
	principal, _, err := s.guard.Require(ctx, authz.ActionCreate, authz.ResourceMedicalHistory)
	if err != nil {
		return nil, err
	}
	if err := s.guard.ValidateStruct(req); err != nil {
		return nil, err
	}

	if _, err := s.patients.FindOne(ctx, model.Document{model.FieldID: req.PatientID}); err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return nil, pkgerrors.Validation("history references an unknown patient", nil)
		}
		return nil, pkgerrors.Internal(err)
	}
	if _, err := s.histories.FindOne(ctx, model.Document{"patientId": req.PatientID}); err == nil {
		return nil, pkgerrors.Conflict("patient already has a medical history")
	} else if !errors.Is(err, store.ErrNoDocuments) {
		return nil, pkgerrors.Internal(err)
	}

	doc := req.Document()
	id := guard.StampNew(doc, model.MedicalHistorySchema.Version)
	if err := s.histories.InsertOne(ctx, doc); err != nil {
		return nil, pkgerrors.Internal(err)
	}

	s.auditor.Log(ctx, principal, authz.ActionCreate, authz.ResourceMedicalHistory, id)
	return s.guard.ProjectForRead(ctx, principal.Role, authz.ResourceMedicalHistory, doc), nil
}

func (s *Service) GetByPatient(ctx context.Context, patientID string) (model.Document, error) {
	_, perm, err := s.guard.Require(ctx, authz.ActionRead, authz.ResourceMedicalHistory)
	if err != nil {
		return nil, err
	}

	doc, err := s.histories.FindOne(ctx, model.Document{"patientId": patientID})
	if err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return nil, pkgerrors.NotFound(authz.ResourceMedicalHistory)
		}
		return nil, pkgerrors.Internal(err)
	}
	return authz.Project(doc, perm.Filter, model.MedicalHistorySchema.ReadableFields()), nil
}

func (s *Service) Update(ctx context.Context, patientID string, payload model.Document) (model.Document, error) {
	principal, perm, err := s.guard.Require(ctx, authz.ActionUpdate, authz.ResourceMedicalHistory)
	if err != nil {
		return nil, err
	}

	set := guard.StripBookkeeping(payload)
	if err := authz.CheckUpdatePayload(set, perm.Filter, model.MedicalHistorySchema.UpdatableFields(), authz.ResourceMedicalHistory); err != nil {
		return nil, err
	}
	if err := s.guard.ValidateUpdateValues(model.MedicalHistorySchema, set); err != nil {
		return nil, err
	}

	set = guard.StampUpdate(set)
	if err := s.histories.UpdateOne(ctx, model.Document{"patientId": patientID}, set); err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return nil, pkgerrors.NotFound(authz.ResourceMedicalHistory)
		}
		return nil, pkgerrors.Internal(err)
	}

	s.auditor.Log(ctx, principal, authz.ActionUpdate, authz.ResourceMedicalHistory, patientID)

	doc, err := s.histories.FindOne(ctx, model.Document{"patientId": patientID})
	if err != nil {
		return nil, pkgerrors.Internal(err)
	}
	return s.guard.ProjectForRead(ctx, principal.Role, authz.ResourceMedicalHistory, doc), nil
}

func (s *Service) Delete(ctx context.Context, patientID string) error {
	principal, _, err := s.guard.Require(ctx, authz.ActionDelete, authz.ResourceMedicalHistory)
	if err != nil {
		return err
	}

	if err := s.histories.DeleteOne(ctx, model.Document{"patientId": patientID}); err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return pkgerrors.NotFound(authz.ResourceMedicalHistory)
		}
		return pkgerrors.Internal(err)
	}
	s.auditor.Log(ctx, principal, authz.ActionDelete, authz.ResourceMedicalHistory, patientID)
	return nil
}
