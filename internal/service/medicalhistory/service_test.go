package medicalhistory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrec/clinic-api/internal/authz"
	"github.com/medrec/clinic-api/internal/model"
	"github.com/medrec/clinic-api/internal/service/audit"
	"github.com/medrec/clinic-api/internal/service/guard"
	"github.com/medrec/clinic-api/internal/session"
	"github.com/medrec/clinic-api/internal/store"
	"github.com/medrec/clinic-api/internal/store/memory"
	pkgerrors "github.com/medrec/clinic-api/pkg/errors"
	"github.com/medrec/clinic-api/pkg/logger"
)

type fixture struct {
	svc       *Service
	patientID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := memory.New()
	privileges := mem.Collection(store.CollPrivileges)

	ctx := context.Background()
	for resource := range authz.KnownResources {
		for action := range authz.KnownActions {
			doc := model.CreatePrivilegeRequest{
				Role: model.RoleAdmin, Resource: resource, Action: action, Attributes: []string{"*"},
			}.Document()
			guard.StampNew(doc, model.PrivilegeSchema.Version)
			require.NoError(t, privileges.InsertOne(ctx, doc))
		}
	}

	patients := mem.Collection(store.CollPatients)
	pdoc := model.Document{"socialId": "1234567890", "firstName": "Jane", "lastName": "Doe", "gender": "female"}
	patientID := guard.StampNew(pdoc, model.PatientSchema.Version)
	require.NoError(t, patients.InsertOne(ctx, pdoc))

	log := logger.Discard()
	authzSvc := authz.NewService(privileges, time.Minute, nil, log)
	g := guard.New(authzSvc, log, nil)
	auditor := audit.NewService(mem.Collection(store.CollAudit), log)
	return &fixture{
		svc:       NewService(mem.Collection(store.CollHistories), patients, g, auditor, log),
		patientID: patientID,
	}
}

func adminCtx() context.Context {
	sess := &session.Session{
		ID: uuid.NewString(),
		Principal: session.Principal{
			ID: uuid.New(), Username: "root", Role: model.RoleAdmin,
		},
		AuthenticatedAt: time.Now(),
	}
	return session.NewContext(context.Background(), sess)
}

func TestCreateAndGetByPatient(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(adminCtx(), model.CreateMedicalHistoryRequest{
		PatientID: f.patientID,
		Allergies: "penicillin",
	})
	require.NoError(t, err)

	got, err := f.svc.GetByPatient(adminCtx(), f.patientID)
	require.NoError(t, err)
	assert.Equal(t, "penicillin", got["allergies"])
}

func TestCreateSecondHistoryConflicts(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(adminCtx(), model.CreateMedicalHistoryRequest{PatientID: f.patientID})
	require.NoError(t, err)
	_, err = f.svc.Create(adminCtx(), model.CreateMedicalHistoryRequest{PatientID: f.patientID})
	assert.Equal(t, pkgerrors.KindConflict, pkgerrors.KindOf(err))
}

func TestCreateUnknownPatientRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(adminCtx(), model.CreateMedicalHistoryRequest{PatientID: uuid.NewString()})
	assert.Equal(t, pkgerrors.KindValidation, pkgerrors.KindOf(err))
}

func TestUpdateByPatient(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(adminCtx(), model.CreateMedicalHistoryRequest{PatientID: f.patientID})
	require.NoError(t, err)

	got, err := f.svc.Update(adminCtx(), f.patientID, model.Document{"medications": "ibuprofen"})
	require.NoError(t, err)
	assert.Equal(t, "ibuprofen", got["medications"])

	_, err = f.svc.Update(adminCtx(), uuid.NewString(), model.Document{"medications": "x"})
	assert.Equal(t, pkgerrors.KindNotFound, pkgerrors.KindOf(err))
}

func TestDeleteByPatient(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(adminCtx(), model.CreateMedicalHistoryRequest{PatientID: f.patientID})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(adminCtx(), f.patientID))
	_, err = f.svc.GetByPatient(adminCtx(), f.patientID)
	assert.Equal(t, pkgerrors.KindNotFound, pkgerrors.KindOf(err))
}
