package visit

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
		svc:       NewService(mem.Collection(store.CollVisits), patients, g, auditor, log),
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

func (f *fixture) visitAt(t *testing.T, at int64) model.Document {
	t.Helper()
	doc, err := f.svc.Create(adminCtx(), model.CreateVisitRequest{
		PatientID: f.patientID,
		VisitedAt: at,
		Reason:    "checkup",
	})
	require.NoError(t, err)
	return doc
}

func TestCreateRequiresExistingPatient(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(adminCtx(), model.CreateVisitRequest{
		PatientID: uuid.NewString(),
		VisitedAt: 1000,
		Reason:    "checkup",
	})
	assert.Equal(t, pkgerrors.KindValidation, pkgerrors.KindOf(err))
}

func TestCreateAndGet(t *testing.T) {
	f := newFixture(t)

	created := f.visitAt(t, 1000)
	id, _ := created[model.FieldID].(string)

	got, err := f.svc.Get(adminCtx(), id)
	require.NoError(t, err)
	assert.Equal(t, f.patientID, got["patientId"])
	assert.EqualValues(t, 1000, got["visitedAt"])
}

func TestListByDateRangeIsInclusive(t *testing.T) {
	f := newFixture(t)
	for _, at := range []int64{100, 200, 300, 400} {
		f.visitAt(t, at)
	}

	docs, err := f.svc.ListByDateRange(adminCtx(), "", 200, 300, model.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestListByDateRangeRejectsInvertedWindow(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ListByDateRange(adminCtx(), "", 300, 200, model.ListOptions{})
	assert.Equal(t, pkgerrors.KindValidation, pkgerrors.KindOf(err))
}

func TestListByPatient(t *testing.T) {
	f := newFixture(t)
	f.visitAt(t, 100)
	f.visitAt(t, 200)

	docs, err := f.svc.ListByPatient(adminCtx(), f.patientID, model.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = f.svc.ListByPatient(adminCtx(), uuid.NewString(), model.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestUpdateRejectsPatientReassignmentValue(t *testing.T) {
	f := newFixture(t)
	created := f.visitAt(t, 100)
	id, _ := created[model.FieldID].(string)

	// patientId is updatable in schema terms but must stay a uuid.
	_, err := f.svc.Update(adminCtx(), id, model.Document{"patientId": "not-a-uuid"})
	assert.Equal(t, pkgerrors.KindValidation, pkgerrors.KindOf(err))
}

func TestDeleteByPatient(t *testing.T) {
	f := newFixture(t)
	f.visitAt(t, 100)
	f.visitAt(t, 200)

	n, err := f.svc.DeleteByPatient(adminCtx(), f.patientID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	docs, err := f.svc.ListByPatient(adminCtx(), f.patientID, model.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, docs)
}
