package privilege

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
	privileges store.Collection
	svc        *Service
}

// newFixture seeds full admin grants and hands back a service whose
// registry cache TTL is effectively zero, so privilege mutations in a
// test are observed immediately.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := memory.New()
	privileges := mem.Collection(store.CollPrivileges)

	ctx := context.Background()
	for resource := range authz.KnownResources {
		for action := range authz.KnownActions {
			doc := model.CreatePrivilegeRequest{
				Role:       model.RoleAdmin,
				Resource:   resource,
				Action:     action,
				Attributes: []string{"*"},
			}.Document()
			guard.StampNew(doc, model.PrivilegeSchema.Version)
			require.NoError(t, privileges.InsertOne(ctx, doc))
		}
	}

	log := logger.Discard()
	authzSvc := authz.NewService(privileges, time.Nanosecond, nil, log)
	g := guard.New(authzSvc, log, nil)
	auditor := audit.NewService(mem.Collection(store.CollAudit), log)
	return &fixture{
		privileges: privileges,
		svc:        NewService(privileges, authzSvc, g, auditor, log),
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

func TestCreateGrantTakesEffect(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()

	created, err := f.svc.Create(ctx, model.CreatePrivilegeRequest{
		Role:       "doctor",
		Resource:   authz.ResourcePatient,
		Action:     "read:any",
		Attributes: []string{"firstName"},
	})
	require.NoError(t, err)
	// Action suffix is canonicalized before persisting.
	assert.Equal(t, "read", created["action"])

	docs, err := f.svc.List(ctx, "doctor", model.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestCreateRejectsUnknownResource(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(adminCtx(), model.CreatePrivilegeRequest{
		Role:       "doctor",
		Resource:   "spaceship",
		Action:     authz.ActionRead,
		Attributes: []string{"*"},
	})
	assert.Equal(t, pkgerrors.KindValidation, pkgerrors.KindOf(err))
}

func TestCreateDuplicateTupleConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()

	req := model.CreatePrivilegeRequest{
		Role:       "doctor",
		Resource:   authz.ResourcePatient,
		Action:     authz.ActionRead,
		Attributes: []string{"*"},
	}
	_, err := f.svc.Create(ctx, req)
	require.NoError(t, err)

	// read:any collapses onto the existing read record.
	req.Action = "read:any"
	_, err = f.svc.Create(ctx, req)
	assert.Equal(t, pkgerrors.KindConflict, pkgerrors.KindOf(err))
}

func TestAdminPrivilegesAreImmutable(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()

	adminRecord, err := f.privileges.FindOne(context.Background(), model.Document{
		"role": model.RoleAdmin, "resource": authz.ResourcePatient, "action": authz.ActionRead,
	})
	require.NoError(t, err)
	id, _ := adminRecord[model.FieldID].(string)

	_, err = f.svc.Update(ctx, id, model.Document{"attributes": []interface{}{"firstName"}})
	assert.Equal(t, pkgerrors.KindUnauthorized, pkgerrors.KindOf(err))

	err = f.svc.Delete(ctx, id)
	assert.Equal(t, pkgerrors.KindUnauthorized, pkgerrors.KindOf(err))

	// The record is untouched.
	after, err := f.privileges.FindOne(context.Background(), model.Document{model.FieldID: id})
	require.NoError(t, err)
	assert.Equal(t, adminRecord, after)
}

func TestUpdateCannotReassignToAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()

	created, err := f.svc.Create(ctx, model.CreatePrivilegeRequest{
		Role:       "doctor",
		Resource:   authz.ResourcePatient,
		Action:     authz.ActionRead,
		Attributes: []string{"*"},
	})
	require.NoError(t, err)
	id, _ := created[model.FieldID].(string)

	_, err = f.svc.Update(ctx, id, model.Document{"role": model.RoleAdmin})
	assert.Equal(t, pkgerrors.KindUnauthorized, pkgerrors.KindOf(err))
}

func TestDeleteRevokesGrant(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()

	created, err := f.svc.Create(ctx, model.CreatePrivilegeRequest{
		Role:       "doctor",
		Resource:   authz.ResourcePatient,
		Action:     authz.ActionRead,
		Attributes: []string{"*"},
	})
	require.NoError(t, err)
	id, _ := created[model.FieldID].(string)

	require.NoError(t, f.svc.Delete(ctx, id))

	_, err = f.svc.Get(ctx, id)
	assert.Equal(t, pkgerrors.KindNotFound, pkgerrors.KindOf(err))
}
