package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/medrec/clinic-api/internal/model"
	"github.com/medrec/clinic-api/internal/service/guard"
	"github.com/medrec/clinic-api/internal/session"
	"github.com/medrec/clinic-api/internal/store"
	"github.com/medrec/clinic-api/internal/store/memory"
	pkgauth "github.com/medrec/clinic-api/pkg/auth"
	pkgerrors "github.com/medrec/clinic-api/pkg/errors"
	"github.com/medrec/clinic-api/pkg/logger"
	"github.com/medrec/clinic-api/pkg/security"
)

func newService(t *testing.T) (*Service, *session.Store) {
	t.Helper()
	mem := memory.New()
	users := mem.Collection(store.CollUsers)
	hasher := security.NewBcryptHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("correct horse")
	require.NoError(t, err)
	doc := model.CreateUserRequest{
		Username: "drjones",
		Role:     "doctor",
		FullName: "Dr. Jones",
	}.Document(hash)
	guard.StampNew(doc, model.UserSchema.Version)
	require.NoError(t, users.InsertOne(context.Background(), doc))

	sessions := session.NewStore(session.DefaultTTL)
	tokens := pkgauth.NewJWTService("test-secret", session.DefaultTTL)
	log := logger.Discard()
	return NewService(users, sessions, tokens, hasher, log, nil), sessions
}

func TestLoginSuccess(t *testing.T) {
	svc, sessions := newService(t)

	result, err := svc.Login(context.Background(), model.LoginRequest{
		Username: "drjones",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "drjones", result.Principal.Username)
	assert.Equal(t, "doctor", result.Principal.Role)
	assert.Equal(t, 1, sessions.Len())
}

func TestLoginWrongPassword(t *testing.T) {
	svc, sessions := newService(t)

	_, err := svc.Login(context.Background(), model.LoginRequest{
		Username: "drjones",
		Password: "wrong",
	})
	assert.Equal(t, pkgerrors.KindUnauthenticated, pkgerrors.KindOf(err))
	assert.Equal(t, 0, sessions.Len())
}

func TestLoginUnknownUserFailsIdentically(t *testing.T) {
	svc, _ := newService(t)

	_, errUnknown := svc.Login(context.Background(), model.LoginRequest{
		Username: "nobody", Password: "whatever",
	})
	_, errWrongPass := svc.Login(context.Background(), model.LoginRequest{
		Username: "drjones", Password: "wrong",
	})

	require.Error(t, errUnknown)
	require.Error(t, errWrongPass)
	assert.Equal(t, errUnknown.Error(), errWrongPass.Error())
}

func TestLogoutIsIdempotent(t *testing.T) {
	svc, sessions := newService(t)

	result, err := svc.Login(context.Background(), model.LoginRequest{
		Username: "drjones", Password: "correct horse",
	})
	require.NoError(t, err)

	sess, ok := sessions.Get(extractSessionID(t, result.Token))
	require.True(t, ok)
	ctx := session.NewContext(context.Background(), sess)

	assert.True(t, svc.Logout(ctx))
	assert.True(t, svc.Logout(ctx))
	assert.Equal(t, 0, sessions.Len())

	assert.True(t, svc.Logout(context.Background()))
}

func TestCurrentUser(t *testing.T) {
	svc, sessions := newService(t)

	result, err := svc.Login(context.Background(), model.LoginRequest{
		Username: "drjones", Password: "correct horse",
	})
	require.NoError(t, err)

	sess, ok := sessions.Get(extractSessionID(t, result.Token))
	require.True(t, ok)
	ctx := session.NewContext(context.Background(), sess)

	p, err := svc.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, result.Principal, p)

	_, err = svc.CurrentUser(context.Background())
	assert.Equal(t, pkgerrors.KindUnauthenticated, pkgerrors.KindOf(err))
}

func extractSessionID(t *testing.T, token string) string {
	t.Helper()
	tokens := pkgauth.NewJWTService("test-secret", session.DefaultTTL)
	id, err := tokens.Validate(token)
	require.NoError(t, err)
	return id
}
