package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrec/clinic-api/internal/session"
	pkgauth "github.com/medrec/clinic-api/pkg/auth"
)

func newAuthEnv(t *testing.T) (*AuthMiddleware, *session.Store, pkgauth.TokenService) {
	t.Helper()
	sessions := session.NewStore(session.DefaultTTL)
	tokens := pkgauth.NewJWTService("test-secret", session.DefaultTTL)
	return NewAuthMiddleware(tokens, sessions), sessions, tokens
}

func newEngine(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/probe", mw, func(c *gin.Context) {
		_, ok := session.FromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"authenticated": ok})
	})
	return r
}

func bearerFor(t *testing.T, sessions *session.Store, tokens pkgauth.TokenService) string {
	t.Helper()
	sess := sessions.Create(session.Principal{ID: uuid.New(), Username: "drjones", Role: "doctor"})
	token, err := tokens.Generate(sess.ID, "drjones", "doctor")
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	mw, _, _ := newAuthEnv(t)
	r := newEngine(mw.RequireAuth())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthRejectsForgedToken(t *testing.T) {
	mw, sessions, _ := newAuthEnv(t)
	r := newEngine(mw.RequireAuth())

	// Token signed with a different secret fails validation even if a
	// session exists.
	otherTokens := pkgauth.NewJWTService("other-secret", session.DefaultTTL)
	forged := bearerFor(t, sessions, otherTokens)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", forged)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthRejectsDeadSession(t *testing.T) {
	mw, sessions, tokens := newAuthEnv(t)
	r := newEngine(mw.RequireAuth())

	sess := sessions.Create(session.Principal{ID: uuid.New(), Username: "drjones", Role: "doctor"})
	token, err := tokens.Generate(sess.ID, "drjones", "doctor")
	require.NoError(t, err)
	sessions.Delete(sess.ID)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthAcceptsLiveSession(t *testing.T) {
	mw, sessions, tokens := newAuthEnv(t)
	r := newEngine(mw.RequireAuth())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", bearerFor(t, sessions, tokens))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":true`)
}

func TestAttachLetsAnonymousThrough(t *testing.T) {
	mw, _, _ := newAuthEnv(t)
	r := newEngine(mw.Attach())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)
}

func TestExpiredSessionIsEvictedOnResolve(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sessions := session.NewStore(time.Hour).WithClock(func() time.Time { return now })
	tokens := pkgauth.NewJWTService("test-secret", 2*time.Hour)
	mw := NewAuthMiddleware(tokens, sessions)
	r := newEngine(mw.RequireAuth())

	sess := sessions.Create(session.Principal{ID: uuid.New(), Username: "drjones", Role: "doctor"})
	token, err := tokens.Generate(sess.ID, "drjones", "doctor")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, sessions.Len())
}
