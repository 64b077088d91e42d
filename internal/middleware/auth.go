package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/medrec/clinic-api/internal/handler"
	"github.com/medrec/clinic-api/internal/session"
	pkgauth "github.com/medrec/clinic-api/pkg/auth"
)

type AuthMiddleware struct {
	tokens   pkgauth.TokenService
	sessions *session.Store
}

func NewAuthMiddleware(tokens pkgauth.TokenService, sessions *session.Store) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, sessions: sessions}
}

func (m *AuthMiddleware) resolve(c *gin.Context) *session.Session {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil
	}
	sessionID, err := m.tokens.Validate(parts[1])
	if err != nil {
		return nil
	}
	// An expired session is evicted by the lookup itself.
	sess, ok := m.sessions.Get(sessionID)
	if !ok {
		return nil
	}
	return sess
}

// Attach puts the session on the request context when a valid token is
// presented, and lets the request through either way. Routes whose
// semantics tolerate anonymity (logout, me) use this.
func (m *AuthMiddleware) Attach() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sess := m.resolve(c); sess != nil {
			c.Request = c.Request.WithContext(session.NewContext(c.Request.Context(), sess))
		}
		c.Next()
	}
}

// RequireAuth aborts with the Unauthenticated envelope when no live
// session backs the request.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := m.resolve(c)
		if sess == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.Envelope{
				Code:    http.StatusUnauthorized,
				Message: "authentication required",
			})
			return
		}
		c.Request = c.Request.WithContext(session.NewContext(c.Request.Context(), sess))
		c.Next()
	}
}
