// Package auth implements login/logout and the authenticated-user
// accessor backing every repository operation.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/medrec/clinic-api/internal/model"
	"github.com/medrec/clinic-api/internal/session"
	"github.com/medrec/clinic-api/internal/store"
	pkgauth "github.com/medrec/clinic-api/pkg/auth"
	pkgerrors "github.com/medrec/clinic-api/pkg/errors"
	"github.com/medrec/clinic-api/pkg/logger"
	"github.com/medrec/clinic-api/pkg/metrics"
	"github.com/medrec/clinic-api/pkg/security"
)

type Service struct {
	users    store.Collection
	sessions *session.Store
	tokens   pkgauth.TokenService
	hasher   security.PasswordHasher
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewService(users store.Collection, sessions *session.Store, tokens pkgauth.TokenService,
	hasher security.PasswordHasher, log *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		hasher:   hasher,
		logger:   log,
		metrics:  m,
	}
}

// LoginResult carries the bearer token and the principal snapshot. The
// password hash is read for verification only and never leaves here.
type LoginResult struct {
	Token     string            `json:"token"`
	Principal session.Principal `json:"user"`
}

// Login verifies credentials and opens a session. Unknown usernames
// and wrong passwords fail identically; nothing distinguishes them to
// the caller.
func (s *Service) Login(ctx context.Context, req model.LoginRequest) (*LoginResult, error) {
	doc, err := s.users.FindOne(ctx, model.Document{"username": req.Username})
	if err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			s.observeLogin("denied")
			return nil, pkgerrors.Unauthenticated()
		}
		return nil, pkgerrors.Internal(err)
	}

	hash, _ := doc["passwordHash"].(string)
	if err := s.hasher.Compare(hash, req.Password); err != nil {
		s.observeLogin("denied")
		return nil, pkgerrors.Unauthenticated()
	}

	principal, err := principalFrom(doc)
	if err != nil {
		return nil, pkgerrors.Internal(err)
	}

	sess := s.sessions.Create(principal)
	token, err := s.tokens.Generate(sess.ID, principal.Username, principal.Role)
	if err != nil {
		s.sessions.Delete(sess.ID)
		return nil, pkgerrors.Internal(err)
	}

	s.observeLogin("success")
	if s.metrics != nil {
		s.metrics.ActiveSessions.Set(float64(s.sessions.Len()))
	}
	s.logger.Info("login", "username", principal.Username, "role", principal.Role)

	return &LoginResult{Token: token, Principal: principal}, nil
}

// Logout closes the caller's session. Idempotent: a second logout, or
// a logout without a session, still succeeds.
func (s *Service) Logout(ctx context.Context) bool {
	if sess, ok := session.FromContext(ctx); ok {
		s.sessions.Delete(sess.ID)
		if s.metrics != nil {
			s.metrics.ActiveSessions.Set(float64(s.sessions.Len()))
		}
	}
	return true
}

// CurrentUser returns the authenticated principal, or Unauthenticated
// when the context carries no live session.
func (s *Service) CurrentUser(ctx context.Context) (session.Principal, error) {
	sess, ok := session.FromContext(ctx)
	if !ok {
		return session.Principal{}, pkgerrors.Unauthenticated()
	}
	return sess.Principal, nil
}

func (s *Service) observeLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginAttempts.WithLabelValues(outcome).Inc()
	}
}

func principalFrom(doc model.Document) (session.Principal, error) {
	idStr, _ := doc[model.FieldID].(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		return session.Principal{}, fmt.Errorf("user document has invalid id %q: %w", idStr, err)
	}
	username, _ := doc["username"].(string)
	role, _ := doc["role"].(string)
	fullName, _ := doc["fullName"].(string)
	return session.Principal{ID: id, Username: username, Role: role, FullName: fullName}, nil
}
