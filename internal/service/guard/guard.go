// Package guard implements the shared front half of every repository
// operation: authenticate the caller, authorize the (action, resource)
// pair, and hand back the resolved attribute filter. Entity services
// own the rest of the sequence (validate, stamp, execute, project).
package guard

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/medrec/clinic-api/internal/authz"
	"github.com/medrec/clinic-api/internal/model"
	"github.com/medrec/clinic-api/internal/session"
	pkgerrors "github.com/medrec/clinic-api/pkg/errors"
	"github.com/medrec/clinic-api/pkg/logger"
	"github.com/medrec/clinic-api/pkg/metrics"
)

type Guard struct {
	authz    *authz.Service
	logger   *logger.Logger
	metrics  *metrics.Metrics
	validate *validator.Validate
}

func New(authzSvc *authz.Service, log *logger.Logger, m *metrics.Metrics) *Guard {
	return &Guard{
		authz:    authzSvc,
		logger:   log,
		metrics:  m,
		validate: validator.New(),
	}
}

// Require runs the authenticate→authorize prefix. It returns the
// principal and the granted permission, or the failure the caller
// passes straight to the boundary.
func (g *Guard) Require(ctx context.Context, action, resource string) (session.Principal, authz.Permission, error) {
	sess, ok := session.FromContext(ctx)
	if !ok {
		return session.Principal{}, authz.Permission{}, pkgerrors.Unauthenticated()
	}

	reg, err := g.authz.Registry(ctx)
	if err != nil {
		return session.Principal{}, authz.Permission{}, pkgerrors.Internal(err)
	}

	perm := reg.Can(sess.Principal.Role, action, resource)
	if !perm.Granted {
		if g.metrics != nil {
			g.metrics.AuthzDenials.WithLabelValues(sess.Principal.Role, resource, action).Inc()
			g.metrics.Operations.WithLabelValues(resource, action, "denied").Inc()
		}
		g.logger.Debug("authorization denied",
			"role", sess.Principal.Role, "action", action, "resource", resource)
		return session.Principal{}, authz.Permission{}, pkgerrors.Unauthorized(action, resource)
	}

	if g.metrics != nil {
		g.metrics.Operations.WithLabelValues(resource, action, "granted").Inc()
	}
	return sess.Principal, perm, nil
}

// Can resolves a secondary permission for an already-authenticated
// principal, e.g. the visit side of a patient+visits join.
func (g *Guard) Can(ctx context.Context, role, action, resource string) (authz.Permission, error) {
	reg, err := g.authz.Registry(ctx)
	if err != nil {
		return authz.Permission{}, pkgerrors.Internal(err)
	}
	return reg.Can(role, action, resource), nil
}

// RoleExists consults the registry for user-create validation.
func (g *Guard) RoleExists(ctx context.Context, role string) (bool, error) {
	reg, err := g.authz.Registry(ctx)
	if err != nil {
		return false, pkgerrors.Internal(err)
	}
	return reg.RoleExists(role), nil
}

// ValidateStruct checks a request struct against its validate tags.
func (g *Guard) ValidateStruct(req interface{}) error {
	if err := g.validate.Struct(req); err != nil {
		return pkgerrors.Validation("invalid payload", err)
	}
	return nil
}

// ValidateUpdateValues checks each payload value against the schema's
// per-field constraints. Key-level authorization happens separately in
// authz.CheckUpdatePayload.
func (g *Guard) ValidateUpdateValues(schema *model.Schema, payload model.Document) error {
	for name, value := range payload {
		field, ok := schema.Field(name)
		if !ok || field.Validate == "" {
			continue
		}
		if err := g.validate.Var(value, field.Validate); err != nil {
			return pkgerrors.Validation("invalid value for field "+name, err)
		}
	}
	return nil
}
