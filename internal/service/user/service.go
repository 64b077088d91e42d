// Package user implements the privilege-checked user repository.
// Admin accounts are provisioned out of band; the create path refuses
// the admin role no matter who asks.
package user

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
	"github.com/medrec/clinic-api/pkg/security"
)

type Service struct {
	users   store.Collection
	guard   *guard.Guard
	hasher  security.PasswordHasher
	auditor *audit.Service
	logger  *logger.Logger
}

func NewService(users store.Collection, g *guard.Guard, hasher security.PasswordHasher,
	auditor *audit.Service, log *logger.Logger) *Service {
	return &Service{
		users:   users,
		guard:   g,
		hasher:  hasher,
		auditor: auditor,
		logger:  log,
	}
}

func (s *Service) Create(ctx context.Context, req model.CreateUserRequest) (model.Document, error) {
	principal, _, err := s.guard.Require(ctx, authz.ActionCreate, authz.ResourceUser)
	if err != nil {
		return nil, err
	}
	if err := s.guard.ValidateStruct(req); err != nil {
		return nil, err
	}

	if req.Role == model.RoleAdmin {
		return nil, pkgerrors.Unauthorized(authz.ActionCreate, "admin user")
	}
	exists, err := s.guard.RoleExists(ctx, req.Role)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, pkgerrors.Validation("role has no configured privileges: "+req.Role, nil)
	}

	if _, err := s.users.FindOne(ctx, model.Document{"username": req.Username}); err == nil {
		return nil, pkgerrors.Conflict("username already taken")
	} else if !errors.Is(err, store.ErrNoDocuments) {
		return nil, pkgerrors.Internal(err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Validation("password rejected", err)
	}

	doc := req.Document(hash)
	id := guard.StampNew(doc, model.UserSchema.Version)
	if err := s.users.InsertOne(ctx, doc); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, pkgerrors.Conflict("username already taken")
		}
		return nil, pkgerrors.Internal(err)
	}

	s.auditor.Log(ctx, principal, authz.ActionCreate, authz.ResourceUser, id)
	return s.guard.ProjectForRead(ctx, principal.Role, authz.ResourceUser, doc), nil
}

func (s *Service) Get(ctx context.Context, id string) (model.Document, error) {
	_, perm, err := s.guard.Require(ctx, authz.ActionRead, authz.ResourceUser)
	if err != nil {
		return nil, err
	}

	doc, err := s.users.FindOne(ctx, model.Document{model.FieldID: id})
	if err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return nil, pkgerrors.NotFound(authz.ResourceUser)
		}
		return nil, pkgerrors.Internal(err)
	}
	return authz.Project(doc, perm.Filter, model.UserSchema.ReadableFields()), nil
}

func (s *Service) List(ctx context.Context, opts model.ListOptions) ([]model.Document, error) {
	_, perm, err := s.guard.Require(ctx, authz.ActionRead, authz.ResourceUser)
	if err != nil {
		return nil, err
	}
	opts = opts.Normalize()

	docs, err := s.users.Find(ctx, model.Document{}, store.FindOptions{
		SortField: model.FieldCreatedAt,
		Ascending: opts.Ascending,
		Skip:      opts.Offset,
		Limit:     opts.Limit,
	})
	if err != nil {
		return nil, pkgerrors.Internal(err)
	}
	return authz.ProjectAll(docs, perm.Filter, model.UserSchema.ReadableFields()), nil
}

// Update applies a field-checked update. Role escalation is governed
// by the same rule as every other field: the caller's update.user
// attribute filter must allow the "role" key.
func (s *Service) Update(ctx context.Context, id string, payload model.Document) (model.Document, error) {
	principal, perm, err := s.guard.Require(ctx, authz.ActionUpdate, authz.ResourceUser)
	if err != nil {
		return nil, err
	}

	set := guard.StripBookkeeping(payload)
	if err := authz.CheckUpdatePayload(set, perm.Filter, model.UserSchema.UpdatableFields(), authz.ResourceUser); err != nil {
		return nil, err
	}
	if err := s.guard.ValidateUpdateValues(model.UserSchema, set); err != nil {
		return nil, err
	}

	if role, ok := set["role"].(string); ok {
		if role == model.RoleAdmin {
			return nil, pkgerrors.Unauthorized(authz.ActionUpdate, "role to admin")
		}
		exists, err := s.guard.RoleExists(ctx, role)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, pkgerrors.Validation("role has no configured privileges: "+role, nil)
		}
	}

	set = guard.StampUpdate(set)
	if err := s.users.UpdateOne(ctx, model.Document{model.FieldID: id}, set); err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return nil, pkgerrors.NotFound(authz.ResourceUser)
		}
		return nil, pkgerrors.Internal(err)
	}

	s.auditor.Log(ctx, principal, authz.ActionUpdate, authz.ResourceUser, id)

	doc, err := s.users.FindOne(ctx, model.Document{model.FieldID: id})
	if err != nil {
		return nil, pkgerrors.Internal(err)
	}
	return s.guard.ProjectForRead(ctx, principal.Role, authz.ResourceUser, doc), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	principal, _, err := s.guard.Require(ctx, authz.ActionDelete, authz.ResourceUser)
	if err != nil {
		return err
	}

	if err := s.users.DeleteOne(ctx, model.Document{model.FieldID: id}); err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return pkgerrors.NotFound(authz.ResourceUser)
		}
		return pkgerrors.Internal(err)
	}
	s.auditor.Log(ctx, principal, authz.ActionDelete, authz.ResourceUser, id)
	return nil
}
