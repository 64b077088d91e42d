// Package privilege implements the privilege-record repository.
// Mutations here reshape the access rules themselves, so every one of
// them invalidates the cached registry. Records of the admin role are
// immutable, full stop.
package privilege

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
	privileges store.Collection
	authz      *authz.Service
	guard      *guard.Guard
	auditor    *audit.Service
	logger     *logger.Logger
}

func NewService(privileges store.Collection, authzSvc *authz.Service, g *guard.Guard,
	auditor *audit.Service, log *logger.Logger) *Service {
	return &Service{
		privileges: privileges,
		authz:      authzSvc,
		guard:      g,
		auditor:    auditor,
		logger:     log,
	}
}

func validateTuple(resource, action string) error {
	if _, ok := authz.KnownResources[resource]; !ok {
		return pkgerrors.Validation("unknown resource: "+resource, nil)
	}
	if _, ok := authz.KnownActions[authz.CanonicalAction(action)]; !ok {
		return pkgerrors.Validation("unknown action: "+action, nil)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, req model.CreatePrivilegeRequest) (model.Document, error) {
	principal, _, err := s.guard.Require(ctx, authz.ActionCreate, authz.ResourcePrivilege)
	if err != nil {
		return nil, err
	}
	if err := s.guard.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := validateTuple(req.Resource, req.Action); err != nil {
		return nil, err
	}

	action := authz.CanonicalAction(req.Action)

	// At most one record per (role, resource, action).
	_, err = s.privileges.FindOne(ctx, model.Document{
		"role": req.Role, "resource": req.Resource, "action": action,
	})
	if err == nil {
		return nil, pkgerrors.Conflict("privilege record already exists for this role, resource and action")
	}
	if !errors.Is(err, store.ErrNoDocuments) {
		return nil, pkgerrors.Internal(err)
	}

	doc := req.Document()
	doc["action"] = action
	id := guard.StampNew(doc, model.PrivilegeSchema.Version)
	if err := s.privileges.InsertOne(ctx, doc); err != nil {
		return nil, pkgerrors.Internal(err)
	}

	s.authz.Invalidate(ctx)
	s.auditor.Log(ctx, principal, authz.ActionCreate, authz.ResourcePrivilege, id)
	return s.guard.ProjectForRead(ctx, principal.Role, authz.ResourcePrivilege, doc), nil
}

func (s *Service) Get(ctx context.Context, id string) (model.Document, error) {
	_, perm, err := s.guard.Require(ctx, authz.ActionRead, authz.ResourcePrivilege)
	if err != nil {
		return nil, err
	}

	doc, err := s.privileges.FindOne(ctx, model.Document{model.FieldID: id})
	if err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return nil, pkgerrors.NotFound(authz.ResourcePrivilege)
		}
		return nil, pkgerrors.Internal(err)
	}
	return authz.Project(doc, perm.Filter, model.PrivilegeSchema.ReadableFields()), nil
}

// List returns privilege records, optionally for one role.
func (s *Service) List(ctx context.Context, role string, opts model.ListOptions) ([]model.Document, error) {
	_, perm, err := s.guard.Require(ctx, authz.ActionRead, authz.ResourcePrivilege)
	if err != nil {
		return nil, err
	}
	opts = opts.Normalize()

	filter := model.Document{}
	if role != "" {
		filter["role"] = role
	}
	docs, err := s.privileges.Find(ctx, filter, store.FindOptions{
		SortField: model.FieldCreatedAt,
		Ascending: opts.Ascending,
		Skip:      opts.Offset,
		Limit:     opts.Limit,
	})
	if err != nil {
		return nil, pkgerrors.Internal(err)
	}
	return authz.ProjectAll(docs, perm.Filter, model.PrivilegeSchema.ReadableFields()), nil
}

// loadMutable fetches a record and refuses it when it belongs to the
// admin role. Admin privileges cannot change through this path no
// matter what the caller is allowed to do.
func (s *Service) loadMutable(ctx context.Context, id string) (model.Document, error) {
	doc, err := s.privileges.FindOne(ctx, model.Document{model.FieldID: id})
	if err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return nil, pkgerrors.NotFound(authz.ResourcePrivilege)
		}
		return nil, pkgerrors.Internal(err)
	}
	if role, _ := doc["role"].(string); role == model.RoleAdmin {
		return nil, pkgerrors.Unauthorized(authz.ActionUpdate, "admin privileges")
	}
	return doc, nil
}

func (s *Service) Update(ctx context.Context, id string, payload model.Document) (model.Document, error) {
	principal, perm, err := s.guard.Require(ctx, authz.ActionUpdate, authz.ResourcePrivilege)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadMutable(ctx, id); err != nil {
		return nil, err
	}

	set := guard.StripBookkeeping(payload)
	if err := authz.CheckUpdatePayload(set, perm.Filter, model.PrivilegeSchema.UpdatableFields(), authz.ResourcePrivilege); err != nil {
		return nil, err
	}
	if err := s.guard.ValidateUpdateValues(model.PrivilegeSchema, set); err != nil {
		return nil, err
	}
	if role, ok := set["role"].(string); ok && role == model.RoleAdmin {
		return nil, pkgerrors.Unauthorized(authz.ActionUpdate, "admin privileges")
	}
	if resource, ok := set["resource"].(string); ok {
		if err := validateTuple(resource, authz.ActionRead); err != nil {
			return nil, err
		}
	}
	if action, ok := set["action"].(string); ok {
		canonical := authz.CanonicalAction(action)
		if _, ok := authz.KnownActions[canonical]; !ok {
			return nil, pkgerrors.Validation("unknown action: "+action, nil)
		}
		set["action"] = canonical
	}

	set = guard.StampUpdate(set)
	if err := s.privileges.UpdateOne(ctx, model.Document{model.FieldID: id}, set); err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return nil, pkgerrors.NotFound(authz.ResourcePrivilege)
		}
		return nil, pkgerrors.Internal(err)
	}

	s.authz.Invalidate(ctx)
	s.auditor.Log(ctx, principal, authz.ActionUpdate, authz.ResourcePrivilege, id)

	doc, err := s.privileges.FindOne(ctx, model.Document{model.FieldID: id})
	if err != nil {
		return nil, pkgerrors.Internal(err)
	}
	return s.guard.ProjectForRead(ctx, principal.Role, authz.ResourcePrivilege, doc), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	principal, _, err := s.guard.Require(ctx, authz.ActionDelete, authz.ResourcePrivilege)
	if err != nil {
		return err
	}
	if _, err := s.loadMutable(ctx, id); err != nil {
		return err
	}

	if err := s.privileges.DeleteOne(ctx, model.Document{model.FieldID: id}); err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return pkgerrors.NotFound(authz.ResourcePrivilege)
		}
		return pkgerrors.Internal(err)
	}

	s.authz.Invalidate(ctx)
	s.auditor.Log(ctx, principal, authz.ActionDelete, authz.ResourcePrivilege, id)
	return nil
}
