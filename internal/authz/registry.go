// Package authz implements the role→resource→action→attribute
// privilege model: the registry answering "can role X do action Y on
// resource Z, and on which fields", and the field projector enforcing
// the answer on documents.
package authz

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/medrec/clinic-api/internal/model"
	"github.com/medrec/clinic-api/internal/store"
	"github.com/medrec/clinic-api/pkg/logger"
	"github.com/medrec/clinic-api/pkg/messaging"
)

// Resources subject to access control.
const (
	ResourcePatient        = "patient"
	ResourceVisit          = "visit"
	ResourceMedicalHistory = "medicalHistory"
	ResourceUser           = "user"
	ResourcePrivilege      = "privilege"
	ResourceFile           = "file"
	ResourceCanvas         = "canvas"
	ResourceDB             = "db"
)

// Actions applicable to a resource.
const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// KnownResources is the closed set of domain nouns.
var KnownResources = map[string]struct{}{
	ResourcePatient:        {},
	ResourceVisit:          {},
	ResourceMedicalHistory: {},
	ResourceUser:           {},
	ResourcePrivilege:      {},
	ResourceFile:           {},
	ResourceCanvas:         {},
	ResourceDB:             {},
}

// KnownActions is the closed action set.
var KnownActions = map[string]struct{}{
	ActionCreate: {},
	ActionRead:   {},
	ActionUpdate: {},
	ActionDelete: {},
}

// CanonicalAction strips the ":any"/":own" suffix; ownership is not
// modeled, everything is ":any".
func CanonicalAction(action string) string {
	if i := strings.IndexByte(action, ':'); i >= 0 {
		return action[:i]
	}
	return action
}

// Permission is the answer to a single (role, resource, action) query.
type Permission struct {
	Granted bool
	Filter  AttributeFilter
}

// Registry is the in-memory index over all privilege records. It is
// immutable once built; staleness is bounded by the service cache TTL
// and by explicit invalidation on privilege mutation.
type Registry struct {
	perms map[string]Permission
	// roles with at least one read grant; roles outside this set are
	// refused outright, so a role with zero configured privileges can
	// never pass a check by accident.
	readRoles map[string]struct{}
	roles     map[string]struct{}
}

func permKey(role, resource, action string) string {
	return role + "|" + resource + "|" + action
}

// BuildRegistry indexes privilege documents. Duplicate records for one
// (role, resource, action) are a data-integrity fault: the first one
// wins and the duplicate is reported.
func BuildRegistry(docs []model.Document, log *logger.Logger) *Registry {
	r := &Registry{
		perms:     make(map[string]Permission, len(docs)),
		readRoles: make(map[string]struct{}),
		roles:     make(map[string]struct{}),
	}
	for _, doc := range docs {
		role, _ := doc["role"].(string)
		resource, _ := doc["resource"].(string)
		action := CanonicalAction(stringField(doc, "action"))
		if role == "" || resource == "" || action == "" {
			continue
		}

		key := permKey(role, resource, action)
		if _, exists := r.perms[key]; exists {
			if log != nil {
				log.Warn("duplicate privilege record", "role", role, "resource", resource, "action", action)
			}
			continue
		}

		r.perms[key] = Permission{
			Granted: true,
			Filter:  ParseAttributes(stringList(doc["attributes"])),
		}
		r.roles[role] = struct{}{}
		if action == ActionRead {
			r.readRoles[role] = struct{}{}
		}
	}
	return r
}

func stringField(doc model.Document, key string) string {
	s, _ := doc[key].(string)
	return s
}

func stringList(v interface{}) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, e := range list {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{list}
	default:
		return nil
	}
}

// Can resolves a permission. No record means denied, never default
// allow. Roles without the base read grant are refused for every
// action at this aggregate level.
func (r *Registry) Can(role, action, resource string) Permission {
	if _, ok := r.readRoles[role]; !ok {
		return Permission{}
	}
	p, ok := r.perms[permKey(role, resource, CanonicalAction(action))]
	if !ok {
		return Permission{}
	}
	return p
}

// RoleExists reports whether any privilege record names the role.
// User records must reference a role that exists here.
func (r *Registry) RoleExists(role string) bool {
	_, ok := r.roles[role]
	return ok
}

const (
	registryCacheKey  = "registry"
	InvalidateChannel = "privileges.invalidate"
)

// Service loads and caches the registry. Mutating flows call
// Invalidate; other processes learn about mutations over the broker.
type Service struct {
	privileges store.Collection
	cache      *gocache.Cache
	broker     messaging.Broker
	logger     *logger.Logger
}

func NewService(privileges store.Collection, cacheTTL time.Duration, broker messaging.Broker, log *logger.Logger) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &Service{
		privileges: privileges,
		cache:      gocache.New(cacheTTL, 2*cacheTTL),
		broker:     broker,
		logger:     log,
	}
}

// Registry returns the cached registry, rebuilding it from storage on
// a miss.
func (s *Service) Registry(ctx context.Context) (*Registry, error) {
	if cached, ok := s.cache.Get(registryCacheKey); ok {
		return cached.(*Registry), nil
	}

	docs, err := s.privileges.Find(ctx, model.Document{}, store.FindOptions{})
	if err != nil {
		return nil, fmt.Errorf("load privilege records: %w", err)
	}
	reg := BuildRegistry(docs, s.logger)
	s.cache.SetDefault(registryCacheKey, reg)
	return reg, nil
}

// Invalidate drops the cached registry and tells other processes to do
// the same. A failed publish degrades to TTL-bounded staleness.
func (s *Service) Invalidate(ctx context.Context) {
	s.cache.Delete(registryCacheKey)
	if s.broker == nil {
		return
	}
	msg := messaging.Message{Type: "invalidate"}
	if err := s.broker.Publish(ctx, InvalidateChannel, msg); err != nil {
		s.logger.Error(err, "failed to publish registry invalidation")
	}
}

// ListenInvalidations drops the local cache whenever another process
// announces a privilege mutation. Blocks until ctx is done.
func (s *Service) ListenInvalidations(ctx context.Context) error {
	if s.broker == nil {
		return nil
	}
	ch, err := s.broker.Subscribe(ctx, InvalidateChannel)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", InvalidateChannel, err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-ch:
			if !ok {
				return nil
			}
			s.cache.Delete(registryCacheKey)
		}
	}
}
