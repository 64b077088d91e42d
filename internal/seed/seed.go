// Package seed bootstraps the minimum state a fresh installation
// needs: one admin account and the full-access privilege records its
// role is defined by. Seeding is idempotent; existing records win.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/medrec/clinic-api/internal/authz"
	"github.com/medrec/clinic-api/internal/model"
	"github.com/medrec/clinic-api/internal/service/guard"
	"github.com/medrec/clinic-api/internal/store"
	"github.com/medrec/clinic-api/pkg/logger"
	"github.com/medrec/clinic-api/pkg/security"
)

type Seeder struct {
	users      store.Collection
	privileges store.Collection
	hasher     security.PasswordHasher
	logger     *logger.Logger
}

func New(users, privileges store.Collection, hasher security.PasswordHasher, log *logger.Logger) *Seeder {
	return &Seeder{users: users, privileges: privileges, hasher: hasher, logger: log}
}

// Run ensures the admin account and the admin role's wildcard
// privileges exist. username/password only apply when the account is
// created; an existing admin keeps its credentials.
func (s *Seeder) Run(ctx context.Context, username, password string) error {
	if err := s.ensureAdminPrivileges(ctx); err != nil {
		return err
	}
	return s.ensureAdminUser(ctx, username, password)
}

func (s *Seeder) ensureAdminUser(ctx context.Context, username, password string) error {
	if username == "" {
		return nil
	}
	_, err := s.users.FindOne(ctx, model.Document{"username": username})
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNoDocuments) {
		return fmt.Errorf("probe admin user: %w", err)
	}
	if password == "" {
		return fmt.Errorf("bootstrap admin %q requires a password", username)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash bootstrap password: %w", err)
	}
	doc := model.CreateUserRequest{
		Username: username,
		Role:     model.RoleAdmin,
		FullName: "Administrator",
	}.Document(hash)
	guard.StampNew(doc, model.UserSchema.Version)
	if err := s.users.InsertOne(ctx, doc); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil
		}
		return fmt.Errorf("insert admin user: %w", err)
	}
	s.logger.Info("bootstrapped admin account", "username", username)
	return nil
}

// ensureAdminPrivileges grants the admin role every action on every
// resource with the wildcard attribute scope. These records are what
// the privilege service later refuses to mutate.
func (s *Seeder) ensureAdminPrivileges(ctx context.Context) error {
	for resource := range authz.KnownResources {
		for action := range authz.KnownActions {
			filter := model.Document{
				"role":     model.RoleAdmin,
				"resource": resource,
				"action":   action,
			}
			if _, err := s.privileges.FindOne(ctx, filter); err == nil {
				continue
			} else if !errors.Is(err, store.ErrNoDocuments) {
				return fmt.Errorf("probe admin privilege %s.%s: %w", resource, action, err)
			}

			doc := model.CreatePrivilegeRequest{
				Role:       model.RoleAdmin,
				Resource:   resource,
				Action:     action,
				Attributes: []string{"*"},
			}.Document()
			guard.StampNew(doc, model.PrivilegeSchema.Version)
			if err := s.privileges.InsertOne(ctx, doc); err != nil {
				return fmt.Errorf("insert admin privilege %s.%s: %w", resource, action, err)
			}
		}
	}
	return nil
}
