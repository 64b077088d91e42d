// Package audit appends a trail entry for every mutating repository
// operation. Audit failures never fail the business operation.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medrec/clinic-api/internal/model"
	"github.com/medrec/clinic-api/internal/session"
	"github.com/medrec/clinic-api/internal/store"
	"github.com/medrec/clinic-api/pkg/logger"
)

type Service struct {
	coll   store.Collection
	logger *logger.Logger
}

func NewService(coll store.Collection, log *logger.Logger) *Service {
	return &Service{coll: coll, logger: log}
}

func (s *Service) Log(ctx context.Context, actor session.Principal, action, resource, entityID string) {
	entry := model.Document{
		model.FieldID: uuid.NewString(),
		"actorId":     actor.ID.String(),
		"actor":       actor.Username,
		"role":        actor.Role,
		"action":      action,
		"resource":    resource,
		"entityId":    entityID,
		"at":          time.Now().Unix(),
	}
	if err := s.coll.InsertOne(ctx, entry); err != nil {
		s.logger.Error(err, "failed to write audit entry",
			"action", action, "resource", resource, "entityId", entityID)
	}
}
