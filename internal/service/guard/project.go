package guard

import (
	"context"

	"github.com/medrec/clinic-api/internal/authz"
	"github.com/medrec/clinic-api/internal/model"
)

// ProjectForRead filters a freshly written document through the
// caller's read permission before it crosses the boundary. Callers
// without a read grant get the id back and nothing else.
func (g *Guard) ProjectForRead(ctx context.Context, role, resource string, doc model.Document) model.Document {
	schema, ok := model.SchemaFor(resource)
	if !ok {
		return model.Document{model.FieldID: doc[model.FieldID]}
	}
	perm, err := g.Can(ctx, role, authz.ActionRead, resource)
	if err != nil || !perm.Granted {
		return model.Document{model.FieldID: doc[model.FieldID]}
	}
	return authz.Project(doc, perm.Filter, schema.ReadableFields())
}
