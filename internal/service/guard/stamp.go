package guard

import (
	"time"

	"github.com/google/uuid"

	"github.com/medrec/clinic-api/internal/model"
)

// StampNew assigns identity and bookkeeping fields on a fresh
// document: id, schema version, unix-second timestamps. Returns the id.
func StampNew(doc model.Document, schemaVersion int) string {
	id := uuid.NewString()
	now := time.Now().Unix()
	doc[model.FieldID] = id
	doc[model.FieldSchemaVersion] = schemaVersion
	doc[model.FieldCreatedAt] = now
	doc[model.FieldUpdatedAt] = now
	return id
}

// StripBookkeeping removes repository-owned fields from a caller
// payload. They are ignored, never trusted; the layer re-stamps
// updatedAt itself.
func StripBookkeeping(payload model.Document) model.Document {
	out := make(model.Document, len(payload))
	for k, v := range payload {
		switch k {
		case model.FieldID, model.FieldSchemaVersion, model.FieldCreatedAt, model.FieldUpdatedAt:
			continue
		}
		out[k] = v
	}
	return out
}

// StampUpdate refreshes updatedAt on an update set.
func StampUpdate(set model.Document) model.Document {
	set[model.FieldUpdatedAt] = time.Now().Unix()
	return set
}
