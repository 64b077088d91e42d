package authz

import (
	pkgerrors "github.com/medrec/clinic-api/pkg/errors"

	"github.com/medrec/clinic-api/internal/model"
)

// Project narrows a document to the fields the filter allows, bounded
// by the entity's own field set. The bound is the outer limit: a
// filter narrows it and can never project in a field the schema does
// not define as readable (or updatable) in the first place.
func Project(doc model.Document, filter AttributeFilter, bound map[string]struct{}) model.Document {
	if doc == nil {
		return nil
	}
	out := make(model.Document)
	for field, value := range doc {
		if _, inBound := bound[field]; !inBound {
			continue
		}
		if !filter.Allows(field) {
			continue
		}
		out[field] = value
	}
	return out
}

// ProjectAll applies Project across a result set.
func ProjectAll(docs []model.Document, filter AttributeFilter, bound map[string]struct{}) []model.Document {
	if docs == nil {
		return nil
	}
	out := make([]model.Document, len(docs))
	for i, doc := range docs {
		out[i] = Project(doc, filter, bound)
	}
	return out
}

// CheckUpdatePayload enumerates the payload's own keys against the
// permitted update set. Any key outside it fails the whole operation;
// silent truncation is not the contract.
func CheckUpdatePayload(payload model.Document, filter AttributeFilter, updatable map[string]struct{}, resource string) error {
	for field := range payload {
		if _, ok := updatable[field]; !ok {
			return pkgerrors.Unauthorized(ActionUpdate, resource+"."+field)
		}
		if !filter.Allows(field) {
			return pkgerrors.Unauthorized(ActionUpdate, resource+"."+field)
		}
	}
	return nil
}
