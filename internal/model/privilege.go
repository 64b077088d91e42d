package model

// PrivilegeSchema version 1. attributes is the persisted string form of
// the field-level scope: ["*"], a whitelist of names, or "!"-prefixed
// exclusions. At most one record exists per (role, resource, action).
var PrivilegeSchema = NewSchema(1, append(bookkeepingFields(),
	Field{Name: "role", Required: true, Validate: "min=1,max=50"},
	Field{Name: "resource", Required: true},
	Field{Name: "action", Required: true},
	Field{Name: "attributes", Required: true},
))

type CreatePrivilegeRequest struct {
	Role       string   `json:"role" validate:"required,min=1,max=50"`
	Resource   string   `json:"resource" validate:"required"`
	Action     string   `json:"action" validate:"required"`
	Attributes []string `json:"attributes" validate:"required,min=1"`
}

func (r CreatePrivilegeRequest) Document() Document {
	attrs := make([]interface{}, len(r.Attributes))
	for i, a := range r.Attributes {
		attrs[i] = a
	}
	return Document{
		"role":       r.Role,
		"resource":   r.Resource,
		"action":     r.Action,
		"attributes": attrs,
	}
}
