package model

// Document is the wire/storage shape of every entity: a flat map of
// canonical field names to values. Typed structs exist for validated
// input; everything that crosses the storage or projection boundary is
// a Document.
type Document = map[string]interface{}

// Canonical bookkeeping field names, shared by every entity. The
// repository layer owns these; caller-supplied values are discarded.
const (
	FieldID            = "_id"
	FieldSchemaVersion = "schemaVersion"
	FieldCreatedAt     = "createdAt"
	FieldUpdatedAt     = "updatedAt"
)

// ListOptions represents paging and ordering for list operations.
// CreatedAt-descending is the default order.
type ListOptions struct {
	Offset    int  `json:"offset" form:"offset"`
	Limit     int  `json:"limit" form:"limit"`
	Ascending bool `json:"ascending" form:"ascending"`
}

const DefaultListLimit = 50

// Normalize clamps paging values into a usable range.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 || o.Limit > 500 {
		o.Limit = DefaultListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}
