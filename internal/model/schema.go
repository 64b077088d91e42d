package model

// Field describes one entity field. Validate carries a validator/v10
// tag applied to values arriving through the update path; create paths
// validate whole request structs instead.
type Field struct {
	Name     string
	Required bool
	Validate string

	// Internal fields (schemaVersion, password hashes) never leave the
	// process. Identity fields (_id, timestamps) are readable but owned
	// by the repository layer, never writable by callers.
	Internal bool
	Identity bool
}

// Schema is the fixed, versioned field descriptor of an entity. The
// readable and updatable sets derived here are the outer bound for
// every privilege attribute filter: a privilege can narrow them, never
// widen them.
type Schema struct {
	Version int
	fields  []Field

	readable  map[string]struct{}
	updatable map[string]struct{}
	byName    map[string]Field
}

func NewSchema(version int, fields []Field) *Schema {
	s := &Schema{
		Version:   version,
		fields:    fields,
		readable:  make(map[string]struct{}, len(fields)),
		updatable: make(map[string]struct{}, len(fields)),
		byName:    make(map[string]Field, len(fields)),
	}
	for _, f := range fields {
		s.byName[f.Name] = f
		if f.Internal {
			continue
		}
		s.readable[f.Name] = struct{}{}
		if !f.Identity {
			s.updatable[f.Name] = struct{}{}
		}
	}
	return s
}

// bookkeepingFields are shared by every entity schema.
func bookkeepingFields() []Field {
	return []Field{
		{Name: FieldID, Identity: true},
		{Name: FieldSchemaVersion, Internal: true},
		{Name: FieldCreatedAt, Identity: true},
		{Name: FieldUpdatedAt, Identity: true},
	}
}

// Fields returns all field names in declaration order.
func (s *Schema) Fields() []string {
	names := make([]string, 0, len(s.fields))
	for _, f := range s.fields {
		names = append(names, f.Name)
	}
	return names
}

// ReadableFields is every field except internal bookkeeping.
func (s *Schema) ReadableFields() map[string]struct{} {
	return s.readable
}

// UpdatableFields is the readable set minus identity fields.
func (s *Schema) UpdatableFields() map[string]struct{} {
	return s.updatable
}

// Field looks up a single field descriptor by name.
func (s *Schema) Field(name string) (Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// Schemas indexes every entity schema by its resource name.
var Schemas = map[string]*Schema{
	"patient":        PatientSchema,
	"visit":          VisitSchema,
	"medicalHistory": MedicalHistorySchema,
	"user":           UserSchema,
	"privilege":      PrivilegeSchema,
	"file":           FileSchema,
	"canvas":         CanvasSchema,
}

// SchemaFor returns the schema registered for a resource name.
func SchemaFor(resource string) (*Schema, bool) {
	s, ok := Schemas[resource]
	return s, ok
}
