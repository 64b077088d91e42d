package model

// Well-known role names. Additional roles exist only as privilege
// records; these two have hard-coded semantics in the access layer.
const (
	RoleAdmin = "admin"
)

// UserSchema version 1. The password hash is internal: it is read from
// storage for verification and never projected to a caller.
var UserSchema = NewSchema(1, append(bookkeepingFields(),
	Field{Name: "username", Required: true, Validate: "min=3,max=50,alphanum"},
	Field{Name: "passwordHash", Required: true, Internal: true},
	Field{Name: "role", Required: true, Validate: "min=1,max=50"},
	Field{Name: "fullName", Validate: "max=100"},
))

type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,min=1,max=50"`
	FullName string `json:"fullName" validate:"max=100"`
}

// Document casts the request into storage shape; the caller supplies
// the already-computed hash, the plaintext never reaches a Document.
func (r CreateUserRequest) Document(passwordHash string) Document {
	return Document{
		"username":     r.Username,
		"passwordHash": passwordHash,
		"role":         r.Role,
		"fullName":     r.FullName,
	}
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
