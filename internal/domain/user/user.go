package user

import (
	"errors"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
)

type User struct {
	ID           string    `json:"id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password"` // never expose hash in JSON
	Role         string    `json:"role" bson:"role"`
	Items        []string  `json:"items,omitempty" bson:"items,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updated_at"`
}

// Caller is the authenticated identity a request acts as. The auth middleware
// builds it once and it is threaded into every operation as a value, never
// looked up ambiently.
type Caller struct {
	ID    string
	Email string
	Role  string
}

// Target identifies the record an operation acts on. Owner is the id of the
// user owning the record, when the record has one (users themselves do not).
type Target struct {
	ID    string
	Owner string
}

func (c Caller) Equals(t Target) bool {
	return c.ID != "" && c.ID == t.ID
}

// CanRead reports whether the caller may read the target: the caller is the
// target, owns the target, or is an admin.
func (c Caller) CanRead(t Target) bool {
	return c.Equals(t) ||
		(t.Owner != "" && t.Owner == c.ID) ||
		c.Role == RoleAdmin
}

// CanEdit mirrors CanRead. Kept separate so an edit-only tier can be added
// later without touching call sites.
func (c Caller) CanEdit(t Target) bool {
	return c.CanRead(t)
}

func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateUserRequest carries the fields a client may change. Role is not a
// field here on purpose: it can never travel through the update path.
type UpdateUserRequest struct {
	Email    *string   `json:"email"`
	Password *string   `json:"password"`
	Items    *[]string `json:"items"`
}

// ListUsersFilter restricts list queries to the two filterable fields.
type ListUsersFilter struct {
	Email *string
	Role  *string
}

// UpdateFields is the store-level shape of an update: validated values with
// the password already hashed. Nil means "leave untouched".
type UpdateFields struct {
	Email        *string
	PasswordHash *string
	Items        *[]string
}
