package user

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Role is the account role stored on a user. It is not consulted for access control.
type Role string

const (
	RoleUser      Role = "user"
	RoleSuperUser Role = "super-user"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleSuperUser, RoleAdmin:
		return true
	}
	return false
}

// User represents a user entity in the system.
type User struct {
	ID           string    // ID is the unique identifier, a hex ObjectID assigned on create
	DisplayName  string    // DisplayName is the name shown to other users
	Email        string    // Email is the unique, lowercased email address
	PasswordHash string    // PasswordHash is the bcrypt hash; never exposed
	DepartmentID string    // DepartmentID optionally references a department record
	IsActive     bool      // IsActive gates authentication
	Role         Role      // Role is stored and returned but never enforced
	CreatedAt    time.Time // CreatedAt is set by the store on create
	UpdatedAt    time.Time // UpdatedAt is set by the store on every write
}

// ProfileUpdate lists the fields a user may change on their own record.
// A nil field is left untouched.
type ProfileUpdate struct {
	DisplayName  *string
	Email        *string
	DepartmentID *string
}

// IsEmpty reports whether the update carries no fields.
func (u ProfileUpdate) IsEmpty() bool {
	return u.DisplayName == nil && u.Email == nil && u.DepartmentID == nil
}

// NewID returns a fresh identifier.
func NewID() string {
	return bson.NewObjectID().Hex()
}

// IsValidID reports whether id is a well-formed identifier.
func IsValidID(id string) bool {
	_, err := bson.ObjectIDFromHex(id)
	return err == nil
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
