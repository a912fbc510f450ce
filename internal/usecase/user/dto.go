package user

import (
	"time"

	domain "user-account-service/internal/domain/user"
)

// RegisterRequest represents the request payload for registering a new user.
type RegisterRequest struct {
	DisplayName string `validate:"required,max=100"`
	Email       string `validate:"required,email,max=254"`
	Password    string
	IsActive    *bool
	Role        string `validate:"omitempty,oneof=user super-user admin"`
}

// AuthenticateRequest represents the credentials presented at login.
type AuthenticateRequest struct {
	Email    string
	Password string
}

// AccountResponse is the public projection returned by register and authenticate,
// together with the session token issued for it.
type AccountResponse struct {
	ID             string
	DisplayName    string
	Email          string
	IsActive       bool
	Role           string
	Token          string
	TokenExpiresAt time.Time
}

// UpdateProfileRequest represents the fields a caller may change on their own profile.
// Nil fields are left untouched.
type UpdateProfileRequest struct {
	DisplayName  *string `validate:"omitempty,max=100"`
	Email        *string
	DepartmentID *string
}

// Profile is a user record without its password hash.
type Profile struct {
	ID           string
	DisplayName  string
	Email        string
	DepartmentID string
	IsActive     bool
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func toProfile(u *domain.User) *Profile {
	return &Profile{
		ID:           u.ID,
		DisplayName:  u.DisplayName,
		Email:        u.Email,
		DepartmentID: u.DepartmentID,
		IsActive:     u.IsActive,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func toAccountResponse(u *domain.User, token string, expiresAt time.Time) *AccountResponse {
	return &AccountResponse{
		ID:             u.ID,
		DisplayName:    u.DisplayName,
		Email:          u.Email,
		IsActive:       u.IsActive,
		Role:           string(u.Role),
		Token:          token,
		TokenExpiresAt: expiresAt,
	}
}
