package user

import "context"

// Service defines the interface for account and profile operations.
type Service interface {
	Register(ctx context.Context, in RegisterRequest) (*AccountResponse, error)
	Authenticate(ctx context.Context, in AuthenticateRequest) (*AccountResponse, error)
	GetOwnProfile(ctx context.Context, callerID string) (*Profile, error)
	UpdateOwnProfile(ctx context.Context, callerID string, in UpdateProfileRequest) (*Profile, error)
	GetUserByID(ctx context.Context, id string) (*Profile, error)
}
