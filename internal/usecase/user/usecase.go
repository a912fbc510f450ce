package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	domain "user-account-service/internal/domain/user"
	apperrors "user-account-service/pkg/errors"
)

// Repository defines the interface for user data access operations.
// It abstracts the data layer, allowing different implementations
// (e.g., MongoDB, PostgreSQL) to be used interchangeably.
type Repository interface {
	// Create inserts a new user, assigning id and timestamps.
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	// GetByID returns a NotFoundError when absent. PasswordHash may be empty
	// when served from cache; use GetByEmail for credential checks.
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByEmail returns nil, nil when no user has the email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// UpdateByID applies the provided fields and returns the updated record.
	UpdateByID(ctx context.Context, id string, upd domain.ProfileUpdate) (*domain.User, error)
}

// PasswordHasher derives and checks password hashes.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// TokenIssuer issues session tokens bound to a user id.
type TokenIssuer interface {
	Issue(userID string) (string, time.Time, error)
}

// Usecase implements account registration, authentication and profile access.
// It provides a clean separation between the transport layer and data layer.
type Usecase struct {
	repo     Repository          // Repository for data access
	hasher   PasswordHasher      // Credential hasher
	tokens   TokenIssuer         // Session token issuer
	log      *zap.Logger         // Logger for structured logging
	validate *validator.Validate // Validator for request validation

	dummyOnce sync.Once
	dummy     string
}

// New creates a new instance of Usecase.
func New(r Repository, h PasswordHasher, t TokenIssuer, log *zap.Logger) *Usecase {
	return &Usecase{
		repo:     r,
		hasher:   h,
		tokens:   t,
		log:      log,
		validate: validator.New(),
	}
}

var _ Service = (*Usecase)(nil)

// formatValidationError converts validator.ValidationErrors into a human-readable ValidationError.
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	var messages []string
	field := ""
	for _, e := range validationErrors {
		if field == "" {
			field = e.Field()
		}
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be a valid email", e.Field()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param()))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of: %s", e.Field(), e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
		}
	}
	return apperrors.NewValidationError(field, strings.Join(messages, ", "))
}

// dummyHash returns a hash to compare against when no user matches,
// so unknown emails cost the same as wrong passwords.
func (uc *Usecase) dummyHash() string {
	uc.dummyOnce.Do(func() {
		h, err := uc.hasher.Hash("not-a-real-password")
		if err != nil {
			uc.log.Warn("failed to prepare dummy hash", zap.Error(err))
			return
		}
		uc.dummy = h
	})
	return uc.dummy
}
