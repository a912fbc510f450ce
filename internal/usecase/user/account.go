package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	domain "user-account-service/internal/domain/user"
	apperrors "user-account-service/pkg/errors"
	"user-account-service/pkg/logger"
	"user-account-service/pkg/metrics"
)

// bcrypt ignores everything past 72 bytes.
const maxPasswordBytes = 72

// Register creates a new account and issues a session token for it.
// The email is the only uniqueness key; a taken email is reported as a conflict.
// Accounts registered inactive get no token.
func (uc *Usecase) Register(ctx context.Context, in RegisterRequest) (*AccountResponse, error) {
	log := logger.WithContext(ctx, uc.log)

	if in.Password == "" {
		log.Warn("register rejected", zap.String("reason", "password missing"))
		metrics.Registrations.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, apperrors.ErrPasswordRequired
	}
	if len(in.Password) > maxPasswordBytes {
		metrics.Registrations.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, apperrors.NewValidationError("password", fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}

	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.Email = domain.NormalizeEmail(in.Email)

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		metrics.Registrations.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, formatValidationError(err)
	}

	log.Info("registering user", zap.String("email", in.Email))

	existing, err := uc.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		log.Error("failed to check existing email", zap.String("email", in.Email), zap.Error(err))
		metrics.Registrations.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, apperrors.NewInternalError("failed to validate email uniqueness", err)
	}
	if existing != nil {
		log.Warn("email already exists", zap.String("email", in.Email))
		metrics.Registrations.WithLabelValues(metrics.OutcomeConflict).Inc()
		return nil, apperrors.ErrUserExists
	}

	hash, err := uc.hasher.Hash(in.Password)
	if err != nil {
		log.Error("failed to hash password", zap.Error(err))
		metrics.Registrations.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}
	role := domain.RoleUser
	if in.Role != "" {
		role = domain.Role(in.Role)
	}

	created, err := uc.repo.Create(ctx, &domain.User{
		DisplayName:  in.DisplayName,
		Email:        in.Email,
		PasswordHash: hash,
		IsActive:     isActive,
		Role:         role,
	})
	if err != nil {
		var conflict *apperrors.ConflictError
		var invalid *apperrors.ValidationError
		switch {
		case errors.As(err, &conflict):
			log.Warn("email already exists", zap.String("email", in.Email))
			metrics.Registrations.WithLabelValues(metrics.OutcomeConflict).Inc()
			return nil, apperrors.ErrUserExists
		case errors.As(err, &invalid):
			log.Warn("store rejected user data", zap.Error(err))
			metrics.Registrations.WithLabelValues(metrics.OutcomeInvalid).Inc()
			return nil, apperrors.ErrInvalidUserData
		default:
			log.Error("failed to create user", zap.Error(err))
			metrics.Registrations.WithLabelValues(metrics.OutcomeError).Inc()
			return nil, apperrors.NewInternalError("failed to create user", err)
		}
	}

	// Inactive accounts cannot sign in, so they get no session either.
	if !created.IsActive {
		log.Info("user registered inactive", zap.String("user_id", created.ID))
		metrics.Registrations.WithLabelValues(metrics.OutcomeSuccess).Inc()
		return toAccountResponse(created, "", time.Time{}), nil
	}

	token, expiresAt, err := uc.tokens.Issue(created.ID)
	if err != nil {
		log.Error("failed to issue token", zap.String("user_id", created.ID), zap.Error(err))
		metrics.Registrations.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, apperrors.NewInternalError("failed to issue session token", err)
	}

	log.Info("user registered", zap.String("user_id", created.ID))
	metrics.Registrations.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return toAccountResponse(created, token, expiresAt), nil
}

// Authenticate checks credentials and issues a session token.
// Unknown email, inactive account and wrong password all yield the same AuthError.
func (uc *Usecase) Authenticate(ctx context.Context, in AuthenticateRequest) (*AccountResponse, error) {
	log := logger.WithContext(ctx, uc.log)
	email := domain.NormalizeEmail(in.Email)

	if email == "" || in.Password == "" {
		metrics.Authentications.WithLabelValues(metrics.OutcomeFailure).Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	u, err := uc.repo.GetByEmail(ctx, email)
	if err != nil {
		log.Error("failed to look up user by email", zap.String("email", email), zap.Error(err))
		metrics.Authentications.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, apperrors.NewInternalError("failed to authenticate", err)
	}

	if u == nil {
		uc.hasher.Verify(in.Password, uc.dummyHash())
		log.Warn("authentication failed", zap.String("email", email), zap.String("reason", "unknown email"))
		metrics.Authentications.WithLabelValues(metrics.OutcomeFailure).Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	passwordOK := uc.hasher.Verify(in.Password, u.PasswordHash)
	if !u.IsActive || !passwordOK {
		reason := "wrong password"
		if !u.IsActive {
			reason = "inactive account"
		}
		log.Warn("authentication failed", zap.String("user_id", u.ID), zap.String("reason", reason))
		metrics.Authentications.WithLabelValues(metrics.OutcomeFailure).Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	token, expiresAt, err := uc.tokens.Issue(u.ID)
	if err != nil {
		log.Error("failed to issue token", zap.String("user_id", u.ID), zap.Error(err))
		metrics.Authentications.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, apperrors.NewInternalError("failed to issue session token", err)
	}

	log.Info("user authenticated", zap.String("user_id", u.ID))
	metrics.Authentications.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return toAccountResponse(u, token, expiresAt), nil
}
