package user

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	domain "user-account-service/internal/domain/user"
	apperrors "user-account-service/pkg/errors"
	"user-account-service/pkg/logger"
)

// GetOwnProfile returns the caller's own record.
func (uc *Usecase) GetOwnProfile(ctx context.Context, callerID string) (*Profile, error) {
	return uc.getProfile(ctx, callerID)
}

// GetUserByID returns any user's record. Any authenticated caller may read any profile.
func (uc *Usecase) GetUserByID(ctx context.Context, id string) (*Profile, error) {
	return uc.getProfile(ctx, id)
}

func (uc *Usecase) getProfile(ctx context.Context, id string) (*Profile, error) {
	log := logger.WithContext(ctx, uc.log)

	if !domain.IsValidID(id) {
		log.Warn("get profile validation failed", zap.String("id", id), zap.String("reason", "invalid id"))
		return nil, apperrors.ErrInvalidUserID
	}

	u, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, uc.classifyStoreError(log, "failed to get user", id, err)
	}
	return toProfile(u), nil
}

// UpdateOwnProfile applies the allow-listed fields to the caller's record.
// An empty department id clears the reference; an empty update returns the record unchanged.
func (uc *Usecase) UpdateOwnProfile(ctx context.Context, callerID string, in UpdateProfileRequest) (*Profile, error) {
	log := logger.WithContext(ctx, uc.log)

	if !domain.IsValidID(callerID) {
		log.Warn("update profile validation failed", zap.String("id", callerID), zap.String("reason", "invalid id"))
		return nil, apperrors.ErrInvalidUserID
	}

	if in.DepartmentID != nil && *in.DepartmentID != "" && !domain.IsValidID(*in.DepartmentID) {
		log.Warn("update profile validation failed", zap.String("department_id", *in.DepartmentID), zap.String("reason", "invalid department id"))
		return nil, apperrors.ErrInvalidDepartment
	}

	upd := domain.ProfileUpdate{DepartmentID: in.DepartmentID}

	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if name == "" {
			return nil, apperrors.NewValidationError("display_name", "display name cannot be empty")
		}
		in.DisplayName = &name
		upd.DisplayName = &name
	}

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	if in.Email != nil {
		email := domain.NormalizeEmail(*in.Email)
		if err := uc.validate.Var(email, "required,email,max=254"); err != nil {
			return nil, apperrors.NewValidationError("email", "email must be a valid email")
		}

		existing, err := uc.repo.GetByEmail(ctx, email)
		if err != nil {
			log.Error("failed to check existing email", zap.String("email", email), zap.Error(err))
			return nil, apperrors.NewInternalError("failed to validate email uniqueness", err)
		}
		if existing != nil && existing.ID != callerID {
			log.Warn("email already exists", zap.String("email", email), zap.String("existing_id", existing.ID))
			return nil, apperrors.ErrUserExists
		}
		upd.Email = &email
	}

	if upd.IsEmpty() {
		return uc.getProfile(ctx, callerID)
	}

	log.Info("updating profile", zap.String("id", callerID))

	u, err := uc.repo.UpdateByID(ctx, callerID, upd)
	if err != nil {
		return nil, uc.classifyStoreError(log, "failed to update user", callerID, err)
	}
	return toProfile(u), nil
}

// classifyStoreError passes typed errors through and wraps everything else as internal.
func (uc *Usecase) classifyStoreError(log *zap.Logger, msg, id string, err error) error {
	var (
		notFound *apperrors.NotFoundError
		invalid  *apperrors.ValidationError
		conflict *apperrors.ConflictError
	)
	switch {
	case errors.As(err, &notFound):
		log.Warn("user not found", zap.String("id", id))
		return apperrors.ErrUserNotFound
	case errors.As(err, &invalid):
		return invalid
	case errors.As(err, &conflict):
		return apperrors.ErrUserExists
	default:
		log.Error(msg, zap.String("id", id), zap.Error(err))
		return apperrors.NewInternalError(msg, err)
	}
}
