package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-account-service/internal/domain/user"
	apperrors "user-account-service/pkg/errors"
)

// UserRepoPG implements the Repository interface using GORM.
// It runs against PostgreSQL in deployments and SQLite for local runs and tests.
type UserRepoPG struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
	now func() time.Time
}

// NewUserRepoPG creates a new instance of UserRepoPG.
func NewUserRepoPG(db *gorm.DB, log *zap.Logger) *UserRepoPG {
	return &UserRepoPG{
		db:  db,
		log: log,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID           string    `gorm:"primaryKey;size:24"`                // Hex ObjectID assigned on create
	DisplayName  string    `gorm:"not null;size:100"`                 // Name shown to other users
	Email        string    `gorm:"not null;uniqueIndex;size:254"`     // Lowercased unique email address
	PasswordHash string    `gorm:"not null"`                          // bcrypt hash
	DepartmentID *string   `gorm:"size:24"`                           // Optional department reference
	IsActive     bool      `gorm:"not null"`                          // Gates authentication
	Role         string    `gorm:"column:user_role;not null;size:20"` // Stored but never enforced
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

func (m *UserSchema) toDomain() *user.User {
	u := &user.User{
		ID:           m.ID,
		DisplayName:  m.DisplayName,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		IsActive:     m.IsActive,
		Role:         user.Role(m.Role),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.DepartmentID != nil {
		u.DepartmentID = *m.DepartmentID
	}
	return u
}

// Migrate creates or updates the users table.
func (r *UserRepoPG) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&UserSchema{}); err != nil {
		return fmt.Errorf("migrate users table: %w", err)
	}
	return nil
}

// Ping checks connectivity to the database.
func (r *UserRepoPG) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Create inserts a new user into the database.
func (r *UserRepoPG) Create(ctx context.Context, u *user.User) (*user.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}
	if u.DisplayName == "" || u.Email == "" || u.PasswordHash == "" {
		return nil, apperrors.NewValidationError("", "display name, email and password hash are required")
	}

	id := u.ID
	if id == "" {
		id = user.NewID()
	} else if !user.IsValidID(id) {
		return nil, apperrors.ErrInvalidUserID
	}

	now := r.now()
	model := UserSchema{
		ID:           id,
		DisplayName:  u.DisplayName,
		Email:        user.NormalizeEmail(u.Email),
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
		Role:         string(u.Role),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if u.DepartmentID != "" {
		if !user.IsValidID(u.DepartmentID) {
			return nil, apperrors.ErrInvalidDepartment
		}
		dep := u.DepartmentID
		model.DepartmentID = &dep
	}

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isDuplicateKey(err) {
			r.log.Warn("duplicate email on insert", zap.String("email", model.Email))
			return nil, apperrors.ErrUserExists
		}
		r.log.Error("failed to create user in db", zap.Error(err), zap.String("email", model.Email))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	r.log.Info("user created in db", zap.String("id", model.ID))
	return model.toDomain(), nil
}

// GetByID retrieves a user from the database by their unique ID.
func (r *UserRepoPG) GetByID(ctx context.Context, id string) (*user.User, error) {
	if !user.IsValidID(id) {
		return nil, apperrors.ErrInvalidUserID
	}

	var model UserSchema
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found", zap.String("id", id))
			return nil, apperrors.ErrUserNotFound
		}
		r.log.Error("failed to get user from db", zap.Error(err), zap.String("id", id))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return model.toDomain(), nil
}

// GetByEmail retrieves a user from the database by their email address.
func (r *UserRepoPG) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	email = user.NormalizeEmail(email)

	var model UserSchema
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found by email", zap.String("email", email))
			return nil, nil
		}
		r.log.Error("failed to get user by email from db", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return model.toDomain(), nil
}

// UpdateByID writes the provided fields and returns the row after the update.
func (r *UserRepoPG) UpdateByID(ctx context.Context, id string, upd user.ProfileUpdate) (*user.User, error) {
	if !user.IsValidID(id) {
		return nil, apperrors.ErrInvalidUserID
	}

	changes := map[string]any{"updated_at": r.now()}
	if upd.DisplayName != nil {
		changes["display_name"] = *upd.DisplayName
	}
	if upd.Email != nil {
		changes["email"] = user.NormalizeEmail(*upd.Email)
	}
	if upd.DepartmentID != nil {
		switch {
		case *upd.DepartmentID == "":
			changes["department_id"] = nil
		case user.IsValidID(*upd.DepartmentID):
			changes["department_id"] = *upd.DepartmentID
		default:
			return nil, apperrors.ErrInvalidDepartment
		}
	}

	var model UserSchema
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&UserSchema{}).Where("id = ?", id).Updates(changes)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("id = ?", id).First(&model).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			r.log.Warn("user not found for update", zap.String("id", id))
			return nil, apperrors.ErrUserNotFound
		case isDuplicateKey(err):
			r.log.Warn("duplicate email on update", zap.String("id", id))
			return nil, apperrors.ErrUserExists
		default:
			r.log.Error("failed to update user in db", zap.Error(err), zap.String("id", id))
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}

	r.log.Info("user updated in db", zap.String("id", id))
	return model.toDomain(), nil
}

// isDuplicateKey reports unique constraint violations from either dialect.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}
