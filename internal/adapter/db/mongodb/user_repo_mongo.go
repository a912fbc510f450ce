// Package mongodb implements the user store on a MongoDB document database.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"user-account-service/internal/domain/user"
	apperrors "user-account-service/pkg/errors"
)

// CollectionUsers is the collection holding user documents.
const CollectionUsers = "users"

// UserRepoMongo implements the Repository interface on a MongoDB collection.
type UserRepoMongo struct {
	db  *mongo.Database
	col *mongo.Collection
	log *zap.Logger
	now func() time.Time
}

// NewUserRepoMongo creates a new instance of UserRepoMongo.
func NewUserRepoMongo(db *mongo.Database, log *zap.Logger) *UserRepoMongo {
	return &UserRepoMongo{
		db:  db,
		col: db.Collection(CollectionUsers),
		log: log,
		now: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// userDocument is the stored shape of a user.
type userDocument struct {
	ID           bson.ObjectID  `bson:"_id"`
	DisplayName  string         `bson:"display_name"`
	Email        string         `bson:"email"`
	PasswordHash string         `bson:"password_hash"`
	DepartmentID *bson.ObjectID `bson:"department_id,omitempty"`
	IsActive     bool           `bson:"is_active"`
	Role         string         `bson:"user_role"`
	CreatedAt    time.Time      `bson:"created_at"`
	UpdatedAt    time.Time      `bson:"updated_at"`
}

func (d *userDocument) toDomain() *user.User {
	u := &user.User{
		ID:           d.ID.Hex(),
		DisplayName:  d.DisplayName,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		IsActive:     d.IsActive,
		Role:         user.Role(d.Role),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	if d.DepartmentID != nil {
		u.DepartmentID = d.DepartmentID.Hex()
	}
	return u
}

// EnsureIndexes creates the unique email index.
func (r *UserRepoMongo) EnsureIndexes(ctx context.Context) error {
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_email"),
	}
	if _, err := r.col.Indexes().CreateOne(ctx, model); err != nil {
		return fmt.Errorf("create index on %s: %w", CollectionUsers, err)
	}
	return nil
}

// Ping checks connectivity to the database.
func (r *UserRepoMongo) Ping(ctx context.Context) error {
	return r.db.Client().Ping(ctx, nil)
}

// Create inserts a new user document.
func (r *UserRepoMongo) Create(ctx context.Context, u *user.User) (*user.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}
	if u.DisplayName == "" || u.Email == "" || u.PasswordHash == "" {
		return nil, apperrors.NewValidationError("", "display name, email and password hash are required")
	}

	now := r.now()
	doc := userDocument{
		ID:           bson.NewObjectID(),
		DisplayName:  u.DisplayName,
		Email:        user.NormalizeEmail(u.Email),
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
		Role:         string(u.Role),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if u.ID != "" {
		id, err := bson.ObjectIDFromHex(u.ID)
		if err != nil {
			return nil, apperrors.ErrInvalidUserID
		}
		doc.ID = id
	}
	if u.DepartmentID != "" {
		dep, err := bson.ObjectIDFromHex(u.DepartmentID)
		if err != nil {
			return nil, apperrors.ErrInvalidDepartment
		}
		doc.DepartmentID = &dep
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			r.log.Warn("duplicate email on insert", zap.String("email", doc.Email))
			return nil, apperrors.ErrUserExists
		}
		r.log.Error("failed to create user in mongo", zap.Error(err), zap.String("email", doc.Email))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	r.log.Info("user created in mongo", zap.String("id", doc.ID.Hex()))
	return doc.toDomain(), nil
}

// GetByID retrieves a user by its ObjectID.
func (r *UserRepoMongo) GetByID(ctx context.Context, id string) (*user.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.ErrInvalidUserID
	}

	var doc userDocument
	if err := r.col.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			r.log.Debug("user not found", zap.String("id", id))
			return nil, apperrors.ErrUserNotFound
		}
		r.log.Error("failed to get user from mongo", zap.Error(err), zap.String("id", id))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return doc.toDomain(), nil
}

// GetByEmail retrieves a user by normalized email. It returns nil, nil when absent.
func (r *UserRepoMongo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	email = user.NormalizeEmail(email)

	var doc userDocument
	if err := r.col.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			r.log.Debug("user not found by email", zap.String("email", email))
			return nil, nil
		}
		r.log.Error("failed to get user by email from mongo", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return doc.toDomain(), nil
}

// UpdateByID sets the provided fields and returns the document after the update.
func (r *UserRepoMongo) UpdateByID(ctx context.Context, id string, upd user.ProfileUpdate) (*user.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.ErrInvalidUserID
	}

	set := bson.D{{Key: "updated_at", Value: r.now()}}
	unset := bson.D{}

	if upd.DisplayName != nil {
		set = append(set, bson.E{Key: "display_name", Value: *upd.DisplayName})
	}
	if upd.Email != nil {
		set = append(set, bson.E{Key: "email", Value: user.NormalizeEmail(*upd.Email)})
	}
	if upd.DepartmentID != nil {
		if *upd.DepartmentID == "" {
			unset = append(unset, bson.E{Key: "department_id", Value: ""})
		} else {
			dep, err := bson.ObjectIDFromHex(*upd.DepartmentID)
			if err != nil {
				return nil, apperrors.ErrInvalidDepartment
			}
			set = append(set, bson.E{Key: "department_id", Value: dep})
		}
	}

	update := bson.D{{Key: "$set", Value: set}}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDocument
	err = r.col.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, update, opts).Decode(&doc)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			r.log.Warn("user not found for update", zap.String("id", id))
			return nil, apperrors.ErrUserNotFound
		case mongo.IsDuplicateKeyError(err):
			r.log.Warn("duplicate email on update", zap.String("id", id))
			return nil, apperrors.ErrUserExists
		default:
			r.log.Error("failed to update user in mongo", zap.Error(err), zap.String("id", id))
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}

	r.log.Info("user updated in mongo", zap.String("id", id))
	return doc.toDomain(), nil
}
