package di

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-account-service/cmd/api/infrastructure"
	"user-account-service/internal/adapter/cache"
	"user-account-service/internal/adapter/db/mongodb"
	"user-account-service/internal/adapter/db/postgres"
	ginhandler "user-account-service/internal/adapter/gin/handler"
	"user-account-service/internal/adapter/gin/middleware"
	"user-account-service/internal/adapter/repository/cached"
	"user-account-service/internal/config"
	"user-account-service/internal/usecase/user"
	redisclient "user-account-service/pkg/redis"
	"user-account-service/pkg/security"
)

// Store is a user repository that can report its readiness.
type Store interface {
	user.Repository
	Ping(ctx context.Context) error
}

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	Mongo       *mongo.Client
	DB          *gorm.DB
	RedisClient *redisclient.Client
	Store       Store
	Tokens      *security.TokenIssuer
	UserUC      *user.Usecase
	GinHandler  *ginhandler.UserHandler
	Auth        *middleware.AuthMiddleware
}

// NewContainer creates and initializes all application dependencies
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Container, error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	hasher, err := security.NewPasswordHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}
	tokens, err := security.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	if err != nil {
		return nil, err
	}

	c := &Container{
		Config: cfg,
		Logger: l,
		Tokens: tokens,
	}

	store, err := c.newStore(ctx)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	if cfg.Redis.Enabled {
		rdb, err := infrastructure.NewRedisClient(ctx, cfg, l)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		c.RedisClient = rdb

		userCache := cache.NewRedisUserCache(
			rdb.Client,
			time.Duration(cfg.Redis.CacheTTL)*time.Second,
			l,
		)
		store = cached.NewCachedUserRepository(store, userCache, l)
	}
	c.Store = store

	c.UserUC = user.New(store, hasher, tokens, l)
	c.GinHandler = ginhandler.NewUserHandler(c.UserUC, ginhandler.CookieConfig{
		Secure: cfg.Auth.CookieSecure,
		MaxAge: cfg.Auth.TokenTTL(),
	}, l)
	c.Auth = middleware.NewAuthMiddleware(tokens, l)

	return c, nil
}

// newStore opens the configured backend and prepares its schema.
func (c *Container) newStore(ctx context.Context) (Store, error) {
	switch c.Config.Store.Driver {
	case config.DriverMongo:
		client, db, err := infrastructure.NewMongo(ctx, c.Config, c.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MongoDB: %w", err)
		}
		c.Mongo = client

		repo := mongodb.NewUserRepoMongo(db, c.Logger)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure indexes: %w", err)
		}
		return repo, nil

	case config.DriverPostgres, config.DriverSQLite:
		db, err := infrastructure.NewDatabase(c.Config, c.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		c.DB = db

		repo := postgres.NewUserRepoPG(db, c.Logger)
		if err := repo.Migrate(ctx); err != nil {
			return nil, err
		}
		return repo, nil

	default:
		return nil, fmt.Errorf("unsupported store driver %q", c.Config.Store.Driver)
	}
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	var errs []error

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if c.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := infrastructure.CloseMongo(ctx, c.Mongo); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("container close errors: %v", errs)
	}

	return nil
}
