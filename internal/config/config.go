package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"

	apperrors "user-account-service/pkg/errors"
)

// Supported store drivers
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all configuration for the application
type Config struct {
	App    AppConfig
	Store  StoreConfig
	Mongo  MongoConfig
	DB     DatabaseConfig
	SQLite SQLiteConfig
	Auth   AuthConfig
	Redis  RedisConfig
	Logger LoggerConfig
}

// AppConfig holds configuration for the application server
type AppConfig struct {
	Env                    string `mapstructure:"APP_ENV"`
	HTTPPort               string `mapstructure:"HTTP_PORT"`
	GRPCPort               string `mapstructure:"GRPC_PORT"`
	ShutdownTimeoutSeconds int    `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS"`
	SwaggerPath            string `mapstructure:"SWAGGER_PATH"`
}

// StoreConfig selects the user store backend
type StoreConfig struct {
	Driver string `mapstructure:"STORE_DRIVER"`
}

// MongoConfig holds configuration for the MongoDB document store
type MongoConfig struct {
	URI        string `mapstructure:"MONGO_URI"`
	Host       string `mapstructure:"MONGO_HOST"`
	Username   string `mapstructure:"MONGO_USERNAME"`
	Password   string `mapstructure:"MONGO_PASSWORD"`
	Database   string `mapstructure:"MONGO_DATABASE"`
	AuthSource string `mapstructure:"MONGO_AUTH_SOURCE"`
	MaxPool    uint64 `mapstructure:"MONGO_MAX_POOL_SIZE"`
}

// DatabaseConfig holds configuration for the PostgreSQL store
type DatabaseConfig struct {
	Host            string `mapstructure:"DB_HOST"`
	Port            string `mapstructure:"DB_PORT"`
	User            string `mapstructure:"DB_USER"`
	Password        string `mapstructure:"DB_PASSWORD"`
	Name            string `mapstructure:"DB_NAME"`
	SSLMode         string `mapstructure:"DB_SSLMODE"`
	MaxOpenConns    int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime int    `mapstructure:"DB_CONN_MAX_LIFETIME_SECONDS"`
	ConnMaxIdleTime int    `mapstructure:"DB_CONN_MAX_IDLE_TIME_SECONDS"`
}

// SQLiteConfig holds configuration for the embedded SQLite store
type SQLiteConfig struct {
	Path string `mapstructure:"SQLITE_PATH"`
}

// AuthConfig holds token and password hashing settings
type AuthConfig struct {
	JWTSecret    string `mapstructure:"JWT_SECRET"`
	JWTTTLHours  int    `mapstructure:"JWT_TTL_HOURS"`
	BcryptCost   int    `mapstructure:"BCRYPT_COST"`
	CookieSecure bool   `mapstructure:"COOKIE_SECURE"`
}

// TokenTTL returns the session token lifetime
func (c AuthConfig) TokenTTL() time.Duration {
	return time.Duration(c.JWTTTLHours) * time.Hour
}

// RedisConfig holds configuration for the optional profile cache
type RedisConfig struct {
	Enabled     bool   `mapstructure:"REDIS_ENABLED"`
	Host        string `mapstructure:"REDIS_HOST"`
	Port        string `mapstructure:"REDIS_PORT"`
	Password    string `mapstructure:"REDIS_PASSWORD"`
	DB          int    `mapstructure:"REDIS_DB"`
	MaxRetries  int    `mapstructure:"REDIS_MAX_RETRIES"`
	PoolSize    int    `mapstructure:"REDIS_POOL_SIZE"`
	MinIdleConn int    `mapstructure:"REDIS_MIN_IDLE_CONN"`
	CacheTTL    int    `mapstructure:"REDIS_CACHE_TTL_SECONDS"`
}

// LoggerConfig holds configuration for the logger
type LoggerConfig struct {
	Level            string  `mapstructure:"LOG_LEVEL"`
	Format           string  `mapstructure:"LOG_FORMAT"`
	OutputPath       string  `mapstructure:"LOG_OUTPUT_PATH"`
	SlowQuerySeconds float64 `mapstructure:"LOG_SLOW_QUERY_SECONDS"`
	EnableSampling   bool    `mapstructure:"LOG_ENABLE_SAMPLING"`
	ServiceName      string  `mapstructure:"SERVICE_NAME"`
	ServiceVersion   string  `mapstructure:"SERVICE_VERSION"`
}

// LoadConfig reads configuration from app.env in path, overridden by environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("app") // Look for app.env
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if we have env vars
	}

	var config Config

	config.App.Env = v.GetString("APP_ENV")
	config.App.HTTPPort = v.GetString("HTTP_PORT")
	config.App.GRPCPort = v.GetString("GRPC_PORT")
	config.App.ShutdownTimeoutSeconds = v.GetInt("SHUTDOWN_TIMEOUT_SECONDS")
	config.App.SwaggerPath = v.GetString("SWAGGER_PATH")

	config.Store.Driver = v.GetString("STORE_DRIVER")

	config.Mongo.URI = v.GetString("MONGO_URI")
	config.Mongo.Host = v.GetString("MONGO_HOST")
	config.Mongo.Username = v.GetString("MONGO_USERNAME")
	config.Mongo.Password = v.GetString("MONGO_PASSWORD")
	config.Mongo.Database = v.GetString("MONGO_DATABASE")
	config.Mongo.AuthSource = v.GetString("MONGO_AUTH_SOURCE")
	config.Mongo.MaxPool = v.GetUint64("MONGO_MAX_POOL_SIZE")

	config.DB.Host = v.GetString("DB_HOST")
	config.DB.Port = v.GetString("DB_PORT")
	config.DB.User = v.GetString("DB_USER")
	config.DB.Password = v.GetString("DB_PASSWORD")
	config.DB.Name = v.GetString("DB_NAME")
	config.DB.SSLMode = v.GetString("DB_SSLMODE")
	config.DB.MaxOpenConns = v.GetInt("DB_MAX_OPEN_CONNS")
	config.DB.MaxIdleConns = v.GetInt("DB_MAX_IDLE_CONNS")
	config.DB.ConnMaxLifetime = v.GetInt("DB_CONN_MAX_LIFETIME_SECONDS")
	config.DB.ConnMaxIdleTime = v.GetInt("DB_CONN_MAX_IDLE_TIME_SECONDS")

	config.SQLite.Path = v.GetString("SQLITE_PATH")

	config.Auth.JWTSecret = v.GetString("JWT_SECRET")
	config.Auth.JWTTTLHours = v.GetInt("JWT_TTL_HOURS")
	config.Auth.BcryptCost = v.GetInt("BCRYPT_COST")
	config.Auth.CookieSecure = v.GetBool("COOKIE_SECURE")

	config.Redis.Enabled = v.GetBool("REDIS_ENABLED")
	config.Redis.Host = v.GetString("REDIS_HOST")
	config.Redis.Port = v.GetString("REDIS_PORT")
	config.Redis.Password = v.GetString("REDIS_PASSWORD")
	config.Redis.DB = v.GetInt("REDIS_DB")
	config.Redis.MaxRetries = v.GetInt("REDIS_MAX_RETRIES")
	config.Redis.PoolSize = v.GetInt("REDIS_POOL_SIZE")
	config.Redis.MinIdleConn = v.GetInt("REDIS_MIN_IDLE_CONN")
	config.Redis.CacheTTL = v.GetInt("REDIS_CACHE_TTL_SECONDS")

	config.Logger.Level = v.GetString("LOG_LEVEL")
	config.Logger.Format = v.GetString("LOG_FORMAT")
	config.Logger.OutputPath = v.GetString("LOG_OUTPUT_PATH")
	config.Logger.SlowQuerySeconds = v.GetFloat64("LOG_SLOW_QUERY_SECONDS")
	config.Logger.EnableSampling = v.GetBool("LOG_ENABLE_SAMPLING")
	config.Logger.ServiceName = v.GetString("SERVICE_NAME")
	config.Logger.ServiceVersion = v.GetString("SERVICE_VERSION")

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_PORT", "3001")
	v.SetDefault("GRPC_PORT", "50051")
	v.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", 10)
	v.SetDefault("SWAGGER_PATH", "./api/swagger/user.swagger.json")

	v.SetDefault("STORE_DRIVER", DriverMongo)

	v.SetDefault("MONGO_HOST", "localhost:27017")
	v.SetDefault("MONGO_DATABASE", "user_accounts")
	v.SetDefault("MONGO_AUTH_SOURCE", "admin")
	v.SetDefault("MONGO_MAX_POOL_SIZE", 100)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "user_accounts")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME_SECONDS", 300)
	v.SetDefault("DB_CONN_MAX_IDLE_TIME_SECONDS", 60)

	v.SetDefault("SQLITE_PATH", "user_accounts.db")

	v.SetDefault("JWT_TTL_HOURS", 720)
	v.SetDefault("BCRYPT_COST", 10)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_MAX_RETRIES", 3)
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_MIN_IDLE_CONN", 2)
	v.SetDefault("REDIS_CACHE_TTL_SECONDS", 300)

	// Environment-dependent defaults
	if v.GetString("APP_ENV") == "production" {
		v.SetDefault("LOG_LEVEL", "info")
		v.SetDefault("LOG_FORMAT", "json")
		v.SetDefault("LOG_ENABLE_SAMPLING", true)
		v.SetDefault("COOKIE_SECURE", true)
	} else {
		v.SetDefault("LOG_LEVEL", "debug")
		v.SetDefault("LOG_FORMAT", "console")
		v.SetDefault("LOG_ENABLE_SAMPLING", false)
		v.SetDefault("COOKIE_SECURE", false)
	}
	v.SetDefault("LOG_OUTPUT_PATH", "stdout")
	v.SetDefault("LOG_SLOW_QUERY_SECONDS", 0.2)
	v.SetDefault("SERVICE_NAME", "user-account-service")
	v.SetDefault("SERVICE_VERSION", "1.0.0")
}

// Validate checks settings that would otherwise fail at first use.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return apperrors.NewConfigError("JWT_SECRET", "must be set")
	}
	if c.Auth.JWTTTLHours <= 0 {
		return apperrors.NewConfigError("JWT_TTL_HOURS", "must be positive")
	}
	if c.App.HTTPPort == "" {
		return apperrors.NewConfigError("HTTP_PORT", "must be set")
	}
	if c.App.ShutdownTimeoutSeconds <= 0 {
		return apperrors.NewConfigError("SHUTDOWN_TIMEOUT_SECONDS", "must be positive")
	}

	switch c.Store.Driver {
	case DriverMongo:
		if c.Mongo.URI == "" && c.Mongo.Host == "" {
			return apperrors.NewConfigError("MONGO_HOST", "MONGO_URI or MONGO_HOST must be set")
		}
		if c.Mongo.Database == "" {
			return apperrors.NewConfigError("MONGO_DATABASE", "must be set")
		}
	case DriverPostgres:
		if c.DB.Host == "" || c.DB.Name == "" {
			return apperrors.NewConfigError("DB_HOST", "DB_HOST and DB_NAME must be set")
		}
	case DriverSQLite:
		if c.SQLite.Path == "" {
			return apperrors.NewConfigError("SQLITE_PATH", "must be set")
		}
	default:
		return apperrors.NewConfigError("STORE_DRIVER", fmt.Sprintf("unsupported driver %q", c.Store.Driver))
	}

	if c.Redis.Enabled && c.Redis.CacheTTL <= 0 {
		return apperrors.NewConfigError("REDIS_CACHE_TTL_SECONDS", "must be positive when the cache is enabled")
	}

	return nil
}

// ConnectionURI returns the MongoDB connection string, built from parts unless MONGO_URI is set
func (c *MongoConfig) ConnectionURI() string {
	if c.URI != "" {
		return c.URI
	}

	u := url.URL{
		Scheme: "mongodb",
		Host:   c.Host,
		Path:   "/" + c.Database,
	}
	if c.Username != "" {
		u.User = url.UserPassword(c.Username, c.Password)
		if c.AuthSource != "" {
			u.RawQuery = url.Values{"authSource": {c.AuthSource}}.Encode()
		}
	}
	return u.String()
}

// DSN returns the PostgreSQL Data Source Name
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
}
