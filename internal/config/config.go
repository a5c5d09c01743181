package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers accepted by database.driver.
const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	S3        S3Config        `mapstructure:"s3"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Workout   WorkoutConfig   `mapstructure:"workout"`
	Store     StoreConfig     `mapstructure:"store"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Log       LogConfig       `mapstructure:"log"`
	CORS      CORSConfig      `mapstructure:"cors"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // mongo or memory
	URI    string `mapstructure:"uri"`
	Name   string `mapstructure:"name"`
}

// S3Config configures the archive export bucket. Export is off unless Enabled is set.
type S3Config struct {
	Enabled         bool          `mapstructure:"enabled"`
	Endpoint        string        `mapstructure:"endpoint"`
	Region          string        `mapstructure:"region"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	BucketName      string        `mapstructure:"bucket_name"`
	Prefix          string        `mapstructure:"prefix"`
	URLExpiry       time.Duration `mapstructure:"url_expiry"`
}

// JWTConfig holds the shared secret of the identity provider's HS256 tokens.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type WorkoutConfig struct {
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

type StoreConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"`
}

// AnalyticsConfig points at the downstream consumer notified on completion. Empty Endpoint
// disables the notifier.
type AnalyticsConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	SigningSecret string        `mapstructure:"signing_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ApplyDefaults configures defaults and env bindings on v.
// Nested keys map to env vars with dots replaced, e.g. server.address -> SERVER_ADDRESS.
func ApplyDefaults(v *viper.Viper) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	v.SetDefault("server.address", ":8080")
	v.SetDefault("database.driver", DriverMongo)
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "workout_engine")
	v.SetDefault("workout.stale_after", "6h")
	v.SetDefault("store.max_attempts", 5)
	v.SetDefault("s3.enabled", false)
	v.SetDefault("s3.prefix", "archives/")
	v.SetDefault("s3.url_expiry", "15m")
	v.SetDefault("analytics.token_ttl", "10m")
	v.SetDefault("analytics.timeout", "5s")
	v.SetDefault("log.level", "info")
	v.SetDefault("cors.allowed_origins", []string{"*"})

	// AutomaticEnv only resolves keys viper already knows about; these have no default.
	for _, key := range []string{"jwt.secret", "s3.endpoint", "s3.region", "s3.access_key_id",
		"s3.secret_access_key", "s3.bucket_name", "analytics.endpoint", "analytics.signing_secret"} {
		_ = v.BindEnv(key)
	}
}

// NewViper returns a viper instance with defaults applied.
func NewViper() *viper.Viper {
	v := viper.New()
	ApplyDefaults(v)
	return v
}

// ReadFile reads config.yaml from path. A missing file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return err
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads configuration from a config file in path and the environment.
func LoadConfig(path string) (Config, error) {
	v := NewViper()
	if err := ReadFile(v, path); err != nil {
		return Config{}, err
	}
	return Load(v)
}

func (c Config) validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("jwt.secret is required")
	}
	switch c.Database.Driver {
	case DriverMongo:
		if c.Database.URI == "" || c.Database.Name == "" {
			return errors.New("database.uri and database.name are required for the mongo driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	if c.Store.MaxAttempts < 1 {
		return errors.New("store.max_attempts must be at least 1")
	}
	if c.S3.Enabled && c.S3.BucketName == "" {
		return errors.New("s3.bucket_name is required when s3.enabled is set")
	}
	if c.Analytics.Endpoint != "" && c.Analytics.SigningSecret == "" {
		return errors.New("analytics.signing_secret is required when analytics.endpoint is set")
	}
	return nil
}
