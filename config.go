package authstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/apifest/authstore/instrumentation"
	"github.com/apifest/authstore/security"
	"github.com/apifest/authstore/storage"
	"github.com/apifest/authstore/storage/memory"
	"github.com/apifest/authstore/storage/mongo"
	"github.com/apifest/authstore/storage/postgres"
	"github.com/apifest/authstore/storage/redis"
)

// Storage backend names accepted in Config.Backend.
const (
	BackendMemory   = "memory"
	BackendMongo    = "mongo"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config selects and configures the storage backend and the optional
// security and telemetry features of the Store.
type Config struct {
	// Backend selects the storage adapter: memory, mongo, redis, postgres.
	Backend string `yaml:"backend"`

	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`

	Redis struct {
		Addr      string `yaml:"addr"`
		Password  string `yaml:"password"`
		DB        int    `yaml:"db"`
		KeyPrefix string `yaml:"key_prefix"`
	} `yaml:"redis"`

	Postgres struct {
		DSN string `yaml:"dsn"`
	} `yaml:"postgres"`

	Security struct {
		// HashedSecrets stores client secrets as bcrypt hashes.
		HashedSecrets bool `yaml:"hashed_secrets"`
		// EncryptionKey is a base64-encoded 32-byte AES key; empty
		// disables encryption at rest.
		EncryptionKey string `yaml:"encryption_key"`
		// ValidationRatePerSecond bounds secret-validation attempts
		// per clientId; 0 disables the limiter.
		ValidationRatePerSecond float64 `yaml:"validation_rate_per_second"`
		ValidationBurst         int     `yaml:"validation_burst"`
	} `yaml:"security"`

	Telemetry struct {
		Enabled        bool   `yaml:"enabled"`
		ServiceName    string `yaml:"service_name"`
		ServiceVersion string `yaml:"service_version"`
	} `yaml:"telemetry"`
}

// DefaultConfig returns a configuration backed by the in-memory
// adapter with no optional features enabled.
func DefaultConfig() Config {
	var cfg Config
	cfg.Backend = BackendMemory
	cfg.Mongo.Database = "apifest"
	cfg.Security.ValidationBurst = 10
	return cfg
}

// LoadConfig reads configuration from a YAML file and applies
// environment overrides. A missing path loads defaults plus
// environment only. Variables from a .env file in the working
// directory are loaded first when present.
func LoadConfig(path string) (Config, error) {
	// Absent .env files are fine; the system environment still applies.
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.Security.ValidationRatePerSecond > 0 && cfg.Security.ValidationBurst <= 0 {
		cfg.Security.ValidationBurst = 10
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AUTHSTORE_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("AUTHSTORE_MONGO_URI"); v != "" {
		cfg.Mongo.URI = v
	}
	if v := os.Getenv("AUTHSTORE_MONGO_DATABASE"); v != "" {
		cfg.Mongo.Database = v
	}
	if v := os.Getenv("AUTHSTORE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("AUTHSTORE_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("AUTHSTORE_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}
	if v := os.Getenv("AUTHSTORE_POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("AUTHSTORE_ENCRYPTION_KEY"); v != "" {
		cfg.Security.EncryptionKey = v
	}
}

// Open constructs the storage adapter selected by cfg and wraps it in
// a Store with the configured security and telemetry options. The
// returned Store owns the adapter: Close releases the backend
// connection.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	adapter, err := openAdapter(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	opts, err := storeOptions(cfg, logger)
	if err != nil {
		_ = adapter.Close(ctx)
		return nil, err
	}

	return New(adapter, logger, opts...), nil
}

func openAdapter(ctx context.Context, cfg Config, logger *slog.Logger) (storage.Adapter, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return memory.New(), nil
	case BackendMongo:
		return mongo.New(ctx, mongo.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			Logger:   logger,
		})
	case BackendRedis:
		return redis.New(ctx, redis.Config{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			Logger:    logger,
		})
	case BackendPostgres:
		return postgres.New(ctx, postgres.Config{
			DSN:    cfg.Postgres.DSN,
			Logger: logger,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func storeOptions(cfg Config, logger *slog.Logger) ([]Option, error) {
	var opts []Option

	if cfg.Security.HashedSecrets {
		opts = append(opts, WithHashedSecrets())
	}

	if cfg.Security.EncryptionKey != "" {
		key, err := security.KeyFromBase64(cfg.Security.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("invalid encryption key: %w", err)
		}
		enc, err := security.NewEncryptor(key)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithEncryptor(enc))
	}

	if cfg.Security.ValidationRatePerSecond > 0 {
		opts = append(opts, WithValidationLimiter(security.NewRateLimiter(
			cfg.Security.ValidationRatePerSecond,
			cfg.Security.ValidationBurst,
			logger,
		)))
	}

	if cfg.Telemetry.Enabled {
		inst, err := instrumentation.New(instrumentation.Config{
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: cfg.Telemetry.ServiceVersion,
			Enabled:        true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		opts = append(opts, WithInstrumentation(inst))
	}

	return opts, nil
}
