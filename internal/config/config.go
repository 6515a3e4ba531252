package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverGorm     = "gorm"
	DriverSQLite   = "sqlite"

	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	Port            string        `mapstructure:"PORT"`
	Env             string        `mapstructure:"ENV"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	DatastoreDriver string        `mapstructure:"DATASTORE_DRIVER"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	SQLitePath      string        `mapstructure:"SQLITE_PATH"`
	DBMaxConns      int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32         `mapstructure:"DB_MIN_CONNS"`
	CacheBackend    string        `mapstructure:"CACHE_BACKEND"`
	RedisURL        string        `mapstructure:"REDIS_URL"`
	PatientCacheTTL time.Duration `mapstructure:"PATIENT_CACHE_TTL"`
	LookupsFile     string        `mapstructure:"LOOKUPS_FILE"`
	KafkaBrokers    []string      `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic      string        `mapstructure:"KAFKA_TOPIC"`
	KafkaGroupID    string        `mapstructure:"KAFKA_GROUP_ID"`
	AuthSigningKey  string        `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer      string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience    string        `mapstructure:"AUTH_AUDIENCE"`
	CORSOrigins     []string      `mapstructure:"CORS_ORIGINS"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"DATASTORE_DRIVER", "DATABASE_URL", "SQLITE_PATH", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"CACHE_BACKEND", "REDIS_URL", "PATIENT_CACHE_TTL", "LOOKUPS_FILE",
	"KAFKA_BROKERS", "KAFKA_TOPIC", "KAFKA_GROUP_ID",
	"AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_AUDIENCE",
	"CORS_ORIGINS",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATASTORE_DRIVER", DriverPostgres)
	v.SetDefault("SQLITE_PATH", "dashboard.db")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CACHE_BACKEND", CacheMemory)
	v.SetDefault("PATIENT_CACHE_TTL", "5m")
	v.SetDefault("KAFKA_TOPIC", "patient.changed")
	v.SetDefault("KAFKA_GROUP_ID", "dashboard")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(cfg.CORSOrigins, v.GetString("CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers, v.GetString("KAFKA_BROKERS"))
	cfg.DatastoreDriver = strings.ToLower(strings.TrimSpace(cfg.DatastoreDriver))
	cfg.CacheBackend = strings.ToLower(strings.TrimSpace(cfg.CacheBackend))

	if cfg.DatabaseURL == "" && cfg.DatastoreDriver != DriverSQLite {
		return nil, fmt.Errorf("DATABASE_URL is required for DATASTORE_DRIVER=%s", cfg.DatastoreDriver)
	}

	return cfg, nil
}

// splitList normalizes comma-separated list settings, whichever way viper
// decoded them.
func splitList(decoded []string, raw string) []string {
	if len(decoded) == 0 && raw != "" {
		decoded = strings.Split(raw, ",")
	}
	var out []string
	for _, d := range decoded {
		for _, s := range strings.Split(d, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// KafkaEnabled reports whether cache invalidation events should be consumed.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaTopic != ""
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	switch c.DatastoreDriver {
	case DriverPostgres, DriverGorm, DriverSQLite:
	default:
		return fmt.Errorf("DATASTORE_DRIVER must be %q, %q or %q, got %q",
			DriverPostgres, DriverGorm, DriverSQLite, c.DatastoreDriver)
	}
	if c.DatastoreDriver == DriverSQLite && c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required when DATASTORE_DRIVER is %q", DriverSQLite)
	}

	switch c.CacheBackend {
	case CacheMemory:
	case CacheRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when CACHE_BACKEND is %q", CacheRedis)
		}
	default:
		return fmt.Errorf("CACHE_BACKEND must be %q or %q, got %q", CacheMemory, CacheRedis, c.CacheBackend)
	}

	if c.PatientCacheTTL <= 0 {
		return fmt.Errorf("PATIENT_CACHE_TTL must be positive, got %s", c.PatientCacheTTL)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}

	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf(
			"AUTH_SIGNING_KEY must be set outside development (current ENV=%q). "+
				"Refusing to start without authentication configuration", c.Env)
	}
	return nil
}
