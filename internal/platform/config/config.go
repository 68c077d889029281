// Package config loads runtime configuration from an optional provenant.yaml
// and PROVENANT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverS3       = "s3"
)

// Finalize gate modes.
const (
	GateConsensus = "consensus"
	GateLab       = "lab"
	GateBoth      = "both"
	GateNone      = "none"
)

// Config is the full process configuration.
type Config struct {
	Server    Server
	Auth      Auth
	Storage   Storage
	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Blob      BlobConfig
	Policy    Policy
	RateLimit RateLimit
	Log       Log
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// Auth configures bearer token validation and the registry admin identity.
type Auth struct {
	JWTSigningKey string
	Issuer        string
	Audience      string
	AdminIdentity string
}

// Storage selects the record store and identity ledger drivers.
type Storage struct {
	Driver         string
	IdentityDriver string
}

// PostgresConfig holds the database connection settings.
type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	KeyPrefix    string
}

// KafkaConfig configures the notification relay. Relay is disabled when
// Brokers is empty.
type KafkaConfig struct {
	Brokers       []string
	Topic         string
	Partitions    int32
	Replication   int16
	RelayInterval time.Duration
	RelayBatch    int
}

// BlobConfig configures the off-chain package store.
type BlobConfig struct {
	Driver    string
	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool
	MaxBytes  int64
}

// Policy holds the registry's deployment policy knobs.
type Policy struct {
	RequiredValidations         int
	FinalizeGate                string
	BlockMaterialsAfterFinalize bool
}

// RateLimit budgets API requests per caller. Driver redis shares windows
// across instances and needs redis.url.
type RateLimit struct {
	Enabled        bool
	Driver         string
	Window         time.Duration
	ReadRequests   int
	WriteRequests  int
	UploadRequests int
}

// Log configures the process logger.
type Log struct {
	Level  string
	Format string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.readtimeout", 15*time.Second)
	v.SetDefault("server.writetimeout", 15*time.Second)
	v.SetDefault("server.shutdowntimeout", 10*time.Second)
	v.SetDefault("server.allowedorigins", []string{"*"})

	v.SetDefault("auth.jwtsigningkey", "dev-secret-key-change-in-production")
	v.SetDefault("auth.issuer", "provenant")
	v.SetDefault("auth.audience", "provenant-api")
	v.SetDefault("auth.adminidentity", "")

	v.SetDefault("storage.driver", DriverMemory)
	v.SetDefault("storage.identitydriver", "")

	v.SetDefault("postgres.url", "")
	v.SetDefault("postgres.maxopenconns", 20)
	v.SetDefault("postgres.maxidleconns", 5)
	v.SetDefault("postgres.connmaxlifetime", 30*time.Minute)
	v.SetDefault("postgres.automigrate", true)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.poolsize", 10)
	v.SetDefault("redis.minidleconns", 2)
	v.SetDefault("redis.dialtimeout", 5*time.Second)
	v.SetDefault("redis.readtimeout", 3*time.Second)
	v.SetDefault("redis.writetimeout", 3*time.Second)
	v.SetDefault("redis.keyprefix", "provenant")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "provenant.notifications")
	v.SetDefault("kafka.partitions", 3)
	v.SetDefault("kafka.replication", 1)
	v.SetDefault("kafka.relayinterval", time.Second)
	v.SetDefault("kafka.relaybatch", 100)

	v.SetDefault("blob.driver", DriverMemory)
	v.SetDefault("blob.bucket", "")
	v.SetDefault("blob.region", "us-east-1")
	v.SetDefault("blob.endpoint", "")
	v.SetDefault("blob.pathstyle", false)
	v.SetDefault("blob.maxbytes", 16<<20)

	v.SetDefault("policy.requiredvalidations", 3)
	v.SetDefault("policy.finalizegate", GateConsensus)
	v.SetDefault("policy.blockmaterialsafterfinalize", false)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.driver", DriverMemory)
	v.SetDefault("ratelimit.window", time.Minute)
	v.SetDefault("ratelimit.readrequests", 600)
	v.SetDefault("ratelimit.writerequests", 120)
	v.SetDefault("ratelimit.uploadrequests", 30)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads configuration. paths are searched for provenant.yaml; a missing
// file is not an error.
func Load(paths ...string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("provenant")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix("PROVENANT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	// Env overrides for slices arrive as one comma separated string.
	cfg.Kafka.Brokers = splitList(v.GetStringSlice("kafka.brokers"))
	cfg.Server.AllowedOrigins = splitList(v.GetStringSlice("server.allowedorigins"))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field consistency.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Postgres.URL == "" {
			return errors.New("postgres.url is required for the postgres storage driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.IdentityDriver() {
	case DriverMemory, DriverPostgres:
	case DriverRedis:
		if c.Redis.URL == "" {
			return errors.New("redis.url is required for the redis identity driver")
		}
	default:
		return fmt.Errorf("unknown identity driver %q", c.Storage.IdentityDriver)
	}
	switch c.Blob.Driver {
	case DriverMemory:
	case DriverS3:
		if c.Blob.Bucket == "" {
			return errors.New("blob.bucket is required for the s3 blob driver")
		}
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	switch c.Policy.FinalizeGate {
	case GateConsensus, GateLab, GateBoth, GateNone:
	default:
		return fmt.Errorf("unknown finalize gate %q", c.Policy.FinalizeGate)
	}
	if c.Policy.RequiredValidations < 1 {
		return errors.New("policy.requiredvalidations must be at least 1")
	}
	if c.RateLimit.Enabled {
		switch c.RateLimit.Driver {
		case DriverMemory:
		case DriverRedis:
			if c.Redis.URL == "" {
				return errors.New("redis.url is required for the redis rate limit driver")
			}
		default:
			return fmt.Errorf("unknown rate limit driver %q", c.RateLimit.Driver)
		}
		if c.RateLimit.Window <= 0 {
			return errors.New("ratelimit.window must be positive")
		}
	}
	return nil
}

// IdentityDriver returns the identity ledger driver, defaulting to the record
// store driver.
func (c Config) IdentityDriver() string {
	if c.Storage.IdentityDriver != "" {
		return c.Storage.IdentityDriver
	}
	return c.Storage.Driver
}

// RelayEnabled reports whether notifications are relayed to Kafka.
func (c Config) RelayEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
