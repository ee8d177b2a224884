// Package config provides configuration structures and validation for the
// application. It handles environment-based configuration for all major
// components including server settings, database connections, the lock and
// counter stores, message queues, and operational parameters.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration with settings for all
// components. Each field represents a major subsystem's configuration and is
// validated during application startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	Locking     LockingConfig
	RateLimit   RateLimitConfig
	Reconciler  ReconcilerConfig
	WorkerPool  WorkerPoolConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers           string
	EventsTopic       string // Ledger entry lifecycle events
	ApprovalTopic     string // Inbound approval decisions
	NumPartitions     int
	ReplicationFactor int
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string // Topic for Dead Letter Queue
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// RedisConfig contains Redis configuration for the lock and counter stores
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
}

// LockingConfig contains distributed lock TTLs. The request TTL covers the
// balance check plus entry write; the execution TTL covers re-validation
// plus the handoff to payment execution.
type LockingConfig struct {
	RequestTTL   time.Duration
	ExecutionTTL time.Duration
}

// RateLimitConfig contains the withdrawal-path limiter settings registered
// at startup. Per-context overrides are registered in code.
type RateLimitConfig struct {
	WithdrawalLimit  int
	WithdrawalWindow time.Duration
	WithdrawalBurst  int
	Strategy         string // fixed_window, sliding_window or token_bucket
}

// ReconcilerConfig contains the stale-entry sweep configuration
type ReconcilerConfig struct {
	SweepInterval time.Duration
	BatchSize     int
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int // Maximum number of workers in the pool
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.EventsTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_EVENTS_TOPIC is required")
	}
	if c.Kafka.ApprovalTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_APPROVAL_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate Redis config
	if c.Redis.Addr == "" {
		validationErrors = append(validationErrors, "REDIS_ADDR is required")
	}
	if c.Redis.PoolSize <= 0 {
		validationErrors = append(validationErrors, "REDIS_POOL_SIZE must be greater than 0")
	}
	if c.Redis.DialTimeout <= 0 {
		validationErrors = append(validationErrors, "REDIS_DIAL_TIMEOUT must be greater than 0")
	}

	// Validate Locking config
	if c.Locking.RequestTTL <= 0 {
		validationErrors = append(validationErrors, "LOCK_REQUEST_TTL must be greater than 0")
	}
	if c.Locking.ExecutionTTL <= 0 {
		validationErrors = append(validationErrors, "LOCK_EXECUTION_TTL must be greater than 0")
	}

	// Validate RateLimit config
	if c.RateLimit.WithdrawalLimit <= 0 {
		validationErrors = append(validationErrors, "RATELIMIT_WITHDRAWAL_LIMIT must be greater than 0")
	}
	if c.RateLimit.WithdrawalWindow <= 0 {
		validationErrors = append(validationErrors, "RATELIMIT_WITHDRAWAL_WINDOW must be greater than 0")
	}
	switch c.RateLimit.Strategy {
	case "fixed_window", "sliding_window", "token_bucket":
	default:
		validationErrors = append(validationErrors, "RATELIMIT_STRATEGY must be one of fixed_window, sliding_window, token_bucket")
	}

	// Validate Reconciler config
	if c.Reconciler.SweepInterval <= 0 {
		validationErrors = append(validationErrors, "RECONCILER_SWEEP_INTERVAL must be greater than 0")
	}
	if c.Reconciler.BatchSize <= 0 {
		validationErrors = append(validationErrors, "RECONCILER_BATCH_SIZE must be greater than 0")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
