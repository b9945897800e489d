package common

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joseph-ayodele/sheetload/constants"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Redis    RedisConfig
	Pool     PoolConfig
	Logging  LoggingConfig
	Jobs     JobsConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
}

// RedisConfig holds the cache connection settings.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// PoolConfig shapes the process-wide worker pool.
type PoolConfig struct {
	CoreWorkers int
	MaxWorkers  int
	QueueSize   int
	KeepAlive   time.Duration
}

// LoggingConfig controls the log fan-out.
type LoggingConfig struct {
	File  string
	Level slog.Level
}

// JobsConfig points at the job profile definitions.
type JobsConfig struct {
	ProfilesPath string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
		},
		Redis: RedisConfig{
			Addr:        getEnv("REDIS_ADDR", "localhost:6379"),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getEnvAsInt("REDIS_DB", 0),
			DialTimeout: getEnvAsDuration("REDIS_DIAL_TIMEOUT", 3*time.Second),
		},
		Pool: PoolConfig{
			CoreWorkers: getEnvAsInt("POOL_CORE_WORKERS", constants.DefaultPoolCoreWorkers),
			MaxWorkers:  getEnvAsInt("POOL_MAX_WORKERS", constants.DefaultPoolMaxWorkers),
			QueueSize:   getEnvAsInt("POOL_QUEUE_SIZE", constants.DefaultPoolQueueSize),
			KeepAlive:   getEnvAsDuration("POOL_KEEP_ALIVE", constants.DefaultPoolKeepAlive),
		},
		Logging: LoggingConfig{
			File:  getEnv("LOG_FILE", "/tmp/sheetload.log"),
			Level: ParseLogLevel(getEnv("LOG_LEVEL", "INFO")),
		},
		Jobs: JobsConfig{
			ProfilesPath: getEnv("JOB_PROFILES", ""),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Redis.Addr == "" {
		return NewAppError(CodeConfig, "REDIS_ADDR is required", ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" {
		return NewAppError(CodeConfig, "GRPC_ADDR is required", ErrInvalidInput)
	}
	if c.Pool.CoreWorkers < 1 {
		return NewAppError(CodeConfig, "POOL_CORE_WORKERS must be at least 1", ErrInvalidInput)
	}
	if c.Pool.MaxWorkers < c.Pool.CoreWorkers {
		return NewAppError(CodeConfig, "POOL_MAX_WORKERS must not be below POOL_CORE_WORKERS", ErrInvalidInput)
	}
	if c.Pool.QueueSize < 1 {
		return NewAppError(CodeConfig, "POOL_QUEUE_SIZE must be at least 1", ErrInvalidInput)
	}
	return nil
}
