package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Events   EventsConfig
	Log      LogConfig
	Query    QueryConfig
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host        string
	Port        int
	MetricsPort int // Port for Prometheus metrics HTTP server
}

// Store backends
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// StoreConfig selects where entities and the relation ledger live
type StoreConfig struct {
	Backend string // memory or postgres
}

// Cache backends
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// CacheConfig represents cache configuration
type CacheConfig struct {
	Enabled        bool
	Backend        string // memory or redis
	MaxMemoryBytes int64  // Maximum memory usage in bytes (e.g., 104857600 = 100MB)
	TTLMinutes     int    // Time-to-live for cache entries in minutes
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
}

// TTL returns the entry time-to-live as a duration
func (c *CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// EventsConfig represents feed event publishing configuration
type EventsConfig struct {
	NATSEnabled   bool
	NATSURL       string
	SubjectPrefix string
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or console
}

// QueryConfig holds defaults for derived queries
type QueryConfig struct {
	PopularDefaultLimit int
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// ProjectRoot finds the project root directory by looking for go.mod
func ProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	// Walk up the directory tree until we find go.mod
	for {
		goModPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(goModPath); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found in any parent directory")
		}
		dir = parent
	}
}

// InitConfig initializes viper configuration
// env: environment name (dev, test, prod)
func InitConfig(env string) error {
	if env == "" {
		env = "dev"
	}

	projectRoot, err := ProjectRoot()
	if err != nil {
		return fmt.Errorf("failed to find project root: %w", err)
	}

	viper.SetConfigName(fmt.Sprintf(".env.%s", env))
	viper.SetConfigType("env")
	viper.AddConfigPath(projectRoot)

	// Read config file (optional, ignore error if not found)
	_ = viper.ReadInConfig()

	// Environment variables take precedence over config file
	viper.AutomaticEnv()

	setDefaults()
	return nil
}

func setDefaults() {
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", 50051)
	viper.SetDefault("METRICS_PORT", 9090)

	viper.SetDefault("STORE_BACKEND", StoreMemory)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 15432)
	viper.SetDefault("DB_USER", "filmrate")
	viper.SetDefault("DB_NAME", "filmrate_dev")
	viper.SetDefault("DB_SSLMODE", "disable")

	viper.SetDefault("CACHE_ENABLED", true)
	viper.SetDefault("CACHE_BACKEND", CacheMemory)
	viper.SetDefault("CACHE_MAX_MEMORY_BYTES", 100*1024*1024) // 100MB
	viper.SetDefault("CACHE_TTL_MINUTES", 5)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)

	viper.SetDefault("NATS_ENABLED", false)
	viper.SetDefault("NATS_URL", "nats://localhost:4222")
	viper.SetDefault("NATS_SUBJECT_PREFIX", "filmrate")

	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")

	viper.SetDefault("POPULAR_DEFAULT_LIMIT", 10)
}

// Load loads configuration from viper
func Load() (*Config, error) {
	backend := strings.ToLower(viper.GetString("STORE_BACKEND"))
	if backend == "" {
		backend = StoreMemory
	}
	if backend != StoreMemory && backend != StorePostgres {
		return nil, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreMemory, StorePostgres, backend)
	}

	// DB_PASSWORD is required for security whenever PostgreSQL is used
	dbPassword := viper.GetString("DB_PASSWORD")
	if backend == StorePostgres && dbPassword == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required (set via environment variable or .env file)")
	}

	cacheBackend := strings.ToLower(viper.GetString("CACHE_BACKEND"))
	if cacheBackend == "" {
		cacheBackend = CacheMemory
	}
	if cacheBackend != CacheMemory && cacheBackend != CacheRedis {
		return nil, fmt.Errorf("CACHE_BACKEND must be %q or %q, got %q", CacheMemory, CacheRedis, cacheBackend)
	}

	logFormat := strings.ToLower(viper.GetString("LOG_FORMAT"))
	if logFormat != "" && logFormat != "json" && logFormat != "console" {
		return nil, fmt.Errorf("LOG_FORMAT must be \"json\" or \"console\", got %q", logFormat)
	}

	popularLimit := viper.GetInt("POPULAR_DEFAULT_LIMIT")
	if popularLimit <= 0 {
		popularLimit = 10
	}

	config := &Config{
		Server: ServerConfig{
			Host:        viper.GetString("SERVER_HOST"),
			Port:        viper.GetInt("SERVER_PORT"),
			MetricsPort: viper.GetInt("METRICS_PORT"),
		},
		Store: StoreConfig{
			Backend: backend,
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetInt("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: dbPassword,
			Database: viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		Cache: CacheConfig{
			Enabled:        viper.GetBool("CACHE_ENABLED"),
			Backend:        cacheBackend,
			MaxMemoryBytes: viper.GetInt64("CACHE_MAX_MEMORY_BYTES"),
			TTLMinutes:     viper.GetInt("CACHE_TTL_MINUTES"),
			RedisAddr:      viper.GetString("REDIS_ADDR"),
			RedisPassword:  viper.GetString("REDIS_PASSWORD"),
			RedisDB:        viper.GetInt("REDIS_DB"),
		},
		Events: EventsConfig{
			NATSEnabled:   viper.GetBool("NATS_ENABLED"),
			NATSURL:       viper.GetString("NATS_URL"),
			SubjectPrefix: viper.GetString("NATS_SUBJECT_PREFIX"),
		},
		Log: LogConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: logFormat,
		},
		Query: QueryConfig{
			PopularDefaultLimit: popularLimit,
		},
	}

	return config, nil
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		c.SSLMode,
	)
}
