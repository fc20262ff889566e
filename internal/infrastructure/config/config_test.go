package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "standard configuration",
			cfg: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "testuser",
				Password: "testpass",
				Database: "testdb",
				SSLMode:  "disable",
			},
			want: "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable",
		},
		{
			name: "production configuration",
			cfg: DatabaseConfig{
				Host:     "db.example.com",
				Port:     5433,
				User:     "produser",
				Password: "securepass123",
				Database: "proddb",
				SSLMode:  "require",
			},
			want: "host=db.example.com port=5433 user=produser password=securepass123 dbname=proddb sslmode=require",
		},
		{
			name: "IPv6 host",
			cfg: DatabaseConfig{
				Host:     "::1",
				Port:     5432,
				User:     "user",
				Password: "pass",
				Database: "db",
				SSLMode:  "disable",
			},
			want: "host=::1 port=5432 user=user password=pass dbname=db sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.ConnectionString(); got != tt.want {
				t.Errorf("DatabaseConfig.ConnectionString() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInitConfig(t *testing.T) {
	// Save original working directory
	originalWd, _ := os.Getwd()
	defer os.Chdir(originalWd)

	tests := []struct {
		name    string
		env     string
		wantErr bool
	}{
		{
			name:    "default dev environment",
			env:     "",
			wantErr: false,
		},
		{
			name:    "explicit dev environment",
			env:     "dev",
			wantErr: false,
		},
		{
			name:    "test environment",
			env:     "test",
			wantErr: false,
		},
		{
			name:    "prod environment",
			env:     "prod",
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Reset viper for each test
			viper.Reset()

			err := InitConfig(tt.env)
			if (err != nil) != tt.wantErr {
				t.Errorf("InitConfig() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			// Verify default values are set
			if !tt.wantErr {
				if viper.GetString("SERVER_HOST") != "0.0.0.0" {
					t.Errorf("InitConfig() SERVER_HOST = %v, want 0.0.0.0", viper.GetString("SERVER_HOST"))
				}
				if viper.GetInt("SERVER_PORT") != 50051 {
					t.Errorf("InitConfig() SERVER_PORT = %v, want 50051", viper.GetInt("SERVER_PORT"))
				}
				if viper.GetString("DB_HOST") != "localhost" {
					t.Errorf("InitConfig() DB_HOST = %v, want localhost", viper.GetString("DB_HOST"))
				}
				if viper.GetString("DB_USER") != "filmrate" {
					t.Errorf("InitConfig() DB_USER = %v, want filmrate", viper.GetString("DB_USER"))
				}
				if viper.GetString("STORE_BACKEND") != StoreMemory {
					t.Errorf("InitConfig() STORE_BACKEND = %v, want memory", viper.GetString("STORE_BACKEND"))
				}
				if viper.GetInt("POPULAR_DEFAULT_LIMIT") != 10 {
					t.Errorf("InitConfig() POPULAR_DEFAULT_LIMIT = %v, want 10", viper.GetInt("POPULAR_DEFAULT_LIMIT"))
				}
				if viper.GetString("DB_SSLMODE") != "disable" {
					t.Errorf("InitConfig() DB_SSLMODE = %v, want disable", viper.GetString("DB_SSLMODE"))
				}
			}
		})
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setupEnv    func()
		wantErr     bool
		wantErrMsg  string
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "memory store needs no password",
			setupEnv: func() {
				setDefaults()
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				if cfg.Store.Backend != StoreMemory {
					t.Errorf("Load() Store.Backend = %v, want memory", cfg.Store.Backend)
				}
				if cfg.Server.Port != 50051 {
					t.Errorf("Load() Server.Port = %v, want 50051", cfg.Server.Port)
				}
				if cfg.Cache.Backend != CacheMemory {
					t.Errorf("Load() Cache.Backend = %v, want memory", cfg.Cache.Backend)
				}
				if cfg.Cache.TTL() != 5*time.Minute {
					t.Errorf("Load() Cache.TTL() = %v, want 5m", cfg.Cache.TTL())
				}
				if cfg.Events.NATSEnabled {
					t.Error("Load() Events.NATSEnabled = true, want false")
				}
				if cfg.Events.SubjectPrefix != "filmrate" {
					t.Errorf("Load() Events.SubjectPrefix = %v, want filmrate", cfg.Events.SubjectPrefix)
				}
				if cfg.Log.Format != "json" {
					t.Errorf("Load() Log.Format = %v, want json", cfg.Log.Format)
				}
				if cfg.Query.PopularDefaultLimit != 10 {
					t.Errorf("Load() Query.PopularDefaultLimit = %v, want 10", cfg.Query.PopularDefaultLimit)
				}
			},
		},
		{
			name: "postgres with password",
			setupEnv: func() {
				setDefaults()
				viper.Set("STORE_BACKEND", "postgres")
				viper.Set("DB_PASSWORD", "testpassword")
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				if cfg.Store.Backend != StorePostgres {
					t.Errorf("Load() Store.Backend = %v, want postgres", cfg.Store.Backend)
				}
				if cfg.Database.Host != "localhost" {
					t.Errorf("Load() Database.Host = %v, want localhost", cfg.Database.Host)
				}
				if cfg.Database.Port != 15432 {
					t.Errorf("Load() Database.Port = %v, want 15432", cfg.Database.Port)
				}
				if cfg.Database.User != "filmrate" {
					t.Errorf("Load() Database.User = %v, want filmrate", cfg.Database.User)
				}
				if cfg.Database.Password != "testpassword" {
					t.Errorf("Load() Database.Password = %v, want testpassword", cfg.Database.Password)
				}
				if cfg.Database.Database != "filmrate_dev" {
					t.Errorf("Load() Database.Database = %v, want filmrate_dev", cfg.Database.Database)
				}
			},
		},
		{
			name: "postgres missing password",
			setupEnv: func() {
				setDefaults()
				viper.Set("STORE_BACKEND", "postgres")
			},
			wantErr:    true,
			wantErrMsg: "DB_PASSWORD is required (set via environment variable or .env file)",
		},
		{
			name: "unknown store backend",
			setupEnv: func() {
				setDefaults()
				viper.Set("STORE_BACKEND", "mysql")
			},
			wantErr:    true,
			wantErrMsg: `STORE_BACKEND must be "memory" or "postgres", got "mysql"`,
		},
		{
			name: "unknown cache backend",
			setupEnv: func() {
				setDefaults()
				viper.Set("CACHE_BACKEND", "memcached")
			},
			wantErr:    true,
			wantErrMsg: `CACHE_BACKEND must be "memory" or "redis", got "memcached"`,
		},
		{
			name: "unknown log format",
			setupEnv: func() {
				setDefaults()
				viper.Set("LOG_FORMAT", "xml")
			},
			wantErr:    true,
			wantErrMsg: `LOG_FORMAT must be "json" or "console", got "xml"`,
		},
		{
			name: "custom server, redis and nats config",
			setupEnv: func() {
				setDefaults()
				viper.Set("SERVER_HOST", "custom.host")
				viper.Set("SERVER_PORT", 8080)
				viper.Set("CACHE_BACKEND", "Redis")
				viper.Set("REDIS_ADDR", "cache:6379")
				viper.Set("NATS_ENABLED", true)
				viper.Set("NATS_URL", "nats://bus:4222")
				viper.Set("POPULAR_DEFAULT_LIMIT", 0)
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				if cfg.Server.Host != "custom.host" {
					t.Errorf("Load() Server.Host = %v, want custom.host", cfg.Server.Host)
				}
				if cfg.Server.Port != 8080 {
					t.Errorf("Load() Server.Port = %v, want 8080", cfg.Server.Port)
				}
				if cfg.Cache.Backend != CacheRedis || cfg.Cache.RedisAddr != "cache:6379" {
					t.Errorf("Load() Cache = %+v, want redis at cache:6379", cfg.Cache)
				}
				if !cfg.Events.NATSEnabled || cfg.Events.NATSURL != "nats://bus:4222" {
					t.Errorf("Load() Events = %+v, want nats at nats://bus:4222", cfg.Events)
				}
				if cfg.Query.PopularDefaultLimit != 10 {
					t.Errorf("Load() Query.PopularDefaultLimit = %v, want fallback 10", cfg.Query.PopularDefaultLimit)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			defer viper.Reset()
			tt.setupEnv()

			cfg, err := Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				if err.Error() != tt.wantErrMsg {
					t.Errorf("Load() error = %v, want %v", err.Error(), tt.wantErrMsg)
				}
				return
			}

			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestProjectRoot(t *testing.T) {
	// Save original working directory
	originalWd, _ := os.Getwd()
	defer os.Chdir(originalWd)

	// This test assumes we're running from within the project
	root, err := ProjectRoot()
	if err != nil {
		t.Errorf("ProjectRoot() error = %v, want nil", err)
		return
	}

	// Verify go.mod exists in the returned root
	goModPath := root + "/go.mod"
	if _, err := os.Stat(goModPath); os.IsNotExist(err) {
		t.Errorf("ProjectRoot() returned %v, but go.mod does not exist at %v", root, goModPath)
	}
}
