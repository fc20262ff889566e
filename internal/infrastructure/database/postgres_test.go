package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/asakaida/filmrate/internal/infrastructure/config"
)

func TestPostgres_Close(t *testing.T) {
	tests := []struct {
		name    string
		pg      *Postgres
		wantErr bool
	}{
		{
			name:    "nil DB",
			pg:      &Postgres{DB: nil},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pg.Close()
			if (err != nil) != tt.wantErr {
				t.Errorf("Postgres.Close() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewPostgres_InvalidConfig(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:     "invalid-host-that-does-not-exist",
		Port:     99999,
		User:     "invalid",
		Password: "invalid",
		Database: "invalid",
		SSLMode:  "disable",
	}

	pg, err := NewPostgres(context.Background(), cfg)
	if err == nil {
		if pg != nil && pg.DB != nil {
			pg.Close()
		}
		t.Error("NewPostgres() with invalid config should return error")
	}
}

func TestPostgres_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if err := config.InitConfig("test"); err != nil {
		t.Fatalf("Failed to init config: %v", err)
	}
	cfg, err := config.Load()
	if err != nil || cfg.Database.Password == "" {
		t.Skip("Integration test - requires DB_PASSWORD for a running database")
	}

	pg, err := NewPostgres(context.Background(), &cfg.Database)
	if err != nil {
		t.Skipf("Integration test - database unavailable: %v", err)
	}
	defer pg.Close()

	if err := pg.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	if err := pg.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	// Second close should also work
	if err := pg.Close(); err != nil {
		t.Errorf("Second Close() error = %v", err)
	}
}

func TestMigrationsPath(t *testing.T) {
	path, err := MigrationsPath()
	if err != nil {
		t.Fatalf("MigrationsPath() error = %v", err)
	}

	// every migration ships with an up and a down file
	for _, name := range []string{"000001_create_entities", "000002_create_relations", "000003_create_feed_events"} {
		for _, direction := range []string{"up", "down"} {
			file := filepath.Join(path, name+"."+direction+".sql")
			if _, err := os.Stat(file); err != nil {
				t.Errorf("missing migration %s: %v", file, err)
			}
		}
	}
}
