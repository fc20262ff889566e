package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/asakaida/filmrate/internal/infrastructure/config"
	"github.com/asakaida/filmrate/internal/infrastructure/database"
	_ "github.com/lib/pq"
)

// SetupTestDB connects to the test database and runs migrations.
// The test is skipped when no database is configured or reachable.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL test in short mode")
	}

	if err := config.InitConfig("test"); err != nil {
		t.Fatalf("Failed to init config: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.Password == "" {
		t.Skip("DB_PASSWORD not set, skipping PostgreSQL test")
	}

	pg, err := database.NewPostgres(context.Background(), &cfg.Database)
	if err != nil {
		t.Skipf("PostgreSQL unavailable: %v", err)
	}

	migrationsPath, err := database.MigrationsPath()
	if err != nil {
		t.Fatalf("Failed to locate migrations: %v", err)
	}
	if err := pg.RunMigrations(migrationsPath); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	truncate(t, pg.DB)
	return pg.DB
}

// CleanupTestDB removes test data and closes the connection
func CleanupTestDB(t *testing.T, db *sql.DB) {
	t.Helper()

	truncate(t, db)
	if err := db.Close(); err != nil {
		t.Logf("Warning: Failed to close database: %v", err)
	}
}

func truncate(t *testing.T, db *sql.DB) {
	t.Helper()

	_, err := db.Exec(`TRUNCATE people, films, tags, reviews, relations, feed_events RESTART IDENTITY`)
	if err != nil {
		t.Logf("Warning: Failed to truncate tables: %v", err)
	}
}
