package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/academichub/backend-go/internal/config"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// DSN builds the keyword/value connection string shared by gorm and lib/pq
func DSN(cfg *config.Config) string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		cfg.PostgreSQLHost,
		cfg.PostgreSQLUser,
		cfg.PostgreSQLPassword,
		cfg.PostgreSQLDatabase,
		cfg.PostgreSQLPort,
	)
}

// Startup retry policy while PostgreSQL comes up
const (
	connectAttempts = 30
	connectBackoff  = 2 * time.Second
)

// ConnectDatabase waits for PostgreSQL, then brings the schema up to date.
// Cancelling ctx abandons the wait.
func ConnectDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*gorm.DB, error) {
	dsn := DSN(cfg)

	logger.Info("🐘 [Database] Waiting for PostgreSQL",
		"host", cfg.PostgreSQLHost,
		"port", cfg.PostgreSQLPort,
		"database", cfg.PostgreSQLDatabase,
	)

	db, err := openWithRetry(ctx, dsn, connectAttempts, connectBackoff, logger)
	if err != nil {
		return nil, err
	}

	applied, err := RunMigrations(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	logger.Info("✅ [Database] PostgreSQL ready, schema up to date", "applied_migrations", applied)

	return db, nil
}

func openWithRetry(ctx context.Context, dsn string, attempts int, backoff time.Duration, logger *slog.Logger) (*gorm.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		db, err := Open(dsn)
		if err == nil {
			return db, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		logger.Warn("⏳ [Database] PostgreSQL not reachable yet",
			"attempt", attempt,
			"of", attempts,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, fmt.Errorf("postgres unreachable after %d attempts: %w", attempts, lastErr)
}

// Open connects and pings. Driver errors are translated, so unique
// violations surface as gorm.ErrDuplicatedKey.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
}

// RunMigrations applies pending embedded migrations over a dedicated lib/pq
// connection and reports how many ran
func RunMigrations(ctx context.Context, dsn string) (int, error) {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return 0, fmt.Errorf("open migration connection: %w", err)
	}

	migrations, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		sqlDB.Close()
		return 0, err
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, migrations)
	if err != nil {
		sqlDB.Close()
		return 0, fmt.Errorf("load migrations: %w", err)
	}
	defer provider.Close()

	results, err := provider.Up(ctx)
	if err != nil {
		return len(results), fmt.Errorf("apply migrations: %w", err)
	}
	return len(results), nil
}
