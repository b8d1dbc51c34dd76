// Package migrations holds the schema and applies it with goose.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

//go:embed *.sql
var embedMigrations embed.FS

// Up applies all pending migrations and returns how many ran
func Up(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	// the *sql.DB borrows connections from pool and is left for pool.Close to clean up
	db := stdlib.OpenDBFromPool(pool)

	provider, err := goose.NewProvider(database.DialectPostgres, db, embedMigrations)
	if err != nil {
		return 0, fmt.Errorf("failed to create goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to apply migrations: %w", err)
	}

	for _, r := range results {
		slog.Info("Applied migration", "version", r.Source.Version, "path", r.Source.Path, "duration", r.Duration)
	}
	return len(results), nil
}

// Version returns the current schema version
func Version(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	// the *sql.DB borrows connections from pool and is left for pool.Close to clean up
	db := stdlib.OpenDBFromPool(pool)

	provider, err := goose.NewProvider(database.DialectPostgres, db, embedMigrations)
	if err != nil {
		return 0, fmt.Errorf("failed to create goose provider: %w", err)
	}
	return provider.GetDBVersion(ctx)
}
