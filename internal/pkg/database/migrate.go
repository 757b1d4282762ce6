package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Migrate applies migrations from fsys. When down is true the latest applied
// migration is rolled back instead.
func Migrate(ctx context.Context, db *sql.DB, dialect goose.Dialect, fsys fs.FS, down bool, logger *slog.Logger) error {
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}

	if down {
		res, err := provider.Down(ctx)
		if err != nil {
			return fmt.Errorf("goose down: %w", err)
		}
		if res != nil && res.Source != nil {
			logger.Info("Migration rolled back", "version", res.Source.Version, "duration", res.Duration)
		}
		return nil
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	for _, r := range results {
		logger.Info("Migration applied", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}

// MigratePostgres opens a database/sql handle through the pgx stdlib driver,
// which is what goose needs, and applies the migrations.
func MigratePostgres(ctx context.Context, dsn string, fsys fs.FS, down bool, logger *slog.Logger) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()

	return Migrate(ctx, db, goose.DialectPostgres, fsys, down, logger)
}
