package main

import (
	"database/sql"
	"fmt"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/config"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/logger"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/repository/sqlite"
	"github.com/cmlabs-hris/timeclock-backend-go/migrations"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var (
		down   bool
		driver string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations to the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if driver != "" {
				cfg.Store.Driver = driver
			}
			log := logger.NewTo(cmd.ErrOrStderr(), cfg.App.Env, cfg.App.LogLevel)

			switch cfg.Store.Driver {
			case config.DriverPostgres:
				return database.MigratePostgres(cmd.Context(), cfg.DatabaseURL(), migrations.Postgres(), down, log)
			case config.DriverSQLite:
				db, err := sql.Open("sqlite", sqlite.DSN(cfg.Store.SQLitePath))
				if err != nil {
					return fmt.Errorf("open sqlite: %w", err)
				}
				defer db.Close()
				return database.Migrate(cmd.Context(), db, goose.DialectSQLite3, migrations.SQLite(), down, log)
			}
			return fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "roll back the latest migration")
	cmd.Flags().StringVar(&driver, "driver", "", "store driver (postgres|sqlite), overrides STORE_DRIVER")
	return cmd
}
