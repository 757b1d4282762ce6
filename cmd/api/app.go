package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/config"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/department"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/rules"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeclock"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/cache"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/repository/postgresql"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/repository/sqlite"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/service/approval"
	auditsvc "github.com/cmlabs-hris/timeclock-backend-go/internal/service/audit"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/service/identity"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/service/overtime"
	rulesengine "github.com/cmlabs-hris/timeclock-backend-go/internal/service/rules"
	timeclocksvc "github.com/cmlabs-hris/timeclock-backend-go/internal/service/timeclock"
)

type repositories struct {
	entries     timeclock.EntryRepository
	settings    rules.SettingsRepository
	users       user.UserRepository
	departments department.DepartmentRepository
	audit       audit.Sink
	tx          timeclock.TxManager
	close       func()
}

func openRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repositories, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.Store.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return &repositories{
			entries:     sqlite.NewTimeclockEntryRepository(db),
			settings:    sqlite.NewSettingsRepository(db),
			users:       sqlite.NewUserRepository(db),
			departments: sqlite.NewDepartmentRepository(db),
			audit:       sqlite.NewAuditRepository(db),
			tx:          sqlite.NewTxManager(db),
			close:       func() { db.Close() },
		}, nil

	case config.DriverPostgres:
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		return &repositories{
			entries:     postgresql.NewTimeclockEntryRepository(db),
			settings:    postgresql.NewSettingsRepository(db),
			users:       postgresql.NewUserRepository(db),
			departments: postgresql.NewDepartmentRepository(db),
			audit:       postgresql.NewAuditRepository(db),
			tx:          postgresql.NewTxManager(db),
			close:       db.Close,
		}, nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}

// app holds the wired services shared by the commands.
type app struct {
	repos     *repositories
	hub       *sse.Hub
	identity  *identity.Service
	recorder  *auditsvc.Recorder
	settings  *rulesengine.SettingsStore
	sessions  *timeclocksvc.TimeclockServiceImpl
	approvals *approval.ApprovalServiceImpl
	alerts    *overtime.AlertServiceImpl
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	repos, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	tc := cfg.Timeclock
	hub := sse.NewHub(tc.SSEBuffer)
	ids := identity.NewService(repos.users, repos.departments)
	recorder := auditsvc.NewRecorder(repos.audit, tc.StoreTimeout, logger)
	settings := rulesengine.NewSettingsStore(
		repos.settings,
		ids,
		recorder,
		hub,
		cache.NewValue[rules.Settings](tc.SettingsCacheTTL),
		tc.DefaultTimezone,
		logger,
	)

	sessions := timeclocksvc.NewTimeclockService(repos.entries, ids, ids, settings, recorder, hub, timeclocksvc.Config{
		StoreTimeout:          tc.StoreTimeout,
		MissedPunchStaleAfter: tc.MissedPunchStaleAfter,
	}, logger)

	return &app{
		repos:     repos,
		hub:       hub,
		identity:  ids,
		recorder:  recorder,
		settings:  settings,
		sessions:  sessions,
		approvals: approval.NewApprovalService(repos.entries, repos.tx, ids, ids, recorder, hub, tc.StoreTimeout, logger),
		alerts:    overtime.NewAlertService(repos.entries, settings, tc.AlertMarginMinutes, tc.StoreTimeout),
	}, nil
}

// Close waits for pending audit writes, then closes the store.
func (a *app) Close() {
	a.recorder.Wait()
	a.repos.close()
}
