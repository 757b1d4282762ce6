package postgresql_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/timeclock-backend-go/migrations"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// newTestDatabase connects to TEST_DATABASE_URL, migrates it and truncates every
// table. Tests are skipped when the variable is unset.
func newTestDatabase(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, database.MigratePostgres(ctx, dsn, migrations.Postgres(), false, logger))

	db, err := database.NewPostgreSQLDB(ctx, dsn, database.PoolOptions{MaxConns: 10})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	truncateAllTables(t, db)
	return db
}

func truncateAllTables(t *testing.T, db *database.DB) {
	t.Helper()
	_, err := db.Exec(context.Background(), `
		TRUNCATE TABLE audit_logs, timeclock_settings, timeclock_entries,
			manager_assignments, users, departments CASCADE
	`)
	require.NoError(t, err)
}

func createTestDepartment(t *testing.T, db *database.DB, name string) string {
	t.Helper()
	var id string
	err := db.QueryRow(context.Background(), `
		INSERT INTO departments (id, name) VALUES (gen_random_uuid(), $1)
		RETURNING id::text
	`, name).Scan(&id)
	require.NoError(t, err)
	return id
}

func createTestUser(t *testing.T, db *database.DB, role user.Role, departmentID *string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.Exec(context.Background(), `
		INSERT INTO users (id, department_id, role) VALUES ($1, $2, $3)
	`, id, departmentID, string(role))
	require.NoError(t, err)
	return id
}
