// Package fixtures builds throwaway stores and seed data for tests.
package fixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/department"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/rules"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeclock"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/repository/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Store is a migrated SQLite database with every repository wired to it.
type Store struct {
	DB          *sqlite.DB
	Entries     timeclock.EntryRepository
	Settings    rules.SettingsRepository
	Users       user.UserRepository
	Departments department.DepartmentRepository
	Audit       audit.Sink
	Tx          timeclock.TxManager
}

// NewStore opens a fresh database under t.TempDir and closes it on cleanup.
func NewStore(t testing.TB) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "timeclock.db")
	db, err := sqlite.Open(context.Background(), path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &Store{
		DB:          db,
		Entries:     sqlite.NewTimeclockEntryRepository(db),
		Settings:    sqlite.NewSettingsRepository(db),
		Users:       sqlite.NewUserRepository(db),
		Departments: sqlite.NewDepartmentRepository(db),
		Audit:       sqlite.NewAuditRepository(db),
		Tx:          sqlite.NewTxManager(db),
	}
}

func newID(t testing.TB) string {
	id, err := uuid.NewV7()
	require.NoError(t, err)
	return id.String()
}

// SeedDepartment inserts a department and returns its id.
func (s *Store) SeedDepartment(t testing.TB, name string, active bool) string {
	t.Helper()
	id := newID(t)
	_, err := s.DB.Exec(`INSERT INTO departments (id, name, is_active) VALUES (?, ?, ?)`, id, name, active)
	require.NoError(t, err)
	return id
}

// SeedUser inserts an active user and returns its id. departmentID may be empty.
func (s *Store) SeedUser(t testing.TB, role user.Role, departmentID string) string {
	t.Helper()
	id := newID(t)
	var dept *string
	if departmentID != "" {
		dept = &departmentID
	}
	_, err := s.DB.Exec(`INSERT INTO users (id, department_id, role, is_active) VALUES (?, ?, ?, 1)`, id, dept, string(role))
	require.NoError(t, err)
	return id
}

func (s *Store) DeactivateUser(t testing.TB, id string) {
	t.Helper()
	_, err := s.DB.Exec(`UPDATE users SET is_active = 0 WHERE id = ?`, id)
	require.NoError(t, err)
}

func (s *Store) DeactivateDepartment(t testing.TB, id string) {
	t.Helper()
	_, err := s.DB.Exec(`UPDATE departments SET is_active = 0 WHERE id = ?`, id)
	require.NoError(t, err)
}

// MoveUser changes a user's department.
func (s *Store) MoveUser(t testing.TB, userID, departmentID string) {
	t.Helper()
	_, err := s.DB.Exec(`UPDATE users SET department_id = ? WHERE id = ?`, departmentID, userID)
	require.NoError(t, err)
}

func (s *Store) AssignManager(t testing.TB, managerID, departmentID string) {
	t.Helper()
	_, err := s.DB.Exec(`INSERT INTO manager_assignments (manager_id, department_id) VALUES (?, ?)`, managerID, departmentID)
	require.NoError(t, err)
}

// EntrySeed describes a stored entry in any state, bypassing the services.
type EntrySeed struct {
	UserID        string
	ClockIn       time.Time
	WorkedMinutes int64 // ignored when Open
	Open          bool
	Status        timeclock.Status
	Locked        bool
	AutoApproved  bool
	ApprovedBy    *timeclock.Approver
	RejectedNote  string
	FlagReason    timeclock.FlagReason
}

// InsertEntry writes seed as-is and returns the entry id.
func (s *Store) InsertEntry(t testing.TB, seed EntrySeed) string {
	t.Helper()
	id := newID(t)
	if seed.Status == "" {
		seed.Status = timeclock.StatusPending
	}

	var (
		clockOut, approvedAt     *string
		raw, deducted, duration  *int64
		approverKind, approverID *string
		note, flag               *string
	)
	if !seed.Open {
		out := format(seed.ClockIn.Add(time.Duration(seed.WorkedMinutes) * time.Minute))
		secs := seed.WorkedMinutes * 60
		zero := int64(0)
		clockOut, raw, deducted, duration = &out, &secs, &zero, &secs
	}
	if seed.ApprovedBy != nil {
		kind, uid := seed.ApprovedBy.Columns()
		approverKind, approverID = &kind, uid
		at := format(seed.ClockIn)
		approvedAt = &at
	}
	if seed.RejectedNote != "" {
		note = &seed.RejectedNote
	}
	if seed.FlagReason != "" {
		f := string(seed.FlagReason)
		flag = &f
	}
	now := format(time.Now())

	_, err := s.DB.Exec(`
		INSERT INTO timeclock_entries (
			id, user_id, clock_in, clock_out,
			raw_duration_seconds, break_deducted_seconds, duration_seconds,
			status, flag_reason, auto_approved, rejected_note,
			approved_by_kind, approved_by_user_id, approved_at, is_locked,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id, seed.UserID, format(seed.ClockIn), clockOut,
		raw, deducted, duration,
		string(seed.Status), flag, seed.AutoApproved, note,
		approverKind, approverID, approvedAt, seed.Locked,
		now, now,
	)
	require.NoError(t, err)
	return id
}

// CountAudit returns how many audit events were recorded with action.
func (s *Store) CountAudit(t testing.TB, action string) int {
	t.Helper()
	var n int
	require.NoError(t, s.DB.QueryRow(`SELECT COUNT(*) FROM audit_logs WHERE action = ?`, action).Scan(&n))
	return n
}

func format(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}
