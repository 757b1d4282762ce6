package sqlite_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/rules"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/fixtures"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/repository/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsRepository_SaveAndGet(t *testing.T) {
	store := fixtures.NewStore(t)
	ctx := context.Background()
	owner := store.SeedUser(t, user.RoleOwner, "")

	_, err := store.Settings.Get(ctx)
	assert.ErrorIs(t, err, rules.ErrSettingsNotFound)

	s := fixtures.StandardSettings("America/New_York")
	s.UpdatedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.UpdatedBy = &owner

	saved, err := store.Settings.Save(ctx, s, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.Version)

	got, err := store.Settings.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, "America/New_York", got.Timezone)
	assert.Equal(t, s.Rules, got.Rules)
	assert.Equal(t, s.Overtime, got.Overtime)
	assert.True(t, got.UpdatedAt.Equal(s.UpdatedAt))
	require.NotNil(t, got.UpdatedBy)
	assert.Equal(t, owner, *got.UpdatedBy)
}

func TestSettingsRepository_VersionCheck(t *testing.T) {
	store := fixtures.NewStore(t)
	ctx := context.Background()
	s := rules.Default("UTC")
	s.UpdatedAt = time.Now()

	_, err := store.Settings.Save(ctx, s, 0)
	require.NoError(t, err)

	_, err = store.Settings.Save(ctx, s, 0)
	assert.ErrorIs(t, err, rules.ErrVersionConflict)

	second, err := store.Settings.Save(ctx, s, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Version)

	_, err = store.Settings.Save(ctx, s, 1)
	assert.ErrorIs(t, err, rules.ErrVersionConflict)
}

func TestDepartmentRepository(t *testing.T) {
	store := fixtures.NewStore(t)
	ctx := context.Background()
	eng := store.SeedDepartment(t, "Engineering", true)
	legacy := store.SeedDepartment(t, "Legacy", false)
	ops := store.SeedDepartment(t, "Operations", true)

	lead := store.SeedUser(t, user.RoleManager, eng)
	former := store.SeedUser(t, user.RoleManager, eng)
	store.AssignManager(t, lead, eng)
	store.AssignManager(t, lead, legacy)
	store.AssignManager(t, former, eng)
	store.DeactivateUser(t, former)

	got, err := store.Departments.GetByID(ctx, legacy)
	require.NoError(t, err)
	assert.Equal(t, "Legacy", got.Name)
	assert.False(t, got.IsActive)

	active, err := store.Departments.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, eng, active[0].ID)
	assert.Equal(t, ops, active[1].ID)

	assigned, err := store.Departments.ListAssignedToManager(ctx, lead)
	require.NoError(t, err)
	require.Len(t, assigned, 2)
	assert.Equal(t, "Engineering", assigned[0].Name)
	assert.Equal(t, "Legacy", assigned[1].Name)

	managers, err := store.Departments.ListManagerIDs(ctx, []string{eng, ops})
	require.NoError(t, err)
	assert.Equal(t, []string{lead}, managers)

	empty, err := store.Departments.ListManagerIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUserRepository(t *testing.T) {
	store := fixtures.NewStore(t)
	ctx := context.Background()
	eng := store.SeedDepartment(t, "Engineering", true)
	ops := store.SeedDepartment(t, "Operations", true)
	alice := store.SeedUser(t, user.RoleEmployee, eng)
	bob := store.SeedUser(t, user.RoleEmployee, ops)
	gone := store.SeedUser(t, user.RoleEmployee, eng)
	store.DeactivateUser(t, gone)

	u, err := store.Users.GetByID(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, user.RoleEmployee, u.Role)
	assert.True(t, u.IsActive)
	assert.True(t, u.InDepartment(eng))

	inactive, err := store.Users.GetByID(ctx, gone)
	require.NoError(t, err)
	assert.False(t, inactive.IsActive)

	_, err = store.Users.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, user.ErrUserNotFound)

	engUsers, err := store.Users.ListByDepartments(ctx, []string{eng})
	require.NoError(t, err)
	require.Len(t, engUsers, 1)
	assert.Equal(t, alice, engUsers[0].ID)

	everyone, err := store.Users.ListByDepartments(ctx, nil)
	require.NoError(t, err)
	require.Len(t, everyone, 2)
	assert.ElementsMatch(t, []string{alice, bob}, []string{everyone[0].ID, everyone[1].ID})
}

func TestAuditRepository_RecordEvent(t *testing.T) {
	store := fixtures.NewStore(t)
	ctx := context.Background()

	err := store.Audit.RecordEvent(ctx, audit.Event{
		UserID:     audit.SystemActor,
		Action:     audit.ActionAutoApprove,
		EntityType: audit.EntityTimeclockEntry,
		EntityID:   "entry-1",
		After:      map[string]string{"status": "approved"},
	})
	require.NoError(t, err)

	events, err := sqlite.ListByEntity(ctx, store.DB, audit.EntityTimeclockEntry, "entry-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionAutoApprove, events[0].Action)
	assert.Equal(t, audit.SystemActor, events[0].UserID)
	assert.Nil(t, events[0].Before)
	assert.JSONEq(t, `{"status":"approved"}`, string(events[0].After.(json.RawMessage)))
	assert.False(t, events[0].CreatedAt.IsZero())
}
