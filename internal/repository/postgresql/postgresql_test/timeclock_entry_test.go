package postgresql_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/rules"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeclock"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/repository/postgresql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var monday = time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

func TestTimeclockEntryRepository_Lifecycle(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()
	dept := createTestDepartment(t, db, "Engineering")
	employee := createTestUser(t, db, user.RoleEmployee, &dept)
	manager := createTestUser(t, db, user.RoleManager, &dept)
	repo := postgresql.NewTimeclockEntryRepository(db)

	created, err := repo.Create(ctx, employee, monday)
	require.NoError(t, err)
	require.NotNil(t, created.DepartmentID)
	assert.Equal(t, dept, *created.DepartmentID)

	_, err = repo.Create(ctx, employee, monday)
	assert.ErrorIs(t, err, timeclock.ErrAlreadyClockedIn)

	closed, err := repo.Close(ctx, timeclock.CloseParams{
		EntryID:     created.ID,
		ClockOut:    monday.Add(8 * time.Hour),
		RawDuration: 8 * 3600,
		Duration:    8 * 3600,
		Status:      timeclock.StatusPending,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(480), closed.DurationMinutes())

	_, err = repo.Close(ctx, timeclock.CloseParams{EntryID: created.ID, ClockOut: monday, Status: timeclock.StatusPending})
	assert.ErrorIs(t, err, timeclock.ErrNotClockedIn)

	approved, err := repo.Approve(ctx, created.ID, timeclock.HumanApprover(manager), monday.Add(9*time.Hour))
	require.NoError(t, err)
	assert.True(t, approved.IsLocked)

	_, err = repo.Reject(ctx, created.ID, "late", monday)
	assert.ErrorIs(t, err, timeclock.ErrTransitionConflict)

	deptFilter, err := repo.List(ctx, timeclock.EntryFilter{DepartmentIDs: []string{dept}})
	require.NoError(t, err)
	require.Len(t, deptFilter, 1)
	assert.Equal(t, created.ID, deptFilter[0].ID)
}

func TestTimeclockEntryRepository_ConcurrentCreate(t *testing.T) {
	db := newTestDatabase(t)
	employee := createTestUser(t, db, user.RoleEmployee, nil)
	repo := postgresql.NewTimeclockEntryRepository(db)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(context.Background(), employee, monday)
			if err != nil && !errors.Is(err, timeclock.ErrAlreadyClockedIn) {
				t.Errorf("unexpected error: %v", err)
			}
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)
}

func TestTimeclockEntryRepository_WithinTxRollsBack(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()
	employee := createTestUser(t, db, user.RoleEmployee, nil)
	repo := postgresql.NewTimeclockEntryRepository(db)
	tx := postgresql.NewTxManager(db)
	boom := errors.New("boom")

	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := repo.Create(ctx, employee, monday); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.GetOpenByUser(ctx, employee)
	assert.ErrorIs(t, err, timeclock.ErrEntryNotFound)
}

func TestSettingsRepository_VersionCheck(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewSettingsRepository(db)

	_, err := repo.Get(ctx)
	assert.ErrorIs(t, err, rules.ErrSettingsNotFound)

	s := rules.Default("Asia/Jakarta")
	s.UpdatedAt = monday

	first, err := repo.Save(ctx, s, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Version)

	_, err = repo.Save(ctx, s, 0)
	assert.ErrorIs(t, err, rules.ErrVersionConflict)

	second, err := repo.Save(ctx, s, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Version)

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Jakarta", got.Timezone)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, s.Rules.Disposition, got.Rules.Disposition)
}
