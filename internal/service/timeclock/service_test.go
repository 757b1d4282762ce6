package timeclock

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/department"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/rules"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeclock"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/fixtures"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/cache"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/service/identity"
	rulesengine "github.com/cmlabs-hris/timeclock-backend-go/internal/service/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type testEnv struct {
	store *fixtures.Store
	svc   *TimeclockServiceImpl
	hub   *sse.Hub
	clock *fakeClock
}

// Monday 2024-03-04 09:00 UTC.
var start = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T, settings *rules.Settings) *testEnv {
	t.Helper()
	store := fixtures.NewStore(t)
	if settings != nil {
		s := *settings
		s.UpdatedAt = start
		_, err := store.Settings.Save(context.Background(), s, 0)
		require.NoError(t, err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ids := identity.NewService(store.Users, store.Departments)
	hub := sse.NewHub(16)
	settingsStore := rulesengine.NewSettingsStore(store.Settings, ids, store.Audit, hub, cache.NewValue[rules.Settings](time.Minute), "UTC", logger)
	clock := &fakeClock{now: start}

	svc := NewTimeclockService(store.Entries, ids, ids, settingsStore, store.Audit, hub, Config{
		StoreTimeout:          5 * time.Second,
		MissedPunchStaleAfter: 16 * time.Hour,
	}, logger)
	svc.now = clock.Now

	return &testEnv{store: store, svc: svc, hub: hub, clock: clock}
}

func standard() *rules.Settings {
	s := fixtures.StandardSettings("UTC")
	return &s
}

func TestClockInClockOut_FullShiftAutoApproved(t *testing.T) {
	env := newTestEnv(t, standard())
	ctx := context.Background()
	dept := env.store.SeedDepartment(t, "Engineering", true)
	employee := env.store.SeedUser(t, user.RoleEmployee, dept)
	sub := env.hub.Subscribe(employee)
	defer sub.Close()

	in, err := env.svc.ClockIn(ctx, employee)
	require.NoError(t, err)
	assert.Nil(t, in.ClockOut)
	assert.Equal(t, timeclock.StatusPending, in.Status)

	env.clock.Set(start.Add(8*time.Hour + 45*time.Minute))
	out, err := env.svc.ClockOut(ctx, employee)
	require.NoError(t, err)

	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, int64(8*3600+45*60), *out.RawDurationSeconds)
	assert.Equal(t, int64(30*60), *out.BreakDeductedSeconds)
	assert.Equal(t, int64(8*60+15), *out.DurationMinutes)
	assert.Equal(t, timeclock.StatusApproved, out.Status)
	assert.True(t, out.AutoApproved)
	assert.True(t, out.IsLocked)
	require.NotNil(t, out.ApprovedBy)
	assert.True(t, out.ApprovedBy.IsSystem())
	assert.Nil(t, out.FlagReason)

	assert.Equal(t, 1, env.store.CountAudit(t, audit.ActionAutoApprove))

	select {
	case ev := <-sub.C:
		assert.Equal(t, sse.EventEntryClosed, ev.Event)
	case <-time.After(time.Second):
		t.Fatal("expected entry closed event")
	}

	active, err := env.svc.GetActiveEntry(ctx, employee)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestClockOut_BelowMinimumAutoRejected(t *testing.T) {
	env := newTestEnv(t, standard())
	ctx := context.Background()
	employee := env.store.SeedUser(t, user.RoleEmployee, "")

	_, err := env.svc.ClockIn(ctx, employee)
	require.NoError(t, err)

	env.clock.Set(start.Add(20 * time.Minute))
	out, err := env.svc.ClockOut(ctx, employee)
	require.NoError(t, err)

	assert.Equal(t, timeclock.StatusRejected, out.Status)
	require.NotNil(t, out.FlagReason)
	assert.Equal(t, timeclock.FlagBelowMinimum, *out.FlagReason)
	require.NotNil(t, out.RejectedNote)
	assert.NotEmpty(t, *out.RejectedNote)
	assert.False(t, out.IsLocked)
	assert.Nil(t, out.ApprovedBy)
	assert.Equal(t, 1, env.store.CountAudit(t, audit.ActionAutoReject))
}

func TestClockOut_DefaultSettingsLeavePending(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	employee := env.store.SeedUser(t, user.RoleEmployee, "")

	_, err := env.svc.ClockIn(ctx, employee)
	require.NoError(t, err)

	env.clock.Set(start.Add(7*time.Hour + 52*time.Minute + 30*time.Second))
	out, err := env.svc.ClockOut(ctx, employee)
	require.NoError(t, err)

	assert.Equal(t, timeclock.StatusPending, out.Status)
	assert.Equal(t, int64(7*3600+52*60+30), *out.DurationSeconds)
	assert.Nil(t, out.BreakDeductedSeconds)
	assert.False(t, out.IsLocked)
	assert.Equal(t, 0, env.store.CountAudit(t, audit.ActionAutoApprove))
}

func TestClockIn_Conflicts(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	employee := env.store.SeedUser(t, user.RoleEmployee, "")

	_, err := env.svc.ClockOut(ctx, employee)
	assert.ErrorIs(t, err, timeclock.ErrNotClockedIn)

	_, err = env.svc.ClockIn(ctx, employee)
	require.NoError(t, err)

	_, err = env.svc.ClockIn(ctx, employee)
	assert.ErrorIs(t, err, timeclock.ErrAlreadyClockedIn)
	assert.Equal(t, timeclock.KindConflict, timeclock.KindOf(err))
}

func TestClockIn_InactiveDepartmentOrUser(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	dept := env.store.SeedDepartment(t, "Closed", false)
	employee := env.store.SeedUser(t, user.RoleEmployee, dept)
	gone := env.store.SeedUser(t, user.RoleEmployee, "")
	env.store.DeactivateUser(t, gone)

	_, err := env.svc.ClockIn(ctx, employee)
	assert.ErrorIs(t, err, department.ErrDepartmentInactive)

	_, err = env.svc.ClockIn(ctx, gone)
	assert.ErrorIs(t, err, user.ErrUserInactive)
}

func TestClockIn_ConcurrentCallsOpenOneSession(t *testing.T) {
	env := newTestEnv(t, nil)
	employee := env.store.SeedUser(t, user.RoleEmployee, "")

	results := runConcurrently(10, func() error {
		_, err := env.svc.ClockIn(context.Background(), employee)
		return err
	})
	assert.Equal(t, 1, results[nil])
	assert.Equal(t, 9, results[timeclock.ErrAlreadyClockedIn])

	entries, err := env.store.Entries.List(context.Background(), timeclock.EntryFilter{UserID: &employee})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestClockOut_ConcurrentCallsCloseOnce(t *testing.T) {
	env := newTestEnv(t, standard())
	employee := env.store.SeedUser(t, user.RoleEmployee, "")

	_, err := env.svc.ClockIn(context.Background(), employee)
	require.NoError(t, err)
	env.clock.Set(start.Add(8 * time.Hour))

	results := runConcurrently(10, func() error {
		_, err := env.svc.ClockOut(context.Background(), employee)
		return err
	})
	assert.Equal(t, 1, results[nil])
	assert.Equal(t, 9, results[timeclock.ErrNotClockedIn])
	assert.Equal(t, 1, env.store.CountAudit(t, audit.ActionAutoApprove))
}

// runConcurrently starts n calls at once and counts outcomes by sentinel error.
func runConcurrently(n int, fn func() error) map[error]int {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ready   = make(chan struct{})
		results = make(map[error]int)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ready
			err := fn()
			for _, known := range []error{timeclock.ErrAlreadyClockedIn, timeclock.ErrNotClockedIn} {
				if errors.Is(err, known) {
					err = known
				}
			}
			mu.Lock()
			results[err]++
			mu.Unlock()
		}()
	}
	close(ready)
	wg.Wait()
	return results
}

func TestListMyEntries(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	alice := env.store.SeedUser(t, user.RoleEmployee, "")
	bob := env.store.SeedUser(t, user.RoleEmployee, "")
	env.store.InsertEntry(t, fixtures.EntrySeed{UserID: alice, ClockIn: start, WorkedMinutes: 480})
	env.store.InsertEntry(t, fixtures.EntrySeed{UserID: alice, ClockIn: start.AddDate(0, 0, 1), WorkedMinutes: 480, Status: timeclock.StatusApproved, Locked: true, ApprovedBy: approver(timeclock.SystemApprover())})
	env.store.InsertEntry(t, fixtures.EntrySeed{UserID: bob, ClockIn: start, WorkedMinutes: 480})

	all, err := env.svc.ListMyEntries(ctx, alice, timeclock.PeriodFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	day := "2024-03-05"
	tuesday, err := env.svc.ListMyEntries(ctx, alice, timeclock.PeriodFilter{PeriodStart: &day, PeriodEnd: &day})
	require.NoError(t, err)
	require.Len(t, tuesday, 1)
	assert.Equal(t, timeclock.StatusApproved, tuesday[0].Status)

	bad := "tomorrow"
	_, err = env.svc.ListMyEntries(ctx, alice, timeclock.PeriodFilter{Status: &bad})
	assert.Equal(t, timeclock.KindValidation, timeclock.KindOf(err))
}

func approver(a timeclock.Approver) *timeclock.Approver { return &a }
