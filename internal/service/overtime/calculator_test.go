package overtime

import (
	"math/rand"
	"testing"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/rules"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func completedEntry(userID string, clockIn time.Time, workedMinutes int64, status timeclock.Status) timeclock.Entry {
	out := clockIn.Add(time.Duration(workedMinutes) * time.Minute)
	d := workedMinutes * 60
	return timeclock.Entry{
		ID:          userID + clockIn.Format(time.RFC3339),
		UserID:      userID,
		ClockIn:     clockIn,
		ClockOut:    &out,
		RawDuration: &d,
		Duration:    &d,
		Status:      status,
	}
}

func TestCalculateUser_DailyCarveOutBeforeWeekly(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	cfg := rules.OvertimeConfig{DailyThresholdMinutes: intPtr(8 * 60), WeeklyThresholdMinutes: intPtr(40 * 60)}

	// Week of Sunday 2024-03-03: 9h Monday, then 7h15m Tuesday through Friday. 38h total.
	monday := time.Date(2024, 3, 4, 8, 0, 0, 0, loc)
	entries := []timeclock.Entry{completedEntry("u-1", monday, 9*60, timeclock.StatusApproved)}
	for d := 1; d <= 4; d++ {
		entries = append(entries, completedEntry("u-1", monday.AddDate(0, 0, d), 7*60+15, timeclock.StatusPending))
	}

	got := CalculateUser(entries, cfg, loc)

	assert.EqualValues(t, 38*60, got.TotalMinutes)
	assert.EqualValues(t, 60, got.DailyOvertimeMinutes)
	assert.EqualValues(t, 0, got.WeeklyOvertimeMinutes)
	assert.EqualValues(t, 37*60, got.RegularMinutes)
	require.Len(t, got.Days, 5)
	assert.Equal(t, "2024-03-04", got.Days[0].Date)
	assert.EqualValues(t, 60, got.Days[0].DailyOvertimeMinutes)
	require.Len(t, got.Weeks, 1)
	assert.Equal(t, time.Sunday, got.Weeks[0].Start.Weekday())
}

func TestCalculateUser_WeeklyOvertimeFromRegularOnly(t *testing.T) {
	cfg := rules.OvertimeConfig{DailyThresholdMinutes: intPtr(8 * 60), WeeklyThresholdMinutes: intPtr(40 * 60)}
	sunday := time.Date(2024, 3, 3, 7, 0, 0, 0, time.UTC)

	// Five 10h days: 10h of daily overtime, 40h regular left, so no weekly overtime.
	var entries []timeclock.Entry
	for d := 1; d <= 5; d++ {
		entries = append(entries, completedEntry("u-1", sunday.AddDate(0, 0, d), 10*60, timeclock.StatusApproved))
	}
	got := CalculateUser(entries, cfg, time.UTC)
	assert.EqualValues(t, 10*60, got.DailyOvertimeMinutes)
	assert.EqualValues(t, 0, got.WeeklyOvertimeMinutes)
	assert.EqualValues(t, 40*60, got.RegularMinutes)

	// A sixth 8h day pushes regular time 8h over the weekly threshold.
	entries = append(entries, completedEntry("u-1", sunday.AddDate(0, 0, 6), 8*60, timeclock.StatusApproved))
	got = CalculateUser(entries, cfg, time.UTC)
	assert.EqualValues(t, 10*60, got.DailyOvertimeMinutes)
	assert.EqualValues(t, 8*60, got.WeeklyOvertimeMinutes)
	assert.EqualValues(t, 40*60, got.RegularMinutes)
}

func TestCalculateUser_NullThresholdsAreAllRegular(t *testing.T) {
	start := time.Date(2024, 3, 4, 6, 0, 0, 0, time.UTC)
	entries := []timeclock.Entry{completedEntry("u-1", start, 14*60, timeclock.StatusApproved)}

	got := CalculateUser(entries, rules.OvertimeConfig{}, time.UTC)

	assert.EqualValues(t, 14*60, got.RegularMinutes)
	assert.Zero(t, got.OvertimeMinutes())
}

func TestCalculateUser_IgnoresOpenAndRejectedEntries(t *testing.T) {
	start := time.Date(2024, 3, 4, 6, 0, 0, 0, time.UTC)
	entries := []timeclock.Entry{
		completedEntry("u-1", start, 60, timeclock.StatusApproved),
		completedEntry("u-1", start.Add(2*time.Hour), 60, timeclock.StatusRejected),
		{ID: "open", UserID: "u-1", ClockIn: start.Add(4 * time.Hour), Status: timeclock.StatusPending},
	}

	got := CalculateUser(entries, rules.OvertimeConfig{}, time.UTC)

	assert.Equal(t, 1, got.EntryCount)
	assert.EqualValues(t, 60, got.TotalMinutes)
}

func TestCalculateUser_GroupsByLocalDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	cfg := rules.OvertimeConfig{DailyThresholdMinutes: intPtr(8 * 60)}

	// 03:00 UTC on the 5th is still the evening of the 4th in New York.
	entries := []timeclock.Entry{
		completedEntry("u-1", time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC), 6*60, timeclock.StatusApproved),
		completedEntry("u-1", time.Date(2024, 3, 5, 3, 0, 0, 0, time.UTC), 4*60, timeclock.StatusApproved),
	}

	got := CalculateUser(entries, cfg, loc)
	require.Len(t, got.Days, 1)
	assert.Equal(t, "2024-03-04", got.Days[0].Date)
	assert.EqualValues(t, 2*60, got.DailyOvertimeMinutes)

	utc := CalculateUser(entries, cfg, time.UTC)
	assert.Len(t, utc.Days, 2)
	assert.Zero(t, utc.DailyOvertimeMinutes)
}

func TestCalculate_MinutesAreNeverLostOrDoubleCounted(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	cfgs := []rules.OvertimeConfig{
		{},
		{DailyThresholdMinutes: intPtr(8 * 60)},
		{WeeklyThresholdMinutes: intPtr(40 * 60)},
		{DailyThresholdMinutes: intPtr(6 * 60), WeeklyThresholdMinutes: intPtr(30 * 60)},
	}
	base := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	for round := 0; round < 50; round++ {
		var entries []timeclock.Entry
		expected := make(map[string]int64)
		for i := 0; i < 40; i++ {
			userID := []string{"a", "b", "c"}[rng.Intn(3)]
			clockIn := base.Add(time.Duration(rng.Intn(21*24*60)) * time.Minute)
			e := completedEntry(userID, clockIn, 0, timeclock.StatusPending)
			d := int64(rng.Intn(14 * 3600))
			e.Duration = &d
			entries = append(entries, e)
			expected[userID] += d / 60
		}

		for _, cfg := range cfgs {
			totals := Calculate(entries, cfg, time.UTC)
			for userID, want := range expected {
				got := totals[userID]
				assert.Equal(t, want, got.RegularMinutes+got.DailyOvertimeMinutes+got.WeeklyOvertimeMinutes)
				assert.Equal(t, want, got.TotalMinutes)
				assert.Equal(t, userID, got.UserID)
			}
		}
	}
}

func TestWeekStart(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	cases := []struct {
		in   time.Time
		want time.Time
	}{
		{time.Date(2024, 3, 6, 15, 0, 0, 0, loc), time.Date(2024, 3, 3, 0, 0, 0, 0, loc)},
		{time.Date(2024, 3, 3, 0, 0, 0, 0, loc), time.Date(2024, 3, 3, 0, 0, 0, 0, loc)},
		{time.Date(2024, 3, 9, 23, 59, 0, 0, loc), time.Date(2024, 3, 3, 0, 0, 0, 0, loc)},
		// Across the DST change on 2024-03-10.
		{time.Date(2024, 3, 12, 9, 0, 0, 0, loc), time.Date(2024, 3, 10, 0, 0, 0, 0, loc)},
	}
	for _, c := range cases {
		assert.True(t, c.want.Equal(WeekStart(c.in, loc)), "%s", c.in)
	}
}
