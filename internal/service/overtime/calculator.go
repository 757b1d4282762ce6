package overtime

import (
	"sort"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/rules"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeclock"
)

// DayTotal is one local calendar day of a user's time.
type DayTotal struct {
	Date                 string `json:"date"` // YYYY-MM-DD, local
	Minutes              int64  `json:"minutes"`
	DailyOvertimeMinutes int64  `json:"daily_overtime_minutes"`
}

// WeekTotal is one Sunday-based week of a user's time.
type WeekTotal struct {
	Start                 time.Time `json:"start"`
	RegularMinutes        int64     `json:"regular_minutes"`
	WeeklyOvertimeMinutes int64     `json:"weekly_overtime_minutes"`
}

// Totals splits a user's minutes into regular, daily overtime and weekly
// overtime. RegularMinutes + DailyOvertimeMinutes + WeeklyOvertimeMinutes
// always equals TotalMinutes.
type Totals struct {
	UserID                string
	EntryCount            int
	TotalMinutes          int64
	RegularMinutes        int64
	DailyOvertimeMinutes  int64
	WeeklyOvertimeMinutes int64
	Days                  []DayTotal
	Weeks                 []WeekTotal
}

// OvertimeMinutes returns daily plus weekly overtime.
func (t Totals) OvertimeMinutes() int64 {
	return t.DailyOvertimeMinutes + t.WeeklyOvertimeMinutes
}

// Counts reports whether an entry takes part in overtime totals: it must be
// completed and not rejected.
func Counts(e *timeclock.Entry) bool {
	return e.IsCompleted() && e.Status != timeclock.StatusRejected
}

// Calculate groups entries by user and computes each user's totals.
// Entries that do not count are ignored.
func Calculate(entries []timeclock.Entry, cfg rules.OvertimeConfig, loc *time.Location) map[string]Totals {
	byUser := make(map[string][]timeclock.Entry)
	for _, e := range entries {
		byUser[e.UserID] = append(byUser[e.UserID], e)
	}

	out := make(map[string]Totals, len(byUser))
	for userID, list := range byUser {
		t := CalculateUser(list, cfg, loc)
		t.UserID = userID
		out[userID] = t
	}
	return out
}

// CalculateUser computes totals for entries that all belong to one user.
// Daily overtime is carved out first; only the remaining regular minutes are
// compared against the weekly threshold.
func CalculateUser(entries []timeclock.Entry, cfg rules.OvertimeConfig, loc *time.Location) Totals {
	if loc == nil {
		loc = time.UTC
	}

	var t Totals
	days := make(map[string]int64)
	starts := make(map[string]time.Time)
	for i := range entries {
		e := &entries[i]
		if !Counts(e) {
			continue
		}
		if t.UserID == "" {
			t.UserID = e.UserID
		}
		m := e.DurationMinutes()
		t.EntryCount++
		t.TotalMinutes += m
		d := DayStart(e.ClockIn, loc)
		key := d.Format("2006-01-02")
		days[key] += m
		starts[key] = d
	}

	dayKeys := make([]string, 0, len(days))
	for d := range days {
		dayKeys = append(dayKeys, d)
	}
	sort.Strings(dayKeys)

	weekRegular := make(map[int64]int64)
	var weekKeys []time.Time
	for _, key := range dayKeys {
		minutes := days[key]
		daily := excess(minutes, cfg.DailyThresholdMinutes)
		t.DailyOvertimeMinutes += daily
		t.Days = append(t.Days, DayTotal{
			Date:                 key,
			Minutes:              minutes,
			DailyOvertimeMinutes: daily,
		})

		w := WeekStart(starts[key], loc)
		if _, ok := weekRegular[w.Unix()]; !ok {
			weekKeys = append(weekKeys, w)
		}
		weekRegular[w.Unix()] += minutes - daily
	}

	for _, w := range weekKeys {
		regular := weekRegular[w.Unix()]
		weekly := excess(regular, cfg.WeeklyThresholdMinutes)
		t.WeeklyOvertimeMinutes += weekly
		t.RegularMinutes += regular - weekly
		t.Weeks = append(t.Weeks, WeekTotal{
			Start:                 w,
			RegularMinutes:        regular - weekly,
			WeeklyOvertimeMinutes: weekly,
		})
	}

	return t
}

func excess(minutes int64, threshold *int) int64 {
	if threshold == nil {
		return 0
	}
	if over := minutes - int64(*threshold); over > 0 {
		return over
	}
	return 0
}

// DayStart returns local midnight of the day containing t.
func DayStart(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, loc)
}

// WeekStart returns local midnight of the Sunday on or before t.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	d := DayStart(t, loc)
	return d.AddDate(0, 0, -int(d.Weekday()))
}
