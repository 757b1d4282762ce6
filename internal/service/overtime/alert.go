package overtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/rules"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeclock"
	"golang.org/x/sync/errgroup"
)

type AlertServiceImpl struct {
	entries       timeclock.EntryRepository
	settings      rules.SettingsService
	defaultMargin int
	storeTimeout  time.Duration
	now           func() time.Time
}

// NewAlertService creates the live overtime alert service. defaultMarginMinutes
// applies when the settings leave AlertMarginMinutes at 0.
func NewAlertService(entries timeclock.EntryRepository, settings rules.SettingsService, defaultMarginMinutes int, storeTimeout time.Duration) *AlertServiceImpl {
	return &AlertServiceImpl{
		entries:       entries,
		settings:      settings,
		defaultMargin: defaultMarginMinutes,
		storeTimeout:  storeTimeout,
		now:           time.Now,
	}
}

// GetAlertStatus implements timeclock.AlertService.
func (s *AlertServiceImpl) GetAlertStatus(ctx context.Context, userID string) (*timeclock.AlertStatus, error) {
	snap, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if !snap.Overtime.NotifyEmployee {
		return nil, nil
	}

	if s.storeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.storeTimeout)
		defer cancel()
	}

	loc := snap.Location()
	now := s.now()
	dayStart := DayStart(now, loc)
	weekStart := WeekStart(now, loc)

	var (
		completed []timeclock.Entry
		open      *timeclock.Entry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.entries.List(gctx, timeclock.EntryFilter{
			UserID:        &userID,
			ClockInFrom:   &weekStart,
			OnlyCompleted: true,
		})
		if err != nil {
			return fmt.Errorf("failed to list week entries: %w", err)
		}
		completed = list
		return nil
	})
	g.Go(func() error {
		e, err := s.entries.GetOpenByUser(gctx, userID)
		if errors.Is(err, timeclock.ErrEntryNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get open entry: %w", err)
		}
		open = &e
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var today, week int64
	for i := range completed {
		e := &completed[i]
		if !Counts(e) {
			continue
		}
		m := e.DurationMinutes()
		week += m
		if !e.ClockIn.Before(dayStart) {
			today += m
		}
	}

	status := &timeclock.AlertStatus{AsOf: now}
	if open != nil {
		m := elapsedMinutes(open.ClockIn, now)
		if !open.ClockIn.Before(weekStart) {
			week += m
		}
		if !open.ClockIn.Before(dayStart) {
			today += m
		}
		id := open.ID
		status.ActiveEntryID = &id
	}

	margin := snap.Overtime.AlertMarginMinutes
	if margin <= 0 {
		margin = s.defaultMargin
	}
	status.Daily = Dimension(today, snap.Overtime.DailyThresholdMinutes, margin)
	status.Weekly = Dimension(week, snap.Overtime.WeeklyThresholdMinutes, margin)
	return status, nil
}

// elapsedMinutes counts the whole minutes an open session has run. Like a
// completed entry, the session belongs to the day and week of its clock-in.
func elapsedMinutes(clockIn, now time.Time) int64 {
	if !now.After(clockIn) {
		return 0
	}
	return int64(now.Sub(clockIn) / time.Minute)
}

// Dimension builds one alert window. A nil threshold disables both flags.
func Dimension(current int64, threshold *int, marginMinutes int) timeclock.AlertDimension {
	d := timeclock.AlertDimension{CurrentMinutes: current, ThresholdMinutes: threshold}
	if threshold == nil {
		return d
	}
	limit := int64(*threshold)
	d.Exceeded = current >= limit
	d.Approaching = !d.Exceeded && current >= limit-int64(marginMinutes)
	return d
}

var _ timeclock.AlertService = (*AlertServiceImpl)(nil)
