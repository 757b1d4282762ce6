package timeclock

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/department"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/rules"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeclock"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/service/overtime"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var sixty = decimal.NewFromInt(60)

// hours converts minutes to hours rounded to two decimals.
func hours(minutes int64) decimal.Decimal {
	return decimal.NewFromInt(minutes).Div(sixty).Round(2)
}

// accessScope is what a viewer may read. A nil filter means every department.
type accessScope struct {
	departments []department.Department
	filter      []string
}

func (a accessScope) allows(departmentID string) bool {
	if a.filter == nil {
		return slices.ContainsFunc(a.departments, func(d department.Department) bool { return d.ID == departmentID })
	}
	return slices.Contains(a.filter, departmentID)
}

func (s *TimeclockServiceImpl) scopeFor(ctx context.Context, viewerID string) (accessScope, error) {
	u, err := s.identity.GetUser(ctx, viewerID)
	if err != nil {
		return accessScope{}, err
	}

	active, err := s.directory.ListActive(ctx)
	if err != nil {
		return accessScope{}, fmt.Errorf("failed to list departments: %w", err)
	}

	switch {
	case s.identity.HasCapability(ctx, u, user.ResourceTimeclock, user.ActionViewAll):
		return accessScope{departments: active}, nil
	case s.identity.HasCapability(ctx, u, user.ResourceTimeclock, user.ActionViewTeam):
		ids, err := s.directory.ManagerDepartments(ctx, viewerID)
		if err != nil {
			return accessScope{}, err
		}
		if ids == nil {
			ids = []string{}
		}
		scope := accessScope{departments: []department.Department{}, filter: ids}
		for _, d := range active {
			if slices.Contains(ids, d.ID) {
				scope.departments = append(scope.departments, d)
			}
		}
		return scope, nil
	}
	return accessScope{}, fmt.Errorf("%s.%s: %w", user.ResourceTimeclock, user.ActionViewTeam, user.ErrInsufficientCapability)
}

// GetTeamTotals implements timeclock.ReportService.
func (s *TimeclockServiceImpl) GetTeamTotals(ctx context.Context, managerID string, filter timeclock.TeamTotalsFilter) (*timeclock.TeamTotalsResponse, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	scope, err := s.scopeFor(ctx, managerID)
	if err != nil {
		return nil, err
	}

	f := timeclock.EntryFilter{DepartmentIDs: scope.filter, UserID: filter.UserID}
	if filter.DepartmentID != nil {
		if !scope.allows(*filter.DepartmentID) {
			return nil, timeclock.ErrNotAuthorizedForDepartment
		}
		f.DepartmentIDs = []string{*filter.DepartmentID}
	}

	snap, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	loc := snap.Location()
	filter.Apply(&f, loc)

	// Weekly overtime needs the days of the first week before period_start.
	var entries, lead []timeclock.Entry
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.entries.List(gctx, f)
		if err != nil {
			return fmt.Errorf("failed to list team entries: %w", err)
		}
		entries = list
		return nil
	})
	if f.ClockInFrom != nil {
		if weekStart := overtime.WeekStart(*f.ClockInFrom, loc); weekStart.Before(*f.ClockInFrom) {
			lf := f
			lf.ClockInFrom = &weekStart
			lf.ClockInTo = f.ClockInFrom
			g.Go(func() error {
				list, err := s.entries.List(gctx, lf)
				if err != nil {
					return fmt.Errorf("failed to list week lead-in entries: %w", err)
				}
				lead = list
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	totals := periodTotals(entries, lead, snap.Overtime, loc)

	byUser := make(map[string]*timeclock.EmployeeTotal)
	var order []string
	for _, e := range entries {
		et, ok := byUser[e.UserID]
		if !ok {
			et = &timeclock.EmployeeTotal{UserID: e.UserID, DepartmentID: e.DepartmentID}
			byUser[e.UserID] = et
			order = append(order, e.UserID)
		}
		et.EntryCount++
		if e.Status == timeclock.StatusPending {
			et.PendingCount++
		}
	}
	sort.Strings(order)

	resp := &timeclock.TeamTotalsResponse{
		Entries:               timeclock.NewEntryResponses(entries),
		EmployeeTotals:        make([]timeclock.EmployeeTotal, 0, len(order)),
		AccessibleDepartments: make([]timeclock.DepartmentSummary, 0, len(scope.departments)),
	}
	for _, id := range order {
		et := byUser[id]
		t := totals[id]
		et.TotalMinutes = t.TotalMinutes
		et.RegularMinutes = t.RegularMinutes
		et.DailyOvertimeMinutes = t.DailyOvertimeMinutes
		et.WeeklyOvertimeMinutes = t.WeeklyOvertimeMinutes
		et.TotalHours = hours(t.TotalMinutes)
		et.OvertimeHours = hours(t.OvertimeMinutes())
		resp.EmployeeTotals = append(resp.EmployeeTotals, *et)
	}
	for _, d := range scope.departments {
		resp.AccessibleDepartments = append(resp.AccessibleDepartments, timeclock.DepartmentSummary{ID: d.ID, Name: d.Name})
	}
	return resp, nil
}

// periodTotals computes each user's totals for entries, counting lead (the
// same users' earlier entries of the first week) toward the weekly threshold
// only. Overtime already earned by lead is not reported again.
func periodTotals(entries, lead []timeclock.Entry, cfg rules.OvertimeConfig, loc *time.Location) map[string]overtime.Totals {
	if len(lead) == 0 {
		return overtime.Calculate(entries, cfg, loc)
	}
	all := overtime.Calculate(slices.Concat(lead, entries), cfg, loc)
	before := overtime.Calculate(lead, cfg, loc)

	out := make(map[string]overtime.Totals, len(all))
	for userID, t := range all {
		b := before[userID]
		t.EntryCount -= b.EntryCount
		t.TotalMinutes -= b.TotalMinutes
		t.DailyOvertimeMinutes -= b.DailyOvertimeMinutes
		t.WeeklyOvertimeMinutes -= b.WeeklyOvertimeMinutes
		t.RegularMinutes = t.TotalMinutes - t.DailyOvertimeMinutes - t.WeeklyOvertimeMinutes
		t.Days, t.Weeks = nil, nil
		out[userID] = t
	}
	return out
}

// GetMissedPunches implements timeclock.ReportService.
func (s *TimeclockServiceImpl) GetMissedPunches(ctx context.Context, departmentIDs []string) ([]timeclock.EntryResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	entries, err := s.listMissed(ctx, departmentIDs)
	if err != nil {
		return nil, err
	}
	return timeclock.NewEntryResponses(entries), nil
}

func (s *TimeclockServiceImpl) listMissed(ctx context.Context, departmentIDs []string) ([]timeclock.Entry, error) {
	cutoff := s.now().UTC().Add(-s.cfg.MissedPunchStaleAfter)
	entries, err := s.entries.ListOpenStartedBefore(ctx, cutoff, departmentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list missed punches: %w", err)
	}
	return entries, nil
}

// GetMissedPunchesForManager implements timeclock.ReportService.
func (s *TimeclockServiceImpl) GetMissedPunchesForManager(ctx context.Context, managerID string, departmentIDs []string) ([]timeclock.EntryResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	scope, err := s.scopeFor(ctx, managerID)
	if err != nil {
		return nil, err
	}
	for _, id := range departmentIDs {
		if !scope.allows(id) {
			return nil, timeclock.ErrNotAuthorizedForDepartment
		}
	}

	ids := departmentIDs
	if len(ids) == 0 && scope.filter != nil {
		if len(scope.filter) == 0 {
			return []timeclock.EntryResponse{}, nil
		}
		ids = scope.filter
	}
	entries, err := s.listMissed(ctx, ids)
	if err != nil {
		return nil, err
	}
	return timeclock.NewEntryResponses(entries), nil
}

// MissedPunchNotice is published to managers for each stale session.
type MissedPunchNotice struct {
	timeclock.EntryResponse
	OpenMinutes int64 `json:"open_minutes"`
}

// NotifyMissedPunches publishes a missed-punch event for every stale open
// session to the managers of the owner's department. It returns the number of
// stale sessions found.
func (s *TimeclockServiceImpl) NotifyMissedPunches(ctx context.Context) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	entries, err := s.listMissed(ctx, nil)
	if err != nil {
		return 0, err
	}

	var departments []string
	for _, e := range entries {
		if e.DepartmentID != nil && !slices.Contains(departments, *e.DepartmentID) {
			departments = append(departments, *e.DepartmentID)
		}
	}

	results := make([][]string, len(departments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, id := range departments {
		g.Go(func() error {
			ids, err := s.directory.ManagersOf(gctx, []string{id})
			if err != nil {
				return fmt.Errorf("failed to resolve managers of %s: %w", id, err)
			}
			results[i] = ids
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	managers := make(map[string][]string, len(departments))
	for i, id := range departments {
		managers[id] = results[i]
	}

	now := s.now().UTC()

	for _, e := range entries {
		notice := MissedPunchNotice{
			EntryResponse: timeclock.NewEntryResponse(e),
			OpenMinutes:   int64(now.Sub(e.ClockIn).Minutes()),
		}
		var recipients []string
		if e.DepartmentID != nil {
			recipients = managers[*e.DepartmentID]
		}
		s.hub.PublishToMany(recipients, sse.EventMissedPunch, notice)
		s.logger.Warn("missed punch detected", "user_id", e.UserID, "entry_id", e.ID, "open_minutes", notice.OpenMinutes)
	}
	return len(entries), nil
}
