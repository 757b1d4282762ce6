package timeclock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/department"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/rules"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeclock"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/sse"
	rulesengine "github.com/cmlabs-hris/timeclock-backend-go/internal/service/rules"
)

type Config struct {
	// StoreTimeout bounds every store call made on behalf of one request.
	StoreTimeout time.Duration
	// MissedPunchStaleAfter is how long a session may stay open before it is reported.
	MissedPunchStaleAfter time.Duration
}

type TimeclockServiceImpl struct {
	entries   timeclock.EntryRepository
	identity  user.Identity
	directory department.Directory
	settings  rules.SettingsService
	audit     audit.Sink
	hub       *sse.Hub
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

var (
	_ timeclock.SessionService = (*TimeclockServiceImpl)(nil)
	_ timeclock.ReportService  = (*TimeclockServiceImpl)(nil)
)

func NewTimeclockService(
	entries timeclock.EntryRepository,
	identity user.Identity,
	directory department.Directory,
	settings rules.SettingsService,
	sink audit.Sink,
	hub *sse.Hub,
	cfg Config,
	logger *slog.Logger,
) *TimeclockServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &TimeclockServiceImpl{
		entries:   entries,
		identity:  identity,
		directory: directory,
		settings:  settings,
		audit:     sink,
		hub:       hub,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *TimeclockServiceImpl) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

// ClockIn implements timeclock.SessionService.
func (s *TimeclockServiceImpl) ClockIn(ctx context.Context, userID string) (timeclock.EntryResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	u, err := user.Authorize(ctx, s.identity, userID, user.ResourceTimeclock, user.ActionClock)
	if err != nil {
		return timeclock.EntryResponse{}, err
	}
	if u.DepartmentID != nil {
		active, err := s.directory.IsDepartmentActive(ctx, *u.DepartmentID)
		if err != nil {
			return timeclock.EntryResponse{}, fmt.Errorf("failed to check department: %w", err)
		}
		if !active {
			return timeclock.EntryResponse{}, department.ErrDepartmentInactive
		}
	}

	entry, err := s.entries.Create(ctx, userID, s.now().UTC())
	if err != nil {
		if errors.Is(err, timeclock.ErrAlreadyClockedIn) {
			return timeclock.EntryResponse{}, err
		}
		return timeclock.EntryResponse{}, fmt.Errorf("failed to clock in: %w", err)
	}

	s.logger.Info("clocked in", "user_id", userID, "entry_id", entry.ID)
	return timeclock.NewEntryResponse(entry), nil
}

// ClockOut implements timeclock.SessionService.
func (s *TimeclockServiceImpl) ClockOut(ctx context.Context, userID string) (timeclock.EntryResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := user.Authorize(ctx, s.identity, userID, user.ResourceTimeclock, user.ActionClock); err != nil {
		return timeclock.EntryResponse{}, err
	}

	// One snapshot for the whole evaluation.
	snap, err := s.settings.Snapshot(ctx)
	if err != nil {
		return timeclock.EntryResponse{}, err
	}

	open, err := s.entries.GetOpenByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, timeclock.ErrEntryNotFound) {
			return timeclock.EntryResponse{}, timeclock.ErrNotClockedIn
		}
		return timeclock.EntryResponse{}, fmt.Errorf("failed to get open entry: %w", err)
	}

	now := s.now().UTC()
	out := rulesengine.Evaluate(int64(now.Sub(open.ClockIn)/time.Second), snap.Rules)

	params := timeclock.CloseParams{
		EntryID:       open.ID,
		ClockOut:      now,
		RawDuration:   out.RawDuration,
		BreakDeducted: out.BreakDeducted,
		Duration:      out.Duration,
		Status:        out.Status,
		FlagReason:    out.FlagReason,
		AutoApproved:  out.AutoApproved,
		RejectedNote:  out.RejectedNote,
		IsLocked:      out.Locked,
	}
	if out.Status == timeclock.StatusApproved {
		approver := timeclock.SystemApprover()
		params.ApprovedBy = &approver
		params.ApprovedAt = &now
	}

	closed, err := s.entries.Close(ctx, params)
	if err != nil {
		if errors.Is(err, timeclock.ErrNotClockedIn) {
			s.logger.Warn("clock out lost to a concurrent close", "user_id", userID, "entry_id", open.ID)
			return timeclock.EntryResponse{}, err
		}
		return timeclock.EntryResponse{}, fmt.Errorf("failed to clock out: %w", err)
	}

	resp := timeclock.NewEntryResponse(closed)
	s.logger.Info("clocked out",
		"user_id", userID,
		"entry_id", closed.ID,
		"status", closed.Status,
		"duration_seconds", out.Duration,
	)

	if action := autoAction(closed.Status, closed.AutoApproved); action != "" {
		s.record(ctx, audit.Event{
			UserID:     audit.SystemActor,
			Action:     action,
			EntityType: audit.EntityTimeclockEntry,
			EntityID:   closed.ID,
			Before:     timeclock.NewEntryResponse(open),
			After:      resp,
		})
	}
	s.hub.Publish(userID, sse.EventEntryClosed, resp)

	return resp, nil
}

func autoAction(status timeclock.Status, autoApproved bool) string {
	switch {
	case status == timeclock.StatusApproved && autoApproved:
		return audit.ActionAutoApprove
	case status == timeclock.StatusRejected:
		return audit.ActionAutoReject
	}
	return ""
}

func (s *TimeclockServiceImpl) record(ctx context.Context, event audit.Event) {
	if err := s.audit.RecordEvent(ctx, event); err != nil {
		s.logger.Error("failed to record audit event", "action", event.Action, "entity_id", event.EntityID, "error", err)
	}
}

// GetActiveEntry implements timeclock.SessionService.
func (s *TimeclockServiceImpl) GetActiveEntry(ctx context.Context, userID string) (*timeclock.EntryResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := user.Authorize(ctx, s.identity, userID, user.ResourceTimeclock, user.ActionViewOwn); err != nil {
		return nil, err
	}

	open, err := s.entries.GetOpenByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, timeclock.ErrEntryNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open entry: %w", err)
	}
	resp := timeclock.NewEntryResponse(open)
	return &resp, nil
}

// ListMyEntries implements timeclock.SessionService.
func (s *TimeclockServiceImpl) ListMyEntries(ctx context.Context, userID string, filter timeclock.PeriodFilter) ([]timeclock.EntryResponse, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := user.Authorize(ctx, s.identity, userID, user.ResourceTimeclock, user.ActionViewOwn); err != nil {
		return nil, err
	}
	snap, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	f := timeclock.EntryFilter{UserID: &userID}
	filter.Apply(&f, snap.Location())

	entries, err := s.entries.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return timeclock.NewEntryResponses(entries), nil
}
