package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/department"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeclock"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/sse"
)

type ApprovalServiceImpl struct {
	entries      timeclock.EntryRepository
	tx           timeclock.TxManager
	identity     user.Identity
	directory    department.Directory
	audit        audit.Sink
	hub          *sse.Hub
	storeTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

var _ timeclock.ApprovalService = (*ApprovalServiceImpl)(nil)

func NewApprovalService(
	entries timeclock.EntryRepository,
	tx timeclock.TxManager,
	identity user.Identity,
	directory department.Directory,
	sink audit.Sink,
	hub *sse.Hub,
	storeTimeout time.Duration,
	logger *slog.Logger,
) *ApprovalServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &ApprovalServiceImpl{
		entries:      entries,
		tx:           tx,
		identity:     identity,
		directory:    directory,
		audit:        sink,
		hub:          hub,
		storeTimeout: storeTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *ApprovalServiceImpl) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

// authority is the set of departments an approver may review. all overrides departments.
type authority struct {
	all         bool
	departments []string
}

func (a authority) covers(e *timeclock.Entry) bool {
	if a.all {
		return true
	}
	return e.DepartmentID != nil && slices.Contains(a.departments, *e.DepartmentID)
}

func (s *ApprovalServiceImpl) authorityOf(ctx context.Context, approverID string) (authority, error) {
	u, err := user.Authorize(ctx, s.identity, approverID, user.ResourceTimeclock, user.ActionApprove)
	if err != nil {
		return authority{}, err
	}
	if s.identity.HasCapability(ctx, u, user.ResourceTimeclock, user.ActionApproveAll) {
		return authority{all: true}, nil
	}
	ids, err := s.directory.ManagerDepartments(ctx, approverID)
	if err != nil {
		return authority{}, fmt.Errorf("failed to list manager departments: %w", err)
	}
	return authority{departments: ids}, nil
}

// approveBlocker returns why e cannot be approved, or nil.
func approveBlocker(e *timeclock.Entry) error {
	switch {
	case e.IsOpen():
		return timeclock.ErrActiveEntry
	case e.IsLocked && e.Status == timeclock.StatusApproved:
		return fmt.Errorf("%w: %w", timeclock.ErrEntryLocked, timeclock.ErrAlreadyApproved)
	case e.IsLocked:
		return timeclock.ErrEntryLocked
	case e.Status == timeclock.StatusApproved:
		return timeclock.ErrAlreadyApproved
	}
	return nil
}

// rejectBlocker returns why e cannot be rejected, or nil. Rejected entries may be rejected again.
func rejectBlocker(e *timeclock.Entry) error {
	switch {
	case e.IsOpen():
		return timeclock.ErrActiveEntry
	case e.IsLocked:
		return timeclock.ErrEntryLocked
	case e.Status == timeclock.StatusApproved:
		return timeclock.ErrAlreadyApproved
	}
	return nil
}

// skipReason maps a blocker to the bulk outcome reason.
func skipReason(err error) string {
	switch {
	case errors.Is(err, timeclock.ErrActiveEntry):
		return timeclock.ReasonActiveEntry
	case errors.Is(err, timeclock.ErrEntryLocked):
		return timeclock.ReasonLocked
	case errors.Is(err, timeclock.ErrAlreadyApproved):
		return timeclock.ReasonAlreadyApproved
	}
	return err.Error()
}

// ApproveEntry implements timeclock.ApprovalService.
func (s *ApprovalServiceImpl) ApproveEntry(ctx context.Context, entryID, approverID string) (timeclock.EntryResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	auth, err := s.authorityOf(ctx, approverID)
	if err != nil {
		return timeclock.EntryResponse{}, err
	}

	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return timeclock.EntryResponse{}, err
	}
	if !auth.covers(&entry) {
		s.logger.Warn("approval outside assigned departments", "entry_id", entryID, "approver_id", approverID)
		return timeclock.EntryResponse{}, timeclock.ErrNotAuthorizedForDepartment
	}
	if err := approveBlocker(&entry); err != nil {
		return timeclock.EntryResponse{}, err
	}

	approved, err := s.approve(ctx, entryID, approverID)
	if err != nil {
		return timeclock.EntryResponse{}, err
	}

	s.published(ctx, audit.ActionApprove, approverID, entry, approved)
	return timeclock.NewEntryResponse(approved), nil
}

// approve runs the guarded update. When it loses a race the entry is re-read
// so the caller gets the precise reason.
func (s *ApprovalServiceImpl) approve(ctx context.Context, entryID, approverID string) (timeclock.Entry, error) {
	approved, err := s.entries.Approve(ctx, entryID, timeclock.HumanApprover(approverID), s.now().UTC())
	if err == nil {
		return approved, nil
	}
	if !errors.Is(err, timeclock.ErrTransitionConflict) {
		return timeclock.Entry{}, fmt.Errorf("failed to approve entry: %w", err)
	}

	current, rerr := s.entries.GetByID(ctx, entryID)
	if rerr != nil {
		return timeclock.Entry{}, rerr
	}
	if blocker := approveBlocker(&current); blocker != nil {
		return timeclock.Entry{}, blocker
	}
	return timeclock.Entry{}, err
}

// BulkApprove implements timeclock.ApprovalService.
func (s *ApprovalServiceImpl) BulkApprove(ctx context.Context, entryIDs []string, approverID string) (*timeclock.BulkApproveResult, error) {
	req := timeclock.BulkApproveRequest{EntryIDs: entryIDs}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	auth, err := s.authorityOf(ctx, approverID)
	if err != nil {
		return nil, err
	}

	ids := dedupe(entryIDs)
	type transition struct{ before, after timeclock.Entry }
	var (
		result *timeclock.BulkApproveResult
		done   []transition
	)

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		result = &timeclock.BulkApproveResult{Details: make([]timeclock.BulkItemResult, 0, len(ids))}
		done = done[:0]

		for _, id := range ids {
			entry, err := s.entries.GetByID(ctx, id)
			if errors.Is(err, timeclock.ErrEntryNotFound) {
				result.Add(id, timeclock.OutcomeFailed, timeclock.ReasonNotFound)
				continue
			}
			if err != nil {
				return err
			}
			if !auth.covers(&entry) {
				result.Add(id, timeclock.OutcomeFailed, timeclock.ReasonNotInDepartment)
				continue
			}
			if blocker := approveBlocker(&entry); blocker != nil {
				result.Add(id, timeclock.OutcomeSkipped, skipReason(blocker))
				continue
			}

			approved, err := s.approve(ctx, id, approverID)
			if err != nil {
				if timeclock.KindOf(err) == timeclock.KindConflict {
					result.Add(id, timeclock.OutcomeSkipped, skipReason(err))
					continue
				}
				return err
			}
			result.Add(id, timeclock.OutcomeApproved, "")
			done = append(done, transition{before: entry, after: approved})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, t := range done {
		s.published(ctx, audit.ActionApprove, approverID, t.before, t.after)
	}
	s.logger.Info("bulk approval finished",
		"approver_id", approverID,
		"approved", result.Approved,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, nil
}

// RejectEntry implements timeclock.ApprovalService.
func (s *ApprovalServiceImpl) RejectEntry(ctx context.Context, entryID, approverID string, req timeclock.RejectRequest) (timeclock.EntryResponse, error) {
	if err := req.Validate(); err != nil {
		return timeclock.EntryResponse{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	auth, err := s.authorityOf(ctx, approverID)
	if err != nil {
		return timeclock.EntryResponse{}, err
	}

	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return timeclock.EntryResponse{}, err
	}
	if !auth.covers(&entry) {
		s.logger.Warn("rejection outside assigned departments", "entry_id", entryID, "approver_id", approverID)
		return timeclock.EntryResponse{}, timeclock.ErrNotAuthorizedForDepartment
	}
	if err := rejectBlocker(&entry); err != nil {
		return timeclock.EntryResponse{}, err
	}

	rejected, err := s.entries.Reject(ctx, entryID, req.Note, s.now().UTC())
	if err != nil {
		if !errors.Is(err, timeclock.ErrTransitionConflict) {
			return timeclock.EntryResponse{}, fmt.Errorf("failed to reject entry: %w", err)
		}
		current, rerr := s.entries.GetByID(ctx, entryID)
		if rerr != nil {
			return timeclock.EntryResponse{}, rerr
		}
		if blocker := rejectBlocker(&current); blocker != nil {
			return timeclock.EntryResponse{}, blocker
		}
		return timeclock.EntryResponse{}, err
	}

	s.published(ctx, audit.ActionReject, approverID, entry, rejected)
	return timeclock.NewEntryResponse(rejected), nil
}

// published records the audit event and notifies the entry owner.
func (s *ApprovalServiceImpl) published(ctx context.Context, action, actorID string, before, after timeclock.Entry) {
	resp := timeclock.NewEntryResponse(after)
	if err := s.audit.RecordEvent(ctx, audit.Event{
		UserID:     actorID,
		Action:     action,
		EntityType: audit.EntityTimeclockEntry,
		EntityID:   after.ID,
		Before:     timeclock.NewEntryResponse(before),
		After:      resp,
	}); err != nil {
		s.logger.Error("failed to record audit event", "action", action, "entity_id", after.ID, "error", err)
	}
	s.hub.Publish(after.UserID, sse.EventEntryReviewed, resp)
	s.logger.Info("entry reviewed", "action", action, "entry_id", after.ID, "actor_id", actorID)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
