package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeclock"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/google/uuid"
)

const entrySelect = `
	SELECT e.id, e.user_id, u.department_id, e.clock_in, e.clock_out,
		e.raw_duration_seconds, e.break_deducted_seconds, e.duration_seconds,
		e.status, e.flag_reason, e.auto_approved, e.rejected_note,
		e.approved_by_kind, e.approved_by_user_id, e.approved_at, e.is_locked,
		e.created_at, e.updated_at
	FROM timeclock_entries e
	LEFT JOIN users u ON u.id = e.user_id`

type rowScanner interface {
	Scan(dest ...any) error
}

type timeclockEntryRepository struct {
	db  *DB
	now func() time.Time
}

func NewTimeclockEntryRepository(db *DB) timeclock.EntryRepository {
	return &timeclockEntryRepository{db: db, now: time.Now}
}

func scanEntry(row rowScanner) (timeclock.Entry, error) {
	var (
		e                              timeclock.Entry
		clockIn, createdAt, updatedAt  string
		clockOut, approvedAt           *string
		status                         string
		flag, approverKind, approverID *string
	)
	err := row.Scan(
		&e.ID, &e.UserID, &e.DepartmentID, &clockIn, &clockOut,
		&e.RawDuration, &e.BreakDeducted, &e.Duration,
		&status, &flag, &e.AutoApproved, &e.RejectedNote,
		&approverKind, &approverID, &approvedAt, &e.IsLocked,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return timeclock.Entry{}, err
	}

	if e.ClockIn, err = parseTime(clockIn); err != nil {
		return timeclock.Entry{}, err
	}
	if e.ClockOut, err = parseTimePtr(clockOut); err != nil {
		return timeclock.Entry{}, err
	}
	if e.ApprovedAt, err = parseTimePtr(approvedAt); err != nil {
		return timeclock.Entry{}, err
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return timeclock.Entry{}, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return timeclock.Entry{}, err
	}

	e.Status = timeclock.Status(status)
	if flag != nil {
		f := timeclock.FlagReason(*flag)
		e.FlagReason = &f
	}
	if e.ApprovedBy, err = timeclock.ApproverFromColumns(approverKind, approverID); err != nil {
		return timeclock.Entry{}, fmt.Errorf("entry %s: %w", e.ID, err)
	}
	return e, nil
}

func (r *timeclockEntryRepository) query(ctx context.Context, query string, args ...any) ([]timeclock.Entry, error) {
	rows, err := querier(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("querying timeclock entries", err)
	}
	defer rows.Close()

	entries := []timeclock.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, wrapErr("scanning timeclock entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterating timeclock entries", err)
	}
	return entries, nil
}

func (r *timeclockEntryRepository) getOne(ctx context.Context, notFound error, where string, args ...any) (timeclock.Entry, error) {
	row := querier(ctx, r.db).QueryRowContext(ctx, entrySelect+" WHERE "+where, args...)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return timeclock.Entry{}, notFound
		}
		return timeclock.Entry{}, wrapErr("getting timeclock entry", err)
	}
	return e, nil
}

// Create implements timeclock.EntryRepository.
func (r *timeclockEntryRepository) Create(ctx context.Context, userID string, clockIn time.Time) (timeclock.Entry, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return timeclock.Entry{}, fmt.Errorf("generating entry id: %w", err)
	}
	now := formatTime(r.now())

	_, err = querier(ctx, r.db).ExecContext(ctx, `
		INSERT INTO timeclock_entries (id, user_id, clock_in, status, created_at, updated_at)
		VALUES (?, ?, ?, 'pending', ?, ?)
	`, id.String(), userID, formatTime(clockIn), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return timeclock.Entry{}, timeclock.ErrAlreadyClockedIn
		}
		if isForeignKeyViolation(err) {
			return timeclock.Entry{}, user.ErrUserNotFound
		}
		return timeclock.Entry{}, wrapErr("creating timeclock entry", err)
	}

	return r.getOne(ctx, timeclock.ErrEntryNotFound, "e.id = ?", id.String())
}

// GetByID implements timeclock.EntryRepository.
func (r *timeclockEntryRepository) GetByID(ctx context.Context, id string) (timeclock.Entry, error) {
	return r.getOne(ctx, timeclock.ErrEntryNotFound, "e.id = ?", id)
}

// GetOpenByUser implements timeclock.EntryRepository.
func (r *timeclockEntryRepository) GetOpenByUser(ctx context.Context, userID string) (timeclock.Entry, error) {
	return r.getOne(ctx, timeclock.ErrEntryNotFound, "e.user_id = ? AND e.clock_out IS NULL", userID)
}

// Close implements timeclock.EntryRepository.
func (r *timeclockEntryRepository) Close(ctx context.Context, p timeclock.CloseParams) (timeclock.Entry, error) {
	var approverKind, approverID *string
	if p.ApprovedBy != nil {
		kind, id := p.ApprovedBy.Columns()
		approverKind, approverID = &kind, id
	}
	var flag *string
	if p.FlagReason != nil {
		f := string(*p.FlagReason)
		flag = &f
	}

	res, err := querier(ctx, r.db).ExecContext(ctx, `
		UPDATE timeclock_entries
		SET clock_out = ?,
			raw_duration_seconds = ?,
			break_deducted_seconds = ?,
			duration_seconds = ?,
			status = ?,
			flag_reason = ?,
			auto_approved = ?,
			rejected_note = ?,
			approved_by_kind = ?,
			approved_by_user_id = ?,
			approved_at = ?,
			is_locked = ?,
			updated_at = ?
		WHERE id = ?
		  AND clock_out IS NULL
	`,
		formatTime(p.ClockOut),
		p.RawDuration,
		p.BreakDeducted,
		p.Duration,
		string(p.Status),
		flag,
		p.AutoApproved,
		p.RejectedNote,
		approverKind,
		approverID,
		formatTimePtr(p.ApprovedAt),
		p.IsLocked,
		formatTime(r.now()),
		p.EntryID,
	)
	if err := guarded(res, err, "closing timeclock entry", timeclock.ErrNotClockedIn); err != nil {
		return timeclock.Entry{}, err
	}
	return r.GetByID(ctx, p.EntryID)
}

// Approve implements timeclock.EntryRepository.
func (r *timeclockEntryRepository) Approve(ctx context.Context, entryID string, approver timeclock.Approver, at time.Time) (timeclock.Entry, error) {
	kind, approverID := approver.Columns()

	res, err := querier(ctx, r.db).ExecContext(ctx, `
		UPDATE timeclock_entries
		SET status = 'approved',
			approved_by_kind = ?,
			approved_by_user_id = ?,
			approved_at = ?,
			is_locked = 1,
			rejected_note = NULL,
			updated_at = ?
		WHERE id = ?
		  AND clock_out IS NOT NULL
		  AND status <> 'approved'
		  AND is_locked = 0
	`, kind, approverID, formatTime(at), formatTime(at), entryID)
	if err := guarded(res, err, "approving timeclock entry", timeclock.ErrTransitionConflict); err != nil {
		return timeclock.Entry{}, err
	}
	return r.GetByID(ctx, entryID)
}

// Reject implements timeclock.EntryRepository.
func (r *timeclockEntryRepository) Reject(ctx context.Context, entryID string, note string, at time.Time) (timeclock.Entry, error) {
	res, err := querier(ctx, r.db).ExecContext(ctx, `
		UPDATE timeclock_entries
		SET status = 'rejected',
			rejected_note = ?,
			approved_by_kind = NULL,
			approved_by_user_id = NULL,
			approved_at = NULL,
			auto_approved = 0,
			updated_at = ?
		WHERE id = ?
		  AND clock_out IS NOT NULL
		  AND status <> 'approved'
		  AND is_locked = 0
	`, note, formatTime(at), entryID)
	if err := guarded(res, err, "rejecting timeclock entry", timeclock.ErrTransitionConflict); err != nil {
		return timeclock.Entry{}, err
	}
	return r.GetByID(ctx, entryID)
}

// List implements timeclock.EntryRepository.
func (r *timeclockEntryRepository) List(ctx context.Context, filter timeclock.EntryFilter) ([]timeclock.Entry, error) {
	if filter.DepartmentIDs != nil && len(filter.DepartmentIDs) == 0 {
		return []timeclock.Entry{}, nil
	}

	var (
		conditions []string
		args       []any
	)
	if filter.UserID != nil {
		conditions = append(conditions, "e.user_id = ?")
		args = append(args, *filter.UserID)
	}
	if filter.DepartmentIDs != nil {
		conditions = append(conditions, "u.department_id IN ("+placeholders(len(filter.DepartmentIDs))+")")
		args = append(args, stringArgs(filter.DepartmentIDs)...)
	}
	if filter.Status != nil {
		conditions = append(conditions, "e.status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.ClockInFrom != nil {
		conditions = append(conditions, "e.clock_in >= ?")
		args = append(args, formatTime(*filter.ClockInFrom))
	}
	if filter.ClockInTo != nil {
		conditions = append(conditions, "e.clock_in < ?")
		args = append(args, formatTime(*filter.ClockInTo))
	}
	if filter.OnlyCompleted {
		conditions = append(conditions, "e.clock_out IS NOT NULL")
	}

	query := entrySelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY e.clock_in DESC, e.id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	return r.query(ctx, query, args...)
}

// ListOpenStartedBefore implements timeclock.EntryRepository.
func (r *timeclockEntryRepository) ListOpenStartedBefore(ctx context.Context, cutoff time.Time, departmentIDs []string) ([]timeclock.Entry, error) {
	query := entrySelect + " WHERE e.clock_out IS NULL AND e.clock_in < ?"
	args := []any{formatTime(cutoff)}
	if len(departmentIDs) > 0 {
		query += " AND u.department_id IN (" + placeholders(len(departmentIDs)) + ")"
		args = append(args, stringArgs(departmentIDs)...)
	}
	query += " ORDER BY e.clock_in"

	return r.query(ctx, query, args...)
}

// guarded turns a conditional update that matched no row into noMatch.
func guarded(res sql.Result, err error, op string, noMatch error) error {
	if err != nil {
		return wrapErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr(op, err)
	}
	if n == 0 {
		return noMatch
	}
	return nil
}
