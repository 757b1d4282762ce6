package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeclock"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const entryColumns = `
	e.id, e.user_id, u.department_id, e.clock_in, e.clock_out,
	e.raw_duration_seconds, e.break_deducted_seconds, e.duration_seconds,
	e.status, e.flag_reason, e.auto_approved, e.rejected_note,
	e.approved_by_kind, e.approved_by_user_id, e.approved_at, e.is_locked,
	e.created_at, e.updated_at`

type timeclockEntryRepository struct {
	db *database.DB
}

func NewTimeclockEntryRepository(db *database.DB) timeclock.EntryRepository {
	return &timeclockEntryRepository{db: db}
}

func scanEntry(row pgx.Row) (timeclock.Entry, error) {
	var (
		e            timeclock.Entry
		status       string
		flag         *string
		approverKind *string
		approverID   *string
	)
	err := row.Scan(
		&e.ID, &e.UserID, &e.DepartmentID, &e.ClockIn, &e.ClockOut,
		&e.RawDuration, &e.BreakDeducted, &e.Duration,
		&status, &flag, &e.AutoApproved, &e.RejectedNote,
		&approverKind, &approverID, &e.ApprovedAt, &e.IsLocked,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
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

func collectEntries(rows pgx.Rows) ([]timeclock.Entry, error) {
	defer rows.Close()

	entries := []timeclock.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Create implements timeclock.EntryRepository.
func (r *timeclockEntryRepository) Create(ctx context.Context, userID string, clockIn time.Time) (timeclock.Entry, error) {
	q := GetQuerier(ctx, r.db)

	id, err := uuid.NewV7()
	if err != nil {
		return timeclock.Entry{}, fmt.Errorf("generate entry id: %w", err)
	}

	query := `
		WITH e AS (
			INSERT INTO timeclock_entries (id, user_id, clock_in, status, created_at, updated_at)
			VALUES ($1, $2, $3, 'pending', NOW(), NOW())
			RETURNING *
		)
		SELECT ` + entryColumns + `
		FROM e
		LEFT JOIN users u ON u.id = e.user_id
	`

	entry, err := scanEntry(q.QueryRow(ctx, query, id.String(), userID, clockIn.UTC()))
	if err != nil {
		if isUniqueViolation(err) {
			return timeclock.Entry{}, timeclock.ErrAlreadyClockedIn
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return timeclock.Entry{}, user.ErrUserNotFound
		}
		return timeclock.Entry{}, wrapErr("failed to create timeclock entry", err)
	}
	return entry, nil
}

// GetByID implements timeclock.EntryRepository.
func (r *timeclockEntryRepository) GetByID(ctx context.Context, id string) (timeclock.Entry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return timeclock.Entry{}, timeclock.ErrEntryNotFound
	}
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + entryColumns + `
		FROM timeclock_entries e
		LEFT JOIN users u ON u.id = e.user_id
		WHERE e.id = $1
	`

	entry, err := scanEntry(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timeclock.Entry{}, timeclock.ErrEntryNotFound
		}
		return timeclock.Entry{}, wrapErr("failed to get timeclock entry", err)
	}
	return entry, nil
}

// GetOpenByUser implements timeclock.EntryRepository.
func (r *timeclockEntryRepository) GetOpenByUser(ctx context.Context, userID string) (timeclock.Entry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + entryColumns + `
		FROM timeclock_entries e
		LEFT JOIN users u ON u.id = e.user_id
		WHERE e.user_id = $1
		  AND e.clock_out IS NULL
	`

	entry, err := scanEntry(q.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timeclock.Entry{}, timeclock.ErrEntryNotFound
		}
		return timeclock.Entry{}, wrapErr("failed to get open timeclock entry", err)
	}
	return entry, nil
}

// Close implements timeclock.EntryRepository.
func (r *timeclockEntryRepository) Close(ctx context.Context, p timeclock.CloseParams) (timeclock.Entry, error) {
	q := GetQuerier(ctx, r.db)

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

	query := `
		WITH e AS (
			UPDATE timeclock_entries
			SET clock_out = $2,
				raw_duration_seconds = $3,
				break_deducted_seconds = $4,
				duration_seconds = $5,
				status = $6,
				flag_reason = $7,
				auto_approved = $8,
				rejected_note = $9,
				approved_by_kind = $10,
				approved_by_user_id = $11,
				approved_at = $12,
				is_locked = $13,
				updated_at = NOW()
			WHERE id = $1
			  AND clock_out IS NULL
			RETURNING *
		)
		SELECT ` + entryColumns + `
		FROM e
		LEFT JOIN users u ON u.id = e.user_id
	`

	entry, err := scanEntry(q.QueryRow(ctx, query,
		p.EntryID,
		p.ClockOut.UTC(),
		p.RawDuration,
		p.BreakDeducted,
		p.Duration,
		string(p.Status),
		flag,
		p.AutoApproved,
		p.RejectedNote,
		approverKind,
		approverID,
		utcPtr(p.ApprovedAt),
		p.IsLocked,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timeclock.Entry{}, timeclock.ErrNotClockedIn
		}
		return timeclock.Entry{}, wrapErr("failed to close timeclock entry", err)
	}
	return entry, nil
}

// Approve implements timeclock.EntryRepository.
func (r *timeclockEntryRepository) Approve(ctx context.Context, entryID string, approver timeclock.Approver, at time.Time) (timeclock.Entry, error) {
	q := GetQuerier(ctx, r.db)
	kind, approverID := approver.Columns()

	query := `
		WITH e AS (
			UPDATE timeclock_entries
			SET status = 'approved',
				approved_by_kind = $2,
				approved_by_user_id = $3,
				approved_at = $4,
				is_locked = TRUE,
				rejected_note = NULL,
				updated_at = $4
			WHERE id = $1
			  AND clock_out IS NOT NULL
			  AND status <> 'approved'
			  AND is_locked = FALSE
			RETURNING *
		)
		SELECT ` + entryColumns + `
		FROM e
		LEFT JOIN users u ON u.id = e.user_id
	`

	entry, err := scanEntry(q.QueryRow(ctx, query, entryID, kind, approverID, at.UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timeclock.Entry{}, timeclock.ErrTransitionConflict
		}
		return timeclock.Entry{}, wrapErr("failed to approve timeclock entry", err)
	}
	return entry, nil
}

// Reject implements timeclock.EntryRepository.
func (r *timeclockEntryRepository) Reject(ctx context.Context, entryID string, note string, at time.Time) (timeclock.Entry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		WITH e AS (
			UPDATE timeclock_entries
			SET status = 'rejected',
				rejected_note = $2,
				approved_by_kind = NULL,
				approved_by_user_id = NULL,
				approved_at = NULL,
				auto_approved = FALSE,
				updated_at = $3
			WHERE id = $1
			  AND clock_out IS NOT NULL
			  AND status <> 'approved'
			  AND is_locked = FALSE
			RETURNING *
		)
		SELECT ` + entryColumns + `
		FROM e
		LEFT JOIN users u ON u.id = e.user_id
	`

	entry, err := scanEntry(q.QueryRow(ctx, query, entryID, note, at.UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timeclock.Entry{}, timeclock.ErrTransitionConflict
		}
		return timeclock.Entry{}, wrapErr("failed to reject timeclock entry", err)
	}
	return entry, nil
}

// List implements timeclock.EntryRepository.
func (r *timeclockEntryRepository) List(ctx context.Context, filter timeclock.EntryFilter) ([]timeclock.Entry, error) {
	if filter.DepartmentIDs != nil && len(filter.DepartmentIDs) == 0 {
		return []timeclock.Entry{}, nil
	}
	q := GetQuerier(ctx, r.db)

	var (
		conditions []string
		args       []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.UserID != nil {
		add("e.user_id = $%d", *filter.UserID)
	}
	if filter.DepartmentIDs != nil {
		add("u.department_id::text = ANY($%d::text[])", filter.DepartmentIDs)
	}
	if filter.Status != nil {
		add("e.status = $%d", string(*filter.Status))
	}
	if filter.ClockInFrom != nil {
		add("e.clock_in >= $%d", filter.ClockInFrom.UTC())
	}
	if filter.ClockInTo != nil {
		add("e.clock_in < $%d", filter.ClockInTo.UTC())
	}
	if filter.OnlyCompleted {
		conditions = append(conditions, "e.clock_out IS NOT NULL")
	}

	query := `
		SELECT ` + entryColumns + `
		FROM timeclock_entries e
		LEFT JOIN users u ON u.id = e.user_id
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY e.clock_in DESC, e.id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("failed to list timeclock entries", err)
	}
	entries, err := collectEntries(rows)
	if err != nil {
		return nil, wrapErr("failed to scan timeclock entries", err)
	}
	return entries, nil
}

// ListOpenStartedBefore implements timeclock.EntryRepository.
func (r *timeclockEntryRepository) ListOpenStartedBefore(ctx context.Context, cutoff time.Time, departmentIDs []string) ([]timeclock.Entry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + entryColumns + `
		FROM timeclock_entries e
		LEFT JOIN users u ON u.id = e.user_id
		WHERE e.clock_out IS NULL
		  AND e.clock_in < $1
	`
	args := []interface{}{cutoff.UTC()}
	if len(departmentIDs) > 0 {
		query += " AND u.department_id::text = ANY($2::text[])"
		args = append(args, departmentIDs)
	}
	query += " ORDER BY e.clock_in"

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("failed to list open timeclock entries", err)
	}
	entries, err := collectEntries(rows)
	if err != nil {
		return nil, wrapErr("failed to scan open timeclock entries", err)
	}
	return entries, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
