package timeclock

import (
	"context"
	"time"
)

// TxManager runs fn inside one store transaction. Repositories called with the
// ctx passed to fn take part in that transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EntryFilter narrows List. Zero fields are ignored.
type EntryFilter struct {
	UserID *string
	// DepartmentIDs restricts results to owners in these departments. Nil means
	// no restriction; an empty non-nil slice matches nothing.
	DepartmentIDs []string
	Status        *Status
	// ClockInFrom is inclusive, ClockInTo exclusive.
	ClockInFrom   *time.Time
	ClockInTo     *time.Time
	OnlyCompleted bool
	Limit         int
}

// CloseParams are the fields written when an open entry is clocked out.
type CloseParams struct {
	EntryID       string
	ClockOut      time.Time
	RawDuration   int64
	BreakDeducted *int64
	Duration      int64
	Status        Status
	FlagReason    *FlagReason
	AutoApproved  bool
	RejectedNote  *string
	ApprovedBy    *Approver
	ApprovedAt    *time.Time
	IsLocked      bool
}

type EntryRepository interface {
	// Create inserts a new open entry. It returns ErrAlreadyClockedIn when the
	// user already has an open entry; the store enforces this atomically.
	Create(ctx context.Context, userID string, clockIn time.Time) (Entry, error)

	GetByID(ctx context.Context, id string) (Entry, error)

	// GetOpenByUser returns the user's open entry or ErrEntryNotFound.
	GetOpenByUser(ctx context.Context, userID string) (Entry, error)

	// Close finalizes an open entry with a single guarded update
	// (clock_out IS NULL). It returns ErrNotClockedIn when no row matched.
	Close(ctx context.Context, p CloseParams) (Entry, error)

	// Approve marks a closed, unlocked, not yet approved entry approved and locked.
	// It returns ErrTransitionConflict when the guard did not match.
	Approve(ctx context.Context, entryID string, approver Approver, at time.Time) (Entry, error)

	// Reject marks a closed, unlocked, not approved entry rejected with note.
	// It returns ErrTransitionConflict when the guard did not match.
	Reject(ctx context.Context, entryID string, note string, at time.Time) (Entry, error)

	List(ctx context.Context, filter EntryFilter) ([]Entry, error)

	// ListOpenStartedBefore returns open entries with clock_in before cutoff,
	// optionally restricted to owners in departmentIDs.
	ListOpenStartedBefore(ctx context.Context, cutoff time.Time, departmentIDs []string) ([]Entry, error)
}
