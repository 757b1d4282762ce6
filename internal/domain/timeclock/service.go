package timeclock

import (
	"context"
)

type SessionService interface {
	// ClockIn opens a session for userID. Fails with ErrAlreadyClockedIn if one is open.
	ClockIn(ctx context.Context, userID string) (EntryResponse, error)

	// ClockOut closes the user's open session and runs the clock-out rules.
	// Fails with ErrNotClockedIn if there is none, including when a concurrent
	// call closed it first.
	ClockOut(ctx context.Context, userID string) (EntryResponse, error)

	// GetActiveEntry returns the open session, or nil when the user is clocked out.
	GetActiveEntry(ctx context.Context, userID string) (*EntryResponse, error)

	// ListMyEntries returns the user's own entries, newest first.
	ListMyEntries(ctx context.Context, userID string, filter PeriodFilter) ([]EntryResponse, error)
}

type ReportService interface {
	// GetTeamTotals returns entries and per-employee overtime totals for the
	// departments managerID may see.
	GetTeamTotals(ctx context.Context, managerID string, filter TeamTotalsFilter) (*TeamTotalsResponse, error)

	// GetMissedPunches returns open entries older than the staleness bound,
	// optionally restricted to departmentIDs. It never mutates entries.
	GetMissedPunches(ctx context.Context, departmentIDs []string) ([]EntryResponse, error)

	// GetMissedPunchesForManager scopes GetMissedPunches to what managerID may see.
	GetMissedPunchesForManager(ctx context.Context, managerID string, departmentIDs []string) ([]EntryResponse, error)
}

type AlertService interface {
	// GetAlertStatus returns the live daily/weekly overtime position for userID,
	// or nil when employee notifications are disabled.
	GetAlertStatus(ctx context.Context, userID string) (*AlertStatus, error)
}

type ApprovalService interface {
	// ApproveEntry approves and locks a closed entry.
	ApproveEntry(ctx context.Context, entryID, approverID string) (EntryResponse, error)

	// BulkApprove approves several entries in one transaction, reporting a per-item outcome.
	BulkApprove(ctx context.Context, entryIDs []string, approverID string) (*BulkApproveResult, error)

	// RejectEntry rejects a closed, unlocked entry with a mandatory note. The entry stays unlocked.
	RejectEntry(ctx context.Context, entryID, approverID string, req RejectRequest) (EntryResponse, error)
}
