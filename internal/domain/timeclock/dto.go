package timeclock

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

const MaxBulkApprove = 500

type EntryResponse struct {
	ID                   string      `json:"id"`
	UserID               string      `json:"user_id"`
	DepartmentID         *string     `json:"department_id"`
	ClockIn              time.Time   `json:"clock_in"`
	ClockOut             *time.Time  `json:"clock_out"`
	RawDurationSeconds   *int64      `json:"raw_duration_seconds"`
	BreakDeductedSeconds *int64      `json:"break_deducted_seconds"`
	DurationSeconds      *int64      `json:"duration_seconds"`
	DurationMinutes      *int64      `json:"duration_minutes"`
	Status               Status      `json:"status"`
	FlagReason           *FlagReason `json:"flag_reason"`
	AutoApproved         bool        `json:"auto_approved"`
	RejectedNote         *string     `json:"rejected_note"`
	ApprovedBy           *Approver   `json:"approved_by"`
	ApprovedAt           *time.Time  `json:"approved_at"`
	IsLocked             bool        `json:"is_locked"`
}

// NewEntryResponse maps an entry to its API shape.
func NewEntryResponse(e Entry) EntryResponse {
	resp := EntryResponse{
		ID:                   e.ID,
		UserID:               e.UserID,
		DepartmentID:         e.DepartmentID,
		ClockIn:              e.ClockIn,
		ClockOut:             e.ClockOut,
		RawDurationSeconds:   e.RawDuration,
		BreakDeductedSeconds: e.BreakDeducted,
		DurationSeconds:      e.Duration,
		Status:               e.Status,
		FlagReason:           e.FlagReason,
		AutoApproved:         e.AutoApproved,
		RejectedNote:         e.RejectedNote,
		ApprovedBy:           e.ApprovedBy,
		ApprovedAt:           e.ApprovedAt,
		IsLocked:             e.IsLocked,
	}
	if e.Duration != nil {
		m := e.DurationMinutes()
		resp.DurationMinutes = &m
	}
	return resp
}

// NewEntryResponses maps a slice, never returning nil.
func NewEntryResponses(entries []Entry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, NewEntryResponse(e))
	}
	return out
}

// AlertDimension is the live overtime position for one window.
type AlertDimension struct {
	CurrentMinutes   int64 `json:"current_minutes"`
	ThresholdMinutes *int  `json:"threshold_minutes"`
	Approaching      bool  `json:"approaching"`
	Exceeded         bool  `json:"exceeded"`
}

type AlertStatus struct {
	Daily         AlertDimension `json:"daily"`
	Weekly        AlertDimension `json:"weekly"`
	ActiveEntryID *string        `json:"active_entry_id"`
	AsOf          time.Time      `json:"as_of"`
}

// PeriodFilter selects entries by status and clock-in date (YYYY-MM-DD, inclusive, tenant timezone).
type PeriodFilter struct {
	Status      *string `json:"status"`
	PeriodStart *string `json:"period_start"`
	PeriodEnd   *string `json:"period_end"`
}

func (f *PeriodFilter) validate(errs *validator.ValidationErrors) {
	if f.Status != nil && !Status(*f.Status).IsValid() {
		errs.Add("status", "status must be one of pending, approved, rejected")
	}

	var start, end time.Time
	var startOK, endOK bool
	if f.PeriodStart != nil {
		if start, startOK = validator.IsValidDate(*f.PeriodStart); !startOK {
			errs.Add("period_start", "period_start must be in YYYY-MM-DD format")
		}
	}
	if f.PeriodEnd != nil {
		if end, endOK = validator.IsValidDate(*f.PeriodEnd); !endOK {
			errs.Add("period_end", "period_end must be in YYYY-MM-DD format")
		}
	}
	if startOK && endOK && end.Before(start) {
		errs.Add("period_end", "period_end must not be before period_start")
	}
}

// Validate checks status and period fields.
func (f *PeriodFilter) Validate() error {
	var errs validator.ValidationErrors
	f.validate(&errs)
	return errs.Err()
}

// Apply fills the status and clock-in bounds of an EntryFilter. The filter must be valid.
func (f *PeriodFilter) Apply(dst *EntryFilter, loc *time.Location) {
	if f.Status != nil {
		s := Status(*f.Status)
		dst.Status = &s
	}
	if f.PeriodStart != nil {
		if d, ok := validator.IsValidDate(*f.PeriodStart); ok {
			from := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
			dst.ClockInFrom = &from
		}
	}
	if f.PeriodEnd != nil {
		if d, ok := validator.IsValidDate(*f.PeriodEnd); ok {
			to := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
			dst.ClockInTo = &to
		}
	}
}

type TeamTotalsFilter struct {
	PeriodFilter
	DepartmentID *string `json:"department_id"`
	UserID       *string `json:"user_id"`
}

func (f *TeamTotalsFilter) Validate() error {
	var errs validator.ValidationErrors
	f.PeriodFilter.validate(&errs)
	if f.DepartmentID != nil && validator.IsEmpty(*f.DepartmentID) {
		errs.Add("department_id", "department_id must not be empty")
	}
	if f.UserID != nil && validator.IsEmpty(*f.UserID) {
		errs.Add("user_id", "user_id must not be empty")
	}
	return errs.Err()
}

// EmployeeTotal is one employee's aggregate for a team totals query.
type EmployeeTotal struct {
	UserID                string          `json:"user_id"`
	DepartmentID          *string         `json:"department_id"`
	EntryCount            int             `json:"entry_count"`
	PendingCount          int             `json:"pending_count"`
	TotalMinutes          int64           `json:"total_minutes"`
	RegularMinutes        int64           `json:"regular_minutes"`
	DailyOvertimeMinutes  int64           `json:"daily_overtime_minutes"`
	WeeklyOvertimeMinutes int64           `json:"weekly_overtime_minutes"`
	TotalHours            decimal.Decimal `json:"total_hours"`
	OvertimeHours         decimal.Decimal `json:"overtime_hours"`
}

type DepartmentSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TeamTotalsResponse struct {
	Entries               []EntryResponse     `json:"entries"`
	EmployeeTotals        []EmployeeTotal     `json:"employee_totals"`
	AccessibleDepartments []DepartmentSummary `json:"accessible_departments"`
}

type BulkApproveRequest struct {
	EntryIDs []string `json:"entry_ids"`
}

func (r *BulkApproveRequest) Validate() error {
	var errs validator.ValidationErrors
	if len(r.EntryIDs) == 0 {
		errs.Add("entry_ids", "entry_ids is required")
	}
	if len(r.EntryIDs) > MaxBulkApprove {
		errs.Add("entry_ids", "at most 500 entries can be approved at once")
	}
	for _, id := range r.EntryIDs {
		if validator.IsEmpty(id) {
			errs.Add("entry_ids", "entry_ids must not contain empty values")
			break
		}
	}
	return errs.Err()
}

type BulkOutcome string

const (
	OutcomeApproved BulkOutcome = "approved"
	OutcomeSkipped  BulkOutcome = "skipped"
	OutcomeFailed   BulkOutcome = "failed"
)

// Reasons reported per item by BulkApprove.
const (
	ReasonAlreadyApproved = "already approved"
	ReasonLocked          = "locked"
	ReasonActiveEntry     = "active entry (no clock out)"
	ReasonNotFound        = "not found"
	ReasonNotInDepartment = "not in assigned department"
)

type BulkItemResult struct {
	EntryID string      `json:"entry_id"`
	Outcome BulkOutcome `json:"outcome"`
	Reason  string      `json:"reason,omitempty"`
}

type BulkApproveResult struct {
	Approved int              `json:"approved"`
	Skipped  int              `json:"skipped"`
	Failed   int              `json:"failed"`
	Details  []BulkItemResult `json:"details"`
}

// Add records one item outcome.
func (r *BulkApproveResult) Add(entryID string, outcome BulkOutcome, reason string) {
	switch outcome {
	case OutcomeApproved:
		r.Approved++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	}
	r.Details = append(r.Details, BulkItemResult{EntryID: entryID, Outcome: outcome, Reason: reason})
}

type RejectRequest struct {
	Note string `json:"note"`
}

func (r *RejectRequest) Validate() error {
	var errs validator.ValidationErrors
	r.Note = strings.TrimSpace(r.Note)
	if r.Note == "" {
		errs.Add("note", "note is required")
	}
	if len(r.Note) > 1000 {
		errs.Add("note", "note must be at most 1000 characters")
	}
	return errs.Err()
}

type MissedPunchesRequest struct {
	DepartmentIDs []string `json:"department_ids"`
}
