package timeclock

import (
	"encoding/json"
	"fmt"
	"time"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// FlagReason explains why the clock-out pipeline held an entry back.
type FlagReason string

const (
	FlagBelowMinimum        FlagReason = "BELOW_MINIMUM"
	FlagAboveMaximum        FlagReason = "ABOVE_MAXIMUM"
	FlagNonPositiveDuration FlagReason = "NON_POSITIVE_DURATION"
)

type ApproverKind string

const (
	ApproverHuman  ApproverKind = "human"
	ApproverSystem ApproverKind = "system"
)

// Approver is either a person or the system. The zero value is invalid;
// build one with HumanApprover or SystemApprover.
type Approver struct {
	kind   ApproverKind
	userID string
}

func HumanApprover(userID string) Approver {
	return Approver{kind: ApproverHuman, userID: userID}
}

func SystemApprover() Approver {
	return Approver{kind: ApproverSystem}
}

func (a Approver) Kind() ApproverKind { return a.kind }
func (a Approver) IsSystem() bool     { return a.kind == ApproverSystem }

// UserID returns the approving user. ok is false for the system approver.
func (a Approver) UserID() (id string, ok bool) {
	return a.userID, a.kind == ApproverHuman
}

// Columns returns the persisted form of the approver.
func (a Approver) Columns() (kind string, userID *string) {
	if a.kind == ApproverHuman {
		id := a.userID
		return string(a.kind), &id
	}
	return string(a.kind), nil
}

// ApproverFromColumns rebuilds an approver from its persisted form. A nil kind means "not approved".
func ApproverFromColumns(kind *string, userID *string) (*Approver, error) {
	if kind == nil || *kind == "" {
		return nil, nil
	}
	switch ApproverKind(*kind) {
	case ApproverSystem:
		a := SystemApprover()
		return &a, nil
	case ApproverHuman:
		if userID == nil || *userID == "" {
			return nil, fmt.Errorf("human approver without user id")
		}
		a := HumanApprover(*userID)
		return &a, nil
	}
	return nil, fmt.Errorf("unknown approver kind %q", *kind)
}

type approverJSON struct {
	Kind   ApproverKind `json:"kind"`
	UserID *string      `json:"user_id,omitempty"`
}

func (a Approver) MarshalJSON() ([]byte, error) {
	v := approverJSON{Kind: a.kind}
	if a.kind == ApproverHuman {
		id := a.userID
		v.UserID = &id
	}
	return json.Marshal(v)
}

func (a *Approver) UnmarshalJSON(data []byte) error {
	var v approverJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	kind := string(v.Kind)
	parsed, err := ApproverFromColumns(&kind, v.UserID)
	if err != nil {
		return err
	}
	if parsed == nil {
		return fmt.Errorf("approver kind is required")
	}
	*a = *parsed
	return nil
}

// Entry is one clock-in/clock-out session. Durations are in seconds.
type Entry struct {
	ID     string
	UserID string
	// DepartmentID is the owner's current department, resolved at read time.
	DepartmentID *string

	ClockIn  time.Time
	ClockOut *time.Time

	RawDuration   *int64
	BreakDeducted *int64
	Duration      *int64

	Status       Status
	FlagReason   *FlagReason
	AutoApproved bool
	RejectedNote *string

	ApprovedBy *Approver
	ApprovedAt *time.Time
	IsLocked   bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsOpen reports whether the session has not been clocked out.
func (e *Entry) IsOpen() bool {
	return e.ClockOut == nil
}

// IsCompleted reports whether the entry is closed and finalized.
func (e *Entry) IsCompleted() bool {
	return e.ClockOut != nil && e.Duration != nil
}

// DurationMinutes returns the finalized duration in whole minutes, 0 for open entries.
func (e *Entry) DurationMinutes() int64 {
	if e.Duration == nil {
		return 0
	}
	return *e.Duration / 60
}
