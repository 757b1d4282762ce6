package audit

import (
	"context"
	"time"
)

// Actions recorded by the timeclock engine.
const (
	ActionAutoApprove     = "timeclock.auto_approve"
	ActionAutoReject      = "timeclock.auto_reject"
	ActionApprove         = "timeclock.approve"
	ActionReject          = "timeclock.reject"
	ActionSettingsUpdated = "timeclock.settings_update"
)

const (
	EntityTimeclockEntry = "timeclock_entry"
	EntitySettings       = "timeclock_settings"
)

// SystemActor is recorded as the user of events produced without a human actor.
const SystemActor = "system"

// Event is one audit record. Before and After are JSON-encodable snapshots.
type Event struct {
	ID         string
	UserID     string
	Action     string
	EntityType string
	EntityID   string
	Before     interface{}
	After      interface{}
	CreatedAt  time.Time
}

// Sink persists audit events.
type Sink interface {
	RecordEvent(ctx context.Context, event Event) error
}
