package rules

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/validator"
)

// UpdateSettingsRequest replaces the whole configuration. Partial updates are
// not supported so a snapshot is always internally consistent.
type UpdateSettingsRequest struct {
	Rules    RulesConfig    `json:"rules"`
	Overtime OvertimeConfig `json:"overtime"`
	Timezone string         `json:"timezone"`
	// Version is the version the caller read. 0 skips the check.
	Version int64 `json:"version"`
}

func (r *UpdateSettingsRequest) Validate() error {
	var errs validator.ValidationErrors

	seen := make(map[int64]struct{}, len(r.Rules.BreakRules))
	for i, b := range r.Rules.BreakRules {
		field := fmt.Sprintf("rules.break_rules[%d]", i)
		if b.OverSeconds < 0 {
			errs.Add(field+".over_seconds", "must not be negative")
		}
		if b.DeductSeconds <= 0 {
			errs.Add(field+".deduct_seconds", "must be greater than 0")
		}
		if _, dup := seen[b.OverSeconds]; dup {
			errs.Add(field+".over_seconds", "duplicate bracket")
		}
		seen[b.OverSeconds] = struct{}{}
	}

	if r.Rounding().UnitSeconds < 0 {
		errs.Add("rules.rounding.unit_seconds", "must not be negative")
	}
	if r.Rounding().UnitSeconds > 24*60*60 {
		errs.Add("rules.rounding.unit_seconds", "must not exceed one day")
	}
	switch r.Rounding().Direction {
	case RoundNearest, RoundUp, RoundDown, "":
	default:
		errs.Add("rules.rounding.direction", "must be one of nearest, up, down")
	}

	if r.Rules.MinimumDurationSeconds < 0 {
		errs.Add("rules.minimum_duration_seconds", "must not be negative")
	}

	d := r.Rules.Disposition
	if d.AutoApproveMaxSeconds != nil && *d.AutoApproveMaxSeconds <= 0 {
		errs.Add("rules.disposition.auto_approve_max_seconds", "must be greater than 0")
	}
	if d.MaximumPlausibleSeconds != nil {
		if *d.MaximumPlausibleSeconds <= 0 {
			errs.Add("rules.disposition.maximum_plausible_seconds", "must be greater than 0")
		} else if *d.MaximumPlausibleSeconds < r.Rules.MinimumDurationSeconds {
			errs.Add("rules.disposition.maximum_plausible_seconds", "must not be below minimum_duration_seconds")
		}
	}
	if d.AutoRejectAboveMaximum && d.MaximumPlausibleSeconds == nil {
		errs.Add("rules.disposition.auto_reject_above_maximum", "requires maximum_plausible_seconds")
	}

	if t := r.Overtime.DailyThresholdMinutes; t != nil && (*t <= 0 || *t > 24*60) {
		errs.Add("overtime.daily_threshold_minutes", "must be between 1 and 1440")
	}
	if t := r.Overtime.WeeklyThresholdMinutes; t != nil && (*t <= 0 || *t > 7*24*60) {
		errs.Add("overtime.weekly_threshold_minutes", "must be between 1 and 10080")
	}
	if r.Overtime.AlertMarginMinutes < 0 {
		errs.Add("overtime.alert_margin_minutes", "must not be negative")
	}

	if !validator.IsValidTimezone(r.Timezone) {
		errs.Add("timezone", "must be a valid IANA timezone")
	}

	return errs.Err()
}

// Rounding returns the rounding rule with the default direction filled in.
func (r *UpdateSettingsRequest) Rounding() RoundingRule {
	rr := r.Rules.Rounding
	if rr.Direction == "" {
		rr.Direction = RoundNearest
	}
	return rr
}

// ToSettings builds the next snapshot. Version and audit fields are set by the store.
func (r *UpdateSettingsRequest) ToSettings(actorID string, at time.Time) Settings {
	s := Settings{
		Rules:     r.Rules,
		Overtime:  r.Overtime,
		Timezone:  r.Timezone,
		UpdatedAt: at,
		UpdatedBy: &actorID,
	}
	s.Rules.Rounding = r.Rounding()
	if s.Rules.BreakRules == nil {
		s.Rules.BreakRules = []BreakRule{}
	}
	return s.Clone()
}
