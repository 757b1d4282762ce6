package rules

import (
	"time"
)

type RoundingDirection string

const (
	RoundNearest RoundingDirection = "nearest" // ties round up to the larger multiple
	RoundUp      RoundingDirection = "up"
	RoundDown    RoundingDirection = "down"
)

// BreakRule deducts DeductSeconds from sessions strictly longer than OverSeconds.
type BreakRule struct {
	OverSeconds   int64 `json:"over_seconds"`
	DeductSeconds int64 `json:"deduct_seconds"`
}

type RoundingRule struct {
	UnitSeconds int64             `json:"unit_seconds"`
	Direction   RoundingDirection `json:"direction"`
}

// DispositionPolicy decides what happens to a closed entry after rounding.
// Nil bounds mean "unbounded".
type DispositionPolicy struct {
	AutoApprove             bool   `json:"auto_approve"`
	AutoApproveMaxSeconds   *int64 `json:"auto_approve_max_seconds"`
	AutoRejectBelowMinimum  bool   `json:"auto_reject_below_minimum"`
	MaximumPlausibleSeconds *int64 `json:"maximum_plausible_seconds"`
	AutoRejectAboveMaximum  bool   `json:"auto_reject_above_maximum"`
}

type RulesConfig struct {
	BreakRules             []BreakRule       `json:"break_rules"`
	Rounding               RoundingRule      `json:"rounding"`
	MinimumDurationSeconds int64             `json:"minimum_duration_seconds"`
	Disposition            DispositionPolicy `json:"disposition"`
}

// OvertimeConfig holds the overtime thresholds. A nil threshold disables that dimension.
type OvertimeConfig struct {
	DailyThresholdMinutes  *int `json:"daily_threshold_minutes"`
	WeeklyThresholdMinutes *int `json:"weekly_threshold_minutes"`
	NotifyEmployee         bool `json:"notify_employee"`
	// AlertMarginMinutes is how far below a threshold "approaching" starts. 0 uses the service default.
	AlertMarginMinutes int `json:"alert_margin_minutes"`
}

// Settings is the full tenant configuration. It is read as one snapshot per
// evaluation and must be treated as immutable once published.
type Settings struct {
	Rules     RulesConfig    `json:"rules"`
	Overtime  OvertimeConfig `json:"overtime"`
	Timezone  string         `json:"timezone"`
	Version   int64          `json:"version"`
	UpdatedAt time.Time      `json:"updated_at"`
	UpdatedBy *string        `json:"updated_by,omitempty"`
}

// Default returns the configuration used before an administrator saves one:
// no breaks, no rounding, no minimum, every entry left for manual review.
func Default(timezone string) Settings {
	return Settings{
		Rules: RulesConfig{
			BreakRules: []BreakRule{},
			Rounding:   RoundingRule{UnitSeconds: 0, Direction: RoundNearest},
			Disposition: DispositionPolicy{
				AutoRejectBelowMinimum: true,
			},
		},
		Timezone: timezone,
	}
}

// Location loads the configured timezone, falling back to UTC.
func (s *Settings) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Clone returns a deep copy so callers can build a new version without touching a published snapshot.
func (s Settings) Clone() Settings {
	out := s
	out.Rules.BreakRules = append([]BreakRule(nil), s.Rules.BreakRules...)
	out.Rules.Disposition.AutoApproveMaxSeconds = cloneInt64(s.Rules.Disposition.AutoApproveMaxSeconds)
	out.Rules.Disposition.MaximumPlausibleSeconds = cloneInt64(s.Rules.Disposition.MaximumPlausibleSeconds)
	out.Overtime.DailyThresholdMinutes = cloneInt(s.Overtime.DailyThresholdMinutes)
	out.Overtime.WeeklyThresholdMinutes = cloneInt(s.Overtime.WeeklyThresholdMinutes)
	if s.UpdatedBy != nil {
		v := *s.UpdatedBy
		out.UpdatedBy = &v
	}
	return out
}

func cloneInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
