package fixtures

import (
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/rules"
)

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }

// StandardSettings is a typical office configuration: 30 minute break over
// 6 hours, 15 minute nearest rounding, 1 hour minimum, auto-approval up to
// 10 hours, 8h/40h overtime thresholds.
func StandardSettings(timezone string) rules.Settings {
	s := rules.Default(timezone)
	s.Rules = rules.RulesConfig{
		BreakRules: []rules.BreakRule{
			{OverSeconds: 6 * 3600, DeductSeconds: 30 * 60},
		},
		Rounding:               rules.RoundingRule{UnitSeconds: 15 * 60, Direction: rules.RoundNearest},
		MinimumDurationSeconds: 3600,
		Disposition: rules.DispositionPolicy{
			AutoApprove:             true,
			AutoApproveMaxSeconds:   int64Ptr(10 * 3600),
			AutoRejectBelowMinimum:  true,
			MaximumPlausibleSeconds: int64Ptr(16 * 3600),
		},
	}
	s.Overtime = rules.OvertimeConfig{
		DailyThresholdMinutes:  intPtr(8 * 60),
		WeeklyThresholdMinutes: intPtr(40 * 60),
		NotifyEmployee:         true,
		AlertMarginMinutes:     30,
	}
	return s
}
