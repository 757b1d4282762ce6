package rules

import (
	"fmt"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/rules"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeclock"
)

// Outcome is the result of running the clock-out rules over one raw duration.
// Durations are in seconds.
type Outcome struct {
	RawDuration   int64
	BreakDeducted *int64
	Duration      int64
	FlagReason    *timeclock.FlagReason
	Status        timeclock.Status
	AutoApproved  bool
	RejectedNote  *string
	// Locked is true exactly when the entry was auto-approved.
	Locked bool
}

// Evaluate runs break deduction, rounding, the minimum-duration check and the
// disposition policy, in that order. It is pure: the same input always yields
// the same Outcome, and "bad" durations are reported as data, never as errors.
func Evaluate(rawSeconds int64, cfg rules.RulesConfig) Outcome {
	if rawSeconds <= 0 {
		flag := timeclock.FlagNonPositiveDuration
		return Outcome{
			RawDuration: 0,
			Duration:    0,
			FlagReason:  &flag,
			Status:      timeclock.StatusPending,
		}
	}

	out := Outcome{RawDuration: rawSeconds, Status: timeclock.StatusPending}

	// 1. break deduction
	afterBreak := rawSeconds - BreakFor(rawSeconds, cfg.BreakRules)
	if afterBreak < 0 {
		afterBreak = 0
	}
	if deducted := rawSeconds - afterBreak; deducted > 0 {
		out.BreakDeducted = &deducted
	}

	// 2. rounding
	out.Duration = Round(afterBreak, cfg.Rounding)

	// 3. minimum / plausibility checks
	policy := cfg.Disposition
	switch {
	case cfg.MinimumDurationSeconds > 0 && out.Duration < cfg.MinimumDurationSeconds:
		flag := timeclock.FlagBelowMinimum
		out.FlagReason = &flag
	case policy.MaximumPlausibleSeconds != nil && out.Duration > *policy.MaximumPlausibleSeconds:
		flag := timeclock.FlagAboveMaximum
		out.FlagReason = &flag
	}

	// 4. disposition
	switch {
	case out.FlagReason != nil && *out.FlagReason == timeclock.FlagBelowMinimum && policy.AutoRejectBelowMinimum:
		note := fmt.Sprintf("Auto-rejected: worked %s is below the minimum payable duration of %s",
			formatSeconds(out.Duration), formatSeconds(cfg.MinimumDurationSeconds))
		out.Status = timeclock.StatusRejected
		out.RejectedNote = &note
	case out.FlagReason != nil && *out.FlagReason == timeclock.FlagAboveMaximum && policy.AutoRejectAboveMaximum:
		note := fmt.Sprintf("Auto-rejected: worked %s exceeds the maximum plausible duration of %s",
			formatSeconds(out.Duration), formatSeconds(*policy.MaximumPlausibleSeconds))
		out.Status = timeclock.StatusRejected
		out.RejectedNote = &note
	case out.FlagReason == nil && policy.AutoApprove && out.Duration > 0 &&
		(policy.AutoApproveMaxSeconds == nil || out.Duration <= *policy.AutoApproveMaxSeconds):
		out.Status = timeclock.StatusApproved
		out.AutoApproved = true
		out.Locked = true
	}

	return out
}

// BreakFor returns the deduction of the bracket with the largest OverSeconds
// strictly below rawSeconds, or 0 when no bracket applies.
func BreakFor(rawSeconds int64, brackets []rules.BreakRule) int64 {
	var (
		deduct int64
		best   int64 = -1
	)
	for _, b := range brackets {
		if rawSeconds > b.OverSeconds && b.OverSeconds > best {
			best = b.OverSeconds
			deduct = b.DeductSeconds
		}
	}
	if deduct < 0 {
		return 0
	}
	return deduct
}

// Round rounds seconds (>= 0) to a multiple of rule.UnitSeconds. Units of 0 or
// 1 second leave the value unchanged. Nearest rounds ties up. Rounding a value
// that is already a multiple of the unit returns it unchanged.
func Round(seconds int64, rule rules.RoundingRule) int64 {
	unit := rule.UnitSeconds
	if unit <= 1 || seconds <= 0 {
		return seconds
	}

	q, r := seconds/unit, seconds%unit
	if r == 0 {
		return seconds
	}

	switch rule.Direction {
	case rules.RoundUp:
		return (q + 1) * unit
	case rules.RoundDown:
		return q * unit
	default:
		if 2*r >= unit {
			return (q + 1) * unit
		}
		return q * unit
	}
}

func formatSeconds(s int64) string {
	h, m := s/3600, (s%3600)/60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh%dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	case m > 0:
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%ds", s)
}
