package rules

import (
	"testing"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/rules"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	minute = int64(60)
	hour   = 60 * minute
)

func int64Ptr(v int64) *int64 { return &v }

func standardConfig() rules.RulesConfig {
	return rules.RulesConfig{
		BreakRules: []rules.BreakRule{
			{OverSeconds: 6 * hour, DeductSeconds: 30 * minute},
		},
		Rounding:               rules.RoundingRule{UnitSeconds: 15 * minute, Direction: rules.RoundNearest},
		MinimumDurationSeconds: 5 * minute,
		Disposition: rules.DispositionPolicy{
			AutoApprove:            true,
			AutoApproveMaxSeconds:  int64Ptr(12 * hour),
			AutoRejectBelowMinimum: true,
		},
	}
}

func TestEvaluate_FullShiftWithBreak(t *testing.T) {
	out := Evaluate(8*hour+45*minute, standardConfig())

	require.NotNil(t, out.BreakDeducted)
	assert.Equal(t, 30*minute, *out.BreakDeducted)
	assert.Equal(t, 8*hour+15*minute, out.Duration)
	assert.Equal(t, 8*hour+45*minute, out.RawDuration)
	assert.Nil(t, out.FlagReason)
	assert.Equal(t, timeclock.StatusApproved, out.Status)
	assert.True(t, out.AutoApproved)
	assert.True(t, out.Locked)
	assert.Nil(t, out.RejectedNote)
}

func TestEvaluate_BelowMinimumIsRejectedNotLocked(t *testing.T) {
	out := Evaluate(3*minute, standardConfig())

	require.NotNil(t, out.FlagReason)
	assert.Equal(t, timeclock.FlagBelowMinimum, *out.FlagReason)
	assert.Equal(t, timeclock.StatusRejected, out.Status)
	require.NotNil(t, out.RejectedNote)
	assert.Contains(t, *out.RejectedNote, "below the minimum")
	assert.False(t, out.Locked)
	assert.False(t, out.AutoApproved)
	assert.Nil(t, out.BreakDeducted)
}

func TestEvaluate_BelowMinimumWithoutAutoRejectStaysPending(t *testing.T) {
	cfg := standardConfig()
	cfg.Disposition.AutoRejectBelowMinimum = false

	out := Evaluate(3*minute, cfg)

	require.NotNil(t, out.FlagReason)
	assert.Equal(t, timeclock.StatusPending, out.Status)
	assert.Nil(t, out.RejectedNote)
}

func TestEvaluate_NonPositiveDurationIsClampedAndHeld(t *testing.T) {
	for _, raw := range []int64{0, -90} {
		out := Evaluate(raw, standardConfig())

		assert.Zero(t, out.RawDuration)
		assert.Zero(t, out.Duration)
		require.NotNil(t, out.FlagReason)
		assert.Equal(t, timeclock.FlagNonPositiveDuration, *out.FlagReason)
		assert.Equal(t, timeclock.StatusPending, out.Status)
		assert.False(t, out.AutoApproved)
	}
}

func TestEvaluate_BreakNeverUnderflows(t *testing.T) {
	cfg := rules.RulesConfig{
		BreakRules: []rules.BreakRule{{OverSeconds: 0, DeductSeconds: 2 * hour}},
	}

	out := Evaluate(45*minute, cfg)

	assert.Zero(t, out.Duration)
	require.NotNil(t, out.BreakDeducted)
	assert.Equal(t, 45*minute, *out.BreakDeducted, "only what was worked can be deducted")
	assert.Equal(t, timeclock.StatusPending, out.Status, "zero payable time is never auto-approved")
}

func TestEvaluate_AboveAutoApproveCapStaysPending(t *testing.T) {
	out := Evaluate(13*hour, standardConfig())

	assert.Nil(t, out.FlagReason)
	assert.Equal(t, timeclock.StatusPending, out.Status)
	assert.False(t, out.Locked)
}

func TestEvaluate_ImplausibleDuration(t *testing.T) {
	cfg := standardConfig()
	cfg.Disposition.MaximumPlausibleSeconds = int64Ptr(16 * hour)

	out := Evaluate(20*hour, cfg)
	require.NotNil(t, out.FlagReason)
	assert.Equal(t, timeclock.FlagAboveMaximum, *out.FlagReason)
	assert.Equal(t, timeclock.StatusPending, out.Status)

	cfg.Disposition.AutoRejectAboveMaximum = true
	out = Evaluate(20*hour, cfg)
	assert.Equal(t, timeclock.StatusRejected, out.Status)
	require.NotNil(t, out.RejectedNote)
	assert.Contains(t, *out.RejectedNote, "maximum plausible")
}

func TestEvaluate_AutoApproveDisabled(t *testing.T) {
	cfg := standardConfig()
	cfg.Disposition.AutoApprove = false

	out := Evaluate(8*hour, cfg)

	assert.Equal(t, timeclock.StatusPending, out.Status)
	assert.False(t, out.AutoApproved)
}

func TestEvaluate_IsDeterministic(t *testing.T) {
	cfg := standardConfig()
	cfg.Disposition.MaximumPlausibleSeconds = int64Ptr(16 * hour)
	for _, raw := range []int64{-1, 0, 1, 4 * minute, 6*hour + 1, 8*hour + 7*minute + 30, 17 * hour} {
		assert.Equal(t, Evaluate(raw, cfg), Evaluate(raw, cfg), "raw=%d", raw)
	}
}

func TestBreakFor_PicksLargestApplicableBracket(t *testing.T) {
	brackets := []rules.BreakRule{
		{OverSeconds: 10 * hour, DeductSeconds: 60 * minute},
		{OverSeconds: 4 * hour, DeductSeconds: 15 * minute},
		{OverSeconds: 6 * hour, DeductSeconds: 30 * minute},
	}

	assert.Zero(t, BreakFor(4*hour, brackets), "bracket applies only when strictly over")
	assert.Equal(t, 15*minute, BreakFor(4*hour+1, brackets))
	assert.Equal(t, 30*minute, BreakFor(8*hour, brackets))
	assert.Equal(t, 60*minute, BreakFor(11*hour, brackets))
	assert.Zero(t, BreakFor(8*hour, nil))
}

func TestRound(t *testing.T) {
	quarter := func(dir rules.RoundingDirection) rules.RoundingRule {
		return rules.RoundingRule{UnitSeconds: 15 * minute, Direction: dir}
	}

	cases := []struct {
		name    string
		seconds int64
		rule    rules.RoundingRule
		want    int64
	}{
		{"identity unit", 8*hour + 7, rules.RoundingRule{UnitSeconds: 0}, 8*hour + 7},
		{"nearest down", 8*hour + 7*minute, quarter(rules.RoundNearest), 8 * hour},
		{"nearest up", 8*hour + 8*minute, quarter(rules.RoundNearest), 8*hour + 15*minute},
		{"nearest tie goes up", 8*hour + 7*minute + 30, quarter(rules.RoundNearest), 8*hour + 15*minute},
		{"empty direction is nearest", 8*hour + 8*minute, quarter(""), 8*hour + 15*minute},
		{"up", 8*hour + 1, quarter(rules.RoundUp), 8*hour + 15*minute},
		{"down", 8*hour + 14*minute + 59, quarter(rules.RoundDown), 8 * hour},
		{"nearest minute", 90, rules.RoundingRule{UnitSeconds: minute, Direction: rules.RoundNearest}, 2 * minute},
		{"aligned", 8*hour + 15*minute, quarter(rules.RoundUp), 8*hour + 15*minute},
		{"zero", 0, quarter(rules.RoundUp), 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Round(c.seconds, c.rule))
		})
	}
}

func TestRound_IsIdempotent(t *testing.T) {
	units := []int64{0, 1, minute, 6 * minute, 15 * minute, hour}
	dirs := []rules.RoundingDirection{rules.RoundNearest, rules.RoundUp, rules.RoundDown}

	for _, unit := range units {
		for _, dir := range dirs {
			rule := rules.RoundingRule{UnitSeconds: unit, Direction: dir}
			for s := int64(0); s < 2*hour; s += 37 {
				once := Round(s, rule)
				assert.Equal(t, once, Round(once, rule), "unit=%d dir=%s s=%d", unit, dir, s)
			}
		}
	}
}
