package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"\t\n", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, IsEmpty(c.input), "IsEmpty(%q)", c.input)
	}
}

func TestIsValidUUID(t *testing.T) {
	assert.True(t, IsValidUUID("0190f6a4-8f3e-7c1d-9a2b-3c4d5e6f7a8b"))
	assert.True(t, IsValidUUID("123e4567-e89b-12d3-a456-426614174000"))
	assert.False(t, IsValidUUID("not-a-uuid"))
	assert.False(t, IsValidUUID("123e4567e89b12d3a456426614174000"))
	assert.False(t, IsValidUUID(""))
}

func TestIsValidDate(t *testing.T) {
	d, ok := IsValidDate("2024-03-10")
	require.True(t, ok)
	assert.Equal(t, 10, d.Day())

	_, ok = IsValidDate("2024-13-01")
	assert.False(t, ok)
	_, ok = IsValidDate("10/03/2024")
	assert.False(t, ok)
}

func TestIsValidTimezone(t *testing.T) {
	assert.True(t, IsValidTimezone("UTC"))
	assert.True(t, IsValidTimezone("America/New_York"))
	assert.False(t, IsValidTimezone("Mars/Olympus"))
	assert.False(t, IsValidTimezone(" "))
}

func TestValidationErrors(t *testing.T) {
	var errs ValidationErrors
	assert.NoError(t, errs.Err())

	errs.Add("note", "note is required")
	errs.Add("period_end", "period_end must not be before period_start")

	err := errs.Err()
	require.Error(t, err)
	assert.Equal(t, "note: note is required; period_end: period_end must not be before period_start", err.Error())
	assert.Equal(t, map[string]string{
		"note":       "note is required",
		"period_end": "period_end must not be before period_start",
	}, errs.ToMap())
}

func TestIsInSlice(t *testing.T) {
	statuses := []string{"pending", "approved", "rejected"}
	assert.True(t, IsInSlice("approved", statuses))
	assert.False(t, IsInSlice("locked", statuses))
	assert.False(t, IsInSlice("approved", nil))
}
