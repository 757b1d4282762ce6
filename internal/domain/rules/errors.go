package rules

import "errors"

var (
	ErrSettingsNotFound = errors.New("timeclock settings not found")
	ErrVersionConflict  = errors.New("timeclock settings were changed by another update")
)
