package timeclock

import (
	"context"
	"errors"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/department"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/rules"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/validator"
)

var (
	ErrAlreadyClockedIn           = errors.New("user is already clocked in")
	ErrNotClockedIn               = errors.New("user is not clocked in")
	ErrEntryNotFound              = errors.New("timeclock entry not found")
	ErrAlreadyApproved            = errors.New("timeclock entry is already approved")
	ErrEntryLocked                = errors.New("timeclock entry is locked")
	ErrActiveEntry                = errors.New("timeclock entry has no clock out")
	ErrNotAuthorizedForDepartment = errors.New("not authorized for department")

	// ErrTransitionConflict is returned by repositories when a guarded update
	// matched no row because the entry changed underneath the caller.
	ErrTransitionConflict = errors.New("timeclock entry changed concurrently")

	// ErrTransient marks store failures that are safe to retry.
	ErrTransient = errors.New("temporary store failure")
)

type ErrorKind string

const (
	KindConflict      ErrorKind = "conflict"
	KindAuthorization ErrorKind = "authorization"
	KindValidation    ErrorKind = "validation"
	KindNotFound      ErrorKind = "not_found"
	KindTransient     ErrorKind = "transient"
	KindInternal      ErrorKind = "internal"
)

// KindOf classifies err into the engine's error taxonomy.
func KindOf(err error) ErrorKind {
	var verrs validator.ValidationErrors
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verrs):
		return KindValidation
	case errors.Is(err, ErrAlreadyClockedIn),
		errors.Is(err, ErrNotClockedIn),
		errors.Is(err, ErrAlreadyApproved),
		errors.Is(err, ErrEntryLocked),
		errors.Is(err, ErrActiveEntry),
		errors.Is(err, ErrTransitionConflict),
		errors.Is(err, department.ErrDepartmentInactive),
		errors.Is(err, rules.ErrVersionConflict):
		return KindConflict
	case errors.Is(err, ErrNotAuthorizedForDepartment),
		errors.Is(err, user.ErrInsufficientCapability),
		errors.Is(err, user.ErrUnauthenticated),
		errors.Is(err, user.ErrUserInactive):
		return KindAuthorization
	case errors.Is(err, ErrEntryNotFound),
		errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, department.ErrDepartmentNotFound):
		return KindNotFound
	case IsRetryable(err):
		return KindTransient
	}
	return KindInternal
}

// IsRetryable reports whether the caller may safely retry the operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded)
}
