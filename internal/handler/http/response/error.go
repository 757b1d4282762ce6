package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/department"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/rules"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeclock"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/validator"
)

// errorCode gives clients a stable code for the errors they are expected to branch on.
func errorCode(err error) string {
	switch {
	case errors.Is(err, timeclock.ErrAlreadyClockedIn):
		return "ALREADY_CLOCKED_IN"
	case errors.Is(err, timeclock.ErrNotClockedIn):
		return "NOT_CLOCKED_IN"
	case errors.Is(err, timeclock.ErrEntryLocked):
		return "ENTRY_LOCKED"
	case errors.Is(err, timeclock.ErrAlreadyApproved):
		return "ALREADY_APPROVED"
	case errors.Is(err, timeclock.ErrActiveEntry):
		return "ACTIVE_ENTRY"
	case errors.Is(err, department.ErrDepartmentInactive):
		return "DEPARTMENT_INACTIVE"
	case errors.Is(err, rules.ErrVersionConflict):
		return "VERSION_CONFLICT"
	case errors.Is(err, timeclock.ErrNotAuthorizedForDepartment):
		return "NOT_AUTHORIZED_FOR_DEPARTMENT"
	case errors.Is(err, user.ErrInsufficientCapability):
		return "INSUFFICIENT_CAPABILITY"
	case errors.Is(err, user.ErrUserInactive):
		return "USER_INACTIVE"
	}
	return ""
}

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	if errors.Is(err, user.ErrUnauthenticated) {
		Unauthorized(w, "Authentication required")
		return
	}

	switch timeclock.KindOf(err) {
	case timeclock.KindConflict:
		Conflict(w, errorCode(err), err.Error())
	case timeclock.KindAuthorization:
		Forbidden(w, errorCode(err), err.Error())
	case timeclock.KindNotFound:
		NotFound(w, err.Error())
	case timeclock.KindTransient:
		slog.Warn("temporary store failure", "error", err)
		ServiceUnavailable(w, "Temporary failure, please retry")
	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
