package http

import (
	"net/http"
	"strings"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeclock"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/handler/http/response"
	"github.com/go-chi/jwtauth/v5"
)

type TimeclockHandler interface {
	ClockIn(w http.ResponseWriter, r *http.Request)
	ClockOut(w http.ResponseWriter, r *http.Request)
	GetActive(w http.ResponseWriter, r *http.Request)
	ListMyEntries(w http.ResponseWriter, r *http.Request)
	GetAlertStatus(w http.ResponseWriter, r *http.Request)
	GetTeamTotals(w http.ResponseWriter, r *http.Request)
	GetMissedPunches(w http.ResponseWriter, r *http.Request)
}

type timeclockHandlerImpl struct {
	sessions timeclock.SessionService
	reports  timeclock.ReportService
	alerts   timeclock.AlertService
}

func NewTimeclockHandler(sessions timeclock.SessionService, reports timeclock.ReportService, alerts timeclock.AlertService) TimeclockHandler {
	return &timeclockHandlerImpl{
		sessions: sessions,
		reports:  reports,
		alerts:   alerts,
	}
}

// getUserIDFromContext extracts user_id from JWT context
func getUserIDFromContext(r *http.Request) string {
	_, claims, _ := jwtauth.FromContext(r.Context())
	if userID, ok := claims["user_id"].(string); ok {
		return userID
	}
	return ""
}

// optionalQuery returns nil when key is absent.
func optionalQuery(r *http.Request, key string) *string {
	if !r.URL.Query().Has(key) {
		return nil
	}
	v := strings.TrimSpace(r.URL.Query().Get(key))
	return &v
}

func periodFilterFromQuery(r *http.Request) timeclock.PeriodFilter {
	return timeclock.PeriodFilter{
		Status:      optionalQuery(r, "status"),
		PeriodStart: optionalQuery(r, "period_start"),
		PeriodEnd:   optionalQuery(r, "period_end"),
	}
}

// ClockIn implements TimeclockHandler.
func (h *timeclockHandlerImpl) ClockIn(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r)
	if userID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	result, err := h.sessions.ClockIn(r.Context(), userID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Clock in successful", result)
}

// ClockOut implements TimeclockHandler.
func (h *timeclockHandlerImpl) ClockOut(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r)
	if userID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	result, err := h.sessions.ClockOut(r.Context(), userID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Clock out successful", result)
}

// GetActive implements TimeclockHandler. data is null when the user is clocked out.
func (h *timeclockHandlerImpl) GetActive(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r)
	if userID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	result, err := h.sessions.GetActiveEntry(r.Context(), userID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ListMyEntries implements TimeclockHandler.
func (h *timeclockHandlerImpl) ListMyEntries(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r)
	if userID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	result, err := h.sessions.ListMyEntries(r.Context(), userID, periodFilterFromQuery(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result, &response.Meta{TotalItems: len(result)})
}

// GetAlertStatus implements TimeclockHandler.
func (h *timeclockHandlerImpl) GetAlertStatus(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r)
	if userID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	result, err := h.alerts.GetAlertStatus(r.Context(), userID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// GetTeamTotals implements TimeclockHandler.
func (h *timeclockHandlerImpl) GetTeamTotals(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r)
	if userID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	filter := timeclock.TeamTotalsFilter{
		PeriodFilter: periodFilterFromQuery(r),
		DepartmentID: optionalQuery(r, "department_id"),
		UserID:       optionalQuery(r, "user_id"),
	}

	result, err := h.reports.GetTeamTotals(r.Context(), userID, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// GetMissedPunches implements TimeclockHandler. department_id may be repeated.
func (h *timeclockHandlerImpl) GetMissedPunches(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r)
	if userID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var departmentIDs []string
	for _, id := range r.URL.Query()["department_id"] {
		if id = strings.TrimSpace(id); id != "" {
			departmentIDs = append(departmentIDs, id)
		}
	}

	result, err := h.reports.GetMissedPunchesForManager(r.Context(), userID, departmentIDs)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result, &response.Meta{TotalItems: len(result)})
}
