package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeclock"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type ApprovalHandler interface {
	Approve(w http.ResponseWriter, r *http.Request)
	Reject(w http.ResponseWriter, r *http.Request)
	BulkApprove(w http.ResponseWriter, r *http.Request)
}

type approvalHandlerImpl struct {
	approvals timeclock.ApprovalService
}

func NewApprovalHandler(approvals timeclock.ApprovalService) ApprovalHandler {
	return &approvalHandlerImpl{approvals: approvals}
}

// Approve implements ApprovalHandler.
func (h *approvalHandlerImpl) Approve(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r)
	if userID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	entryID := chi.URLParam(r, "id")
	if entryID == "" {
		response.BadRequest(w, "Entry ID is required", nil)
		return
	}

	result, err := h.approvals.ApproveEntry(r.Context(), entryID, userID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Entry approved", result)
}

// Reject implements ApprovalHandler.
func (h *approvalHandlerImpl) Reject(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r)
	if userID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	entryID := chi.URLParam(r, "id")
	if entryID == "" {
		response.BadRequest(w, "Entry ID is required", nil)
		return
	}

	var req timeclock.RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.approvals.RejectEntry(r.Context(), entryID, userID, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Entry rejected", result)
}

// BulkApprove implements ApprovalHandler. Per-item failures are reported in the
// body; the request itself succeeds.
func (h *approvalHandlerImpl) BulkApprove(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r)
	if userID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req timeclock.BulkApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.approvals.BulkApprove(r.Context(), req.EntryIDs, userID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Bulk approval processed", result)
}
