package handler

import (
	"encoding/json"
	"net/http"

	"github.com/corpdeals-api/internal/application/verification"
	"github.com/corpdeals-api/internal/domain"
	"github.com/corpdeals-api/internal/pkg/validate"
	"github.com/corpdeals-api/internal/transport/http/middleware"
)

// EmployeeVerificationHandler handles the verification flow endpoints.
type EmployeeVerificationHandler struct {
	svc verification.Service
}

func NewEmployeeVerificationHandler(svc verification.Service) *EmployeeVerificationHandler {
	return &EmployeeVerificationHandler{svc: svc}
}

func (h *EmployeeVerificationHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req domain.StartVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.svc.Start(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *EmployeeVerificationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmitCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.svc.Verify(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *EmployeeVerificationHandler) Status(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	result, err := h.svc.Status(r.Context(), claims.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
