package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/corpdeals-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CompanyListEnvelope wraps company directory responses.
type CompanyListEnvelope struct {
	Data  []domain.Company `json:"data"`
	Count int              `json:"count"`
	Error string           `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// writeDomainError maps a domain error to its HTTP status. Policy rejections
// and bad codes are 400, unknown resources 404, the attempt ceiling 429, and
// role or write conflicts 409.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrPersonalEmail),
		errors.Is(err, domain.ErrDomainMismatch),
		errors.Is(err, domain.ErrCodeExpired),
		errors.Is(err, domain.ErrInvalidCode),
		errors.Is(err, domain.ErrAlreadyFinalized),
		errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrTooManyAttempts):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, domain.ErrRoleConflict), errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
