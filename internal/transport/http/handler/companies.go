package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	companyapp "github.com/corpdeals-api/internal/application/company"
	"github.com/corpdeals-api/internal/domain"
	s3infra "github.com/corpdeals-api/internal/infrastructure/s3"
	"github.com/corpdeals-api/internal/pkg/validate"
)

// CompanyHandler handles the company directory endpoints.
type CompanyHandler struct {
	svc companyapp.Service
}

func NewCompanyHandler(svc companyapp.Service) *CompanyHandler {
	return &CompanyHandler{svc: svc}
}

func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	var verified *bool
	switch r.URL.Query().Get("verified") {
	case "true":
		v := true
		verified = &v
	case "false":
		v := false
		verified = &v
	}
	companies, err := h.svc.List(r.Context(), r.URL.Query().Get("search"), verified)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CompanyListEnvelope{Data: companies, Count: len(companies)})
}

func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), chi.URLParam(r, "idOrSlug"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CompanyHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer f.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = s3infra.DetectContentType(header.Filename)
	}
	c, err := h.svc.UploadLogo(r.Context(), chi.URLParam(r, "id"), header.Filename, contentType, f)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
