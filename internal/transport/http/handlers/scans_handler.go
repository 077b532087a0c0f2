package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gearscout/backend/internal/domain/enums"
	"github.com/gearscout/backend/internal/domain/model"
	authsvc "github.com/gearscout/backend/internal/services/auth"
	scansvc "github.com/gearscout/backend/internal/services/scans"
	"github.com/gearscout/backend/internal/transport/http/dto"
	httperrors "github.com/gearscout/backend/internal/transport/http/errors"
)

type ScansHandler struct {
	service *scansvc.Service
}

func NewScansHandler(service *scansvc.Service) *ScansHandler {
	return &ScansHandler{service: service}
}

func (h *ScansHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SCANS_SERVICE_UNAVAILABLE", "scans service is unavailable")
		return
	}

	var req dto.ScanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	result, err := h.service.Enqueue(r.Context(), identity.UserID, enums.ActionKind(req.Kind), req.Query)
	if err != nil {
		switch {
		case writeDomainError(w, err):
		case errors.Is(err, scansvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid scan payload")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to enqueue scan")
		}
		return
	}

	httperrors.Write(w, http.StatusAccepted, dto.ScanResponse{
		Job:              scanJobPayload(result.Job),
		Cost:             result.Cost,
		CreditsRemaining: result.Remaining,
	})
}

func (h *ScansHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SCANS_SERVICE_UNAVAILABLE", "scans service is unavailable")
		return
	}

	job, err := h.service.Get(r.Context(), identity.UserID, chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, scansvc.ErrJobNotFound):
			writeNotFound(w, "SCAN_JOB_NOT_FOUND", "scan job not found")
		case errors.Is(err, scansvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid scan job id")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load scan job")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, scanJobPayload(job))
}

func scanJobPayload(job model.ScanJob) dto.ScanJobPayload {
	return dto.ScanJobPayload{
		ID:        job.ID,
		Kind:      string(job.Kind),
		Query:     job.Query,
		Status:    job.Status,
		CreatedAt: job.CreatedAt.UTC(),
	}
}
