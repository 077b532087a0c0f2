package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gearscout/backend/internal/domain/enums"
	"github.com/gearscout/backend/internal/domain/model"
	alertsvc "github.com/gearscout/backend/internal/services/alerts"
	authsvc "github.com/gearscout/backend/internal/services/auth"
	"github.com/gearscout/backend/internal/transport/http/dto"
	httperrors "github.com/gearscout/backend/internal/transport/http/errors"
)

type AlertsHandler struct {
	service *alertsvc.Service
}

func NewAlertsHandler(service *alertsvc.Service) *AlertsHandler {
	return &AlertsHandler{service: service}
}

func (h *AlertsHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "ALERTS_SERVICE_UNAVAILABLE", "alerts service is unavailable")
		return
	}

	var req dto.AlertCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	result, err := h.service.Create(r.Context(), identity.UserID, alertsvc.CreateInput{
		TargetType: enums.AlertTargetType(req.TargetType),
		TargetID:   req.TargetID,
		AlertType:  enums.AlertType(req.AlertType),
		Threshold:  req.Threshold,
		Region:     req.Region,
		Platform:   req.Platform,
		Activate:   req.Activate,
	})
	if err != nil {
		switch {
		case writeDomainError(w, err):
		case errors.Is(err, alertsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid alert payload")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to create alert")
		}
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.AlertCreateResponse{
		Alert:              alertPayload(result.Alert),
		ActivationDeferred: result.ActivationDeferred,
		DeferredReason:     result.DeferredReason,
	})
}

func (h *AlertsHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "ALERTS_SERVICE_UNAVAILABLE", "alerts service is unavailable")
		return
	}

	items, err := h.service.List(r.Context(), identity.UserID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to list alerts")
		return
	}

	payload := dto.AlertListResponse{Alerts: make([]dto.AlertPayload, 0, len(items))}
	for _, item := range items {
		payload.Alerts = append(payload.Alerts, alertPayload(item))
	}

	httperrors.Write(w, http.StatusOK, payload)
}

// SetActive toggles one alert. Refused activations come back as 409
// with the cap numbers; switching an alert off always succeeds.
func (h *AlertsHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "ALERTS_SERVICE_UNAVAILABLE", "alerts service is unavailable")
		return
	}

	alertID, ok := alertIDFromRequest(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid alert id")
		return
	}

	var req dto.AlertSetActiveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.service.SetActive(r.Context(), identity.UserID, alertID, req.Active); err != nil {
		switch {
		case writeDomainError(w, err):
		case errors.Is(err, alertsvc.ErrAlertNotFound):
			writeNotFound(w, "ALERT_NOT_FOUND", "alert not found")
		case errors.Is(err, alertsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid alert toggle payload")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to toggle alert")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *AlertsHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "ALERTS_SERVICE_UNAVAILABLE", "alerts service is unavailable")
		return
	}

	alertID, ok := alertIDFromRequest(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid alert id")
		return
	}

	existing, err := h.service.Get(r.Context(), identity.UserID, alertID)
	if err != nil {
		if errors.Is(err, alertsvc.ErrAlertNotFound) {
			writeNotFound(w, "ALERT_NOT_FOUND", "alert not found")
		} else {
			writeInternal(w, "INTERNAL_ERROR", "failed to load alert")
		}
		return
	}

	var req dto.AlertUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	err = h.service.Update(r.Context(), identity.UserID, alertID, alertsvc.CreateInput{
		TargetType: existing.TargetType,
		TargetID:   existing.TargetID,
		AlertType:  enums.AlertType(req.AlertType),
		Threshold:  req.Threshold,
		Region:     req.Region,
		Platform:   req.Platform,
	})
	if err != nil {
		switch {
		case errors.Is(err, alertsvc.ErrAlertNotFound):
			writeNotFound(w, "ALERT_NOT_FOUND", "alert not found")
		case errors.Is(err, alertsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid alert update payload")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to update alert")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *AlertsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "ALERTS_SERVICE_UNAVAILABLE", "alerts service is unavailable")
		return
	}

	alertID, ok := alertIDFromRequest(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid alert id")
		return
	}

	if err := h.service.Delete(r.Context(), identity.UserID, alertID); err != nil {
		if errors.Is(err, alertsvc.ErrAlertNotFound) {
			writeNotFound(w, "ALERT_NOT_FOUND", "alert not found")
		} else {
			writeInternal(w, "INTERNAL_ERROR", "failed to delete alert")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func alertIDFromRequest(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func alertPayload(alert model.Alert) dto.AlertPayload {
	return dto.AlertPayload{
		ID:              alert.ID,
		TargetType:      string(alert.TargetType),
		TargetID:        alert.TargetID,
		AlertType:       string(alert.AlertType),
		Threshold:       alert.Threshold,
		Region:          alert.Region,
		Platform:        alert.Platform,
		IsActive:        alert.IsActive,
		CreatedAt:       alert.CreatedAt.UTC(),
		LastTriggeredAt: alert.LastTriggeredAt,
	}
}
