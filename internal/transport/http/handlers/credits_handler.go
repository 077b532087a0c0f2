package handlers

import (
	"net/http"

	"github.com/gearscout/backend/internal/domain/enums"
	authsvc "github.com/gearscout/backend/internal/services/auth"
	creditsvc "github.com/gearscout/backend/internal/services/credits"
	"github.com/gearscout/backend/internal/transport/http/dto"
	httperrors "github.com/gearscout/backend/internal/transport/http/errors"
)

const historyDefaultLimit = 50

type CreditsHandler struct {
	service *creditsvc.Service
}

func NewCreditsHandler(service *creditsvc.Service) *CreditsHandler {
	return &CreditsHandler{service: service}
}

func (h *CreditsHandler) State(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CREDITS_SERVICE_UNAVAILABLE", "credits service is unavailable")
		return
	}

	state, err := h.service.GetState(r.Context(), identity.UserID)
	if err != nil {
		if !writeDomainError(w, err) {
			writeInternal(w, "INTERNAL_ERROR", "failed to load credit state")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.CreditStateResponse{
		PlanKey:          string(state.PlanKey),
		CreditsRemaining: state.CreditsRemaining,
		CreditsResetDate: state.CreditsResetDate.UTC(),
	})
}

// Check is the read-only affordability probe the UI calls before
// rendering an action button. It never mutates the balance.
func (h *CreditsHandler) Check(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CREDITS_SERVICE_UNAVAILABLE", "credits service is unavailable")
		return
	}

	var req dto.CreditCheckRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	check, err := h.service.CheckCredits(r.Context(), identity.UserID, enums.ActionKind(req.Action))
	if err != nil {
		if !writeDomainError(w, err) {
			writeInternal(w, "INTERNAL_ERROR", "failed to check credits")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.CreditCheckResponse{
		Allowed: check.Allowed,
		Cost:    check.Cost,
		Current: check.Current,
		Deficit: check.Deficit,
	})
}

func (h *CreditsHandler) History(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CREDITS_SERVICE_UNAVAILABLE", "credits service is unavailable")
		return
	}

	entries, err := h.service.History(r.Context(), identity.UserID, historyDefaultLimit)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load credit history")
		return
	}

	payload := dto.CreditHistoryResponse{Entries: make([]dto.CreditLogEntryPayload, 0, len(entries))}
	for _, entry := range entries {
		payload.Entries = append(payload.Entries, dto.CreditLogEntryPayload{
			ID:        entry.ID,
			Delta:     entry.Delta,
			Reason:    entry.Reason,
			JobID:     entry.JobID,
			CreatedAt: entry.CreatedAt.UTC(),
		})
	}

	httperrors.Write(w, http.StatusOK, payload)
}
