package handlers

import (
	"errors"
	"net/http"

	"github.com/gearscout/backend/internal/domain/enums"
	authsvc "github.com/gearscout/backend/internal/services/auth"
	billingsvc "github.com/gearscout/backend/internal/services/billing"
	"github.com/gearscout/backend/internal/transport/http/dto"
	httperrors "github.com/gearscout/backend/internal/transport/http/errors"
)

type BillingHandler struct {
	service *billingsvc.Service
}

func NewBillingHandler(service *billingsvc.Service) *BillingHandler {
	return &BillingHandler{service: service}
}

func (h *BillingHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "BILLING_SERVICE_UNAVAILABLE", "billing service is unavailable")
		return
	}

	var req dto.SubscribeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	state, err := h.service.Subscribe(r.Context(), identity.UserID, enums.PlanKey(req.PlanKey))
	if err != nil {
		switch {
		case writeDomainError(w, err):
		case errors.Is(err, billingsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid subscribe payload")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to subscribe")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.CreditStateResponse{
		PlanKey:          string(state.PlanKey),
		CreditsRemaining: state.CreditsRemaining,
		CreditsResetDate: state.CreditsResetDate.UTC(),
	})
}

func (h *BillingHandler) Topup(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "BILLING_SERVICE_UNAVAILABLE", "billing service is unavailable")
		return
	}

	var req dto.TopupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	result, err := h.service.Topup(r.Context(), identity.UserID, enums.PurchaseSKU(req.SKU), req.IdempotencyKey)
	if err != nil {
		switch {
		case errors.Is(err, billingsvc.ErrUnknownSKU), errors.Is(err, billingsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid topup payload")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to apply topup")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.TopupResponse{
		PurchaseID: result.PurchaseID,
		Duplicate:  result.Duplicate,
		Granted:    result.Granted,
		Balance:    result.Balance,
	})
}
