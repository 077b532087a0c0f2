package handlers

import (
	"net/http"

	"github.com/gearscout/backend/internal/domain/rules"
	authsvc "github.com/gearscout/backend/internal/services/auth"
	entsvc "github.com/gearscout/backend/internal/services/entitlements"
	"github.com/gearscout/backend/internal/transport/http/dto"
	httperrors "github.com/gearscout/backend/internal/transport/http/errors"
)

type EntitlementsHandler struct {
	service *entsvc.Service
}

func NewEntitlementsHandler(service *entsvc.Service) *EntitlementsHandler {
	return &EntitlementsHandler{service: service}
}

func (h *EntitlementsHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "ENTITLEMENTS_SERVICE_UNAVAILABLE", "entitlements service is unavailable")
		return
	}

	snapshot, err := h.service.Resolve(r.Context(), identity.UserID)
	if err != nil {
		if !writeDomainError(w, err) {
			writeInternal(w, "INTERNAL_ERROR", "failed to resolve entitlements")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.EntitlementsResponse{
		Plan:             planPayload(snapshot.Plan),
		CreditsRemaining: snapshot.CreditsRemaining,
		CreditsResetDate: snapshot.CreditsResetDate.UTC(),
		ActiveAlerts:     snapshot.ActiveAlerts,
		AlertSlotsLeft:   snapshot.AlertSlotsLeft(),
		Outlook: dto.CycleOutlookPayload{
			DaysUntilReset:    snapshot.Outlook.DaysUntilReset,
			IsResetSoon:       snapshot.Outlook.IsResetSoon,
			CreditsWillExpire: snapshot.Outlook.CreditsWillExpire,
		},
	})
}

// Plans is public; the pricing page renders from it.
func (h *EntitlementsHandler) Plans(w http.ResponseWriter, _ *http.Request) {
	plans := rules.AllPlans()
	payload := dto.PlansResponse{Plans: make([]dto.PlanPayload, 0, len(plans))}
	for _, plan := range plans {
		payload.Plans = append(payload.Plans, planPayload(plan))
	}
	httperrors.Write(w, http.StatusOK, payload)
}

func planPayload(plan rules.Plan) dto.PlanPayload {
	unlimited := plan.MaxActiveAlerts == rules.UnlimitedAlerts
	maxAlerts := plan.MaxActiveAlerts
	if unlimited {
		maxAlerts = 0
	}
	return dto.PlanPayload{
		Key:             string(plan.Key),
		Name:            plan.Name,
		MonthlyPriceEUR: plan.MonthlyPriceEUR,
		CreditsPerCycle: plan.CreditsPerCycle,
		MaxActiveAlerts: maxAlerts,
		Unlimited:       unlimited,
		Features: dto.PlanFeaturesPayload{
			SeeBuyPrice:    plan.Features.SeeBuyPrice,
			SeeProbability: plan.Features.SeeProbability,
			SeeScenarios:   plan.Features.SeeScenarios,
			SeeNegotiation: plan.Features.SeeNegotiation,
			Export:         plan.Features.Export,
			DeepScan:       plan.Features.DeepScan,
		},
	}
}
