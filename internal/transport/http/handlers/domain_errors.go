package handlers

import (
	"errors"
	"net/http"

	"github.com/gearscout/backend/internal/domain/rules"
	"github.com/gearscout/backend/internal/services/alerts"
	"github.com/gearscout/backend/internal/services/credits"
	"github.com/gearscout/backend/internal/services/entitlements"
	"github.com/gearscout/backend/internal/services/rate"
	httperrors "github.com/gearscout/backend/internal/transport/http/errors"
)

// writeDomainError maps the typed gating errors shared across the
// metered endpoints. Returns false when the error is not one of them
// and the caller must handle it itself.
func writeDomainError(w http.ResponseWriter, err error) bool {
	if ic, ok := credits.IsInsufficientCredits(err); ok {
		httperrors.Write(w, http.StatusPaymentRequired, httperrors.CreditError{
			Code:            "INSUFFICIENT_CREDITS",
			Message:         "not enough credits for this action",
			RequiredCredits: ic.Required,
			CurrentCredits:  ic.Current,
			Deficit:         ic.Deficit(),
		})
		return true
	}

	if ac, ok := alerts.IsAlertCap(err); ok {
		httperrors.Write(w, http.StatusConflict, httperrors.CapError{
			Code:    "ALERT_CAP_REACHED",
			Message: "active alert limit reached for the current plan",
			Current: ac.Current,
			Max:     ac.Max,
		})
		return true
	}

	if fl, ok := entitlements.IsFeatureLocked(err); ok {
		httperrors.Write(w, http.StatusForbidden, httperrors.FeatureError{
			Code:    "FEATURE_LOCKED",
			Message: "this feature is not included in the current plan",
			Feature: fl.Feature,
			Plan:    string(fl.PlanKey),
		})
		return true
	}

	if tf, ok := rate.IsTooFast(err); ok {
		httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
			Code:          "TOO_FAST",
			Message:       "too many requests",
			RetryAfterSec: int64(tf.RetryAfter.Seconds()),
		})
		return true
	}

	if errors.Is(err, rules.ErrUnknownAction) || errors.Is(err, rules.ErrUnknownPlan) {
		writeBadRequest(w, "VALIDATION_ERROR", "unknown action or plan")
		return true
	}

	if errors.Is(err, credits.ErrStateNotFound) {
		writeNotFound(w, "CREDIT_STATE_NOT_FOUND", "no credit state for this user")
		return true
	}

	return false
}
