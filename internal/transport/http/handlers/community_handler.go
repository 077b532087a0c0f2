package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/gearscout/backend/internal/services/auth"
	communitysvc "github.com/gearscout/backend/internal/services/community"
	"github.com/gearscout/backend/internal/transport/http/dto"
	httperrors "github.com/gearscout/backend/internal/transport/http/errors"
)

const contributionsDefaultLimit = 20

type CommunityHandler struct {
	service *communitysvc.Service
}

func NewCommunityHandler(service *communitysvc.Service) *CommunityHandler {
	return &CommunityHandler{service: service}
}

// Complete receives scraping task completions from the extension.
// Replays answer 200 with duplicate set, so the extension can retry
// deliveries safely.
func (h *CommunityHandler) Complete(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "COMMUNITY_SERVICE_UNAVAILABLE", "community service is unavailable")
		return
	}

	var req dto.ScrapCompleteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	result, err := h.service.Complete(r.Context(), identity.UserID, communitysvc.CompletionEvent{
		TaskID:       req.TaskID,
		PagesScanned: req.PagesScanned,
		AdsSent:      req.AdsSent,
		DurationSec:  req.DurationSec,
		HighPriority: req.HighPriority,
		CompletedAt:  req.CompletedAt,
	})
	if err != nil {
		if errors.Is(err, communitysvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid completion payload")
		} else {
			writeInternal(w, "INTERNAL_ERROR", "failed to record contribution")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ScrapCompleteResponse{
		ContributionID: result.ContributionID,
		Duplicate:      result.Duplicate,
		Reward: dto.RewardPayload{
			Base:           result.Reward.Base,
			FreshnessBonus: result.Reward.FreshnessBonus,
			PriorityBonus:  result.Reward.PriorityBonus,
			Total:          result.Reward.Total,
		},
		Balance: result.Balance,
	})
}

func (h *CommunityHandler) History(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "COMMUNITY_SERVICE_UNAVAILABLE", "community service is unavailable")
		return
	}

	contributions, err := h.service.History(r.Context(), identity.UserID, contributionsDefaultLimit)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load contributions")
		return
	}

	payload := dto.ContributionsResponse{Contributions: make([]dto.ContributionPayload, 0, len(contributions))}
	for _, c := range contributions {
		payload.Contributions = append(payload.Contributions, dto.ContributionPayload{
			ID:            c.ID,
			TaskID:        c.TaskID,
			PagesScanned:  c.PagesScanned,
			AdsSent:       c.AdsSent,
			DurationSec:   c.DurationSec,
			HighPriority:  c.HighPriority,
			CreditsEarned: c.CreditsEarned,
			CreatedAt:     c.CreatedAt.UTC(),
		})
	}

	httperrors.Write(w, http.StatusOK, payload)
}
