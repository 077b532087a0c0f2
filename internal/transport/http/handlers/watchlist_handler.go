package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	authsvc "github.com/gearscout/backend/internal/services/auth"
	watchsvc "github.com/gearscout/backend/internal/services/watchlist"
	"github.com/gearscout/backend/internal/transport/http/dto"
	httperrors "github.com/gearscout/backend/internal/transport/http/errors"
)

type WatchlistHandler struct {
	service *watchsvc.Service
}

func NewWatchlistHandler(service *watchsvc.Service) *WatchlistHandler {
	return &WatchlistHandler{service: service}
}

func (h *WatchlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "WATCHLIST_SERVICE_UNAVAILABLE", "watchlist service is unavailable")
		return
	}

	var req dto.WatchlistAddRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	result, err := h.service.Add(r.Context(), identity.UserID, watchsvc.AddInput{
		ModelID:  req.ModelID,
		Title:    req.Title,
		Platform: req.Platform,
		PriceEUR: req.PriceEUR,
	})
	if err != nil {
		switch {
		case writeDomainError(w, err):
		case errors.Is(err, watchsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid watchlist payload")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to add watchlist item")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.WatchlistAddResponse{
		ItemID:  result.ItemID,
		Added:   result.Added,
		Charged: result.Charged,
	})
}

func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "WATCHLIST_SERVICE_UNAVAILABLE", "watchlist service is unavailable")
		return
	}

	items, err := h.service.List(r.Context(), identity.UserID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to list watchlist")
		return
	}

	payload := dto.WatchlistResponse{Items: make([]dto.WatchlistItemPayload, 0, len(items))}
	for _, item := range items {
		payload.Items = append(payload.Items, dto.WatchlistItemPayload{
			ID:        item.ID,
			ModelID:   item.ModelID,
			Title:     item.Title,
			Platform:  item.Platform,
			PriceEUR:  item.PriceEUR,
			CreatedAt: item.CreatedAt.UTC(),
		})
	}

	httperrors.Write(w, http.StatusOK, payload)
}

func (h *WatchlistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "WATCHLIST_SERVICE_UNAVAILABLE", "watchlist service is unavailable")
		return
	}

	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || itemID <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid watchlist item id")
		return
	}

	if err := h.service.Remove(r.Context(), identity.UserID, itemID); err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to remove watchlist item")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}
