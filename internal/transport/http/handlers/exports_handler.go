package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/gearscout/backend/internal/services/auth"
	exportsvc "github.com/gearscout/backend/internal/services/exports"
	"github.com/gearscout/backend/internal/transport/http/dto"
	httperrors "github.com/gearscout/backend/internal/transport/http/errors"
)

type ExportsHandler struct {
	service *exportsvc.Service
}

func NewExportsHandler(service *exportsvc.Service) *ExportsHandler {
	return &ExportsHandler{service: service}
}

func (h *ExportsHandler) Watchlist(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "EXPORTS_SERVICE_UNAVAILABLE", "exports service is unavailable")
		return
	}

	result, err := h.service.ExportWatchlist(r.Context(), identity.UserID)
	if err != nil {
		switch {
		case writeDomainError(w, err):
		case errors.Is(err, exportsvc.ErrNothingToExport):
			writeBadRequest(w, "NOTHING_TO_EXPORT", "watchlist is empty")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to export watchlist")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ExportResponse{
		Key:              result.Key,
		URL:              result.URL,
		Rows:             result.Rows,
		Cost:             result.Cost,
		CreditsRemaining: result.Remaining,
	})
}
