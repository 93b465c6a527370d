package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/rentaldesk/rentaldesk/internal/platform/httpx"
	"github.com/rentaldesk/rentaldesk/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}

	d, err := h.service.Get(r.Context(), identity)
	if err != nil {
		h.logger.Error("dashboard overview", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}
