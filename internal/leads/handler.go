package leads

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rentaldesk/rentaldesk/internal/platform/httpx"
	"github.com/rentaldesk/rentaldesk/internal/shared"
)

type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}

	var req CreateLeadRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payload")
		return
	}

	lead, err := h.service.Create(r.Context(), identity.UserID, req)
	if err != nil {
		h.logger.Error("create lead", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, lead)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	identity, id, ok := h.identityAndID(w, r)
	if !ok {
		return
	}

	lead, err := h.service.Get(r.Context(), id, identity.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lead)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	identity, id, ok := h.identityAndID(w, r)
	if !ok {
		return
	}

	var req UpdateLeadRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payload")
		return
	}

	lead, err := h.service.Update(r.Context(), id, identity.UserID, req)
	if err != nil {
		h.logger.Error("update lead", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lead)
}

func (h *Handler) convert(w http.ResponseWriter, r *http.Request) {
	identity, id, ok := h.identityAndID(w, r)
	if !ok {
		return
	}

	var req ConvertLeadRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}

	lead, err := h.service.MarkConverted(r.Context(), id, identity.UserID, req.QuoteID)
	if err != nil {
		h.logger.Error("convert lead", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lead)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	identity, id, ok := h.identityAndID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id, identity.UserID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) followUps(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}

	result, err := h.service.GetPendingFollowUps(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("pending follow-ups", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"leads": result})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}

	stats, err := h.service.GetStats(r.Context(), &identity.UserID)
	if err != nil {
		h.logger.Error("lead stats", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok || !identity.IsAdmin() {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}

	var f ListFilter
	if v := r.URL.Query().Get("status"); v != "" {
		st := Status(v)
		f.Status = &st
	}
	if v := r.URL.Query().Get("search"); v != "" {
		f.Search = &v
	}
	if v := r.URL.Query().Get("owner_id"); v != "" {
		if ownerID, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.OwnerID = &ownerID
		}
	}

	result, err := h.service.ListAll(r.Context(), f)
	if err != nil {
		h.logger.Error("list all leads", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"leads": result})
}

func (h *Handler) identityAndID(w http.ResponseWriter, r *http.Request) (shared.Identity, int64, bool) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return shared.Identity{}, 0, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid lead id")
		return shared.Identity{}, 0, false
	}
	return identity, id, true
}
