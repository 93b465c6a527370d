package commissions

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

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

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}

	f := parseFilter(r)
	result, err := h.service.ListByOwner(r.Context(), identity.UserID, f)
	if err != nil {
		h.logger.Error("list commissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"commissions": result})
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok || !identity.IsAdmin() {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}

	f := parseFilter(r)
	if v := r.URL.Query().Get("user_id"); v != "" {
		if ownerID, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.OwnerID = &ownerID
		}
	}
	result, err := h.service.ListAll(r.Context(), f)
	if err != nil {
		h.logger.Error("list all commissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"commissions": result})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}

	summary, err := h.service.GetSummary(r.Context(), &identity.UserID)
	if err != nil {
		h.logger.Error("commission summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok || !identity.IsAdmin() {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid commission id")
		return
	}

	var req PayRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}

	c, err := h.service.MarkPaid(r.Context(), id, req)
	if err != nil {
		h.logger.Error("mark commission paid", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func parseFilter(r *http.Request) Filter {
	var f Filter
	if v := r.URL.Query().Get("status"); v != "" {
		st := Status(v)
		f.Status = &st
	}
	if v := r.URL.Query().Get("start_date"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			f.StartDate = &t
		}
	}
	if v := r.URL.Query().Get("end_date"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			f.EndDate = &t
		}
	}
	return f
}
