package quotes

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rentaldesk/rentaldesk/internal/platform/httpx"
	"github.com/rentaldesk/rentaldesk/internal/shared"
)

const idempotencyModule = "quotes"

type Handler struct {
	logger      *slog.Logger
	service     *Service
	idempotency *shared.IdempotencyStore
}

func NewHandler(logger *slog.Logger, service *Service, idempotency *shared.IdempotencyStore) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		idempotency: idempotency,
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}

	if key := r.Header.Get("Idempotency-Key"); key != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), key, idempotencyModule); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}

	var req CreateQuoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payload")
		return
	}

	quote, err := h.service.Create(r.Context(), identity.UserID, req)
	if err != nil {
		h.logger.Error("create quote", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, quote)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	identity, id, ok := h.identityAndID(w, r)
	if !ok {
		return
	}

	quote, err := h.service.Get(r.Context(), id, identity)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	identity, id, ok := h.identityAndID(w, r)
	if !ok {
		return
	}

	var req UpdateQuoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payload")
		return
	}

	quote, err := h.service.Update(r.Context(), id, identity, req)
	if err != nil {
		h.logger.Error("update quote", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	identity, id, ok := h.identityAndID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id, identity); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
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
	if v := r.URL.Query().Get("date_from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			f.DateFrom = &t
		}
	}
	if v := r.URL.Query().Get("date_to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			f.DateTo = &t
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			f.Limit = parsed
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			f.Offset = parsed
		}
	}

	result, total, err := h.service.List(r.Context(), identity, f)
	if err != nil {
		h.logger.Error("list quotes", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	page := 1
	if f.Limit > 0 {
		page = f.Offset/f.Limit + 1
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"quotes":     result,
		"pagination": shared.NewPagination(page, f.Limit, total),
	})
}

func (h *Handler) identityAndID(w http.ResponseWriter, r *http.Request) (shared.Identity, int64, bool) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return shared.Identity{}, 0, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid quote id")
		return shared.Identity{}, 0, false
	}
	return identity, id, true
}
