package dashboard

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers dashboard endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.overview)
}
