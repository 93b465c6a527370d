package commissions

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers commission endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/summary", h.summary)
	r.Get("/all", h.listAll)
	r.Post("/{id}/pay", h.pay)
}
