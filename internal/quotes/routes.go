package quotes

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers quote endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}
