package leads

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers lead endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/followups", h.followUps)
	r.Get("/stats", h.stats)
	r.Get("/all", h.listAll)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Post("/{id}/convert", h.convert)
	r.Delete("/{id}", h.delete)
}
