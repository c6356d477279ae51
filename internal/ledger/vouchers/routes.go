package vouchers

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.submit)
	r.Get("/{id}", h.get)
	r.Post("/{id}/transition", h.transition)
}
