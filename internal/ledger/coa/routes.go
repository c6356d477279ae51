package coa

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/tree", h.tree)
	r.Post("/groups", h.createGroup)
	r.Post("/groups/{id}/deactivate", h.deactivateGroup)
	r.Get("/groups/{id}/rollup", h.rollup)
	r.Post("/ledgers", h.createLedger)
}
