package recon

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/accounts", h.listAccounts)
	r.Post("/accounts", h.createAccount)
	r.Route("/accounts/{accountID}", func(r chi.Router) {
		r.Get("/transactions", h.listTransactions)
		r.Post("/import", h.importStatement)
		r.Post("/auto-match", h.autoMatch)
		r.Post("/match", h.manualMatch)
		r.Post("/unmatch", h.unmatch)
		r.Get("/reconciliations", h.listReconciliations)
		r.Post("/reconciliations", h.startReconciliation)
	})
	r.Post("/reconciliations/{reconID}/complete", h.completeReconciliation)
}
