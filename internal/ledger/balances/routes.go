package balances

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/trial-balance", h.trialBalance)
	r.Get("/profit-and-loss", h.profitAndLoss)
	r.Get("/balance-sheet", h.balanceSheet)
	r.Get("/ledgers/{id}/running-balance", h.runningBalance)
	r.Get("/ledgers/{id}/statement", h.statement)
}
