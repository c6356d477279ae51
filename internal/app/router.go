package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-books/meridian/internal/ledger/balances"
	"github.com/meridian-books/meridian/internal/ledger/coa"
	"github.com/meridian-books/meridian/internal/ledger/recon"
	"github.com/meridian-books/meridian/internal/ledger/vouchers"
	"github.com/meridian-books/meridian/internal/platform/httpx"
	"github.com/meridian-books/meridian/internal/tenant"
)

// RouterConfig collects every mounted handler.
type RouterConfig struct {
	Middleware MiddlewareConfig
	COA        *coa.Handler
	Vouchers   *vouchers.Handler
	Reports    *balances.Handler
	Recon      *recon.Handler
	Tenant     *tenant.Handler
}

// NewRouter assembles the HTTP surface. Everything under /api/v1
// requires tenant identity headers; health stays open for probes.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(cfg.Middleware) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ScopeMiddleware)
		r.Route("/coa", cfg.COA.MountRoutes)
		r.Route("/vouchers", cfg.Vouchers.MountRoutes)
		r.Route("/reports", cfg.Reports.MountRoutes)
		r.Route("/recon", cfg.Recon.MountRoutes)
		r.Route("/fiscal-years", cfg.Tenant.MountRoutes)
	})

	return r
}
