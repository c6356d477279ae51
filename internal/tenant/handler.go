package tenant

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-books/meridian/internal/platform/httpx"
	"github.com/meridian-books/meridian/internal/shared"
)

// Handler exposes read-only fiscal year lookups. Fiscal years are
// maintained by the tenant-management collaborator; this service only
// consumes them.
type Handler struct {
	repo   *Repository
	logger *slog.Logger
}

func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{repo: repo, logger: logger}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	years, err := h.repo.ListFiscalYears(r.Context(), scope.TenantID)
	if err != nil {
		h.logger.Error("list fiscal years", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"fiscal_years": years})
}
