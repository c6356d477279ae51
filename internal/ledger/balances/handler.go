package balances

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-books/meridian/internal/platform/httpx"
	"github.com/meridian-books/meridian/internal/shared"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
	now     func() time.Time
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger, now: time.Now}
}

func (h *Handler) runningBalance(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	ledgerID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid ledger id")
		return
	}
	asOf, ok := h.dateParam(w, r, "as_of", h.now())
	if !ok {
		return
	}
	balance, err := h.service.LedgerRunningBalance(r.Context(), scope.TenantID, ledgerID, asOf)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"ledger_id": ledgerID,
		"as_of":     asOf.Format("2006-01-02"),
		"debit":     balance.Debit.StringFixed(2),
		"credit":    balance.Credit.StringFixed(2),
	})
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	asOf, ok := h.dateParam(w, r, "as_of", h.now())
	if !ok {
		return
	}
	tb, err := h.service.TrialBalance(r.Context(), scope.TenantID, asOf)
	if err != nil {
		h.logger.Error("trial balance", slog.Int64("tenant", scope.TenantID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (h *Handler) profitAndLoss(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	start, ok := h.dateParam(w, r, "start", time.Time{})
	if !ok {
		return
	}
	end, ok := h.dateParam(w, r, "end", h.now())
	if !ok {
		return
	}
	if start.IsZero() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "start date required")
		return
	}
	pl, err := h.service.ProfitAndLoss(r.Context(), scope.TenantID, start, end)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pl)
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	asOf, ok := h.dateParam(w, r, "as_of", h.now())
	if !ok {
		return
	}
	bs, err := h.service.BalanceSheet(r.Context(), scope.TenantID, asOf)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bs)
}

func (h *Handler) statement(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	ledgerID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid ledger id")
		return
	}
	from, ok := h.dateParam(w, r, "start", time.Time{})
	if !ok {
		return
	}
	if from.IsZero() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "start date required")
		return
	}
	to, ok := h.dateParam(w, r, "end", h.now())
	if !ok {
		return
	}
	stmt, err := h.service.Statement(r.Context(), scope.TenantID, ledgerID, from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stmt)
}

func (h *Handler) dateParam(w http.ResponseWriter, r *http.Request, name string, fallback time.Time) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid "+name+" date, want YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}
