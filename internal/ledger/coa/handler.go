package coa

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/meridian-books/meridian/internal/platform/httpx"
	"github.com/meridian-books/meridian/internal/shared"
)

type Handler struct {
	service  *Service
	logger   *slog.Logger
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger, validate: validator.New()}
}

type createGroupRequest struct {
	Name          string `json:"name" validate:"required"`
	Nature        string `json:"nature" validate:"required,oneof=ASSETS LIABILITIES INCOME EXPENSES EQUITY"`
	ParentID      *int64 `json:"parent_id"`
	DirectExpense bool   `json:"direct_expense"`
}

type createLedgerRequest struct {
	Name           string `json:"name" validate:"required"`
	GroupID        int64  `json:"group_id" validate:"required"`
	OpeningBalance string `json:"opening_balance"`
	OpeningSide    string `json:"opening_side" validate:"required,oneof=DEBIT CREDIT"`
	BankAccountID  *int64 `json:"bank_account_id"`
}

type groupNodeResponse struct {
	ID       int64               `json:"id"`
	Name     string              `json:"name"`
	Nature   string              `json:"nature"`
	Ledgers  []ledgerResponse    `json:"ledgers,omitempty"`
	Children []groupNodeResponse `json:"children,omitempty"`
}

type ledgerResponse struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	OpeningBalance string `json:"opening_balance"`
	OpeningSide    string `json:"opening_side"`
	BankLinked     bool   `json:"bank_linked"`
	CreatedAt      time.Time `json:"created_at"`
}

func (h *Handler) tree(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	forest, err := h.service.ResolveHierarchy(r.Context(), scope.TenantID)
	if err != nil {
		h.logger.Error("resolve hierarchy", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	roots := forest.Roots()
	out := make([]groupNodeResponse, 0, len(roots))
	for _, root := range roots {
		out = append(out, renderNode(forest, root))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tree": out})
}

func renderNode(f *Forest, node *Node) groupNodeResponse {
	resp := groupNodeResponse{
		ID:     node.Group.ID,
		Name:   node.Group.Name,
		Nature: string(node.Group.Nature),
	}
	for _, ledgerID := range node.LedgerIDs {
		l, _ := f.Ledger(ledgerID)
		resp.Ledgers = append(resp.Ledgers, ledgerResponse{
			ID:             l.ID,
			Name:           l.Name,
			OpeningBalance: l.OpeningBalance.StringFixed(2),
			OpeningSide:    string(l.OpeningSide),
			BankLinked:     l.BankAccountID != nil,
			CreatedAt:      l.CreatedAt,
		})
	}
	for _, childID := range node.ChildIDs {
		child, _ := f.Node(childID)
		resp.Children = append(resp.Children, renderNode(f, child))
	}
	return resp
}

func (h *Handler) rollup(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	groupID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid group id")
		return
	}
	total, err := h.service.RollupBalance(r.Context(), scope.TenantID, groupID)
	if err != nil {
		h.logger.Error("rollup balance", slog.Int64("group", groupID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"group_id": groupID, "balance": total.StringFixed(2)})
}

func (h *Handler) createGroup(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	var req createGroupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	group, err := h.service.CreateGroup(r.Context(), AccountGroup{
		TenantID:      scope.TenantID,
		Name:          req.Name,
		Nature:        Nature(req.Nature),
		ParentID:      req.ParentID,
		DirectExpense: req.DirectExpense,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": group.ID})
}

func (h *Handler) createLedger(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	var req createLedgerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	opening := decimal.Zero
	if req.OpeningBalance != "" {
		var err error
		opening, err = decimal.NewFromString(req.OpeningBalance)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid opening balance")
			return
		}
	}
	ledger, err := h.service.CreateLedger(r.Context(), Ledger{
		TenantID:       scope.TenantID,
		GroupID:        req.GroupID,
		Name:           req.Name,
		OpeningBalance: opening,
		OpeningSide:    shared.Side(req.OpeningSide),
		BankAccountID:  req.BankAccountID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": ledger.ID})
}

func (h *Handler) deactivateGroup(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	groupID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid group id")
		return
	}
	if err := h.service.DeactivateGroup(r.Context(), scope.TenantID, groupID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": groupID, "active": false})
}
