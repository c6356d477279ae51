package recon

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

type createAccountRequest struct {
	LedgerID  int64  `json:"ledger_id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	AccountNo string `json:"account_no"`
}

type importLineRequest struct {
	Date        string `json:"date" validate:"required"`
	Description string `json:"description"`
	ReferenceNo string `json:"reference_no"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
}

type importRequest struct {
	Lines []importLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type manualMatchRequest struct {
	TransactionID int64 `json:"transaction_id" validate:"required"`
	EntryID       int64 `json:"entry_id" validate:"required"`
}

type unmatchRequest struct {
	TransactionID int64 `json:"transaction_id" validate:"required"`
}

type startRequest struct {
	StatementDate    string `json:"statement_date" validate:"required"`
	StatementBalance string `json:"statement_balance" validate:"required"`
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	var req createAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	account, err := h.service.CreateBankAccount(r.Context(), BankAccount{
		TenantID:  scope.TenantID,
		LedgerID:  req.LedgerID,
		Name:      req.Name,
		AccountNo: req.AccountNo,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, account)
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	accounts, err := h.service.ListBankAccounts(r.Context(), scope.TenantID)
	if err != nil {
		h.logger.Error("list bank accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"bank_accounts": accounts})
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}
	onlyUnmatched := r.URL.Query().Get("unmatched") == "true"
	txns, err := h.service.ListTransactions(r.Context(), scope.TenantID, accountID, onlyUnmatched)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": txns})
}

func (h *Handler) importStatement(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}
	var req importRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	lines := make([]ImportLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		date, err := time.Parse("2006-01-02", line.Date)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid line date, want YYYY-MM-DD")
			return
		}
		debit, err := parseAmount(line.Debit)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid debit amount")
			return
		}
		credit, err := parseAmount(line.Credit)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid credit amount")
			return
		}
		lines = append(lines, ImportLine{
			Date:        date,
			Description: line.Description,
			ReferenceNo: line.ReferenceNo,
			Debit:       debit,
			Credit:      credit,
		})
	}
	result, err := h.service.Import(r.Context(), scope.TenantID, accountID, scope.ActorID, lines)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) autoMatch(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}
	result, err := h.service.AutoMatch(r.Context(), scope.TenantID, accountID, scope.ActorID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) manualMatch(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}
	var req manualMatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.ManualMatch(r.Context(), scope.TenantID, accountID, req.TransactionID, req.EntryID, scope.ActorID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"matched": true})
}

func (h *Handler) unmatch(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}
	var req unmatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.Unmatch(r.Context(), scope.TenantID, accountID, req.TransactionID, scope.ActorID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"matched": false})
}

func (h *Handler) startReconciliation(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}
	var req startRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, err := time.Parse("2006-01-02", req.StatementDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid statement date, want YYYY-MM-DD")
		return
	}
	balance, err := decimal.NewFromString(req.StatementBalance)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid statement balance")
		return
	}
	rec, err := h.service.Start(r.Context(), scope.TenantID, scope.ActorID, StartInput{
		BankAccountID:    accountID,
		StatementDate:    date,
		StatementBalance: balance,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) completeReconciliation(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	reconID, err := strconv.ParseInt(chi.URLParam(r, "reconID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid reconciliation id")
		return
	}
	rec, err := h.service.Complete(r.Context(), scope.TenantID, reconID, scope.ActorID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) listReconciliations(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}
	recs, err := h.service.ListReconciliations(r.Context(), scope.TenantID, accountID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"reconciliations": recs})
}

func (h *Handler) accountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid bank account id")
		return 0, false
	}
	return id, true
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}
