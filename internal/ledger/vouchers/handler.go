package vouchers

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

type entryRequest struct {
	LedgerID  int64  `json:"ledger_id" validate:"required"`
	Debit     string `json:"debit"`
	Credit    string `json:"credit"`
	Narration string `json:"narration"`
}

type submitRequest struct {
	TypeID       int64          `json:"type_id" validate:"required"`
	FiscalYearID int64          `json:"fiscal_year_id" validate:"required"`
	Date         string         `json:"date" validate:"required"`
	ReferenceNo  string         `json:"reference_no"`
	Narration    string         `json:"narration"`
	Entries      []entryRequest `json:"entries" validate:"required,min=2,dive"`
}

type transitionRequest struct {
	Target string `json:"target" validate:"required,oneof=PENDING_APPROVAL APPROVED REJECTED CANCELLED"`
	Note   string `json:"note"`
}

type voucherResponse struct {
	ID          int64           `json:"id"`
	Number      int64           `json:"number"`
	Date        string          `json:"date"`
	ReferenceNo string          `json:"reference_no,omitempty"`
	Narration   string          `json:"narration,omitempty"`
	Status      string          `json:"status"`
	Entries     []entryResponse `json:"entries,omitempty"`
}

type entryResponse struct {
	ID        int64  `json:"id"`
	LedgerID  int64  `json:"ledger_id"`
	Debit     string `json:"debit"`
	Credit    string `json:"credit"`
	Narration string `json:"narration,omitempty"`
}

func renderVoucher(v Voucher) voucherResponse {
	resp := voucherResponse{
		ID:          v.ID,
		Number:      v.Number,
		Date:        v.Date.Format("2006-01-02"),
		ReferenceNo: v.ReferenceNo,
		Narration:   v.Narration,
		Status:      string(v.Status),
	}
	for _, e := range v.Entries {
		resp.Entries = append(resp.Entries, entryResponse{
			ID:        e.ID,
			LedgerID:  e.LedgerID,
			Debit:     e.Debit.StringFixed(2),
			Credit:    e.Credit.StringFixed(2),
			Narration: e.Narration,
		})
	}
	return resp
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	var req submitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid date, want YYYY-MM-DD")
		return
	}
	in := SubmitInput{
		TenantID:     scope.TenantID,
		TypeID:       req.TypeID,
		FiscalYearID: req.FiscalYearID,
		Date:         date,
		ReferenceNo:  req.ReferenceNo,
		Narration:    req.Narration,
		CreatedBy:    scope.ActorID,
	}
	for _, entry := range req.Entries {
		debit, err := parseAmount(entry.Debit)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid debit amount")
			return
		}
		credit, err := parseAmount(entry.Credit)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid credit amount")
			return
		}
		in.Entries = append(in.Entries, EntryInput{
			LedgerID:  entry.LedgerID,
			Debit:     debit,
			Credit:    credit,
			Narration: entry.Narration,
		})
	}
	voucher, err := h.service.Submit(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, renderVoucher(voucher))
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	voucherID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid voucher id")
		return
	}
	var req transitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	voucher, err := h.service.Transition(r.Context(), TransitionInput{
		TenantID:  scope.TenantID,
		VoucherID: voucherID,
		Target:    VoucherStatus(req.Target),
		ActorID:   scope.ActorID,
		Note:      req.Note,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, renderVoucher(voucher))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	voucherID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid voucher id")
		return
	}
	voucher, err := h.service.Get(r.Context(), scope.TenantID, voucherID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, renderVoucher(voucher))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	vouchers, err := h.service.List(r.Context(), scope.TenantID, shared.NewPagination(page, perPage, 0))
	if err != nil {
		h.logger.Error("list vouchers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]voucherResponse, 0, len(vouchers))
	for _, v := range vouchers {
		out = append(out, renderVoucher(v))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"vouchers": out})
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}
