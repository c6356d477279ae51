package httpx

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/meridian-books/meridian/internal/shared"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", shared.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("load voucher: %w", shared.ErrNotFound), http.StatusNotFound},
		{"validation", &shared.ValidationError{Field: "date", Msg: "required"}, http.StatusBadRequest},
		{"unbalanced", &shared.ValidationError{Msg: "must balance", Difference: decimal.NewFromInt(100)}, http.StatusBadRequest},
		{"state", &shared.StateError{From: "DRAFT", To: "APPROVED"}, http.StatusUnprocessableEntity},
		{"conflict", &shared.ConflictError{Msg: "already matched"}, http.StatusConflict},
		{"account busy", shared.ErrAccountBusy, http.StatusConflict},
		{"structural", &shared.StructuralError{GroupID: 3, Msg: "cycle"}, http.StatusInternalServerError},
		{"integrity", &shared.IntegrityError{}, http.StatusInternalServerError},
		{"closed year", shared.ErrFiscalYearClosed, http.StatusBadRequest},
		{"tenant mismatch", shared.ErrTenantMismatch, http.StatusBadRequest},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, tc.err)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}
