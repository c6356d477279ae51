// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/meridian-books/meridian/internal/shared"
)

// RespondError maps ledger errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var (
		validationErr *shared.ValidationError
		structuralErr *shared.StructuralError
		stateErr      *shared.StateError
		conflictErr   *shared.ConflictError
		integrityErr  *shared.IntegrityError
	)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &validationErr):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.As(err, &stateErr):
		Problem(w, http.StatusUnprocessableEntity, "Invalid Transition", err.Error())
	case errors.As(err, &conflictErr), errors.Is(err, shared.ErrAccountBusy):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.As(err, &structuralErr), errors.As(err, &integrityErr):
		// Corrupt hierarchy or broken posting invariant: halt rather
		// than partial-render.
		Problem(w, http.StatusInternalServerError, "Ledger Integrity", err.Error())
	case errors.Is(err, shared.ErrFiscalYearClosed), errors.Is(err, shared.ErrTenantMismatch):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
