package handler

import (
	"errors"
	"net/http"

	"github.com/efreitasn/papertrader/internal/domain"
)

// mapError maps domain errors to HTTP responses. Every response carries
// the error kind and a human-readable message.
func mapError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}
	var mismatch *domain.IntegrityMismatchError
	if errors.As(err, &mismatch) {
		writeStaleAccount(w, toAccountResponse(mismatch.Current))
		return
	}

	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		WriteError(w, http.StatusNotFound, "account_not_found", "Account not found")
	case errors.Is(err, domain.ErrNameConflict):
		WriteError(w, http.StatusConflict, "name_conflict", "Display name is already taken")
	case errors.Is(err, domain.ErrInsufficientFunds):
		WriteError(w, http.StatusUnprocessableEntity, "insufficient_funds", "Not enough cash for this trade")
	case errors.Is(err, domain.ErrInsufficientHoldings):
		WriteError(w, http.StatusUnprocessableEntity, "insufficient_holdings", "Not enough shares for this trade")
	case errors.Is(err, domain.ErrIntegrityMismatch):
		WriteError(w, http.StatusConflict, "integrity_mismatch", "Account changed since it was last read")
	case errors.Is(err, domain.ErrInvalidSession):
		WriteError(w, http.StatusUnauthorized, "invalid_session", "Session is no longer valid; register again")
	case errors.Is(err, domain.ErrSymbolNotFound):
		WriteError(w, http.StatusNotFound, "symbol_not_found", "Stock not supported or invalid data format")
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		WriteError(w, http.StatusBadGateway, "upstream_unavailable", "Quote service unavailable")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}
