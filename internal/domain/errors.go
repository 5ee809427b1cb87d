package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error handling. The error text is the
// stable machine-readable kind; the handler layer maps these to HTTP
// status codes.
var (
	ErrAccountNotFound      = errors.New("account_not_found")
	ErrNameConflict         = errors.New("name_conflict")
	ErrInsufficientFunds    = errors.New("insufficient_funds")
	ErrInsufficientHoldings = errors.New("insufficient_holdings")
	ErrIntegrityMismatch    = errors.New("integrity_mismatch")
	ErrUpstreamUnavailable  = errors.New("upstream_unavailable")
	ErrSymbolNotFound       = errors.New("symbol_not_found")
	ErrInvalidSession       = errors.New("invalid_session")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IntegrityMismatchError is returned when a caller's fingerprint no longer
// matches the account. Current is the live state the caller should reset
// its view to.
type IntegrityMismatchError struct {
	Current *Account
}

func (e *IntegrityMismatchError) Error() string {
	return ErrIntegrityMismatch.Error()
}

func (e *IntegrityMismatchError) Unwrap() error {
	return ErrIntegrityMismatch
}

// UpstreamError describes a failed quote fetch. Status is the upstream HTTP
// status, or 0 for network failures.
type UpstreamError struct {
	Symbol string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("quote %s: upstream status %d", e.Symbol, e.Status)
	}
	return fmt.Sprintf("quote %s: %v", e.Symbol, e.Err)
}

func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpstreamUnavailable}
	}
	return []error{ErrUpstreamUnavailable, e.Err}
}
