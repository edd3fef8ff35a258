package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The protocol layer maps these to status codes.
var (
	ErrAccountNotFound      = errors.New("account_not_found")
	ErrHoldingNotFound      = errors.New("holding_not_found")
	ErrHoldingExists        = errors.New("holding_exists")
	ErrInsufficientBalance  = errors.New("insufficient_balance")
	ErrInsufficientHoldings = errors.New("insufficient_holdings")
)

// ValidationError represents a malformed command argument.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
