package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrQuotaExhausted     = errors.New("code quota exhausted")
	ErrOrderAlreadyIssued = errors.New("order already produced a code")
	ErrOrderLocked        = errors.New("order is being confirmed elsewhere")
	ErrFreeTierExhausted  = errors.New("free daily usage exhausted")

	// Storage errors
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
)

// ProviderError carries the payment provider's HTTP status and raw body so the
// caller can surface or log the exact failure. It is never retried automatically.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("payment provider returned %d: %s", e.StatusCode, e.Body)
}
