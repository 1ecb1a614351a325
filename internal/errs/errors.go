package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound = errors.New("not_found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
	// ErrUnprocessable is used for semantic validation failures (HTTP 422)
	ErrUnprocessable = errors.New("unprocessable")

	// Fine-grained validation sentinels so callers can map failures to
	// precise error codes with errors.Is.
	ErrInvalidAmount    = errors.New("amount must be > 0")
	ErrSameEndpoint     = errors.New("from and to must differ")
	ErrCashToCash       = errors.New("cash to cash is not a transaction")
	ErrUnknownEndpoint  = errors.New("endpoint does not exist")
	ErrNameRequired     = errors.New("name is required")
	ErrDuplicateName    = errors.New("name already exists")
	ErrHasTransactions  = errors.New("account has transactions")
	ErrCashNotAnAccount = errors.New("cash is not a ledger subject")
)
