package transfer

import (
	"github.com/govalues/money"

	"github.com/tinoosan/bookkeeper/internal/books"
)

// InsufficientBalanceError is returned when a withdrawal would overdraw the
// account. It carries both amounts so callers can render a precise message.
type InsufficientBalanceError struct {
	Endpoint  books.Endpoint
	Balance   money.Amount
	Requested money.Amount
}

func (e *InsufficientBalanceError) Error() string {
	return "insufficient balance: " + books.FormatMinor(books.Minor(e.Balance)) +
		" < " + books.FormatMinor(books.Minor(e.Requested))
}

// ConsistencyError reports a disagreement between the stored balance and the
// balance derived by replaying the transaction log. It indicates a bug in
// balance maintenance or storage corruption, never an expected state.
type ConsistencyError struct {
	Endpoint books.Endpoint
	Stored   money.Amount
	Derived  money.Amount
}

func (e *ConsistencyError) Error() string {
	return "ledger/balance mismatch for " + string(e.Endpoint.Kind) +
		": stored " + books.FormatMinor(books.Minor(e.Stored)) +
		", derived " + books.FormatMinor(books.Minor(e.Derived))
}
