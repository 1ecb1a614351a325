package httpapi

import (
	"context"

	"github.com/tinoosan/bookkeeper/internal/books"
	"github.com/tinoosan/bookkeeper/internal/service/registry"
	"github.com/tinoosan/bookkeeper/internal/service/transfer"
)

// IdempotencyStore abstracts idempotency key operations for transactions.
type IdempotencyStore interface {
	// TransactionByIdempotencyKey resolves a previously created transaction.
	TransactionByIdempotencyKey(ctx context.Context, key string) (books.Transaction, bool, error)
	// SaveIdempotencyKey stores a key mapping for a transaction. The first
	// binding wins; replays keep it.
	SaveIdempotencyKey(ctx context.Context, key string, txID int64) error
}

// ReadyChecker is optionally implemented by stores to indicate readiness.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}

// Store is the union of storage operations the API composes its services
// from. The memory, sqlite and postgres stores all satisfy it.
type Store interface {
	transfer.Repo
	transfer.AccountReader
	transfer.Writer
	registry.Repo
	registry.Writer
	IdempotencyStore
	// Currency returns the book's single currency code.
	Currency() string
}
