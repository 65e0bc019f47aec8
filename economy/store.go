/*
store.go - Persistence interface for the coin ledger

PURPOSE:
  Defines the interface between the economy domain and the database.
  Transactions are append-only; profiles are the single mutable record
  per user and are only written by the Manager.

APPEND-ONLY CONTRACT:
  - AppendTransaction(): the ONLY transaction write
  - NO update or delete methods exist for transactions
  - Implementations must not expose mutation of stored transactions

ATOMICITY:
  Every ledger mutation pairs a transaction append with a profile
  update. TxStore.WithTx makes that pair all-or-nothing: a failed
  write leaves the profile unchanged, never a half-applied spend.

IMPLEMENTATIONS:
  - store/sqlite: durable store (WAL mode)
  - store/memory: in-memory store for tests and dev

SEE ALSO:
  - manager.go: Only caller of the write paths
  - store/sqlite/sqlite.go, store/memory/memory.go
*/
package economy

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Transaction log + profiles
// =============================================================================

// Store handles persistence of transactions and profiles.
// IMPORTANT: transactions are APPEND-ONLY. No update, no delete. Ever.
type Store interface {
	// AppendTransaction persists one transaction. The only tx write.
	AppendTransaction(ctx context.Context, tx Transaction) error

	// TransactionsByUser returns up to limit transactions for a user,
	// most recent first. limit <= 0 means unbounded.
	TransactionsByUser(ctx context.Context, userID string, limit int) ([]Transaction, error)

	// TransactionsByUserSince returns a user's transactions created at
	// or after since, most recent first.
	TransactionsByUserSince(ctx context.Context, userID string, since time.Time) ([]Transaction, error)

	// RecentTransactions returns the newest transactions across all
	// users, most recent first. limit <= 0 means unbounded.
	RecentTransactions(ctx context.Context, limit int) ([]Transaction, error)

	// GetProfile returns a user's ledger entry, or ErrUserNotFound.
	GetProfile(ctx context.Context, userID string) (*Profile, error)

	// SaveProfile inserts or replaces a profile.
	SaveProfile(ctx context.Context, p Profile) error

	// ListProfiles returns every profile (allocation scheduler).
	ListProfiles(ctx context.Context) ([]Profile, error)
}

// =============================================================================
// TRANSACTIONAL STORE - Atomic append + profile update
// =============================================================================

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn atomically. If fn returns an error, all writes
	// made through the passed Store are rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
