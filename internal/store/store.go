// Package store defines the persistence contract the engine requires
// from its storage collaborator: read/write access to the transactions,
// commitments and monthly_budgets collections, filtered by user and date
// range. Implementations live in subpackages (postgres, memory).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dsilveira/finledger/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// TransactionRepository reads transaction rows. The engine never writes
// transactions; they are created by user input or external ingestion.
type TransactionRepository interface {
	// ListTransactionsByDateRange returns the user's transactions with
	// date in [start, end), ordered by date ascending.
	ListTransactionsByDateRange(ctx context.Context, userID string, start, end time.Time) ([]domain.Transaction, error)
}

// CommitmentRepository reads and updates commitment rows. The only
// engine-driven writes are the status-update operations; everything else
// belongs to the user-facing CRUD surface, out of scope here.
type CommitmentRepository interface {
	// ListCommitments returns all of the user's commitments, active and
	// inactive.
	ListCommitments(ctx context.Context, userID string) ([]domain.Commitment, error)

	// GetCommitment returns one commitment or ErrNotFound.
	GetCommitment(ctx context.Context, id string) (*domain.Commitment, error)

	// SetManualStatus writes the period-scoped manual override. The
	// implementation must read-modify-write against the latest row.
	SetManualStatus(ctx context.Context, id string, status domain.PaymentStatus, month, year int) error

	// ClearManualStatus nulls all three manual-override fields.
	ClearManualStatus(ctx context.Context, id string) error

	// SetInstallmentsPaid updates the paid-installment counter.
	SetInstallmentsPaid(ctx context.Context, id string, paid int) error
}

// BudgetRepository reads and writes monthly budget rows.
type BudgetRepository interface {
	// GetBudget returns the row for (user, month, year) or ErrNotFound.
	GetBudget(ctx context.Context, userID string, month, year int) (*domain.MonthlyBudget, error)

	// ListBudgets returns all of the user's budget rows in chronological
	// order.
	ListBudgets(ctx context.Context, userID string) ([]domain.MonthlyBudget, error)

	// UpsertBudget inserts or updates the row keyed by (user, month,
	// year). Implementations must not blindly overwrite concurrent
	// edits: writes go through the latest persisted value.
	UpsertBudget(ctx context.Context, budget *domain.MonthlyBudget) error
}

// Store is the full persistence contract the engine depends on.
type Store interface {
	TransactionRepository
	CommitmentRepository
	BudgetRepository
}

// Table names a logical collection for change notifications.
type Table string

const (
	TableTransactions Table = "transactions"
	TableCommitments  Table = "commitments"
	TableBudgets      Table = "monthly_budgets"
)

// ChangeHandler is invoked when rows change for a user in a table.
type ChangeHandler func(userID string, table Table)

// ChangeNotifier is the optional per-user, per-table subscription
// mechanism used to invalidate caches promptly. The engine functions
// correctly without one; invalidation then falls back to TTL expiry.
type ChangeNotifier interface {
	// Subscribe registers the handler and blocks delivering
	// notifications until ctx is cancelled.
	Subscribe(ctx context.Context, handler ChangeHandler) error

	Close() error
}
