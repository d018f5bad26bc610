package billing

import (
	"context"
	"time"

	vo "github.com/bilim-app/bilim/internal/domain/billing/valueobjects"
)

// TransactionRepository is the persistence boundary of the ledger.
// It enforces the state table on writes: UpdateState applies a transition
// only when the stored state still equals the state the transition was
// computed from, so concurrent redeliveries cannot apply a transition twice.
type TransactionRepository interface {
	// CreateIfAbsent persists the transaction unless one already exists for
	// (provider, providerTxID). It returns the stored transaction and
	// whether a new row was created.
	CreateIfAbsent(ctx context.Context, t *Transaction) (*Transaction, bool, error)

	// UpdateState persists an already transitioned aggregate. fromState is
	// the state the aggregate was loaded in; when the stored row no longer
	// carries it, ErrStaleTransition is returned and nothing is written.
	UpdateState(ctx context.Context, t *Transaction, fromState vo.TransactionState) error

	GetByProviderTxID(ctx context.Context, provider vo.Provider, providerTxID string) (*Transaction, error)
	GetByOrderID(ctx context.Context, merchantOrderID string) (*Transaction, error)

	// ListCompletedByUser returns every completed transaction for the user
	// across all providers, ordered by performedAt ascending.
	ListCompletedByUser(ctx context.Context, userID uint) ([]*Transaction, error)

	// ListStaleCreated returns created transactions of the provider older
	// than the given cutoff, for timeout cancellation.
	ListStaleCreated(ctx context.Context, provider vo.Provider, before time.Time) ([]*Transaction, error)

	// ListUserIDsWithCompleted returns the distinct users owning at least
	// one completed transaction. Used by the activation sweep pass.
	ListUserIDsWithCompleted(ctx context.Context) ([]uint, error)
}
