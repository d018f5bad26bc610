package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/bilim-app/bilim/internal/domain/billing/valueobjects"
)

// --- helpers ---

func createdTransaction(t *testing.T) *Transaction {
	t.Helper()
	tx, err := NewTransaction(vo.ProviderPayme, "63f1c2ab77aa", "ord_abc123", 7, 4990000, time.Time{})
	require.NoError(t, err)
	return tx
}

func completedTransaction(t *testing.T) *Transaction {
	t.Helper()
	tx := createdTransaction(t)
	require.NoError(t, tx.Complete())
	return tx
}

// =============================================================================
// Constructor Tests
// =============================================================================

func TestNewTransaction_ValidInput(t *testing.T) {
	tests := []struct {
		name     string
		provider vo.Provider
		txID     string
		amount   int64
	}{
		{"payme transaction", vo.ProviderPayme, "63f1c2ab77aa", 4990000},
		{"atmos transaction", vo.ProviderAtmos, "inv_9f8e7d", 12900000},
		{"manual zero-amount transaction", vo.ProviderManual, "grant_1", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tx, err := NewTransaction(tc.provider, tc.txID, "ord_x", 3, tc.amount, time.Time{})
			require.NoError(t, err)
			require.NotNil(t, tx)

			assert.Equal(t, uint(0), tx.ID(), "new transaction should have zero ID")
			assert.Equal(t, tc.provider, tx.Provider())
			assert.Equal(t, tc.txID, tx.ProviderTxID())
			assert.Equal(t, uint(3), tx.UserID())
			assert.Equal(t, tc.amount, tx.Amount())
			assert.Equal(t, vo.StateCreated, tx.State())
			assert.Nil(t, tx.PerformedAt())
			assert.Nil(t, tx.CancelledAt())
			assert.Nil(t, tx.Reason())
			assert.Equal(t, 0, tx.Version())
			assert.False(t, tx.CreatedAt().IsZero())
		})
	}
}

func TestNewTransaction_ProviderCreationTime(t *testing.T) {
	providerTime := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
	tx, err := NewTransaction(vo.ProviderPayme, "tx1", "ord_x", 1, 100, providerTime)
	require.NoError(t, err)
	assert.Equal(t, providerTime, tx.CreatedAt(), "provider creation time should be kept")
}

func TestNewTransaction_InvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		provider  vo.Provider
		txID      string
		userID    uint
		amount    int64
		expectErr string
	}{
		{"invalid provider", vo.Provider("stripe"), "tx1", 1, 100, "invalid provider"},
		{"empty provider tx id", vo.ProviderPayme, "", 1, 100, "provider transaction ID is required"},
		{"zero user id", vo.ProviderPayme, "tx1", 0, 100, "user ID is required"},
		{"negative amount", vo.ProviderPayme, "tx1", 1, -1, "amount must not be negative"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tx, err := NewTransaction(tc.provider, tc.txID, "ord_x", tc.userID, tc.amount, time.Time{})
			assert.Error(t, err)
			assert.Nil(t, tx)
			assert.Contains(t, err.Error(), tc.expectErr)
		})
	}
}

// =============================================================================
// State Machine Tests
// =============================================================================

func TestTransaction_Complete(t *testing.T) {
	t.Run("created to completed", func(t *testing.T) {
		tx := createdTransaction(t)

		err := tx.Complete()
		require.NoError(t, err)

		assert.Equal(t, vo.StateCompleted, tx.State())
		require.NotNil(t, tx.PerformedAt())
		assert.Equal(t, 1, tx.Version())
	})

	t.Run("idempotent when already completed", func(t *testing.T) {
		tx := completedTransaction(t)
		first := *tx.PerformedAt()

		err := tx.Complete()
		assert.NoError(t, err)
		assert.Equal(t, first, *tx.PerformedAt(), "original perform time should be preserved")
		assert.Equal(t, 1, tx.Version(), "version should not change on idempotent call")
	})

	t.Run("rejected from cancelled", func(t *testing.T) {
		tx := createdTransaction(t)
		require.NoError(t, tx.Cancel(vo.ReasonTimeout))

		err := tx.Complete()
		assert.ErrorIs(t, err, ErrInvalidStateTransition)
		assert.Equal(t, vo.StateCancelled, tx.State())
		assert.Nil(t, tx.PerformedAt())
	})

	t.Run("rejected from cancelled after complete", func(t *testing.T) {
		tx := completedTransaction(t)
		require.NoError(t, tx.Cancel(vo.ReasonRefund))

		err := tx.Complete()
		assert.ErrorIs(t, err, ErrInvalidStateTransition)
		assert.Equal(t, vo.StateCancelledAfterComplete, tx.State())
	})
}

func TestTransaction_Cancel(t *testing.T) {
	t.Run("created to cancelled", func(t *testing.T) {
		tx := createdTransaction(t)

		err := tx.Cancel(vo.ReasonTimeout)
		require.NoError(t, err)

		assert.Equal(t, vo.StateCancelled, tx.State())
		require.NotNil(t, tx.CancelledAt())
		require.NotNil(t, tx.Reason())
		assert.Equal(t, vo.ReasonTimeout, *tx.Reason())
		assert.Equal(t, 1, tx.Version())
	})

	t.Run("completed to cancelled after complete", func(t *testing.T) {
		tx := completedTransaction(t)

		err := tx.Cancel(vo.ReasonRefund)
		require.NoError(t, err)

		assert.Equal(t, vo.StateCancelledAfterComplete, tx.State())
		require.NotNil(t, tx.PerformedAt(), "perform time survives a refund")
		require.NotNil(t, tx.Reason())
		assert.Equal(t, vo.ReasonRefund, *tx.Reason())
	})

	t.Run("idempotent on already cancelled, keeps original reason", func(t *testing.T) {
		tx := createdTransaction(t)
		require.NoError(t, tx.Cancel(vo.ReasonProcessingError))

		err := tx.Cancel(vo.ReasonTimeout)
		assert.NoError(t, err)
		assert.Equal(t, vo.ReasonProcessingError, *tx.Reason())
		assert.Equal(t, 1, tx.Version(), "version should not change on idempotent call")
	})
}

func TestTransaction_StateTable(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(t *testing.T) *Transaction
		act       func(tx *Transaction) error
		wantErr   bool
		wantState vo.TransactionState
	}{
		{
			name:      "created -> completed",
			setup:     createdTransaction,
			act:       func(tx *Transaction) error { return tx.Complete() },
			wantErr:   false,
			wantState: vo.StateCompleted,
		},
		{
			name:      "created -> cancelled",
			setup:     createdTransaction,
			act:       func(tx *Transaction) error { return tx.Cancel(vo.ReasonTimeout) },
			wantErr:   false,
			wantState: vo.StateCancelled,
		},
		{
			name:      "completed -> cancelled_after_complete",
			setup:     completedTransaction,
			act:       func(tx *Transaction) error { return tx.Cancel(vo.ReasonRefund) },
			wantErr:   false,
			wantState: vo.StateCancelledAfterComplete,
		},
		{
			name: "cancelled -> completed rejected",
			setup: func(t *testing.T) *Transaction {
				tx := createdTransaction(t)
				require.NoError(t, tx.Cancel(vo.ReasonTimeout))
				return tx
			},
			act:       func(tx *Transaction) error { return tx.Complete() },
			wantErr:   true,
			wantState: vo.StateCancelled,
		},
		{
			name: "cancelled_after_complete -> completed rejected",
			setup: func(t *testing.T) *Transaction {
				tx := completedTransaction(t)
				require.NoError(t, tx.Cancel(vo.ReasonRefund))
				return tx
			},
			act:       func(tx *Transaction) error { return tx.Complete() },
			wantErr:   true,
			wantState: vo.StateCancelledAfterComplete,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tx := tc.setup(t)
			err := tc.act(tx)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidStateTransition)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.wantState, tx.State())
		})
	}
}

// =============================================================================
// Timeout and bookkeeping
// =============================================================================

func TestTransaction_IsStale(t *testing.T) {
	window := 12 * time.Hour

	t.Run("fresh created transaction is not stale", func(t *testing.T) {
		tx := createdTransaction(t)
		assert.False(t, tx.IsStale(window))
	})

	t.Run("old created transaction is stale", func(t *testing.T) {
		old := time.Now().UTC().Add(-13 * time.Hour)
		tx, err := NewTransaction(vo.ProviderPayme, "tx_old", "ord_x", 1, 100, old)
		require.NoError(t, err)
		assert.True(t, tx.IsStale(window))
	})

	t.Run("completed transaction is never stale", func(t *testing.T) {
		old := time.Now().UTC().Add(-48 * time.Hour)
		tx, err := NewTransaction(vo.ProviderPayme, "tx_old", "ord_x", 1, 100, old)
		require.NoError(t, err)
		require.NoError(t, tx.Complete())
		assert.False(t, tx.IsStale(window))
	})
}

func TestTransaction_RetryCount(t *testing.T) {
	tx := createdTransaction(t)
	assert.Equal(t, 0, tx.RetryCount())

	tx.IncrementRetry()
	tx.IncrementRetry()
	assert.Equal(t, 2, tx.RetryCount())
}

func TestTransaction_Reconstruct(t *testing.T) {
	now := time.Now().UTC()
	performedAt := now.Add(-time.Hour)
	reason := vo.ReasonRefund

	tx := ReconstructTransaction(TransactionReconstructParams{
		ID:              42,
		Provider:        vo.ProviderAtmos,
		ProviderTxID:    "inv_123",
		MerchantOrderID: "ord_reconstructed",
		UserID:          9,
		Amount:          4990000,
		State:           vo.StateCancelledAfterComplete,
		Reason:          &reason,
		PerformedAt:     &performedAt,
		CancelledAt:     &now,
		RetryCount:      1,
		RawPayload:      map[string]interface{}{"status": "refund"},
		Version:         2,
		CreatedAt:       now.Add(-2 * time.Hour),
		UpdatedAt:       now,
	})

	assert.Equal(t, uint(42), tx.ID())
	assert.Equal(t, vo.ProviderAtmos, tx.Provider())
	assert.Equal(t, "inv_123", tx.ProviderTxID())
	assert.Equal(t, uint(9), tx.UserID())
	assert.Equal(t, int64(4990000), tx.Amount())
	assert.Equal(t, vo.StateCancelledAfterComplete, tx.State())
	require.NotNil(t, tx.Reason())
	assert.Equal(t, vo.ReasonRefund, *tx.Reason())
	assert.Equal(t, "refund", tx.RawPayload()["status"])
	assert.Equal(t, 2, tx.Version())
}

func TestTransactionState_PaymeCodes(t *testing.T) {
	assert.Equal(t, 1, vo.StateCreated.PaymeCode())
	assert.Equal(t, 2, vo.StateCompleted.PaymeCode())
	assert.Equal(t, -1, vo.StateCancelled.PaymeCode())
	assert.Equal(t, -2, vo.StateCancelledAfterComplete.PaymeCode())
}
