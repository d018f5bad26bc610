package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bilim-app/bilim/internal/domain/billing"
	vo "github.com/bilim-app/bilim/internal/domain/billing/valueobjects"
	"github.com/bilim-app/bilim/internal/infrastructure/persistence/models"
	"github.com/bilim-app/bilim/internal/shared/biztime"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.UserModel{}, &models.TransactionModel{}, &models.EntitlementModel{})
	require.NoError(t, err)

	return db
}

func newCreatedTx(t *testing.T, provider vo.Provider, providerTxID string, userID uint, amount int64) *billing.Transaction {
	tx, err := billing.NewTransaction(provider, providerTxID, "", userID, amount, time.Time{})
	require.NoError(t, err)
	return tx
}

func TestTransactionRepository_CreateIfAbsent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	t.Run("creates new transaction", func(t *testing.T) {
		tx := newCreatedTx(t, vo.ProviderPayme, "payme-tx-1", 1, 4990000)

		stored, created, err := repo.CreateIfAbsent(ctx, tx)
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotZero(t, stored.ID())
	})

	t.Run("duplicate provider tx id returns existing row", func(t *testing.T) {
		first := newCreatedTx(t, vo.ProviderPayme, "payme-tx-dup", 2, 4990000)
		stored, created, err := repo.CreateIfAbsent(ctx, first)
		require.NoError(t, err)
		require.True(t, created)

		second := newCreatedTx(t, vo.ProviderPayme, "payme-tx-dup", 2, 4990000)
		existing, created, err := repo.CreateIfAbsent(ctx, second)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, stored.ID(), existing.ID())
	})

	t.Run("same tx id under another provider is a distinct row", func(t *testing.T) {
		payme := newCreatedTx(t, vo.ProviderPayme, "shared-id", 3, 4990000)
		_, created, err := repo.CreateIfAbsent(ctx, payme)
		require.NoError(t, err)
		require.True(t, created)

		atmos := newCreatedTx(t, vo.ProviderAtmos, "shared-id", 3, 4990000)
		_, created, err = repo.CreateIfAbsent(ctx, atmos)
		require.NoError(t, err)
		assert.True(t, created)
	})
}

func TestTransactionRepository_UpdateState(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	t.Run("persists a completed transition", func(t *testing.T) {
		tx := newCreatedTx(t, vo.ProviderPayme, "payme-complete", 1, 4990000)
		stored, _, err := repo.CreateIfAbsent(ctx, tx)
		require.NoError(t, err)

		fromState := stored.State()
		require.NoError(t, stored.Complete())
		require.NoError(t, repo.UpdateState(ctx, stored, fromState))

		reloaded, err := repo.GetByProviderTxID(ctx, vo.ProviderPayme, "payme-complete")
		require.NoError(t, err)
		assert.Equal(t, vo.StateCompleted, reloaded.State())
		assert.NotNil(t, reloaded.PerformedAt())
	})

	t.Run("lost race returns stale transition", func(t *testing.T) {
		tx := newCreatedTx(t, vo.ProviderPayme, "payme-race", 1, 4990000)
		_, _, err := repo.CreateIfAbsent(ctx, tx)
		require.NoError(t, err)

		winner, err := repo.GetByProviderTxID(ctx, vo.ProviderPayme, "payme-race")
		require.NoError(t, err)
		loser, err := repo.GetByProviderTxID(ctx, vo.ProviderPayme, "payme-race")
		require.NoError(t, err)

		require.NoError(t, winner.Complete())
		require.NoError(t, repo.UpdateState(ctx, winner, vo.StateCreated))

		require.NoError(t, loser.Cancel(vo.ReasonTimeout))
		err = repo.UpdateState(ctx, loser, vo.StateCreated)
		assert.ErrorIs(t, err, billing.ErrStaleTransition)
	})

	t.Run("missing row returns not found", func(t *testing.T) {
		tx := newCreatedTx(t, vo.ProviderPayme, "payme-ghost", 1, 4990000)
		tx.SetID(99999)
		require.NoError(t, tx.Complete())

		err := repo.UpdateState(ctx, tx, vo.StateCreated)
		assert.ErrorIs(t, err, billing.ErrTransactionNotFound)
	})
}

func TestTransactionRepository_GetByOrderID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	tx, err := billing.NewTransaction(vo.ProviderAtmos, "inv-100", "ord-abc", 5, 9900000, time.Time{})
	require.NoError(t, err)
	_, _, err = repo.CreateIfAbsent(ctx, tx)
	require.NoError(t, err)

	found, err := repo.GetByOrderID(ctx, "ord-abc")
	require.NoError(t, err)
	assert.Equal(t, "inv-100", found.ProviderTxID())
	assert.Equal(t, uint(5), found.UserID())

	_, err = repo.GetByOrderID(ctx, "ord-missing")
	assert.ErrorIs(t, err, billing.ErrTransactionNotFound)
}

func TestTransactionRepository_ListCompletedByUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	complete := func(providerTxID string, userID uint) {
		tx := newCreatedTx(t, vo.ProviderPayme, providerTxID, userID, 4990000)
		stored, _, err := repo.CreateIfAbsent(ctx, tx)
		require.NoError(t, err)
		require.NoError(t, stored.Complete())
		require.NoError(t, repo.UpdateState(ctx, stored, vo.StateCreated))
	}

	complete("u1-first", 1)
	complete("u1-second", 1)
	complete("u2-only", 2)

	pending := newCreatedTx(t, vo.ProviderPayme, "u1-pending", 1, 4990000)
	_, _, err := repo.CreateIfAbsent(ctx, pending)
	require.NoError(t, err)

	txs, err := repo.ListCompletedByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	for _, tx := range txs {
		assert.Equal(t, vo.StateCompleted, tx.State())
		assert.Equal(t, uint(1), tx.UserID())
	}

	userIDs, err := repo.ListUserIDsWithCompleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2}, userIDs)
}

func TestTransactionRepository_ListStaleCreated(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	old, err := billing.NewTransaction(vo.ProviderPayme, "old-pending", "", 1, 4990000,
		biztime.NowUTC().Add(-24*time.Hour))
	require.NoError(t, err)
	_, _, err = repo.CreateIfAbsent(ctx, old)
	require.NoError(t, err)

	fresh := newCreatedTx(t, vo.ProviderPayme, "fresh-pending", 1, 4990000)
	_, _, err = repo.CreateIfAbsent(ctx, fresh)
	require.NoError(t, err)

	atmosOld, err := billing.NewTransaction(vo.ProviderAtmos, "atmos-old", "", 2, 9900000,
		biztime.NowUTC().Add(-24*time.Hour))
	require.NoError(t, err)
	_, _, err = repo.CreateIfAbsent(ctx, atmosOld)
	require.NoError(t, err)

	cutoff := biztime.NowUTC().Add(-12 * time.Hour)

	stale, err := repo.ListStaleCreated(ctx, vo.ProviderPayme, cutoff)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "old-pending", stale[0].ProviderTxID())
}
