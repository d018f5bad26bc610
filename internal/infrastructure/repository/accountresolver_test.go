package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appbilling "github.com/bilim-app/bilim/internal/application/billing"
	"github.com/bilim-app/bilim/internal/domain/billing"
	vo "github.com/bilim-app/bilim/internal/domain/billing/valueobjects"
	"github.com/bilim-app/bilim/internal/domain/user"
	"github.com/bilim-app/bilim/internal/infrastructure/persistence/models"
)

func TestAccountResolver_ResolveAccount(t *testing.T) {
	db := setupTestDB(t)
	userRepo := NewUserRepository(db)
	txRepo := NewTransactionRepository(db)
	resolver := NewAccountResolver(userRepo, txRepo)
	ctx := context.Background()

	u, err := user.NewUser("student@bilim.uz", "+998901234567", "Aziz")
	require.NoError(t, err)
	require.NoError(t, userRepo.Create(ctx, u))

	tx, err := billing.NewTransaction(vo.ProviderAtmos, "inv-55", "ord-55", u.ID(), 4990000, time.Time{})
	require.NoError(t, err)
	_, _, err = txRepo.CreateIfAbsent(ctx, tx)
	require.NoError(t, err)

	t.Run("direct user reference", func(t *testing.T) {
		resolved, err := resolver.ResolveAccount(ctx, appbilling.AccountRef{UserID: u.ID()})
		require.NoError(t, err)
		assert.Equal(t, u.ID(), resolved.ID())
	})

	t.Run("order reference is chased through the ledger", func(t *testing.T) {
		resolved, err := resolver.ResolveAccount(ctx, appbilling.AccountRef{OrderID: "ord-55"})
		require.NoError(t, err)
		assert.Equal(t, u.ID(), resolved.ID())
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := resolver.ResolveAccount(ctx, appbilling.AccountRef{OrderID: "ord-nope"})
		assert.ErrorIs(t, err, user.ErrUserNotFound)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := resolver.ResolveAccount(ctx, appbilling.AccountRef{UserID: 404})
		assert.ErrorIs(t, err, user.ErrUserNotFound)
	})

	t.Run("empty reference", func(t *testing.T) {
		_, err := resolver.ResolveAccount(ctx, appbilling.AccountRef{})
		assert.ErrorIs(t, err, user.ErrUserNotFound)
	})

	t.Run("deactivated user is hidden", func(t *testing.T) {
		inactive, err := user.NewUser("gone@bilim.uz", "+998907654321", "Gone")
		require.NoError(t, err)
		require.NoError(t, userRepo.Create(ctx, inactive))
		require.NoError(t, db.Model(&models.UserModel{}).
			Where("id = ?", inactive.ID()).
			Update("is_active", false).Error)

		_, err = resolver.ResolveAccount(ctx, appbilling.AccountRef{UserID: inactive.ID()})
		assert.ErrorIs(t, err, user.ErrUserNotFound)
	})
}
