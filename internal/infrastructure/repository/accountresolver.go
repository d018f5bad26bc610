package repository

import (
	"context"
	"errors"

	appbilling "github.com/bilim-app/bilim/internal/application/billing"
	"github.com/bilim-app/bilim/internal/domain/billing"
	"github.com/bilim-app/bilim/internal/domain/user"
)

// AccountResolver resolves provider account references to users. A direct
// user reference wins; an order reference is chased through the ledger to
// the user who started the checkout.
type AccountResolver struct {
	userRepo user.UserRepository
	txRepo   billing.TransactionRepository
}

func NewAccountResolver(userRepo user.UserRepository, txRepo billing.TransactionRepository) *AccountResolver {
	return &AccountResolver{userRepo: userRepo, txRepo: txRepo}
}

func (r *AccountResolver) ResolveAccount(ctx context.Context, ref appbilling.AccountRef) (*user.User, error) {
	if ref.UserID != 0 {
		u, err := r.userRepo.GetByID(ctx, ref.UserID)
		if err != nil {
			return nil, err
		}
		if !u.IsActive() {
			return nil, user.ErrUserNotFound
		}
		return u, nil
	}

	if ref.OrderID != "" {
		tx, err := r.txRepo.GetByOrderID(ctx, ref.OrderID)
		if err != nil {
			if errors.Is(err, billing.ErrTransactionNotFound) {
				return nil, user.ErrUserNotFound
			}
			return nil, err
		}
		return r.userRepo.GetByID(ctx, tx.UserID())
	}

	return nil, user.ErrUserNotFound
}
