package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/bilim-app/bilim/internal/domain/billing"
	vo "github.com/bilim-app/bilim/internal/domain/billing/valueobjects"
	"github.com/bilim-app/bilim/internal/infrastructure/persistence/mappers"
	"github.com/bilim-app/bilim/internal/infrastructure/persistence/models"
	"github.com/bilim-app/bilim/internal/shared/db"
	"github.com/bilim-app/bilim/internal/shared/errors"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// CreateIfAbsent inserts the transaction; the unique (provider, provider_tx_id)
// index turns concurrent duplicate inserts into a read of the winning row.
func (r *TransactionRepository) CreateIfAbsent(ctx context.Context, t *billing.Transaction) (*billing.Transaction, bool, error) {
	model := mappers.TransactionToModel(t)

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		if errors.IsDuplicateError(err) {
			existing, getErr := r.GetByProviderTxID(ctx, t.Provider(), t.ProviderTxID())
			if getErr != nil {
				return nil, false, getErr
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to create transaction: %w", err)
	}

	t.SetID(model.ID)
	return t, true, nil
}

// UpdateState writes a transitioned aggregate guarded by the state the
// transition was computed from. Zero rows affected means a concurrent
// writer already moved the row: ErrStaleTransition.
func (r *TransactionRepository) UpdateState(ctx context.Context, t *billing.Transaction, fromState vo.TransactionState) error {
	model := mappers.TransactionToModel(t)

	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.TransactionModel{}).
		Where("id = ? AND state = ?", model.ID, fromState.String()).
		Updates(map[string]interface{}{
			"state":        model.State,
			"reason":       model.Reason,
			"performed_at": model.PerformedAt,
			"cancelled_at": model.CancelledAt,
			"raw_payload":  model.RawPayload,
			"retry_count":  model.RetryCount,
			"version":      model.Version,
			"updated_at":   model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update transaction state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := db.GetTxFromContext(ctx, r.db).
			Model(&models.TransactionModel{}).
			Where("id = ?", model.ID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check transaction: %w", err)
		}
		if count == 0 {
			return billing.ErrTransactionNotFound
		}
		return billing.ErrStaleTransition
	}

	return nil
}

func (r *TransactionRepository) GetByProviderTxID(ctx context.Context, provider vo.Provider, providerTxID string) (*billing.Transaction, error) {
	var model models.TransactionModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("provider = ? AND provider_tx_id = ?", provider.String(), providerTxID).
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, billing.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return mappers.TransactionToDomain(&model)
}

func (r *TransactionRepository) GetByOrderID(ctx context.Context, merchantOrderID string) (*billing.Transaction, error) {
	var model models.TransactionModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("merchant_order_id = ?", merchantOrderID).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, billing.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction by order: %w", err)
	}

	return mappers.TransactionToDomain(&model)
}

func (r *TransactionRepository) ListCompletedByUser(ctx context.Context, userID uint) ([]*billing.Transaction, error) {
	var txModels []models.TransactionModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("user_id = ? AND state = ?", userID, vo.StateCompleted.String()).
		Order("performed_at ASC").
		Find(&txModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list completed transactions: %w", err)
	}

	return r.toDomainList(txModels)
}

func (r *TransactionRepository) ListStaleCreated(ctx context.Context, provider vo.Provider, before time.Time) ([]*billing.Transaction, error) {
	var txModels []models.TransactionModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("provider = ? AND state = ? AND created_at < ?",
			provider.String(), vo.StateCreated.String(), before).
		Order("created_at ASC").
		Find(&txModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list stale transactions: %w", err)
	}

	return r.toDomainList(txModels)
}

func (r *TransactionRepository) ListUserIDsWithCompleted(ctx context.Context) ([]uint, error) {
	var userIDs []uint

	if err := db.GetTxFromContext(ctx, r.db).
		Model(&models.TransactionModel{}).
		Where("state = ?", vo.StateCompleted.String()).
		Distinct("user_id").
		Order("user_id ASC").
		Pluck("user_id", &userIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to list users with completed transactions: %w", err)
	}

	return userIDs, nil
}

func (r *TransactionRepository) toDomainList(txModels []models.TransactionModel) ([]*billing.Transaction, error) {
	txs := make([]*billing.Transaction, 0, len(txModels))
	for i := range txModels {
		tx, err := mappers.TransactionToDomain(&txModels[i])
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
