package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/bilim-app/bilim/internal/domain/entitlement"
	vo "github.com/bilim-app/bilim/internal/domain/entitlement/valueobjects"
	"github.com/bilim-app/bilim/internal/infrastructure/persistence/mappers"
	"github.com/bilim-app/bilim/internal/infrastructure/persistence/models"
	"github.com/bilim-app/bilim/internal/shared/biztime"
	"github.com/bilim-app/bilim/internal/shared/db"
)

type EntitlementRepository struct {
	db *gorm.DB
}

func NewEntitlementRepository(db *gorm.DB) *EntitlementRepository {
	return &EntitlementRepository{db: db}
}

func (r *EntitlementRepository) GetByUserID(ctx context.Context, userID uint) (*entitlement.Entitlement, error) {
	var model models.EntitlementModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("user_id = ?", userID).
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get entitlement: %w", err)
	}

	return mappers.EntitlementToDomain(&model)
}

func (r *EntitlementRepository) Save(ctx context.Context, e *entitlement.Entitlement) error {
	model := mappers.EntitlementToModel(e)

	if model.ID == 0 {
		if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
			return fmt.Errorf("failed to create entitlement: %w", err)
		}
		e.SetID(model.ID)
		return nil
	}

	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.EntitlementModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"plan":                model.Plan,
			"source":              model.Source,
			"expiry_date":         model.ExpiryDate,
			"activated_at":        model.ActivatedAt,
			"duration_days":       model.DurationDays,
			"last_payment_amount": model.LastPaymentAmount,
			"payment_status":      model.PaymentStatus,
			"version":             model.Version,
			"updated_at":          model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update entitlement: %w", result.Error)
	}

	return nil
}

func (r *EntitlementRepository) ListLapsedPaid(ctx context.Context) ([]*entitlement.Entitlement, error) {
	var entModels []models.EntitlementModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("plan <> ? AND expiry_date IS NOT NULL AND expiry_date <= ?",
			vo.PlanFree.String(), biztime.NowUTC()).
		Find(&entModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list lapsed entitlements: %w", err)
	}

	return r.toDomainList(entModels)
}

func (r *EntitlementRepository) ListPaidMissingExpiry(ctx context.Context) ([]*entitlement.Entitlement, error) {
	var entModels []models.EntitlementModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("plan <> ? AND expiry_date IS NULL", vo.PlanFree.String()).
		Find(&entModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list entitlements missing expiry: %w", err)
	}

	return r.toDomainList(entModels)
}

func (r *EntitlementRepository) toDomainList(entModels []models.EntitlementModel) ([]*entitlement.Entitlement, error) {
	ents := make([]*entitlement.Entitlement, 0, len(entModels))
	for i := range entModels {
		e, err := mappers.EntitlementToDomain(&entModels[i])
		if err != nil {
			return nil, err
		}
		ents = append(ents, e)
	}
	return ents, nil
}
