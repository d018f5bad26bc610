package mappers

import (
	"fmt"

	"github.com/bilim-app/bilim/internal/domain/entitlement"
	vo "github.com/bilim-app/bilim/internal/domain/entitlement/valueobjects"
	"github.com/bilim-app/bilim/internal/infrastructure/persistence/models"
)

func EntitlementToModel(e *entitlement.Entitlement) *models.EntitlementModel {
	return &models.EntitlementModel{
		ID:                e.ID(),
		UserID:            e.UserID(),
		Plan:              e.Plan().String(),
		Source:            e.Source().String(),
		ExpiryDate:        e.ExpiryDate(),
		ActivatedAt:       e.ActivatedAt(),
		DurationDays:      e.DurationDays(),
		LastPaymentAmount: e.LastPaymentAmount(),
		PaymentStatus:     e.PaymentStatus().String(),
		Version:           e.Version(),
		CreatedAt:         e.CreatedAt(),
		UpdatedAt:         e.UpdatedAt(),
	}
}

func EntitlementToDomain(model *models.EntitlementModel) (*entitlement.Entitlement, error) {
	plan := vo.Plan(model.Plan)
	if !plan.IsValid() {
		return nil, fmt.Errorf("invalid plan: %s", model.Plan)
	}

	source := vo.Source(model.Source)
	if !source.IsValid() {
		return nil, fmt.Errorf("invalid source: %s", model.Source)
	}

	status := vo.PaymentStatus(model.PaymentStatus)
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid payment status: %s", model.PaymentStatus)
	}

	return entitlement.ReconstructEntitlement(entitlement.EntitlementReconstructParams{
		ID:                model.ID,
		UserID:            model.UserID,
		Plan:              plan,
		Source:            source,
		ExpiryDate:        model.ExpiryDate,
		ActivatedAt:       model.ActivatedAt,
		DurationDays:      model.DurationDays,
		LastPaymentAmount: model.LastPaymentAmount,
		PaymentStatus:     status,
		Version:           model.Version,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}), nil
}
