package mappers

import (
	"fmt"

	"github.com/bilim-app/bilim/internal/domain/billing"
	vo "github.com/bilim-app/bilim/internal/domain/billing/valueobjects"
	"github.com/bilim-app/bilim/internal/infrastructure/persistence/models"
)

func TransactionToModel(t *billing.Transaction) *models.TransactionModel {
	var reason *int
	if r := t.Reason(); r != nil {
		v := r.Int()
		reason = &v
	}

	model := &models.TransactionModel{
		ID:              t.ID(),
		Provider:        t.Provider().String(),
		ProviderTxID:    t.ProviderTxID(),
		MerchantOrderID: t.MerchantOrderID(),
		UserID:          t.UserID(),
		Amount:          t.Amount(),
		State:           t.State().String(),
		Reason:          reason,
		PerformedAt:     t.PerformedAt(),
		CancelledAt:     t.CancelledAt(),
		RetryCount:      t.RetryCount(),
		Version:         t.Version(),
		CreatedAt:       t.CreatedAt(),
		UpdatedAt:       t.UpdatedAt(),
	}

	if len(t.RawPayload()) > 0 {
		model.RawPayload = t.RawPayload()
	}

	return model
}

func TransactionToDomain(model *models.TransactionModel) (*billing.Transaction, error) {
	provider := vo.Provider(model.Provider)
	if !provider.IsValid() {
		return nil, fmt.Errorf("invalid provider: %s", model.Provider)
	}

	state := vo.TransactionState(model.State)
	if !state.IsValid() {
		return nil, fmt.Errorf("invalid transaction state: %s", model.State)
	}

	var reason *vo.CancelReason
	if model.Reason != nil {
		r := vo.CancelReason(*model.Reason)
		reason = &r
	}

	return billing.ReconstructTransaction(billing.TransactionReconstructParams{
		ID:              model.ID,
		Provider:        provider,
		ProviderTxID:    model.ProviderTxID,
		MerchantOrderID: model.MerchantOrderID,
		UserID:          model.UserID,
		Amount:          model.Amount,
		State:           state,
		Reason:          reason,
		PerformedAt:     model.PerformedAt,
		CancelledAt:     model.CancelledAt,
		RetryCount:      model.RetryCount,
		RawPayload:      model.RawPayload,
		Version:         model.Version,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}), nil
}
