package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/bilim-app/bilim/internal/domain/billing"
	vo "github.com/bilim-app/bilim/internal/domain/billing/valueobjects"
	"github.com/bilim-app/bilim/internal/domain/user"
	"github.com/bilim-app/bilim/internal/shared/errors"
	"github.com/bilim-app/bilim/internal/shared/id"
	"github.com/bilim-app/bilim/internal/shared/logger"
)

// CheckoutResult is returned to the client starting an async payment.
type CheckoutResult struct {
	OrderID   string `json:"order_id"`
	InvoiceID string `json:"invoice_id"`
	PayURL    string `json:"pay_url"`
	Amount    int64  `json:"amount"`
	Plan      string `json:"plan"`
}

// CreateInvoiceUseCase starts an async payment: it creates a provider
// invoice and records the pending transaction so the webhook can find it.
type CreateInvoiceUseCase struct {
	txRepo   billing.TransactionRepository
	userRepo user.UserRepository
	prices   *PriceTable
	gateway  InvoiceGateway
	logger   logger.Interface
}

func NewCreateInvoiceUseCase(
	txRepo billing.TransactionRepository,
	userRepo user.UserRepository,
	prices *PriceTable,
	gateway InvoiceGateway,
	log logger.Interface,
) *CreateInvoiceUseCase {
	return &CreateInvoiceUseCase{
		txRepo:   txRepo,
		userRepo: userRepo,
		prices:   prices,
		gateway:  gateway,
		logger:   log.Named("checkout"),
	}
}

// Execute creates an invoice for the user at an exact price point amount.
func (uc *CreateInvoiceUseCase) Execute(ctx context.Context, userID uint, amount int64) (*CheckoutResult, error) {
	u, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.IsActive() {
		return nil, errors.NewForbiddenError("account is deactivated")
	}

	point, err := uc.prices.Lookup(amount)
	if err != nil {
		return nil, err
	}

	orderID, err := id.GenerateWithPrefix(id.PrefixOrder, id.DefaultLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate order ID: %w", err)
	}

	inv, err := uc.gateway.CreateInvoice(ctx, orderID, amount)
	if err != nil {
		uc.logger.Errorw("failed to create provider invoice",
			"user_id", userID, "order_id", orderID, "error", err)
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	tx, err := billing.NewTransaction(vo.ProviderAtmos, inv.InvoiceID, orderID, userID, amount, time.Time{})
	if err != nil {
		return nil, err
	}
	if _, created, err := uc.txRepo.CreateIfAbsent(ctx, tx); err != nil {
		return nil, err
	} else if !created {
		return nil, errors.NewConflictError("invoice already recorded", inv.InvoiceID)
	}

	uc.logger.Infow("invoice created",
		"user_id", userID, "order_id", orderID, "invoice_id", inv.InvoiceID, "amount", amount)

	return &CheckoutResult{
		OrderID:   orderID,
		InvoiceID: inv.InvoiceID,
		PayURL:    inv.PayURL,
		Amount:    amount,
		Plan:      point.Plan.String(),
	}, nil
}
