// Package atmoswebhook implements the asynchronous Atmos payment callback:
// a signed webhook that reports the final status of an invoice created
// earlier through the checkout flow.
package atmoswebhook

import (
	"context"
	"errors"

	appbilling "github.com/bilim-app/bilim/internal/application/billing"
	"github.com/bilim-app/bilim/internal/domain/billing"
	vo "github.com/bilim-app/bilim/internal/domain/billing/valueobjects"
	"github.com/bilim-app/bilim/internal/shared/config"
	"github.com/bilim-app/bilim/internal/shared/logger"
)

// Callback statuses the provider sends.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusError   = "error"
	StatusRefund  = "refund"
)

var (
	// ErrBadSignature means the callback failed authentication. Handlers
	// answer 403 and must not reveal which part failed.
	ErrBadSignature = errors.New("bad callback signature")

	// ErrMalformed means the callback cannot be parsed or is missing
	// required fields. Handlers answer 400.
	ErrMalformed = errors.New("malformed callback")
)

// Callback is the provider's webhook payload.
type Callback struct {
	StoreID   string `json:"store_id"`
	InvoiceID string `json:"invoice_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
	UUID      string `json:"uuid"`
	Signature string `json:"sign"`
}

// Ack is the business-level answer to an authenticated callback. Any Ack,
// accepted or not, is delivered with HTTP 200 so the provider stops
// retrying; only authentication and parse failures use error statuses.
type Ack struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message,omitempty"`
}

// Service processes Atmos callbacks against the transaction ledger.
type Service struct {
	txRepo     billing.TransactionRepository
	reconciler appbilling.EntitlementReconciler
	cfg        config.AtmosConfig
	logger     logger.Interface
}

func NewService(
	txRepo billing.TransactionRepository,
	reconciler appbilling.EntitlementReconciler,
	cfg config.AtmosConfig,
	log logger.Interface,
) *Service {
	return &Service{
		txRepo:     txRepo,
		reconciler: reconciler,
		cfg:        cfg,
		logger:     log.Named("atmos"),
	}
}

// Process authenticates and applies one callback. It returns ErrBadSignature
// or ErrMalformed for transport-level rejections; every other outcome is an
// Ack.
func (s *Service) Process(ctx context.Context, cb Callback) (*Ack, error) {
	if cb.InvoiceID == "" || cb.Status == "" {
		return nil, ErrMalformed
	}
	if cb.StoreID != s.cfg.StoreID {
		return nil, ErrBadSignature
	}
	if !VerifySignature(cb.StoreID, cb.InvoiceID, cb.Amount, s.cfg.APISecret, cb.Signature) {
		return nil, ErrBadSignature
	}

	tx, err := s.txRepo.GetByProviderTxID(ctx, vo.ProviderAtmos, cb.InvoiceID)
	if err != nil {
		if errors.Is(err, billing.ErrTransactionNotFound) {
			s.logger.Warnw("callback for unknown invoice", "invoice_id", cb.InvoiceID)
			return &Ack{Accepted: false, Message: "unknown invoice"}, nil
		}
		return nil, err
	}

	if tx.Amount() != cb.Amount {
		s.logger.Warnw("callback amount mismatch",
			"invoice_id", cb.InvoiceID, "expected", tx.Amount(), "got", cb.Amount)
		return &Ack{Accepted: false, Message: "amount mismatch"}, nil
	}

	switch cb.Status {
	case StatusSuccess:
		return s.applySuccess(ctx, tx, cb)
	case StatusFailed, StatusError:
		return s.applyCancel(ctx, tx, vo.ReasonProcessingError)
	case StatusRefund:
		return s.applyCancel(ctx, tx, vo.ReasonRefund)
	default:
		s.logger.Warnw("callback with unknown status", "invoice_id", cb.InvoiceID, "status", cb.Status)
		return &Ack{Accepted: false, Message: "unknown status"}, nil
	}
}

func (s *Service) applySuccess(ctx context.Context, tx *billing.Transaction, cb Callback) (*Ack, error) {
	if tx.State() == vo.StateCompleted {
		return &Ack{Accepted: true, Message: "already completed"}, nil
	}
	if tx.State().IsCancelled() {
		return &Ack{Accepted: false, Message: "invoice already cancelled"}, nil
	}

	fromState := tx.State()
	if err := tx.Complete(); err != nil {
		return &Ack{Accepted: false, Message: "invoice not payable"}, nil
	}
	tx.SetRawPayload(map[string]interface{}{
		"status": cb.Status, "uuid": cb.UUID, "amount": cb.Amount,
	})
	if err := s.txRepo.UpdateState(ctx, tx, fromState); err != nil {
		if errors.Is(err, billing.ErrStaleTransition) {
			// A concurrent delivery applied the transition; re-read and
			// answer from the stored row.
			return s.Process(ctx, cb)
		}
		return nil, err
	}

	if err := s.reconciler.ReconcileUser(ctx, tx.UserID()); err != nil {
		s.logger.Errorw("entitlement reconcile failed, sweep will retry",
			"user_id", tx.UserID(), "error", err)
	}

	return &Ack{Accepted: true}, nil
}

func (s *Service) applyCancel(ctx context.Context, tx *billing.Transaction, reason vo.CancelReason) (*Ack, error) {
	if tx.State().IsCancelled() {
		return &Ack{Accepted: true, Message: "already cancelled"}, nil
	}

	wasCompleted := tx.State() == vo.StateCompleted
	fromState := tx.State()
	if err := tx.Cancel(reason); err != nil {
		return &Ack{Accepted: false, Message: "invoice not cancellable"}, nil
	}
	if err := s.txRepo.UpdateState(ctx, tx, fromState); err != nil {
		if errors.Is(err, billing.ErrStaleTransition) {
			return &Ack{Accepted: true, Message: "already cancelled"}, nil
		}
		return nil, err
	}

	if wasCompleted {
		if err := s.reconciler.ReconcileUser(ctx, tx.UserID()); err != nil {
			s.logger.Errorw("entitlement reconcile failed, sweep will retry",
				"user_id", tx.UserID(), "error", err)
		}
	}

	return &Ack{Accepted: true}, nil
}
