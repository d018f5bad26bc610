package billing

import (
	"fmt"
	"time"

	vo "github.com/bilim-app/bilim/internal/domain/billing/valueobjects"
	"github.com/bilim-app/bilim/internal/shared/biztime"
)

// Transaction is one payment attempt in the ledger, scoped to a provider.
// Records are append-only: they are created once and then only
// state-transitioned along the table in valueobjects.TransactionState.
type Transaction struct {
	id              uint
	provider        vo.Provider
	providerTxID    string
	merchantOrderID string
	userID          uint
	amount          int64 // minor currency units, immutable after creation
	state           vo.TransactionState
	reason          *vo.CancelReason

	performedAt *time.Time
	cancelledAt *time.Time

	retryCount int
	rawPayload map[string]interface{}

	version   int
	createdAt time.Time
	updatedAt time.Time
}

// NewTransaction creates a transaction in the created state.
// providerCreatedAt is the creation time asserted by the provider (Payme
// sends one); pass the zero value to use the current time.
func NewTransaction(
	provider vo.Provider,
	providerTxID string,
	merchantOrderID string,
	userID uint,
	amount int64,
	providerCreatedAt time.Time,
) (*Transaction, error) {
	if !provider.IsValid() {
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
	if providerTxID == "" {
		return nil, fmt.Errorf("provider transaction ID is required")
	}
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if amount < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}

	now := biztime.NowUTC()
	createdAt := providerCreatedAt.UTC()
	if providerCreatedAt.IsZero() {
		createdAt = now
	}

	return &Transaction{
		provider:        provider,
		providerTxID:    providerTxID,
		merchantOrderID: merchantOrderID,
		userID:          userID,
		amount:          amount,
		state:           vo.StateCreated,
		rawPayload:      make(map[string]interface{}),
		createdAt:       createdAt,
		updatedAt:       now,
	}, nil
}

// Complete transitions the transaction to completed, stamping performedAt.
// Completing an already completed transaction is a no-op so providers can
// safely retry their calls.
func (t *Transaction) Complete() error {
	if t.state == vo.StateCompleted {
		return nil
	}
	if !t.state.CanTransitionTo(vo.StateCompleted) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, t.state, vo.StateCompleted)
	}

	now := biztime.NowUTC()
	t.state = vo.StateCompleted
	t.performedAt = &now
	t.updatedAt = now
	t.version++

	return nil
}

// Cancel transitions to cancelled (from created) or cancelled_after_complete
// (from completed), stamping cancelledAt and the reason code. Cancelling an
// already cancelled transaction is a no-op preserving the original reason.
func (t *Transaction) Cancel(reason vo.CancelReason) error {
	if t.state.IsCancelled() {
		return nil
	}

	target := vo.StateCancelled
	if t.state == vo.StateCompleted {
		target = vo.StateCancelledAfterComplete
	}
	if !t.state.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, t.state, target)
	}

	now := biztime.NowUTC()
	t.state = target
	t.reason = &reason
	t.cancelledAt = &now
	t.updatedAt = now
	t.version++

	return nil
}

// IsStale reports whether a created transaction has outlived the provider
// timeout window and is eligible for timeout cancellation.
func (t *Transaction) IsStale(window time.Duration) bool {
	if t.state != vo.StateCreated {
		return false
	}
	return biztime.NowUTC().Sub(t.createdAt) > window
}

// SetRawPayload stores an opaque audit copy of the inbound callback.
func (t *Transaction) SetRawPayload(payload map[string]interface{}) {
	if payload == nil {
		return
	}
	t.rawPayload = payload
	t.updatedAt = biztime.NowUTC()
}

// IncrementRetry counts a redelivery of an already applied provider call.
func (t *Transaction) IncrementRetry() {
	t.retryCount++
	t.updatedAt = biztime.NowUTC()
}

// SetID sets the ledger ID after persistence (used by repository after Create).
func (t *Transaction) SetID(id uint) {
	t.id = id
}

func (t *Transaction) ID() uint {
	return t.id
}

func (t *Transaction) Provider() vo.Provider {
	return t.provider
}

func (t *Transaction) ProviderTxID() string {
	return t.providerTxID
}

func (t *Transaction) MerchantOrderID() string {
	return t.merchantOrderID
}

func (t *Transaction) UserID() uint {
	return t.userID
}

func (t *Transaction) Amount() int64 {
	return t.amount
}

func (t *Transaction) State() vo.TransactionState {
	return t.state
}

func (t *Transaction) Reason() *vo.CancelReason {
	return t.reason
}

func (t *Transaction) PerformedAt() *time.Time {
	return t.performedAt
}

func (t *Transaction) CancelledAt() *time.Time {
	return t.cancelledAt
}

func (t *Transaction) RetryCount() int {
	return t.retryCount
}

func (t *Transaction) RawPayload() map[string]interface{} {
	return t.rawPayload
}

func (t *Transaction) Version() int {
	return t.version
}

func (t *Transaction) CreatedAt() time.Time {
	return t.createdAt
}

func (t *Transaction) UpdatedAt() time.Time {
	return t.updatedAt
}

// TransactionReconstructParams carries every persisted field of a transaction.
type TransactionReconstructParams struct {
	ID              uint
	Provider        vo.Provider
	ProviderTxID    string
	MerchantOrderID string
	UserID          uint
	Amount          int64
	State           vo.TransactionState
	Reason          *vo.CancelReason
	PerformedAt     *time.Time
	CancelledAt     *time.Time
	RetryCount      int
	RawPayload      map[string]interface{}
	Version         int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ReconstructTransaction rebuilds a Transaction from persistence.
func ReconstructTransaction(p TransactionReconstructParams) *Transaction {
	raw := p.RawPayload
	if raw == nil {
		raw = make(map[string]interface{})
	}

	return &Transaction{
		id:              p.ID,
		provider:        p.Provider,
		providerTxID:    p.ProviderTxID,
		merchantOrderID: p.MerchantOrderID,
		userID:          p.UserID,
		amount:          p.Amount,
		state:           p.State,
		reason:          p.Reason,
		performedAt:     p.PerformedAt,
		cancelledAt:     p.CancelledAt,
		retryCount:      p.RetryCount,
		rawPayload:      raw,
		version:         p.Version,
		createdAt:       p.CreatedAt,
		updatedAt:       p.UpdatedAt,
	}
}
