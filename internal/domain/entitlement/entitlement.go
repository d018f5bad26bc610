package entitlement

import (
	"fmt"
	"time"

	vo "github.com/bilim-app/bilim/internal/domain/entitlement/valueobjects"
	"github.com/bilim-app/bilim/internal/shared/biztime"
)

// Entitlement is a user's current subscription standing. There is at most
// one row per user; the reconciler recomputes it from the payment ledger
// and overwrites it whenever they disagree.
type Entitlement struct {
	id     uint
	userID uint

	plan        vo.Plan
	source      vo.Source
	expiryDate  *time.Time
	activatedAt *time.Time

	durationDays      int
	lastPaymentAmount int64
	paymentStatus     vo.PaymentStatus

	version   int
	createdAt time.Time
	updatedAt time.Time
}

// NewFreeEntitlement creates the default standing for a user with no
// qualifying payments.
func NewFreeEntitlement(userID uint) (*Entitlement, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}

	now := biztime.NowUTC()
	return &Entitlement{
		userID:        userID,
		plan:          vo.PlanFree,
		source:        vo.SourceNone,
		paymentStatus: vo.PaymentStatusNone,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// Activate puts the user on a paid plan until expiry. The reconciler calls
// this with the expiry computed from the stacked payment timeline and the
// first payment's paid time as activatedAt, so the field is the same no
// matter when reconciliation runs. A zero activatedAt stamps the current
// time on first activation; grants use that.
func (e *Entitlement) Activate(plan vo.Plan, source vo.Source, expiry, activatedAt time.Time, durationDays int, lastPaymentAmount int64) error {
	if !plan.IsValid() || !plan.IsPaid() {
		return fmt.Errorf("cannot activate plan: %s", plan)
	}
	if !source.IsValid() || source == vo.SourceNone {
		return fmt.Errorf("invalid activation source: %s", source)
	}
	if expiry.IsZero() {
		return fmt.Errorf("expiry date is required")
	}

	now := biztime.NowUTC()
	expiryUTC := expiry.UTC()

	e.plan = plan
	e.source = source
	e.expiryDate = &expiryUTC
	switch {
	case !activatedAt.IsZero():
		at := activatedAt.UTC()
		e.activatedAt = &at
	case e.activatedAt == nil:
		e.activatedAt = &now
	}
	e.durationDays = durationDays
	e.lastPaymentAmount = lastPaymentAmount
	e.paymentStatus = vo.PaymentStatusActive
	e.updatedAt = now
	e.version++

	return nil
}

// Downgrade returns the user to the free plan, keeping the lapsed expiry
// date for display. It is a no-op on an already free entitlement.
func (e *Entitlement) Downgrade() {
	if e.plan == vo.PlanFree {
		return
	}

	e.plan = vo.PlanFree
	e.source = vo.SourceNone
	e.paymentStatus = vo.PaymentStatusExpired
	e.updatedAt = biztime.NowUTC()
	e.version++
}

// IsActive reports whether the entitlement grants paid access right now.
func (e *Entitlement) IsActive() bool {
	if !e.plan.IsPaid() {
		return false
	}
	if e.expiryDate == nil {
		return false
	}
	return e.expiryDate.After(biztime.NowUTC())
}

// IsLapsed reports whether a paid plan has run past its expiry and should
// be downgraded.
func (e *Entitlement) IsLapsed() bool {
	if !e.plan.IsPaid() {
		return false
	}
	if e.expiryDate == nil {
		return true
	}
	return !e.expiryDate.After(biztime.NowUTC())
}

func (e *Entitlement) SetID(id uint) {
	e.id = id
}

func (e *Entitlement) ID() uint {
	return e.id
}

func (e *Entitlement) UserID() uint {
	return e.userID
}

func (e *Entitlement) Plan() vo.Plan {
	return e.plan
}

func (e *Entitlement) Source() vo.Source {
	return e.source
}

func (e *Entitlement) ExpiryDate() *time.Time {
	return e.expiryDate
}

func (e *Entitlement) ActivatedAt() *time.Time {
	return e.activatedAt
}

func (e *Entitlement) DurationDays() int {
	return e.durationDays
}

func (e *Entitlement) LastPaymentAmount() int64 {
	return e.lastPaymentAmount
}

func (e *Entitlement) PaymentStatus() vo.PaymentStatus {
	return e.paymentStatus
}

func (e *Entitlement) Version() int {
	return e.version
}

func (e *Entitlement) CreatedAt() time.Time {
	return e.createdAt
}

func (e *Entitlement) UpdatedAt() time.Time {
	return e.updatedAt
}

// EntitlementReconstructParams carries every persisted field of an entitlement.
type EntitlementReconstructParams struct {
	ID                uint
	UserID            uint
	Plan              vo.Plan
	Source            vo.Source
	ExpiryDate        *time.Time
	ActivatedAt       *time.Time
	DurationDays      int
	LastPaymentAmount int64
	PaymentStatus     vo.PaymentStatus
	Version           int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ReconstructEntitlement rebuilds an Entitlement from persistence.
func ReconstructEntitlement(p EntitlementReconstructParams) *Entitlement {
	return &Entitlement{
		id:                p.ID,
		userID:            p.UserID,
		plan:              p.Plan,
		source:            p.Source,
		expiryDate:        p.ExpiryDate,
		activatedAt:       p.ActivatedAt,
		durationDays:      p.DurationDays,
		lastPaymentAmount: p.LastPaymentAmount,
		paymentStatus:     p.PaymentStatus,
		version:           p.Version,
		createdAt:         p.CreatedAt,
		updatedAt:         p.UpdatedAt,
	}
}
