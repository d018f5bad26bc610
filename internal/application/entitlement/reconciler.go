// Package entitlement reconciles users' subscription standing with the
// payment ledger. The ledger is the source of truth: the entitlement row
// is a cache of what the completed payment timeline implies, and the
// reconciler recomputes it whenever the timeline changes.
package entitlement

import (
	"context"
	"fmt"
	"time"

	appbilling "github.com/bilim-app/bilim/internal/application/billing"
	"github.com/bilim-app/bilim/internal/domain/billing"
	domain "github.com/bilim-app/bilim/internal/domain/entitlement"
	evo "github.com/bilim-app/bilim/internal/domain/entitlement/valueobjects"
	"github.com/bilim-app/bilim/internal/shared/biztime"
	"github.com/bilim-app/bilim/internal/shared/errors"
	"github.com/bilim-app/bilim/internal/shared/lock"
	"github.com/bilim-app/bilim/internal/shared/logger"
)

// Reconciler folds the completed payment timeline into the entitlement row.
// All writes for one user are serialized through a keyed mutex so concurrent
// provider callbacks cannot interleave their reconciliations.
type Reconciler struct {
	entRepo  domain.EntitlementRepository
	txRepo   billing.TransactionRepository
	prices   *appbilling.PriceTable
	locks    *lock.KeyedMutex
	txRunner TxRunner
	cache    ViewCache
	logger   logger.Interface
}

func NewReconciler(
	entRepo domain.EntitlementRepository,
	txRepo billing.TransactionRepository,
	prices *appbilling.PriceTable,
	txRunner TxRunner,
	cache ViewCache,
	log logger.Interface,
) *Reconciler {
	return &Reconciler{
		entRepo:  entRepo,
		txRepo:   txRepo,
		prices:   prices,
		locks:    lock.NewKeyedMutex(),
		txRunner: txRunner,
		cache:    cache,
		logger:   log.Named("reconciler"),
	}
}

// ReconcileUser recomputes one user's entitlement from the ledger.
func (r *Reconciler) ReconcileUser(ctx context.Context, userID uint) error {
	_, err := r.reconcileUser(ctx, userID)
	return err
}

// reconcileUser reports whether the entitlement row was written, so the
// sweep can tell real repairs from no-op re-checks.
func (r *Reconciler) reconcileUser(ctx context.Context, userID uint) (bool, error) {
	r.locks.Lock(userID)
	defer r.locks.Unlock(userID)
	var changed bool
	err := r.inTransaction(ctx, func(ctx context.Context) error {
		var err error
		changed, err = r.reconcileLocked(ctx, userID)
		return err
	})
	return changed, err
}

func (r *Reconciler) inTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.txRunner == nil {
		return fn(ctx)
	}
	return r.txRunner.RunInTransaction(ctx, fn)
}

func (r *Reconciler) reconcileLocked(ctx context.Context, userID uint) (bool, error) {
	ent, err := r.entRepo.GetByUserID(ctx, userID)
	if err != nil {
		return false, err
	}

	txs, err := r.txRepo.ListCompletedByUser(ctx, userID)
	if err != nil {
		return false, err
	}

	expiry, firstPaid, last, err := r.stack(txs)
	if err != nil {
		return false, err
	}

	now := biztime.NowUTC()

	// Manual and promo grants are not backed by ledger rows; they hold
	// until they lapse or the payment timeline outgrows them.
	if ent != nil && ent.Source() != evo.SourcePayment && ent.Source() != evo.SourceNone {
		if ent.IsActive() && ent.ExpiryDate().After(expiry) {
			return false, nil
		}
	}

	if expiry.After(now) {
		if ent == nil {
			ent, err = domain.NewFreeEntitlement(userID)
			if err != nil {
				return false, err
			}
		}
		if sameActivation(ent, last.Plan, expiry, firstPaid) {
			return false, nil
		}
		if err := ent.Activate(last.Plan, evo.SourcePayment, expiry, firstPaid, last.DurationDays, last.Amount); err != nil {
			return false, err
		}
		if err := r.entRepo.Save(ctx, ent); err != nil {
			return false, err
		}
		r.invalidate(ctx, userID)
		r.logger.Infow("entitlement activated",
			"user_id", userID, "plan", last.Plan, "expiry", expiry)
		return true, nil
	}

	// No active paid window. Downgrade a lingering paid row; users with no
	// row at all stay rowless until a payment arrives.
	if ent == nil || !ent.Plan().IsPaid() {
		return false, nil
	}
	ent.Downgrade()
	if err := r.entRepo.Save(ctx, ent); err != nil {
		return false, err
	}
	r.invalidate(ctx, userID)
	r.logger.Infow("entitlement downgraded", "user_id", userID)
	return true, nil
}

// stack folds completed transactions, oldest first, into a single expiry.
// Each payment starts when it was made or when the previous window ends,
// whichever is later, so consecutive payments extend rather than overlap.
// The first payment's paid time is returned as the activation time.
func (r *Reconciler) stack(txs []*billing.Transaction) (time.Time, time.Time, appbilling.PricePoint, error) {
	var (
		expiry    time.Time
		firstPaid time.Time
		last      appbilling.PricePoint
	)
	for _, tx := range txs {
		point, err := r.prices.Lookup(tx.Amount())
		if err != nil {
			return time.Time{}, time.Time{}, appbilling.PricePoint{}, fmt.Errorf(
				"completed transaction %d has unpriced amount %d: %w", tx.ID(), tx.Amount(), err)
		}
		paidAt := tx.PerformedAt()
		if paidAt == nil {
			return time.Time{}, time.Time{}, appbilling.PricePoint{}, fmt.Errorf(
				"completed transaction %d has no perform time", tx.ID())
		}
		if firstPaid.IsZero() {
			firstPaid = *paidAt
		}
		start := *paidAt
		if expiry.After(start) {
			start = expiry
		}
		expiry = start.Add(point.Duration())
		last = point
	}
	return expiry, firstPaid, last, nil
}

func sameActivation(ent *domain.Entitlement, plan evo.Plan, expiry, activatedAt time.Time) bool {
	if ent.Plan() != plan || ent.Source() != evo.SourcePayment {
		return false
	}
	stored := ent.ExpiryDate()
	if stored == nil || !stored.Equal(expiry) {
		return false
	}
	at := ent.ActivatedAt()
	return at != nil && at.Equal(activatedAt)
}

// Grant puts a user on a paid plan for a number of days outside the payment
// flow, stacking on top of any active window. Grants are recorded on the
// entitlement row itself, not as synthetic ledger entries.
func (r *Reconciler) Grant(ctx context.Context, userID uint, plan evo.Plan, days int, source evo.Source) error {
	if !plan.IsValid() || !plan.IsPaid() {
		return errors.NewValidationError(fmt.Sprintf("cannot grant plan: %s", plan))
	}
	if days <= 0 {
		return errors.NewValidationError("grant duration must be positive")
	}
	if source != evo.SourceManual && source != evo.SourcePromo {
		return errors.NewValidationError(fmt.Sprintf("invalid grant source: %s", source))
	}

	r.locks.Lock(userID)
	defer r.locks.Unlock(userID)

	var expiry time.Time
	err := r.inTransaction(ctx, func(ctx context.Context) error {
		ent, err := r.entRepo.GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if ent == nil {
			ent, err = domain.NewFreeEntitlement(userID)
			if err != nil {
				return err
			}
		}

		start := biztime.NowUTC()
		if ent.IsActive() {
			start = *ent.ExpiryDate()
		}
		expiry = start.Add(time.Duration(days) * 24 * time.Hour)

		if err := ent.Activate(plan, source, expiry, time.Time{}, days, 0); err != nil {
			return err
		}
		return r.entRepo.Save(ctx, ent)
	})
	if err != nil {
		return err
	}
	r.invalidate(ctx, userID)

	r.logger.Infow("entitlement granted",
		"user_id", userID, "plan", plan, "days", days, "source", source, "expiry", expiry)
	return nil
}

// GetEntitlement returns the user's current standing, lazily downgrading a
// lapsed row before answering. Users without a row read as free.
func (r *Reconciler) GetEntitlement(ctx context.Context, userID uint) (*View, error) {
	if r.cache != nil {
		if view, err := r.cache.Get(ctx, userID); err == nil && view != nil {
			if view.ExpiryDate == nil || view.ExpiryDate.After(biztime.NowUTC()) {
				return view, nil
			}
			// Cached view lapsed; fall through to reconcile.
		}
	}

	ent, err := r.entRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if ent != nil && ent.IsLapsed() {
		if err := r.ReconcileUser(ctx, userID); err != nil {
			return nil, err
		}
		ent, err = r.entRepo.GetByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	view := r.toView(userID, ent)
	if r.cache != nil {
		if err := r.cache.Set(ctx, userID, view); err != nil {
			r.logger.Warnw("failed to cache entitlement view", "user_id", userID, "error", err)
		}
	}
	return view, nil
}

func (r *Reconciler) toView(userID uint, ent *domain.Entitlement) *View {
	if ent == nil {
		return &View{
			UserID:        userID,
			Plan:          evo.PlanFree.String(),
			Source:        evo.SourceNone.String(),
			PaymentStatus: evo.PaymentStatusNone.String(),
		}
	}
	return &View{
		UserID:        userID,
		Plan:          ent.Plan().String(),
		Active:        ent.IsActive(),
		ExpiryDate:    ent.ExpiryDate(),
		Source:        ent.Source().String(),
		PaymentStatus: ent.PaymentStatus().String(),
	}
}

func (r *Reconciler) invalidate(ctx context.Context, userID uint) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx, userID); err != nil {
		r.logger.Warnw("failed to invalidate entitlement cache", "user_id", userID, "error", err)
	}
}
