package entitlement

import (
	"context"

	"github.com/bilim-app/bilim/internal/domain/billing"
	domain "github.com/bilim-app/bilim/internal/domain/entitlement"
	"github.com/bilim-app/bilim/internal/shared/logger"
)

// SweepResult summarizes one reconciliation sweep.
type SweepResult struct {
	Repaired   int // paid rows missing an expiry date
	Downgraded int // paid rows past their expiry
	Activated  int // users whose re-check rewrote the entitlement row
	Errors     int
}

func (r SweepResult) Total() int {
	return r.Repaired + r.Downgraded + r.Activated
}

// Sweep is the periodic safety net behind synchronous reconciliation: it
// repairs rows the inline path missed, downgrades lapsed plans, and
// re-derives entitlements for every user with completed payments.
type Sweep struct {
	reconciler *Reconciler
	entRepo    domain.EntitlementRepository
	txRepo     billing.TransactionRepository
	logger     logger.Interface
}

func NewSweep(
	reconciler *Reconciler,
	entRepo domain.EntitlementRepository,
	txRepo billing.TransactionRepository,
	log logger.Interface,
) *Sweep {
	return &Sweep{
		reconciler: reconciler,
		entRepo:    entRepo,
		txRepo:     txRepo,
		logger:     log.Named("sweep"),
	}
}

// Run executes the three sweep passes. Per-user failures are counted and
// logged, never fatal; the next sweep retries them.
func (s *Sweep) Run(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	// Pass 1: paid rows with no expiry date cannot be judged lapsed or
	// active; re-derive them from the ledger.
	broken, err := s.entRepo.ListPaidMissingExpiry(ctx)
	if err != nil {
		return result, err
	}
	for _, ent := range broken {
		if s.reconcile(ctx, ent.UserID(), &result) {
			result.Repaired++
		}
	}

	// Pass 2: downgrade paid rows past their expiry.
	lapsed, err := s.entRepo.ListLapsedPaid(ctx)
	if err != nil {
		return result, err
	}
	for _, ent := range lapsed {
		if s.reconcile(ctx, ent.UserID(), &result) {
			result.Downgraded++
		}
	}

	// Pass 3: every user with a completed payment gets re-derived, which
	// activates entitlements whose synchronous reconcile was lost. Users
	// already in the right state reconcile as no-ops and are not counted.
	userIDs, err := s.txRepo.ListUserIDsWithCompleted(ctx)
	if err != nil {
		return result, err
	}
	for _, userID := range userIDs {
		if s.reconcile(ctx, userID, &result) {
			result.Activated++
		}
	}

	s.logger.Infow("sweep finished",
		"repaired", result.Repaired,
		"downgraded", result.Downgraded,
		"activated", result.Activated,
		"errors", result.Errors)
	return result, nil
}

// Execute adapts the sweep to the scheduler's batch job contract.
func (s *Sweep) Execute(ctx context.Context) (int, error) {
	result, err := s.Run(ctx)
	return result.Total(), err
}

// reconcile runs one user's reconciliation and reports whether it changed
// the entitlement row.
func (s *Sweep) reconcile(ctx context.Context, userID uint, result *SweepResult) bool {
	changed, err := s.reconciler.reconcileUser(ctx, userID)
	if err != nil {
		result.Errors++
		s.logger.Errorw("sweep reconcile failed", "user_id", userID, "error", err)
		return false
	}
	return changed
}
