package billing

import (
	"context"
	"errors"
	"time"

	"github.com/bilim-app/bilim/internal/domain/billing"
	vo "github.com/bilim-app/bilim/internal/domain/billing/valueobjects"
	"github.com/bilim-app/bilim/internal/shared/biztime"
	"github.com/bilim-app/bilim/internal/shared/config"
	"github.com/bilim-app/bilim/internal/shared/logger"
)

// CancelStaleUseCase cancels pending transactions that outlived the
// provider timeout window. It runs as a scheduled batch job and backs up
// the inline timeout check in the RPC gateway.
type CancelStaleUseCase struct {
	txRepo  billing.TransactionRepository
	timeout time.Duration
	logger  logger.Interface
}

func NewCancelStaleUseCase(
	txRepo billing.TransactionRepository,
	cfg config.PaymeConfig,
	log logger.Interface,
) *CancelStaleUseCase {
	timeout := time.Duration(cfg.TimeoutHours) * time.Hour
	if timeout <= 0 {
		timeout = 12 * time.Hour
	}
	return &CancelStaleUseCase{
		txRepo:  txRepo,
		timeout: timeout,
		logger:  log.Named("stale-tx"),
	}
}

// Execute cancels every stale pending transaction and returns the count.
// Individual failures are logged and skipped so one bad row cannot stall
// the batch.
func (uc *CancelStaleUseCase) Execute(ctx context.Context) (int, error) {
	cutoff := biztime.NowUTC().Add(-uc.timeout)
	cancelled := 0

	for _, provider := range []vo.Provider{vo.ProviderPayme, vo.ProviderAtmos} {
		stale, err := uc.txRepo.ListStaleCreated(ctx, provider, cutoff)
		if err != nil {
			return cancelled, err
		}

		for _, tx := range stale {
			fromState := tx.State()
			if err := tx.Cancel(vo.ReasonTimeout); err != nil {
				uc.logger.Errorw("cannot cancel stale transaction",
					"provider", provider, "provider_tx_id", tx.ProviderTxID(), "error", err)
				continue
			}
			if err := uc.txRepo.UpdateState(ctx, tx, fromState); err != nil {
				if errors.Is(err, billing.ErrStaleTransition) {
					// Someone else transitioned it since the list query.
					continue
				}
				uc.logger.Errorw("failed to persist stale cancel",
					"provider", provider, "provider_tx_id", tx.ProviderTxID(), "error", err)
				continue
			}
			cancelled++
		}
	}

	if cancelled > 0 {
		uc.logger.Infow("cancelled stale transactions", "count", cancelled)
	}
	return cancelled, nil
}
