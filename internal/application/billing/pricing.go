package billing

import (
	"fmt"
	"time"

	evo "github.com/bilim-app/bilim/internal/domain/entitlement/valueobjects"
	"github.com/bilim-app/bilim/internal/shared/config"
	"github.com/bilim-app/bilim/internal/shared/errors"
)

// PricePoint maps one exact payment amount to a plan and duration.
type PricePoint struct {
	Amount       int64
	Plan         evo.Plan
	DurationDays int
}

func (p PricePoint) Duration() time.Duration {
	return time.Duration(p.DurationDays) * 24 * time.Hour
}

// PriceTable resolves payment amounts to price points. Amounts are matched
// exactly: a payment that matches no configured price point is a
// configuration error, never silently coerced to the nearest plan.
type PriceTable struct {
	points map[int64]PricePoint
}

// NewPriceTable builds the table from configuration.
func NewPriceTable(cfgs []config.PricePointConfig) (*PriceTable, error) {
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("at least one price point is required")
	}

	points := make(map[int64]PricePoint, len(cfgs))
	for _, c := range cfgs {
		plan := evo.Plan(c.Plan)
		if !plan.IsValid() || !plan.IsPaid() {
			return nil, fmt.Errorf("price point %d: invalid plan %q", c.Amount, c.Plan)
		}
		if c.Amount <= 0 {
			return nil, fmt.Errorf("price point for plan %s: amount must be positive", c.Plan)
		}
		if c.DurationDays <= 0 {
			return nil, fmt.Errorf("price point %d: duration days must be positive", c.Amount)
		}
		if _, dup := points[c.Amount]; dup {
			return nil, fmt.Errorf("duplicate price point amount: %d", c.Amount)
		}
		points[c.Amount] = PricePoint{
			Amount:       c.Amount,
			Plan:         plan,
			DurationDays: c.DurationDays,
		}
	}

	return &PriceTable{points: points}, nil
}

// Lookup returns the price point for an exact amount.
func (t *PriceTable) Lookup(amount int64) (PricePoint, error) {
	p, ok := t.points[amount]
	if !ok {
		return PricePoint{}, errors.NewValidationError(
			fmt.Sprintf("no price point matches amount %d", amount))
	}
	return p, nil
}

// Contains reports whether the amount matches a configured price point.
func (t *PriceTable) Contains(amount int64) bool {
	_, ok := t.points[amount]
	return ok
}
