package entitlement

import "context"

// EntitlementRepository persists the single entitlement row per user.
type EntitlementRepository interface {
	// GetByUserID returns the user's entitlement, or (nil, nil) when the
	// user has never been reconciled.
	GetByUserID(ctx context.Context, userID uint) (*Entitlement, error)

	// Save inserts or updates the entitlement, keyed by user ID.
	Save(ctx context.Context, e *Entitlement) error

	// ListLapsedPaid returns users still on a paid plan whose expiry has
	// passed. Used by the sweep downgrade pass.
	ListLapsedPaid(ctx context.Context) ([]*Entitlement, error)

	// ListPaidMissingExpiry returns paid entitlements with no expiry date,
	// which the sweep repairs by re-reconciling from the ledger.
	ListPaidMissingExpiry(ctx context.Context) ([]*Entitlement, error)
}
