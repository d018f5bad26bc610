package entitlement

import (
	"context"
	"time"
)

// View is the read model served to clients and cached in Redis.
type View struct {
	UserID        uint       `json:"user_id"`
	Plan          string     `json:"plan"`
	Active        bool       `json:"active"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
	Source        string     `json:"source"`
	PaymentStatus string     `json:"payment_status"`
}

// ViewCache caches entitlement views. A nil cache disables caching.
type ViewCache interface {
	Get(ctx context.Context, userID uint) (*View, error)
	Set(ctx context.Context, userID uint, view *View) error
	Invalidate(ctx context.Context, userID uint) error
}

// TxRunner runs a function inside a database transaction. A nil runner
// executes the function directly.
type TxRunner interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
