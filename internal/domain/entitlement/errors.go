package entitlement

import "errors"

var (
	// ErrEntitlementNotFound is returned when no entitlement row exists for
	// a user. Most readers treat this as "free plan", not as a failure.
	ErrEntitlementNotFound = errors.New("entitlement not found")
)
