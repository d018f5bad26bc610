package billing

import "errors"

var (
	// ErrTransactionNotFound is returned when no transaction matches a lookup.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInvalidStateTransition is returned when a transition is not in the
	// state table. Callers treat this as a defect, never coerce it.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrStaleTransition is returned by the repository when the persisted
	// state no longer matches the state the transition was computed from
	// (a concurrent writer got there first).
	ErrStaleTransition = errors.New("stale state transition")
)
