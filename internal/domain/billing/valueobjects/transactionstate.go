package valueobjects

// TransactionState is the lifecycle state of a ledger transaction.
//
// Legal transitions:
//
//	created   -> completed
//	created   -> cancelled
//	completed -> cancelled_after_complete
//
// Everything else is rejected, at the aggregate and again at the
// persistence boundary.
type TransactionState string

const (
	StateCreated                TransactionState = "created"
	StateCompleted              TransactionState = "completed"
	StateCancelled              TransactionState = "cancelled"
	StateCancelledAfterComplete TransactionState = "cancelled_after_complete"
)

func (s TransactionState) IsValid() bool {
	switch s {
	case StateCreated, StateCompleted, StateCancelled, StateCancelledAfterComplete:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible.
func (s TransactionState) IsTerminal() bool {
	return s == StateCancelled || s == StateCancelledAfterComplete
}

// IsCancelled reports whether the transaction ended in either cancelled state.
func (s TransactionState) IsCancelled() bool {
	return s == StateCancelled || s == StateCancelledAfterComplete
}

// CanTransitionTo reports whether the edge s -> target is in the state table.
func (s TransactionState) CanTransitionTo(target TransactionState) bool {
	switch s {
	case StateCreated:
		return target == StateCompleted || target == StateCancelled
	case StateCompleted:
		return target == StateCancelledAfterComplete
	default:
		return false
	}
}

// PaymeCode returns the numeric state code used on the Payme wire.
func (s TransactionState) PaymeCode() int {
	switch s {
	case StateCreated:
		return 1
	case StateCompleted:
		return 2
	case StateCancelled:
		return -1
	case StateCancelledAfterComplete:
		return -2
	default:
		return 0
	}
}

func (s TransactionState) String() string {
	return string(s)
}
