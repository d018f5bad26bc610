package valueobjects

// CancelReason is the provider-supplied reason code stored with a
// cancelled transaction. The numeric values follow the Payme taxonomy;
// Atmos outcomes are mapped onto the closest code.
type CancelReason int

const (
	ReasonRecipientNotFound CancelReason = 1
	ReasonProcessingError   CancelReason = 2
	ReasonExecutionError    CancelReason = 3
	ReasonTimeout           CancelReason = 4
	ReasonRefund            CancelReason = 5
	ReasonUnknown           CancelReason = 10
)

func (r CancelReason) IsValid() bool {
	switch r {
	case ReasonRecipientNotFound, ReasonProcessingError, ReasonExecutionError,
		ReasonTimeout, ReasonRefund, ReasonUnknown:
		return true
	default:
		return false
	}
}

func (r CancelReason) Int() int {
	return int(r)
}
