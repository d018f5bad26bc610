package valueobjects

// Source records how the current entitlement was granted.
type Source string

const (
	SourceNone    Source = "none"
	SourcePayment Source = "payment"
	SourceManual  Source = "manual"
	SourcePromo   Source = "promo"
)

func (s Source) IsValid() bool {
	switch s {
	case SourceNone, SourcePayment, SourceManual, SourcePromo:
		return true
	default:
		return false
	}
}

func (s Source) String() string {
	return string(s)
}
