package valueobjects

// PaymentStatus is the coarse billing standing shown on the account page.
type PaymentStatus string

const (
	PaymentStatusNone    PaymentStatus = "none"
	PaymentStatusActive  PaymentStatus = "active"
	PaymentStatusExpired PaymentStatus = "expired"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusNone, PaymentStatusActive, PaymentStatusExpired:
		return true
	default:
		return false
	}
}

func (s PaymentStatus) String() string {
	return string(s)
}
