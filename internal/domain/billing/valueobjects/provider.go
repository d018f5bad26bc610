package valueobjects

// Provider identifies the payment channel a transaction belongs to.
// Provider transaction ids are only unique within one provider.
type Provider string

const (
	ProviderPayme Provider = "payme"
	ProviderAtmos Provider = "atmos"
	// ProviderManual marks ledger rows recorded by operators, e.g. offline
	// bank transfers imported by support.
	ProviderManual Provider = "manual"
)

func (p Provider) IsValid() bool {
	switch p {
	case ProviderPayme, ProviderAtmos, ProviderManual:
		return true
	default:
		return false
	}
}

func (p Provider) String() string {
	return string(p)
}
