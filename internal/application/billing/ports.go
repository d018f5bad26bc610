package billing

import "context"

// EntitlementReconciler recomputes a user's entitlement from the ledger.
// Gateways call it synchronously after a transaction reaches a terminal
// state; failures are logged, not surfaced to the provider, since the
// periodic sweep repairs any missed reconciliation.
type EntitlementReconciler interface {
	ReconcileUser(ctx context.Context, userID uint) error
}

// Invoice is a payment invoice created with the async provider. The user
// pays at PayURL; the provider reports the outcome on the webhook.
type Invoice struct {
	InvoiceID string
	PayURL    string
}

// InvoiceGateway creates invoices with the async payment provider.
type InvoiceGateway interface {
	CreateInvoice(ctx context.Context, orderID string, amount int64) (*Invoice, error)
}
