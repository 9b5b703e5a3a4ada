package adapter

import "context"

// CheckoutRequest carries the fields the provider's session-creation endpoint needs.
type CheckoutRequest struct {
	OrderID     string
	BuyerID     string
	ItemName    string
	Quantity    int
	TotalAmount int64
	ApprovalURL string
	CancelURL   string
	FailURL     string
}

// CheckoutSession is the provider's answer to a session-creation call.
type CheckoutSession struct {
	TID               string // provider transaction id, required for the approve call
	RedirectPCURL     string
	RedirectMobileURL string
}

// Approval is the provider's answer to a successful approve call.
type Approval struct {
	AID     string // provider approval id
	TID     string
	OrderID string
	Amount  int64
}

// PaymentGateway is the hex port for redirect-based checkout providers.
// Both calls are synchronous with an explicit timeout; on a non-success
// response they fail with *domain.ProviderError and are never retried here.
type PaymentGateway interface {
	Name() string

	// Ready creates a checkout session and returns the redirect target plus tid.
	Ready(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	// Approve confirms a transaction server-to-server using the one-time token
	// the provider handed to the browser. This is the only trusted confirmation.
	Approve(ctx context.Context, tid, orderID, pgToken string) (Approval, error)
}
