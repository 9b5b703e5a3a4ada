package payment

import (
	"context"
	"fmt"
	"sync/atomic"

	"student-writer-backend/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopGateway)(nil)

// NoopGateway approves everything locally. Dev mode only; it never talks to a
// real provider and must not be wired outside -dev.
type NoopGateway struct {
	seq atomic.Int64
}

func NewNoopGateway() *NoopGateway { return &NoopGateway{} }

func (n *NoopGateway) Name() string { return "noop" }

func (n *NoopGateway) Ready(ctx context.Context, req adapter.CheckoutRequest) (adapter.CheckoutSession, error) {
	tid := fmt.Sprintf("noop-tid-%d", n.seq.Add(1))
	return adapter.CheckoutSession{
		TID:           tid,
		RedirectPCURL: req.ApprovalURL + "&pg_token=noop-token&tid=" + tid,
	}, nil
}

func (n *NoopGateway) Approve(ctx context.Context, tid, orderID, pgToken string) (adapter.Approval, error) {
	return adapter.Approval{
		AID:     "noop-aid-" + tid,
		TID:     tid,
		OrderID: orderID,
	}, nil
}
