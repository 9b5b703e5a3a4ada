package model

import "time"

type OrderStatus string

const (
	OrderStatusInitiated  OrderStatus = "initiated"  // checkout session created on provider side
	OrderStatusConfirming OrderStatus = "confirming" // approval callback received; verifying with provider
	OrderStatusIssued     OrderStatus = "issued"     // provider confirmed; redemption code issued
	OrderStatusFailed     OrderStatus = "failed"     // provider rejected or verification failed
)

// PaymentOrder records one checkout session with the external provider.
// OrderID is unique: a confirmed order yields exactly one redemption code,
// and replayed approval callbacks resolve to the code already linked here.
type PaymentOrder struct {
	ID         string // ULID
	OrderID    string // caller-supplied correlation id, unique
	ItemName   string
	Amount     int64 // KRW, integer
	TID        string // provider transaction id from session creation
	AID        string // provider approval id, set after confirmation
	Status     OrderStatus
	CodeID     *string // set once issued
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ApprovedAt *time.Time
}
