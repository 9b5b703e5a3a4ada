package repository

import (
	"context"

	"student-writer-backend/internal/domain/model"
)

// OrderRepository is the port for persisted payment orders. OrderID carries a
// unique constraint; it is the dedup key for exactly-once code issuance.
type OrderRepository interface {
	// Save inserts a new order. A duplicate order_id surfaces as domain.ErrAlreadyExists.
	Save(ctx context.Context, tx Tx, o *model.PaymentOrder) error
	// FindByOrderID returns the order or domain.ErrNotFound. Inside a
	// transaction the row is locked (FOR UPDATE).
	FindByOrderID(ctx context.Context, tx Tx, orderID string) (*model.PaymentOrder, error)
	// SetTID records the provider transaction id after session creation.
	SetTID(ctx context.Context, tx Tx, id, tid string) error
	// MarkIssued transitions the order to issued and links the code, but only
	// when the current status still permits it. Returns false when another
	// confirmation already won the race.
	MarkIssued(ctx context.Context, tx Tx, id, codeID, aid string) (bool, error)
	// MarkFailed transitions to failed unless the order is already issued.
	MarkFailed(ctx context.Context, tx Tx, id string) error
}
