package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"student-writer-backend/internal/domain"
	"student-writer-backend/internal/domain/model"
	"student-writer-backend/internal/domain/ports/repository"
)

var _ repository.OrderRepository = (*orderRepo)(nil)

type orderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepo(pool *pgxpool.Pool) repository.OrderRepository {
	return &orderRepo{pool: pool}
}

const orderColumns = `id, order_id, item_name, amount, tid, aid, status, code_id, created_at, updated_at, approved_at`

func (r *orderRepo) Save(ctx context.Context, tx repository.Tx, o *model.PaymentOrder) error {
	const q = `
INSERT INTO payment_orders (id, order_id, item_name, amount, tid, aid, status, code_id, created_at, updated_at, approved_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11);`
	_, err := execSQL(ctx, r.pool, tx, q,
		o.ID, o.OrderID, o.ItemName, o.Amount, o.TID, o.AID, o.Status, o.CodeID, o.CreatedAt, o.UpdatedAt, o.ApprovedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *orderRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.PaymentOrder, error) {
	q := `SELECT ` + orderColumns + ` FROM payment_orders WHERE order_id = $1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, orderID)
	if err != nil {
		return nil, err
	}

	o := &model.PaymentOrder{}
	if err := row.Scan(&o.ID, &o.OrderID, &o.ItemName, &o.Amount, &o.TID, &o.AID, &o.Status, &o.CodeID, &o.CreatedAt, &o.UpdatedAt, &o.ApprovedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return o, nil
}

func (r *orderRepo) SetTID(ctx context.Context, tx repository.Tx, id, tid string) error {
	const q = `UPDATE payment_orders SET tid=$2, updated_at=NOW() WHERE id=$1;`
	if _, err := execSQL(ctx, r.pool, tx, q, id, tid); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

// MarkIssued flips the order to issued only while it is still confirmable.
// Zero rows affected means another confirmation already won.
func (r *orderRepo) MarkIssued(ctx context.Context, tx repository.Tx, id, codeID, aid string) (bool, error) {
	const q = `
UPDATE payment_orders
   SET status='issued', code_id=$2, aid=$3, approved_at=NOW(), updated_at=NOW()
 WHERE id=$1 AND status IN ('initiated','confirming');`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, codeID, aid)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *orderRepo) MarkFailed(ctx context.Context, tx repository.Tx, id string) error {
	const q = `
UPDATE payment_orders
   SET status='failed', updated_at=NOW()
 WHERE id=$1 AND status IN ('initiated','confirming');`
	if _, err := execSQL(ctx, r.pool, tx, q, id); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}
