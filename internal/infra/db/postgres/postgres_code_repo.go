package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"student-writer-backend/internal/domain"
	"student-writer-backend/internal/domain/model"
	"student-writer-backend/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.CodeRepository = (*codeRepo)(nil)

type codeRepo struct {
	pool *pgxpool.Pool
}

func NewCodeRepo(pool *pgxpool.Pool) repository.CodeRepository {
	return &codeRepo{pool: pool}
}

func (r *codeRepo) Create(ctx context.Context, tx repository.Tx, code *model.RedemptionCode) error {
	if code.ID == "" {
		code.ID = uuid.NewString()
	}
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now()
	}
	const q = `
INSERT INTO redemption_codes (id, code, quota, created_at)
VALUES ($1, $2, $3, $4);
`
	_, err := execSQL(ctx, r.pool, tx, q, code.ID, code.Code, code.Quota, code.CreatedAt)
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

func (r *codeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.RedemptionCode, error) {
	const q = `SELECT id, code, quota, created_at FROM redemption_codes WHERE code = $1;`
	return r.scanOne(ctx, tx, q, code)
}

func (r *codeRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.RedemptionCode, error) {
	const q = `SELECT id, code, quota, created_at FROM redemption_codes WHERE id = $1;`
	return r.scanOne(ctx, tx, q, id)
}

// Decrement spends one unit as a single conditional statement, so concurrent
// decrements never lose updates and quota never goes negative.
func (r *codeRepo) Decrement(ctx context.Context, tx repository.Tx, code string) (int, error) {
	const q = `
UPDATE redemption_codes
   SET quota = quota - 1
 WHERE code = $1 AND quota > 0
RETURNING quota;
`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return 0, err
	}
	var remaining int
	if err := row.Scan(&remaining); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish an exhausted code from an unknown one.
			if _, ferr := r.FindByCode(ctx, tx, code); ferr == nil {
				return 0, domain.ErrQuotaExhausted
			}
			return 0, domain.ErrNotFound
		}
		return 0, domain.ErrReadDatabaseRow
	}
	return remaining, nil
}

func (r *codeRepo) scanOne(ctx context.Context, tx repository.Tx, q, arg string) (*model.RedemptionCode, error) {
	row, err := pickRow(ctx, r.pool, tx, q, arg)
	if err != nil {
		return nil, err
	}
	var rc model.RedemptionCode
	if err := row.Scan(&rc.ID, &rc.Code, &rc.Quota, &rc.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &rc, nil
}
