package repository

import (
	"context"

	"student-writer-backend/internal/domain/model"
)

// CodeRepository is the port for the redemption code store.
type CodeRepository interface {
	// Create persists a freshly minted code. A token collision surfaces as
	// domain.ErrAlreadyExists so the issuer can retry with a new token.
	Create(ctx context.Context, tx Tx, code *model.RedemptionCode) error
	// FindByCode returns the code row or domain.ErrNotFound.
	FindByCode(ctx context.Context, tx Tx, code string) (*model.RedemptionCode, error)
	// FindByID returns the code row by its surrogate id or domain.ErrNotFound.
	FindByID(ctx context.Context, tx Tx, id string) (*model.RedemptionCode, error)
	// Decrement atomically spends one unit and returns the remaining quota.
	// A code at zero fails with domain.ErrQuotaExhausted and stays at zero;
	// an unknown code fails with domain.ErrNotFound. The decrement must be a
	// single conditional statement; concurrent calls never lose updates.
	Decrement(ctx context.Context, tx Tx, code string) (int, error)
}
