package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

// NoTX marks the non-transactional path explicitly at callsites.
var NoTX Tx

// TransactionManager executes a function within a database transaction,
// passing the underlying handle via the opaque Tx argument.
//
// Repositories accept a nil Tx and fall back to the pool; inside WithTx they
// receive the tx handle (pgx.Tx for Postgres) and may use SELECT ... FOR UPDATE.
// Keep this interface small and stable.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
