package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

// DBTxKey carries an open transaction on the request context. Repositories
// prefer it over the pool so multi-statement service operations stay atomic.
const DBTxKey contextKey = "db_tx"

// DBConnKey carries a dedicated connection on the request context.
const DBConnKey contextKey = "db_conn"

// TxFromContext returns the transaction stored on the context, if any.
func TxFromContext(ctx context.Context) pgx.Tx {
	if tx, ok := ctx.Value(DBTxKey).(pgx.Tx); ok {
		return tx
	}
	return nil
}

// ConnFromContext returns the dedicated connection stored on the context, if any.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	if conn, ok := ctx.Value(DBConnKey).(*pgxpool.Conn); ok {
		return conn
	}
	return nil
}

// WithTx runs fn inside a transaction. The transaction is placed on the
// context passed to fn so repositories participating in the operation pick it
// up. Commit on nil error, rollback otherwise.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, DBTxKey, tx)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
