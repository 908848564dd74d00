package tx

import (
	"context"
	"database/sql"
)

type txKey struct{}

// WithTx attaches the runner's open transaction to the context so every
// store touched inside the callback writes through the same transaction.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey{}, tx)
}

// From reports the transaction carried by the context, if any. Stores fall
// back to their own *sql.DB when called outside a runner.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}
