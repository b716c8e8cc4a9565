// Package tx carries the open ledger transaction through a context so every
// store call made inside RunInTx lands in the same transaction.
package tx

import (
	"context"
	"database/sql"
)

type ctxKey struct{}

// WithTx returns ctx carrying tx. A nil tx leaves ctx unchanged.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, tx)
}

func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(ctxKey{}).(*sql.Tx)
	return tx, ok
}

// Active reports whether ctx already carries a transaction.
func Active(ctx context.Context) bool {
	_, ok := From(ctx)
	return ok
}
