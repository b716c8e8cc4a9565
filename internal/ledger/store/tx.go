package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"crewauction/pkg/platform/sentinel"
	txcontext "crewauction/pkg/platform/tx"
)

// RunInTx runs fn inside a single database transaction. Store calls made with
// the context passed to fn join that transaction. Any error from fn (or a
// panic) rolls back every statement fn issued; a failed begin or commit is
// reported as sentinel.ErrUnavailable. Nested calls join the outer
// transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txcontext.Active(ctx) {
		return fn(ctx)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline && s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w: %w", sentinel.ErrUnavailable, err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.ErrorContext(ctx, "ledger rollback failed", "error", rbErr)
		}
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger tx: %w: %w", sentinel.ErrUnavailable, err)
	}
	committed = true
	return nil
}
