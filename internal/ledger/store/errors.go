package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"crewauction/pkg/platform/sentinel"
)

// classify maps driver errors onto sentinel errors while keeping the driver
// error in the chain. Unrecognized errors pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return bySQLState(string(pqErr.Code), err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return bySQLState(pgErr.Code, err)
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
		case sqlite3.ErrConstraint:
			switch liteErr.ExtendedCode {
			case sqlite3.ErrConstraintForeignKey:
				return fmt.Errorf("%w: %w", sentinel.ErrNotFound, err)
			case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintCheck:
				return fmt.Errorf("%w: %w", sentinel.ErrConflict, err)
			}
		}
	}
	return err
}

func bySQLState(code string, err error) error {
	switch code {
	case "40001", "40P01", "55P03", "57014":
		// serialization_failure, deadlock_detected, lock_not_available, query_canceled
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	case "23503":
		return fmt.Errorf("%w: %w", sentinel.ErrNotFound, err)
	case "23505", "23514":
		return fmt.Errorf("%w: %w", sentinel.ErrConflict, err)
	}
	return err
}
