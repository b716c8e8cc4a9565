package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"crewauction/internal/ledger/models"
	"crewauction/pkg/platform/sentinel"
)

const lotColumns = `id, name, category, rating, base_price, COALESCE(current_bid, base_price), status`

func scanLot(row interface{ Scan(...any) error }, l *models.Lot) error {
	return row.Scan(&l.ID, &l.Name, &l.Category, &l.Rating, &l.BasePrice, &l.CurrentBid, &l.Status)
}

func (s *Store) FindLot(ctx context.Context, id models.LotID) (*models.Lot, error) {
	var l models.Lot
	err := scanLot(s.execer(ctx).QueryRowContext(ctx, s.q(
		`SELECT `+lotColumns+` FROM crew_members WHERE id = $1`), id), &l)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lot %d: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find lot: %w", classify(err))
	}
	return &l, nil
}

// MarkLotSold flips an available lot to sold. It reports false when the lot
// is missing or already sold, leaving the row untouched.
func (s *Store) MarkLotSold(ctx context.Context, id models.LotID) (bool, error) {
	res, err := s.execer(ctx).ExecContext(ctx, s.q(
		`UPDATE crew_members SET status = 'sold' WHERE id = $1 AND status = 'available'`), id)
	if err != nil {
		return false, fmt.Errorf("mark lot sold: %w", classify(err))
	}
	return affectedOne(res)
}

// SetCurrentBid records a new standing bid on an unsold lot.
func (s *Store) SetCurrentBid(ctx context.Context, id models.LotID, bid int64) (bool, error) {
	res, err := s.execer(ctx).ExecContext(ctx, s.q(
		`UPDATE crew_members SET current_bid = $1 WHERE id = $2 AND status <> 'sold'`), bid, id)
	if err != nil {
		return false, fmt.Errorf("set current bid: %w", classify(err))
	}
	return affectedOne(res)
}

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}
