package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"crewauction/internal/ledger/models"
	"crewauction/pkg/platform/sentinel"
)

func (s *Store) FindHouse(ctx context.Context, id models.HouseID) (*models.House, error) {
	var h models.House
	err := s.execer(ctx).QueryRowContext(ctx, s.q(
		`SELECT id, name, budget, access_code FROM production_houses WHERE id = $1`), id).
		Scan(&h.ID, &h.Name, &h.Budget, &h.AccessCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("house %d: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find house: %w", classify(err))
	}
	return &h, nil
}

// FindHouseBySecret resolves a house from its access code.
func (s *Store) FindHouseBySecret(ctx context.Context, secret string) (*models.House, error) {
	var h models.House
	err := s.execer(ctx).QueryRowContext(ctx, s.q(
		`SELECT id, name, budget, access_code FROM production_houses WHERE access_code = $1`), secret).
		Scan(&h.ID, &h.Name, &h.Budget, &h.AccessCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("house by access code: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find house by access code: %w", classify(err))
	}
	return &h, nil
}

// DebitHouse subtracts amount from the house budget only if the budget covers
// it. ok is false when the house is missing or the budget is short; the caller
// distinguishes the two with FindHouse.
func (s *Store) DebitHouse(ctx context.Context, id models.HouseID, amount int64) (newBudget int64, ok bool, err error) {
	err = s.execer(ctx).QueryRowContext(ctx, s.q(
		`UPDATE production_houses SET budget = budget - $1
		 WHERE id = $2 AND budget >= $1
		 RETURNING budget`), amount, id).Scan(&newBudget)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("debit house: %w", classify(err))
	}
	return newBudget, true, nil
}
