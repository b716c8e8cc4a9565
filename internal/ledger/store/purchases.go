package store

import (
	"context"
	"fmt"

	"crewauction/internal/ledger/models"
)

// InsertPurchase records that houseID bought lotID. A second purchase of the
// same lot fails with sentinel.ErrConflict.
func (s *Store) InsertPurchase(ctx context.Context, houseID models.HouseID, lotID models.LotID, price int64) (*models.Purchase, error) {
	p := models.Purchase{HouseID: houseID, LotID: lotID, Price: price}
	err := s.execer(ctx).QueryRowContext(ctx, s.q(
		`INSERT INTO purchased_crew (production_house_id, crew_member_id, purchase_price)
		 VALUES ($1, $2, $3) RETURNING id`), houseID, lotID, price).Scan(&p.ID)
	if err != nil {
		return nil, fmt.Errorf("insert purchase: %w", classify(err))
	}
	return &p, nil
}

// ListPurchasesByHouse returns the lots a house owns with the price paid,
// oldest purchase first.
func (s *Store) ListPurchasesByHouse(ctx context.Context, houseID models.HouseID) ([]models.OwnedLot, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, s.q(
		`SELECT cm.id, cm.name, cm.category, cm.rating, cm.base_price,
		        COALESCE(cm.current_bid, cm.base_price), cm.status, pc.purchase_price
		 FROM purchased_crew pc
		 JOIN crew_members cm ON cm.id = pc.crew_member_id
		 WHERE pc.production_house_id = $1
		 ORDER BY pc.id`), houseID)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", classify(err))
	}
	defer rows.Close()

	owned := []models.OwnedLot{}
	for rows.Next() {
		var o models.OwnedLot
		if err := rows.Scan(&o.ID, &o.Name, &o.Category, &o.Rating, &o.BasePrice,
			&o.CurrentBid, &o.Status, &o.PurchasePrice); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		owned = append(owned, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchases: %w", classify(err))
	}
	return owned, nil
}

// HouseDetail loads a house and its purchases in one read transaction.
func (s *Store) HouseDetail(ctx context.Context, id models.HouseID) (*models.HouseDetail, error) {
	var detail models.HouseDetail
	err := s.RunInTx(ctx, func(ctx context.Context) error {
		h, err := s.FindHouse(ctx, id)
		if err != nil {
			return err
		}
		owned, err := s.ListPurchasesByHouse(ctx, id)
		if err != nil {
			return err
		}
		detail = models.HouseDetail{House: *h, PurchasedCrew: owned}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}
