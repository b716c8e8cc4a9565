package store

import (
	"context"
	"database/sql"
	"fmt"

	"crewauction/internal/ledger/models"
)

// ListCatalogue returns every lot with its buyer, if any, ordered by id.
func (s *Store) ListCatalogue(ctx context.Context) ([]models.CatalogueEntry, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, s.q(
		`SELECT cm.id, cm.name, cm.category, cm.rating, cm.base_price,
		        COALESCE(cm.current_bid, cm.base_price), cm.status,
		        ph.name, ph.id
		 FROM crew_members cm
		 LEFT JOIN purchased_crew pc ON pc.crew_member_id = cm.id
		 LEFT JOIN production_houses ph ON ph.id = pc.production_house_id
		 ORDER BY cm.id`))
	if err != nil {
		return nil, fmt.Errorf("list catalogue: %w", classify(err))
	}
	defer rows.Close()

	entries := []models.CatalogueEntry{}
	for rows.Next() {
		var (
			e         models.CatalogueEntry
			buyerName sql.NullString
			buyerID   sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Category, &e.Rating, &e.BasePrice,
			&e.CurrentBid, &e.Status, &buyerName, &buyerID); err != nil {
			return nil, fmt.Errorf("scan catalogue: %w", err)
		}
		if buyerName.Valid {
			e.BuyerName = &buyerName.String
		}
		if buyerID.Valid {
			id := models.HouseID(buyerID.Int64)
			e.BuyerID = &id
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalogue: %w", classify(err))
	}
	return entries, nil
}

const leaderboardQuery = `
SELECT ph.id, ph.name, ph.budget,
       COUNT(DISTINCT pc.crew_member_id),
       COUNT(DISTINCT CASE WHEN cm.category = 'Lead Actor' THEN cm.id END),
       COUNT(DISTINCT CASE WHEN cm.category = 'Supporting Actor' THEN cm.id END),
       COUNT(DISTINCT CASE WHEN cm.category = 'Musician' THEN cm.id END),
       COUNT(DISTINCT CASE WHEN cm.category = 'Director' THEN cm.id END),
       COUNT(DISTINCT CASE WHEN cm.category = 'Nepo Kid' THEN cm.id END),
       COUNT(DISTINCT CASE WHEN cm.category = 'Comedic Relief' THEN cm.id END),
       CAST(AVG(cm.rating) AS DOUBLE PRECISION) AS average_rating
FROM production_houses ph
LEFT JOIN purchased_crew pc ON pc.production_house_id = ph.id
LEFT JOIN crew_members cm ON cm.id = pc.crew_member_id
GROUP BY ph.id, ph.name, ph.budget
ORDER BY average_rating DESC NULLS LAST, ph.id`

// Leaderboard ranks houses by the average rating of the crew they bought.
// Houses without purchases sort last.
func (s *Store) Leaderboard(ctx context.Context) ([]models.LeaderboardRow, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, leaderboardQuery)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", classify(err))
	}
	defer rows.Close()

	board := []models.LeaderboardRow{}
	for rows.Next() {
		var (
			r   models.LeaderboardRow
			avg sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Budget, &r.CrewCount,
			&r.LeadActors, &r.SupportingActors, &r.Musicians, &r.Directors,
			&r.NepoKids, &r.ComedicRelief, &avg); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		if avg.Valid {
			v := avg.Float64
			r.AverageRating = &v
		}
		board = append(board, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard: %w", classify(err))
	}
	return board, nil
}
