package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"crewauction/internal/ledger/models"
)

// Seeded lists the ids assigned to fixture rows, in fixture order.
type Seeded struct {
	Houses []models.HouseID
	Lots   []models.LotID
}

// Seed replaces the ledger contents with the fixture in one transaction.
// Identity counters restart so a fresh seed numbers rows from 1. Each lot's
// current bid starts at its base price.
func (s *Store) Seed(ctx context.Context, f models.Fixture) (*Seeded, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}

	var out Seeded
	err := s.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.reset(ctx); err != nil {
			return err
		}
		exec := s.execer(ctx)
		for _, h := range f.Houses {
			var id models.HouseID
			if err := exec.QueryRowContext(ctx, s.q(
				`INSERT INTO production_houses (name, budget, access_code) VALUES ($1, $2, $3) RETURNING id`),
				h.Name, h.Budget, h.AccessCode).Scan(&id); err != nil {
				return fmt.Errorf("seed house %q: %w", h.Name, classify(err))
			}
			out.Houses = append(out.Houses, id)
		}
		for _, l := range f.Lots {
			var id models.LotID
			if err := exec.QueryRowContext(ctx, s.q(
				`INSERT INTO crew_members (name, category, rating, base_price, current_bid, status)
				 VALUES ($1, $2, $3, $4, $4, 'available') RETURNING id`),
				l.Name, l.Category, l.Rating, l.BasePrice).Scan(&id); err != nil {
				return fmt.Errorf("seed lot %q: %w", l.Name, classify(err))
			}
			out.Lots = append(out.Lots, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "ledger seeded", "houses", len(out.Houses), "lots", len(out.Lots))
	return &out, nil
}

func (s *Store) reset(ctx context.Context) error {
	exec := s.execer(ctx)
	if s.dialect == DialectPostgres {
		if _, err := exec.ExecContext(ctx,
			`TRUNCATE purchased_crew, crew_members, production_houses RESTART IDENTITY`); err != nil {
			return fmt.Errorf("reset ledger: %w", classify(err))
		}
		return nil
	}
	for _, stmt := range []string{
		`DELETE FROM purchased_crew`,
		`DELETE FROM crew_members`,
		`DELETE FROM production_houses`,
		`DELETE FROM sqlite_sequence WHERE name IN ('purchased_crew', 'crew_members', 'production_houses')`,
	} {
		if _, err := exec.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("reset ledger: %w", classify(err))
		}
	}
	return nil
}

// DefaultFixture is the stock auction: three studios and seven crew members.
func DefaultFixture() models.Fixture {
	const studioBudget = 1_000_000_000
	return models.Fixture{
		Houses: []models.SeedHouse{
			{Name: "Red Chillies", Budget: studioBudget, AccessCode: "RED001"},
			{Name: "Dharma Productions", Budget: studioBudget, AccessCode: "DHA001"},
			{Name: "Yash Raj Films", Budget: studioBudget, AccessCode: "YRF001"},
		},
		Lots: []models.SeedLot{
			{Name: "Shah Rukh Khan", Category: models.CategoryLeadActor, Rating: 95, BasePrice: 30_000_000},
			{Name: "Deepika Padukone", Category: models.CategoryLeadActor, Rating: 90, BasePrice: 25_000_000},
			{Name: "Nawazuddin Siddiqui", Category: models.CategorySupportingActor, Rating: 88, BasePrice: 15_000_000},
			{Name: "AR Rahman", Category: models.CategoryMusician, Rating: 96, BasePrice: 20_000_000},
			{Name: "Rohit Shetty", Category: models.CategoryDirector, Rating: 85, BasePrice: 20_000_000},
			{Name: "Ibrahim Khan", Category: models.CategoryNepoKid, Rating: 70, BasePrice: 5_000_000},
			{Name: "Johnny Lever", Category: models.CategoryComedicRelief, Rating: 85, BasePrice: 10_000_000},
		},
	}
}

// LoadFixture reads a fixture from a .toml, .yaml or .yml file.
func LoadFixture(path string) (models.Fixture, error) {
	var f models.Fixture
	raw, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("read fixture: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(raw, &f)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &f)
	default:
		return f, fmt.Errorf("unsupported fixture format %q", filepath.Ext(path))
	}
	if err != nil {
		return f, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	return f, f.Validate()
}
