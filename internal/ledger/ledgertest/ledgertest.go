// Package ledgertest opens throwaway SQLite ledgers for tests.
package ledgertest

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"crewauction/internal/ledger/models"
	"crewauction/internal/ledger/store"
	"crewauction/internal/platform/config"
)

// Open returns a migrated, empty ledger backed by a file in t.TempDir().
func Open(t testing.TB) *store.Store {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, config.LedgerConfig{
		Driver:    "sqlite3",
		DSN:       filepath.Join(t.TempDir(), "ledger.db"),
		TxTimeout: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate ledger: %v", err)
	}
	return s
}

// Seed loads f into s and returns the assigned ids.
func Seed(t testing.TB, s *store.Store, f models.Fixture) *store.Seeded {
	t.Helper()
	seeded, err := s.Seed(context.Background(), f)
	if err != nil {
		t.Fatalf("seed ledger: %v", err)
	}
	return seeded
}

// Fixture builds a one-lot-per-price fixture: one house per budget (access
// codes H1, H2, ...) and one lot per base price.
func Fixture(budgets []int64, prices []int64) models.Fixture {
	var f models.Fixture
	for i, b := range budgets {
		f.Houses = append(f.Houses, models.SeedHouse{
			Name:       "House " + strconv.Itoa(i+1),
			Budget:     b,
			AccessCode: "H" + strconv.Itoa(i+1),
		})
	}
	for i, p := range prices {
		f.Lots = append(f.Lots, models.SeedLot{
			Name:      "Lot " + strconv.Itoa(i+1),
			Category:  models.CategoryLeadActor,
			Rating:    80 + i,
			BasePrice: p,
		})
	}
	return f
}

