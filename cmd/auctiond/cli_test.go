package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"crewauction/internal/ledger/store"
	"crewauction/internal/platform/config"
)

func executeCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func useTempLedger(t *testing.T) string {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "auction.db")
	t.Setenv("AUCTION_LEDGER_DRIVER", "sqlite3")
	t.Setenv("AUCTION_LEDGER_DSN", dsn)
	t.Setenv("AUCTION_LOG_LEVEL", "error")
	return dsn
}

func openLedger(t *testing.T, dsn string) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), config.LedgerConfig{Driver: "sqlite3", DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMigrate(t *testing.T) {
	useTempLedger(t)

	stdout, err := executeCLI(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, stdout, "ledger schema applied (sqlite3)")
}

func TestSeedDefaultFixture(t *testing.T) {
	dsn := useTempLedger(t)

	stdout, err := executeCLI(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, stdout, "seeded 3 production houses and 7 crew members")

	house, err := openLedger(t, dsn).FindHouseBySecret(context.Background(), "RED001")
	require.NoError(t, err)
	assert.Equal(t, "Red Chillies", house.Name)
	assert.Equal(t, int64(1_000_000_000), house.Budget)
}

func TestSeedFromYAMLFile(t *testing.T) {
	dsn := useTempLedger(t)
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	body := `
houses:
  - name: Test Studio
    budget: 500
    access_code: TST001
lots:
  - name: Test Actor
    category: Lead Actor
    rating: 77
    base_price: 100
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	stdout, err := executeCLI(t, "seed", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "seeded 1 production houses and 1 crew members")

	house, err := openLedger(t, dsn).FindHouseBySecret(context.Background(), "TST001")
	require.NoError(t, err)
	assert.Equal(t, int64(500), house.Budget)
}

func TestSeedRejectsMissingFile(t *testing.T) {
	useTempLedger(t)

	_, err := executeCLI(t, "seed", "--file", filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestInvalidConfigFails(t *testing.T) {
	useTempLedger(t)
	t.Setenv("AUCTION_LEDGER_DRIVER", "oracle")

	_, err := executeCLI(t, "migrate")
	assert.Error(t, err)
}

func TestHashAdminCode(t *testing.T) {
	useTempLedger(t)

	stdout, err := executeCLI(t, "hash-admin-code", "s3cret-code")
	require.NoError(t, err)
	hash := strings.TrimSpace(stdout)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret-code")))

	_, err = executeCLI(t, "hash-admin-code")
	assert.Error(t, err)
}
