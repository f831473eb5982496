package service

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"github.com/librisventures/authorhash/internal/config"
	"github.com/librisventures/authorhash/internal/database"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupTestDB creates a test database with migrations
func setupTestDB(t *testing.T) (*database.Database, *config.Config) {
	dbPath := t.TempDir() + "/test.db"

	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Type: "sqlite",
			SQLite: config.SQLiteConfig{
				Path: dbPath,
			},
		},
		JWT: config.JWTConfig{
			Secret:     "test-secret-12345",
			Expiration: 24 * time.Hour,
			Issuer:     "authorhash-test",
		},
		Registry: config.RegistryConfig{
			ReferencePrefix:      "LV-AH",
			MaxReferenceAttempts: 5,
		},
		Tokens: config.TokensConfig{
			AccessValidity: 30 * time.Minute,
		},
		Notify: config.NotifyConfig{
			PublicBaseURL: "https://registry.example.com",
		},
	}

	db, err := database.New(cfg)
	require.NoError(t, err, "Failed to create test database")

	err = db.Migrate()
	require.NoError(t, err, "Failed to run migrations")

	return db, cfg
}

// stubAnchor is an in-memory anchor client for tests. Upgrade confirms a
// digest only when its hex form appears in confirmable.
type stubAnchor struct {
	confirmable map[string]bool
	submitErr   error
	upgradeErr  error
	submits     int
	upgrades    int
}

func (a *stubAnchor) Submit(ctx context.Context, digest []byte) ([]byte, error) {
	a.submits++
	if a.submitErr != nil {
		return nil, a.submitErr
	}
	return []byte("stub-pending-" + hex.EncodeToString(digest)[:8]), nil
}

func (a *stubAnchor) Upgrade(ctx context.Context, digest []byte, proof []byte) ([]byte, bool, error) {
	a.upgrades++
	if a.upgradeErr != nil {
		return proof, false, a.upgradeErr
	}
	if a.confirmable[hex.EncodeToString(digest)] {
		return []byte("stub-confirmed"), true, nil
	}
	return proof, false, nil
}

// testHash returns a syntactically valid content hash seeded by b
func testHash(b byte) string {
	buf := make([]byte, 32)
	for i := range buf {
		buf[i] = b
	}
	return hex.EncodeToString(buf)
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
