package handlers

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/librisventures/authorhash/internal/config"
	"github.com/librisventures/authorhash/internal/database"
	"github.com/librisventures/authorhash/internal/notify"
	"github.com/librisventures/authorhash/internal/service"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeAnchor is an anchor client stub for handler tests
type fakeAnchor struct {
	confirmAll bool
}

func (a *fakeAnchor) Submit(ctx context.Context, digest []byte) ([]byte, error) {
	return []byte("fake-pending-proof"), nil
}

func (a *fakeAnchor) Upgrade(ctx context.Context, digest []byte, proof []byte) ([]byte, bool, error) {
	if a.confirmAll {
		return []byte("fake-confirmed-proof"), true, nil
	}
	return proof, false, nil
}

// testEnv bundles the services handler tests run against
type testEnv struct {
	db       *database.Database
	cfg      *config.Config
	registry *service.RegistryService
	sweep    *service.SweepService
	access   *service.AccessService
	users    *service.UserService
	logger   *zap.Logger
}

// setupHandlerTest creates a sqlite-backed environment with all services wired
func setupHandlerTest(t *testing.T) *testEnv {
	gin.SetMode(gin.TestMode)

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
	require.NoError(t, db.Migrate(), "Failed to run migrations")
	t.Cleanup(func() { db.Close() })

	logger := zap.NewNop()
	anchorClient := &fakeAnchor{}
	outbox := notify.NewOutbox(db)

	return &testEnv{
		db:       db,
		cfg:      cfg,
		registry: service.NewRegistryService(db, anchorClient, outbox, cfg, logger),
		sweep:    service.NewSweepService(db, anchorClient, logger),
		access:   service.NewAccessService(db, outbox, cfg, logger),
		users:    service.NewUserService(db, cfg),
		logger:   logger,
	}
}

// testContentHash returns a syntactically valid content hash seeded by b
func testContentHash(b byte) string {
	buf := make([]byte, 32)
	for i := range buf {
		buf[i] = b
	}
	return hex.EncodeToString(buf)
}
