package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/librisventures/authorhash/internal/database/models"
	"github.com/librisventures/authorhash/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistryService(t *testing.T) (*RegistryService, *stubAnchor) {
	db, cfg := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	anchorClient := &stubAnchor{confirmable: map[string]bool{}}
	outbox := notify.NewOutbox(db)
	return NewRegistryService(db, anchorClient, outbox, cfg, testLogger()), anchorClient
}

func TestNormalizeContentHash(t *testing.T) {
	t.Run("Valid lowercase hash passes through", func(t *testing.T) {
		h, err := NormalizeContentHash(testHash(0xaa))
		require.NoError(t, err)
		assert.Equal(t, testHash(0xaa), h)
	})

	t.Run("Uppercase hash is lowercased", func(t *testing.T) {
		h, err := NormalizeContentHash(strings.ToUpper(testHash(0xab)))
		require.NoError(t, err)
		assert.Equal(t, testHash(0xab), h)
	})

	t.Run("Surrounding whitespace is trimmed", func(t *testing.T) {
		h, err := NormalizeContentHash("  " + testHash(0xac) + "\n")
		require.NoError(t, err)
		assert.Equal(t, testHash(0xac), h)
	})

	t.Run("Short hash is rejected", func(t *testing.T) {
		_, err := NormalizeContentHash("abc123")
		assert.ErrorIs(t, err, ErrInvalidHash)
	})

	t.Run("Non-hex characters are rejected", func(t *testing.T) {
		bad := strings.Replace(testHash(0xad), "a", "g", 1)
		_, err := NormalizeContentHash(bad)
		assert.ErrorIs(t, err, ErrInvalidHash)
	})

	t.Run("Empty hash is rejected", func(t *testing.T) {
		_, err := NormalizeContentHash("")
		assert.ErrorIs(t, err, ErrInvalidHash)
	})
}

func TestRegistryService_Issue(t *testing.T) {
	t.Run("Issue certificate with client-side proof", func(t *testing.T) {
		svc, anchorClient := newRegistryService(t)

		cert, err := svc.Issue(context.Background(), &IssueRequest{
			ContentHash:          testHash(0x01),
			RegistrantEmail:      "author@example.com",
			AnchorProof:          []byte("client-proof"),
			PaymentTransactionID: "txn_123",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, cert.ID)
		assert.True(t, strings.HasPrefix(cert.Reference, "LV-AH-"))
		assert.Equal(t, models.AnchorStatusPending, cert.AnchorStatus)
		assert.NotZero(t, cert.RegisteredAt)

		// The provided proof is kept; no fresh submission happens
		assert.Equal(t, 0, anchorClient.submits)

		priv, err := svc.db.GetCertificatePrivate(cert.Reference)
		require.NoError(t, err)
		assert.Equal(t, []byte("client-proof"), priv.AnchorProof)
		assert.Equal(t, "author@example.com", priv.RegistrantEmail.String)
		assert.Equal(t, "txn_123", priv.PaymentTransactionID.String)
	})

	t.Run("Issue without proof submits the digest", func(t *testing.T) {
		svc, anchorClient := newRegistryService(t)

		cert, err := svc.Issue(context.Background(), &IssueRequest{
			ContentHash:     testHash(0x02),
			RegistrantEmail: "author@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, 1, anchorClient.submits)

		priv, err := svc.db.GetCertificatePrivate(cert.Reference)
		require.NoError(t, err)
		assert.NotEmpty(t, priv.AnchorProof)
	})

	t.Run("Anchor submission failure still issues the certificate", func(t *testing.T) {
		svc, anchorClient := newRegistryService(t)
		anchorClient.submitErr = errors.New("calendar unreachable")

		cert, err := svc.Issue(context.Background(), &IssueRequest{
			ContentHash:     testHash(0x03),
			RegistrantEmail: "author@example.com",
		})
		require.NoError(t, err)

		priv, err := svc.db.GetCertificatePrivate(cert.Reference)
		require.NoError(t, err)
		assert.Empty(t, priv.AnchorProof)
	})

	t.Run("Issue same hash twice yields two certificates", func(t *testing.T) {
		svc, _ := newRegistryService(t)

		cert1, err := svc.Issue(context.Background(), &IssueRequest{
			ContentHash: testHash(0x04),
			AnchorProof: []byte("p1"),
		})
		require.NoError(t, err)

		cert2, err := svc.Issue(context.Background(), &IssueRequest{
			ContentHash: testHash(0x04),
			AnchorProof: []byte("p2"),
		})
		require.NoError(t, err)

		assert.NotEqual(t, cert1.Reference, cert2.Reference)

		views, err := svc.LookupByHash(testHash(0x04))
		require.NoError(t, err)
		assert.Len(t, views, 2)
	})

	t.Run("Issue with invalid hash fails", func(t *testing.T) {
		svc, _ := newRegistryService(t)

		_, err := svc.Issue(context.Background(), &IssueRequest{
			ContentHash: "not-a-hash",
		})
		assert.ErrorIs(t, err, ErrInvalidHash)
	})

	t.Run("Issue with email queues confirmation mail", func(t *testing.T) {
		svc, _ := newRegistryService(t)

		_, err := svc.Issue(context.Background(), &IssueRequest{
			ContentHash:     testHash(0x05),
			RegistrantEmail: "author@example.com",
			AnchorProof:     []byte("proof"),
		})
		require.NoError(t, err)

		count, err := svc.db.CountQueuedMail()
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("Issue without email queues nothing", func(t *testing.T) {
		svc, _ := newRegistryService(t)

		_, err := svc.Issue(context.Background(), &IssueRequest{
			ContentHash: testHash(0x06),
			AnchorProof: []byte("proof"),
		})
		require.NoError(t, err)

		count, err := svc.db.CountQueuedMail()
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("Explicit registration timestamp is preserved", func(t *testing.T) {
		svc, _ := newRegistryService(t)

		registeredAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli()
		cert, err := svc.Issue(context.Background(), &IssueRequest{
			ContentHash:  testHash(0x07),
			AnchorProof:  []byte("proof"),
			RegisteredAt: registeredAt,
		})
		require.NoError(t, err)
		assert.Equal(t, registeredAt, cert.RegisteredAt)
	})
}

func TestRegistryService_LookupByReference(t *testing.T) {
	svc, _ := newRegistryService(t)

	cert, err := svc.Issue(context.Background(), &IssueRequest{
		ContentHash:     testHash(0x10),
		RegistrantEmail: "author@example.com",
		AnchorProof:     []byte("proof"),
	})
	require.NoError(t, err)

	t.Run("Lookup existing reference returns public view", func(t *testing.T) {
		view, err := svc.LookupByReference(cert.Reference)
		require.NoError(t, err)
		assert.Equal(t, cert.Reference, view.Reference)
		assert.Equal(t, testHash(0x10), view.ContentHash)
		assert.Equal(t, models.AnchorStatusPending, view.AnchorStatus)
	})

	t.Run("Lookup is case-insensitive", func(t *testing.T) {
		view, err := svc.LookupByReference(strings.ToLower(cert.Reference))
		require.NoError(t, err)
		assert.Equal(t, cert.Reference, view.Reference)
	})

	t.Run("Malformed reference behaves like a miss", func(t *testing.T) {
		_, err := svc.LookupByReference("definitely-not-a-reference")
		assert.Error(t, err)
	})

	t.Run("Well-formed but unknown reference misses", func(t *testing.T) {
		_, err := svc.LookupByReference("LV-AH-2026-ZZZ-ZZZ-ZZZ")
		assert.Error(t, err)
	})
}

func TestRegistryService_LookupByHash(t *testing.T) {
	svc, _ := newRegistryService(t)

	_, err := svc.Issue(context.Background(), &IssueRequest{
		ContentHash: testHash(0x20),
		AnchorProof: []byte("proof"),
	})
	require.NoError(t, err)

	t.Run("Lookup existing hash returns views", func(t *testing.T) {
		views, err := svc.LookupByHash(testHash(0x20))
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, testHash(0x20), views[0].ContentHash)
	})

	t.Run("Unknown hash returns empty", func(t *testing.T) {
		views, err := svc.LookupByHash(testHash(0x21))
		require.NoError(t, err)
		assert.Empty(t, views)
	})

	t.Run("Malformed hash is indistinguishable from a miss", func(t *testing.T) {
		views, err := svc.LookupByHash("zz-not-hex")
		require.NoError(t, err)
		assert.Empty(t, views)
	})
}

func TestRegistryService_ListCertificates(t *testing.T) {
	svc, _ := newRegistryService(t)

	for i := byte(0x30); i < 0x33; i++ {
		_, err := svc.Issue(context.Background(), &IssueRequest{
			ContentHash: testHash(i),
			AnchorProof: []byte("proof"),
		})
		require.NoError(t, err)
	}

	views, err := svc.ListCertificates()
	require.NoError(t, err)
	assert.Len(t, views, 3)
}
