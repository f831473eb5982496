package service

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/librisventures/authorhash/internal/anchor"
	"github.com/librisventures/authorhash/internal/config"
	"github.com/librisventures/authorhash/internal/database"
	"github.com/librisventures/authorhash/internal/database/models"
	"github.com/librisventures/authorhash/internal/notify"
	"github.com/librisventures/authorhash/internal/reference"
	"go.uber.org/zap"
)

// contentHashPattern matches a SHA-256 digest rendered as lowercase hex
var contentHashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// CertificateView is the public projection of a certificate. The anchor
// proof, registrant email, and payment transaction id never appear here.
type CertificateView struct {
	Reference    string `json:"reference"`
	ContentHash  string `json:"content_hash"`
	RegisteredAt int64  `json:"registered_at"`
	AnchorStatus string `json:"anchor_status"`
}

// PublicView converts a stored certificate to its public projection
func PublicView(cert *models.Certificate) CertificateView {
	return CertificateView{
		Reference:    cert.Reference,
		ContentHash:  cert.ContentHash,
		RegisteredAt: cert.RegisteredAt,
		AnchorStatus: cert.AnchorStatus,
	}
}

// RegistryService handles certificate issuance and lookup
type RegistryService struct {
	db     *database.Database
	anchor anchor.Client
	gen    *reference.Generator
	outbox *notify.Outbox
	cfg    *config.Config
	logger *zap.Logger
}

// NewRegistryService creates a new registry service
func NewRegistryService(db *database.Database, anchorClient anchor.Client, outbox *notify.Outbox, cfg *config.Config, logger *zap.Logger) *RegistryService {
	return &RegistryService{
		db:     db,
		anchor: anchorClient,
		gen:    reference.NewGenerator(cfg.Registry.ReferencePrefix),
		outbox: outbox,
		cfg:    cfg,
		logger: logger,
	}
}

// IssueRequest represents a request to issue a certificate. Payment must
// already be confirmed by the caller; this workflow trusts its caller on
// that point.
type IssueRequest struct {
	ContentHash          string
	RegistrantEmail      string // empty means the registrant chose anonymity
	AnchorProof          []byte // optional client-side proof; absent triggers a fresh submission
	PaymentTransactionID string
	RegisteredAt         int64 // epoch millis; zero means now
}

// NormalizeContentHash lowercases and trims a content hash. Returns
// ErrInvalidHash unless the result is exactly 64 hex characters.
func NormalizeContentHash(contentHash string) (string, error) {
	h := strings.ToLower(strings.TrimSpace(contentHash))
	if !contentHashPattern.MatchString(h) {
		return "", ErrInvalidHash
	}
	return h, nil
}

// Issue runs the issuance workflow: validate the hash, find an unused
// reference, persist the public and private rows atomically, and queue a
// confirmation email when the registrant left one. Issuing the same hash
// twice is legitimate and produces two independent certificates.
func (s *RegistryService) Issue(ctx context.Context, req *IssueRequest) (*models.Certificate, error) {
	contentHash, err := NormalizeContentHash(req.ContentHash)
	if err != nil {
		return nil, err
	}

	registeredAt := req.RegisteredAt
	if registeredAt == 0 {
		registeredAt = time.Now().UnixMilli()
	}

	proof := req.AnchorProof
	if len(proof) == 0 {
		// The webhook carried no client-side proof; submit the digest
		// ourselves. A failed submission still issues the certificate;
		// the row stays proofless and the sweep skips it.
		digest, _ := hex.DecodeString(contentHash)
		submitted, err := s.anchor.Submit(ctx, digest)
		if err != nil {
			s.logger.Warn("Anchor submission failed, issuing without proof",
				zap.String("content_hash", contentHash),
				zap.Error(err),
			)
		} else {
			proof = submitted
		}
	}

	now := time.Now()

	for attempt := 0; attempt < s.cfg.Registry.MaxReferenceAttempts; attempt++ {
		ref, err := s.gen.New()
		if err != nil {
			return nil, fmt.Errorf("failed to generate reference: %w", err)
		}

		_, err = s.db.GetCertificateByReference(ref)
		if err == nil {
			s.logger.Warn("Certificate reference collision",
				zap.String("reference", ref),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to check reference: %w", err)
		}

		cert := &models.Certificate{
			ID:           uuid.New().String(),
			Reference:    ref,
			ContentHash:  contentHash,
			RegisteredAt: registeredAt,
			AnchorStatus: models.AnchorStatusPending,
			CreatedAt:    now,
		}
		priv := &models.CertificatePrivate{
			Reference:            ref,
			RegistrantEmail:      sql.NullString{String: req.RegistrantEmail, Valid: req.RegistrantEmail != ""},
			AnchorProof:          proof,
			PaymentTransactionID: sql.NullString{String: req.PaymentTransactionID, Valid: req.PaymentTransactionID != ""},
			CreatedAt:            now,
		}

		if err := s.db.CreateCertificate(cert, priv); err != nil {
			if errors.Is(err, database.ErrDuplicateReference) {
				// Lost the race between check and insert; draw again
				s.logger.Warn("Certificate reference collision on insert",
					zap.String("reference", ref),
					zap.Int("attempt", attempt+1),
				)
				continue
			}
			return nil, fmt.Errorf("failed to store certificate: %w", err)
		}

		s.notifyIssued(cert, req.RegistrantEmail)
		return cert, nil
	}

	return nil, ErrReferenceExhausted
}

// notifyIssued queues the confirmation email. Fire-and-forget relative to
// the issuance result: an enqueue failure is logged, never surfaced.
func (s *RegistryService) notifyIssued(cert *models.Certificate, email string) {
	if email == "" {
		return
	}

	verifyURL := fmt.Sprintf("%s/verify?ref=%s", s.cfg.Notify.PublicBaseURL, cert.Reference)
	body := notify.ConfirmationBody(cert.Reference, cert.ContentHash, verifyURL)
	if err := s.outbox.Enqueue(email, notify.ConfirmationSubject(cert.Reference), body); err != nil {
		s.logger.Error("Failed to enqueue confirmation mail",
			zap.String("reference", cert.Reference),
			zap.Error(err),
		)
	}
}

// LookupByReference retrieves the public view of a certificate. The format
// is checked before touching the store; malformed references behave exactly
// like misses.
func (s *RegistryService) LookupByReference(ref string) (*CertificateView, error) {
	if !s.gen.Valid(ref) {
		return nil, sql.ErrNoRows
	}

	cert, err := s.db.GetCertificateByReference(reference.Normalize(ref))
	if err != nil {
		return nil, err
	}

	view := PublicView(cert)
	return &view, nil
}

// LookupByHash retrieves the public views of all certificates for a content
// hash. A malformed hash returns an empty result, indistinguishable from a
// miss.
func (s *RegistryService) LookupByHash(contentHash string) ([]CertificateView, error) {
	hash, err := NormalizeContentHash(contentHash)
	if err != nil {
		return nil, nil
	}

	certs, err := s.db.FindCertificatesByHash(hash)
	if err != nil {
		return nil, err
	}

	views := make([]CertificateView, len(certs))
	for i, cert := range certs {
		views[i] = PublicView(cert)
	}
	return views, nil
}

// ListCertificates returns the public views of every certificate, most
// recent first. Operator surface only.
func (s *RegistryService) ListCertificates() ([]CertificateView, error) {
	certs, err := s.db.ListCertificates()
	if err != nil {
		return nil, err
	}

	views := make([]CertificateView, len(certs))
	for i, cert := range certs {
		views[i] = PublicView(cert)
	}
	return views, nil
}
