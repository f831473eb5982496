package service

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/librisventures/authorhash/internal/config"
	"github.com/librisventures/authorhash/internal/database"
	"github.com/librisventures/authorhash/internal/database/models"
	"github.com/librisventures/authorhash/internal/notify"
	"go.uber.org/zap"
)

// AccessService issues and validates the one-time tokens that let a
// registrant list every certificate tied to their email.
type AccessService struct {
	db     *database.Database
	outbox *notify.Outbox
	cfg    *config.Config
	logger *zap.Logger
}

// NewAccessService creates a new access service
func NewAccessService(db *database.Database, outbox *notify.Outbox, cfg *config.Config, logger *zap.Logger) *AccessService {
	return &AccessService{
		db:     db,
		outbox: outbox,
		cfg:    cfg,
		logger: logger,
	}
}

// AccessGrant is the result of a successful token validation
type AccessGrant struct {
	Email        string            `json:"email"`
	Certificates []CertificateView `json:"certificates"`
}

// normalizeEmail trims and lowercases an email, rejecting obvious garbage
func normalizeEmail(email string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(email))
	if e == "" || !strings.Contains(e, "@") {
		return "", ErrInvalidEmail
	}
	return e, nil
}

// RequestAccess creates a retrieval token for email and queues the link
// mail, but only when at least one certificate exists for that email.
// Either way the caller sees success, so the registry cannot be probed for
// which addresses it knows.
func (s *AccessService) RequestAccess(email string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	certs, err := s.db.FindCertificatesByEmail(normalized)
	if err != nil {
		return fmt.Errorf("failed to look up certificates: %w", err)
	}
	if len(certs) == 0 {
		// Same outward result as the found case
		return nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	tokenValue := hex.EncodeToString(buf)

	token := &models.AccessToken{
		Token:     tokenValue,
		Email:     normalized,
		ExpiresAt: time.Now().Add(s.cfg.Tokens.AccessValidity).UnixMilli(),
		Used:      false,
		CreatedAt: time.Now(),
	}

	if err := s.db.CreateAccessToken(token); err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}

	accessURL := fmt.Sprintf("%s/verify?access=%s", s.cfg.Notify.PublicBaseURL, tokenValue)
	if err := s.outbox.Enqueue(normalized, notify.AccessLinkSubject, notify.AccessLinkBody(accessURL)); err != nil {
		// The token write stands; the user can request another link
		s.logger.Error("Failed to enqueue access link mail", zap.Error(err))
	}

	return nil
}

// Validate consumes a token and returns the bound email plus the public
// views of its certificates. Each token validates successfully exactly
// once: a replay within the validity window still fails.
func (s *AccessService) Validate(tokenValue string) (*AccessGrant, error) {
	token, err := s.db.GetAccessToken(tokenValue)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	if token.Used || time.Now().UnixMilli() >= token.ExpiresAt {
		return nil, ErrTokenExpired
	}

	consumed, err := s.db.ConsumeAccessToken(tokenValue)
	if err != nil {
		return nil, fmt.Errorf("failed to consume token: %w", err)
	}
	if !consumed {
		// Another validation won the conditional update
		return nil, ErrTokenExpired
	}

	certs, err := s.db.FindCertificatesByEmail(token.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up certificates: %w", err)
	}

	views := make([]CertificateView, len(certs))
	for i, cert := range certs {
		views[i] = PublicView(cert)
	}

	return &AccessGrant{
		Email:        token.Email,
		Certificates: views,
	}, nil
}

// CleanupExpired deletes tokens past their expiry and returns the number
// removed. Backstop for any storage-level TTL policy.
func (s *AccessService) CleanupExpired() (int64, error) {
	deleted, err := s.db.DeleteExpiredAccessTokens(time.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}

	if deleted > 0 {
		s.logger.Info("Deleted expired access tokens", zap.Int64("count", deleted))
	}

	return deleted, nil
}
