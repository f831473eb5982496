package service

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/librisventures/authorhash/internal/anchor"
	"github.com/librisventures/authorhash/internal/database"
	"go.uber.org/zap"
)

// SweepReport summarizes one reconciliation run
type SweepReport struct {
	Checked  int `json:"checked"`
	Upgraded int `json:"upgraded"`
	Failed   int `json:"failed"`
}

// SweepService upgrades pending certificates once their anchor has reached
// enough confirmations. It runs on a schedule, independent of user traffic.
type SweepService struct {
	db     *database.Database
	anchor anchor.Client
	logger *zap.Logger
}

// NewSweepService creates a new sweep service
func NewSweepService(db *database.Database, anchorClient anchor.Client, logger *zap.Logger) *SweepService {
	return &SweepService{
		db:     db,
		anchor: anchorClient,
		logger: logger,
	}
}

// Sweep checks every pending certificate against the anchoring network and
// confirms the ones whose proof can be upgraded. The pending set is
// snapshotted up front; certificates issued mid-run wait for the next one.
// A per-certificate failure is counted and logged but never aborts the run;
// the next scheduled sweep is the retry.
func (s *SweepService) Sweep(ctx context.Context) (*SweepReport, error) {
	pending, err := s.db.ListPendingCertificates()
	if err != nil {
		return nil, fmt.Errorf("failed to list pending certificates: %w", err)
	}

	report := &SweepReport{}

	if len(pending) == 0 {
		s.logger.Info("No pending certificates to check")
		return report, nil
	}

	s.logger.Info("Checking pending certificates", zap.Int("count", len(pending)))

	for _, cert := range pending {
		report.Checked++

		priv, err := s.db.GetCertificatePrivate(cert.Reference)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				s.logger.Warn("No private record for certificate, skipping",
					zap.String("reference", cert.Reference),
				)
				continue
			}
			report.Failed++
			s.logger.Error("Failed to load private record",
				zap.String("reference", cert.Reference),
				zap.Error(err),
			)
			continue
		}

		if len(priv.AnchorProof) == 0 {
			s.logger.Warn("No anchor proof for certificate, skipping",
				zap.String("reference", cert.Reference),
			)
			continue
		}

		digest, err := hex.DecodeString(cert.ContentHash)
		if err != nil {
			report.Failed++
			s.logger.Error("Stored content hash is not valid hex",
				zap.String("reference", cert.Reference),
				zap.Error(err),
			)
			continue
		}

		proof, confirmed, err := s.anchor.Upgrade(ctx, digest, priv.AnchorProof)
		if err != nil {
			report.Failed++
			s.logger.Error("Anchor upgrade check failed",
				zap.String("reference", cert.Reference),
				zap.Error(err),
			)
			continue
		}

		if !confirmed {
			s.logger.Debug("Not yet confirmable", zap.String("reference", cert.Reference))
			continue
		}

		if err := s.db.ConfirmCertificate(cert.Reference, proof); err != nil {
			report.Failed++
			s.logger.Error("Failed to confirm certificate",
				zap.String("reference", cert.Reference),
				zap.Error(err),
			)
			continue
		}

		report.Upgraded++
		s.logger.Info("Certificate confirmed", zap.String("reference", cert.Reference))
	}

	s.logger.Info("Sweep complete",
		zap.Int("checked", report.Checked),
		zap.Int("upgraded", report.Upgraded),
		zap.Int("failed", report.Failed),
	)

	return report, nil
}
