package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/librisventures/authorhash/internal/service"
	"go.uber.org/zap"
)

// AdminHandler handles operator maintenance operations
type AdminHandler struct {
	registry *service.RegistryService
	sweep    *service.SweepService
	access   *service.AccessService
	logger   *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(registry *service.RegistryService, sweep *service.SweepService, access *service.AccessService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		registry: registry,
		sweep:    sweep,
		access:   access,
		logger:   logger,
	}
}

// RunSweep triggers an anchor reconciliation pass outside the schedule
// @Summary Run anchor sweep
// @Description Check pending certificates against the anchor calendar now
// @Produce json
// @Success 200 {object} service.SweepReport
// @Router /api/v1/admin/sweep [post]
func (h *AdminHandler) RunSweep(c *gin.Context) {
	report, err := h.sweep.Sweep(c.Request.Context())
	if err != nil {
		h.logger.Error("Sweep failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sweep failed"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// CleanupTokens deletes expired access tokens
// @Summary Clean up expired access tokens
// @Produce json
// @Success 200 {object} map[string]int64
// @Router /api/v1/admin/tokens/cleanup [post]
func (h *AdminHandler) CleanupTokens(c *gin.Context) {
	deleted, err := h.access.CleanupExpired()
	if err != nil {
		h.logger.Error("Token cleanup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cleanup failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deleted": deleted,
	})
}

// ListCertificates returns all certificates in the registry
// @Summary List certificates
// @Produce json
// @Success 200 {array} service.CertificateView
// @Router /api/v1/admin/certificates [get]
func (h *AdminHandler) ListCertificates(c *gin.Context) {
	certs, err := h.registry.ListCertificates()
	if err != nil {
		h.logger.Error("Failed to list certificates", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list certificates"})
		return
	}

	c.JSON(http.StatusOK, certs)
}
