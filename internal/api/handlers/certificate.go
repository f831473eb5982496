package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/librisventures/authorhash/internal/service"
	"go.uber.org/zap"
)

// CertificateHandler handles public certificate lookups
type CertificateHandler struct {
	registry *service.RegistryService
	logger   *zap.Logger
}

// NewCertificateHandler creates a new certificate handler
func NewCertificateHandler(registry *service.RegistryService, logger *zap.Logger) *CertificateHandler {
	return &CertificateHandler{
		registry: registry,
		logger:   logger,
	}
}

// GetByReference looks up a certificate by its reference. Malformed
// references, misses, and anything else all answer with the same generic
// not-found body.
// @Summary Look up certificate by reference
// @Produce json
// @Param reference path string true "Certificate reference"
// @Success 200 {object} service.CertificateView
// @Router /api/v1/certificates/{reference} [get]
func (h *CertificateHandler) GetByReference(c *gin.Context) {
	ref := c.Param("reference")

	view, err := h.registry.LookupByReference(ref)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "certificate not found"})
		return
	}

	c.JSON(http.StatusOK, view)
}

// FindByHash looks up all certificates for a content hash
// @Summary Look up certificates by content hash
// @Produce json
// @Param hash query string true "SHA-256 content hash (64 hex characters)"
// @Success 200 {array} service.CertificateView
// @Router /api/v1/certificates [get]
func (h *CertificateHandler) FindByHash(c *gin.Context) {
	hash := c.Query("hash")
	if hash == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hash query parameter required"})
		return
	}

	views, err := h.registry.LookupByHash(hash)
	if err != nil {
		h.logger.Error("Failed to look up certificates by hash", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up certificates"})
		return
	}

	if len(views) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "certificate not found"})
		return
	}

	c.JSON(http.StatusOK, views)
}
