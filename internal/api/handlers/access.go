package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/librisventures/authorhash/internal/service"
	"go.uber.org/zap"
)

// AccessHandler handles the email access-token flow
type AccessHandler struct {
	access *service.AccessService
	logger *zap.Logger
}

// NewAccessHandler creates a new access handler
func NewAccessHandler(access *service.AccessService, logger *zap.Logger) *AccessHandler {
	return &AccessHandler{
		access: access,
		logger: logger,
	}
}

// RequestAccessRequest represents a retrieval-link request
type RequestAccessRequest struct {
	Email string `json:"email" binding:"required"`
}

// RequestAccess sends a retrieval link when the email has certificates on
// file. The response is identical whether or not it does.
// @Summary Request a certificate retrieval link
// @Accept json
// @Produce json
// @Param request body RequestAccessRequest true "Email address"
// @Success 200 {object} map[string]bool
// @Router /api/v1/access/request [post]
func (h *AccessHandler) RequestAccess(c *gin.Context) {
	var req RequestAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
		return
	}

	if err := h.access.RequestAccess(req.Email); err != nil {
		if errors.Is(err, service.ErrInvalidEmail) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
			return
		}
		h.logger.Error("Access request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sent": true})
}

// ValidateAccessRequest represents a token validation request
type ValidateAccessRequest struct {
	Token string `json:"token" binding:"required"`
}

// ValidateAccess consumes a retrieval token and returns the certificates
// bound to its email. Single use: a second presentation of the same token
// fails even inside the validity window.
// @Summary Validate a retrieval token
// @Accept json
// @Produce json
// @Param request body ValidateAccessRequest true "Retrieval token"
// @Success 200 {object} service.AccessGrant
// @Router /api/v1/access/validate [post]
func (h *AccessHandler) ValidateAccess(c *gin.Context) {
	var req ValidateAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing token"})
		return
	}

	grant, err := h.access.Validate(req.Token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "invalid or expired link"})
		case errors.Is(err, service.ErrTokenExpired):
			c.JSON(http.StatusGone, gin.H{"error": "link has expired"})
		default:
			h.logger.Error("Token validation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, grant)
}
