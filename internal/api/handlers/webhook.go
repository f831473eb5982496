// Package handlers provides HTTP request handlers for the AuthorHash API.
// It includes the payment webhook that issues certificates, public lookup
// endpoints, the email access-token flow, and the operator surface.
package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/librisventures/authorhash/internal/config"
	"github.com/librisventures/authorhash/internal/service"
	"go.uber.org/zap"
)

// WebhookHandler handles payment provider webhooks
type WebhookHandler struct {
	registry *service.RegistryService
	cfg      *config.Config
	logger   *zap.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(registry *service.RegistryService, cfg *config.Config, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		registry: registry,
		cfg:      cfg,
		logger:   logger,
	}
}

// paymentEvent is the explicit schema for the payment provider's webhook
// body. Unknown fields never reach storage.
type paymentEvent struct {
	EventType string `json:"event_type"`
	Data      struct {
		ID         string `json:"id"`
		CustomData struct {
			HashSHA256      string `json:"hash_sha256"`
			RegistrantEmail string `json:"registrant_email"`
			ProofBase64     string `json:"proof_base64"`
			Timestamp       string `json:"timestamp"`
		} `json:"custom_data"`
	} `json:"data"`
}

// verifySignature checks the hex HMAC-SHA256 of the raw body against the
// configured webhook secret using a constant-time compare
func verifySignature(body []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// HandlePayment processes a payment confirmation event and issues a
// certificate. Events other than transaction.completed are acknowledged
// and ignored so the provider stops retrying them.
// @Summary Payment webhook
// @Description Issue a certificate on a confirmed payment event
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/v1/webhooks/payment [post]
func (h *WebhookHandler) HandlePayment(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	if h.cfg.Payments.WebhookSecret != "" {
		signature := c.GetHeader("X-Webhook-Signature")
		if signature == "" || !verifySignature(body, signature, h.cfg.Payments.WebhookSecret) {
			h.logger.Warn("Webhook signature verification failed", zap.String("ip", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
	}

	var event paymentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if event.EventType != "transaction.completed" {
		c.String(http.StatusOK, "OK")
		return
	}

	customData := event.Data.CustomData
	if customData.HashSHA256 == "" {
		h.logger.Error("Missing hash_sha256 in webhook custom_data",
			zap.String("transaction_id", event.Data.ID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing hash data"})
		return
	}

	var proof []byte
	if customData.ProofBase64 != "" {
		proof, err = base64.StdEncoding.DecodeString(customData.ProofBase64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proof encoding"})
			return
		}
	}

	var registeredAt int64
	if customData.Timestamp != "" {
		if ms, err := strconv.ParseInt(customData.Timestamp, 10, 64); err == nil {
			registeredAt = ms
		}
	}

	cert, err := h.registry.Issue(c.Request.Context(), &service.IssueRequest{
		ContentHash:          customData.HashSHA256,
		RegistrantEmail:      customData.RegistrantEmail,
		AnchorProof:          proof,
		PaymentTransactionID: event.Data.ID,
		RegisteredAt:         registeredAt,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidHash) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid content hash"})
			return
		}
		// ErrReferenceExhausted and storage failures are server errors;
		// the payment provider retries the webhook
		h.logger.Error("Certificate issuance failed",
			zap.String("transaction_id", event.Data.ID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue certificate"})
		return
	}

	h.logger.Info("Certificate issued",
		zap.String("reference", cert.Reference),
		zap.String("content_hash", cert.ContentHash[:16]+"..."),
	)

	c.JSON(http.StatusOK, gin.H{"reference": cert.Reference})
}
