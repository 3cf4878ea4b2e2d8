package handlers

import (
	"errors"
	"io"
	"net/http"

	"bookflow/config"
	"bookflow/services/booking"
	"bookflow/services/webhook"
	"bookflow/utils"

	"github.com/gin-gonic/gin"
	stripewebhook "github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

// Signature header used by the scheduling provider.
const schedulingSignatureHeader = "X-Webhook-Signature"

// WebhookHandler terminates inbound provider webhooks: it verifies
// signatures, then hands the payload to the orchestration service. A store
// failure returns 5xx so the provider retries; an unactionable payload is
// acknowledged with 200.
type WebhookHandler struct {
	Service booking.OrchestrationService
	Gate    *webhook.SecurityGate
}

func NewWebhookHandler(service booking.OrchestrationService, gate *webhook.SecurityGate) *WebhookHandler {
	return &WebhookHandler{Service: service, Gate: gate}
}

// HandleSchedulingWebhook processes invitee.created / invitee.canceled.
func (h *WebhookHandler) HandleSchedulingWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "failed to read webhook body", err.Error())
		return
	}

	if err := h.Gate.Verify(c.GetHeader(schedulingSignatureHeader), body); err != nil {
		var sigErr *webhook.SignatureError
		if errors.As(err, &sigErr) {
			status := http.StatusUnauthorized
			if sigErr.Code == webhook.CodeConfigurationError {
				status = http.StatusInternalServerError
			}
			utils.JSONError(c, status, "webhook rejected", sigErr.Code)
			return
		}
		utils.JSONError(c, http.StatusUnauthorized, "webhook rejected", err.Error())
		return
	}

	result, err := h.Service.HandleSchedulingWebhook(c.Request.Context(), c.GetHeader("X-Webhook-Event"), body)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to process webhook", err.Error())
		return
	}
	if result == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "processed", "result": result})
}

// HandlePaymentWebhook processes checkout and payment-intent events. The
// payment provider signs with its own scheme, verified via the stripe SDK.
func (h *WebhookHandler) HandlePaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "failed to read webhook body", err.Error())
		return
	}

	event, err := stripewebhook.ConstructEvent(body, c.GetHeader("Stripe-Signature"), config.AppConfig.StripeWebhookSecret)
	if err != nil {
		utils.GetLogger().Warn("payment webhook signature rejected", zap.Error(err))
		utils.JSONError(c, http.StatusUnauthorized, "webhook rejected", "invalid_signature")
		return
	}

	result, err := h.Service.HandlePaymentWebhook(c.Request.Context(), event)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to process webhook", err.Error())
		return
	}
	if result == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "processed", "result": result})
}
