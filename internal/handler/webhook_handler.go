package handler

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/rentease/rentease-api/internal/dto"
	"github.com/rentease/rentease-api/internal/service"
	"github.com/rentease/rentease-api/internal/utils"
)

// Gateway events must carry an event name and a payload object. The schema
// rejects junk before any business logic runs.
const webhookSchemaJSON = `{
  "type": "object",
  "required": ["event", "payload"],
  "properties": {
    "event": {"type": "string", "minLength": 1},
    "payload": {"type": "object"}
  }
}`

// WebhookVerifier checks the gateway signature over the raw body.
type WebhookVerifier interface {
	VerifyWebhookSignature(body []byte, signature string) bool
}

// WebhookHandler receives Razorpay webhook deliveries.
type WebhookHandler struct {
	payments service.PaymentService
	verifier WebhookVerifier
	schema   *jsonschema.Schema
	logger   zerolog.Logger
}

// NewWebhookHandler constructs the handler.
func NewWebhookHandler(payments service.PaymentService, verifier WebhookVerifier, logger zerolog.Logger) (*WebhookHandler, error) {
	schema, err := jsonschema.CompileString("webhook.json", webhookSchemaJSON)
	if err != nil {
		return nil, err
	}

	return &WebhookHandler{
		payments: payments,
		verifier: verifier,
		schema:   schema,
		logger:   logger.With().Str("component", "webhook_handler").Logger(),
	}, nil
}

// Register attaches the webhook endpoint under the webhooks group. The
// route is unauthenticated; the HMAC signature is the credential.
func (h *WebhookHandler) Register(router fiber.Router) {
	router.Post("/razorpay", h.receive)
}

func (h *WebhookHandler) receive(c *fiber.Ctx) error {
	body := c.Body()
	signature := c.Get("X-Razorpay-Signature")

	if !h.verifier.VerifyWebhookSignature(body, signature) {
		h.logger.Warn().Msg("webhook signature verification failed")
		return utils.SendError(c, fiber.StatusForbidden, "invalid signature")
	}

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid webhook body")
	}
	if err := h.schema.Validate(doc); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "webhook body failed validation")
	}

	var event dto.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid webhook body")
	}

	if err := h.payments.HandleWebhook(c.Context(), event); err != nil {
		if errors.Is(err, service.ErrUnknownOrder) {
			// Acknowledge orders we never issued so the gateway stops
			// redelivering them.
			h.logger.Warn().Str("event", event.Event).Msg("webhook for unknown order")
			return utils.SendSuccess(c, "ignored", nil)
		}
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "processed", nil)
}
