// Package razorpay wraps the Razorpay SDK with order creation and signature
// verification as used by the billing and payment flows.
package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"

	rzp "github.com/razorpay/razorpay-go"
	"github.com/rs/zerolog"
)

// Config contains gateway credentials.
type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
}

// Order is a created gateway order. Amount in paise.
type Order struct {
	ID       string
	Amount   int64
	Currency string
}

// Client talks to the Razorpay orders API.
type Client struct {
	api    *rzp.Client
	cfg    Config
	logger zerolog.Logger
}

// New constructs a gateway client.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		return nil, fmt.Errorf("razorpay credentials must be provided")
	}

	return &Client{
		api:    rzp.NewClient(cfg.KeyID, cfg.KeySecret),
		cfg:    cfg,
		logger: logger.With().Str("component", "razorpay").Logger(),
	}, nil
}

// CreateOrder creates an INR order for the given amount in paise.
func (c *Client) CreateOrder(amountPaise int64, receipt string, notes map[string]interface{}) (Order, error) {
	data := map[string]interface{}{
		"amount":   amountPaise,
		"currency": "INR",
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	body, err := c.api.Order.Create(data, nil)
	if err != nil {
		return Order{}, fmt.Errorf("failed to create razorpay order: %w", err)
	}

	order := Order{Currency: "INR"}
	if id, ok := body["id"].(string); ok {
		order.ID = id
	}
	if order.ID == "" {
		return Order{}, fmt.Errorf("razorpay order response missing id")
	}
	if currency, ok := body["currency"].(string); ok && currency != "" {
		order.Currency = currency
	}
	order.Amount = amountFromResponse(body["amount"], amountPaise)

	c.logger.Info().Str("order_id", order.ID).Int64("amount", order.Amount).Msg("razorpay order created")

	return order, nil
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header against the
// raw webhook body.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	return VerifyHMAC(body, signature, c.cfg.WebhookSecret)
}

// VerifyPaymentSignature checks a client-side checkout callback signature.
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	payload := fmt.Sprintf("%s|%s", orderID, paymentID)
	return VerifyHMAC([]byte(payload), signature, c.cfg.KeySecret)
}

// VerifyHMAC compares an expected HMAC-SHA256 hex digest of payload against
// the given signature in constant time.
func VerifyHMAC(payload []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

func amountFromResponse(value interface{}, fallback int64) int64 {
	switch v := value.(type) {
	case float64:
		return int64(v)
	case json.Number:
		if parsed, err := v.Int64(); err == nil {
			return parsed
		}
	case int64:
		return v
	}
	return fallback
}
