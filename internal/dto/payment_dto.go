package dto

// CreateOrderRequest asks the gateway for a payment order against an invoice.
type CreateOrderRequest struct {
	InvoiceID uint `json:"invoiceId" validate:"required"`
}

// OrderResponse carries the gateway order handed to the client checkout.
type OrderResponse struct {
	OrderID   string `json:"orderId"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	InvoiceID uint   `json:"invoiceId"`
}

// PaymentReviewRequest is an owner's verdict on a UPI payment proof.
type PaymentReviewRequest struct {
	InvoiceID uint   `json:"invoiceId" validate:"required"`
	Action    string `json:"action" validate:"required,oneof=confirm reject"`
}

// WebhookEvent is the subset of the Razorpay webhook body the service acts on.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity WebhookPaymentEntity `json:"entity"`
		} `json:"payment"`
		Refund struct {
			Entity WebhookRefundEntity `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

// WebhookPaymentEntity is the payment object inside a webhook event.
type WebhookPaymentEntity struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
	Status  string `json:"status"`
}

// WebhookRefundEntity is the refund object inside a webhook event.
type WebhookRefundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
}
