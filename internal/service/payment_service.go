package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/rentease/rentease-api/internal/dto"
	"github.com/rentease/rentease-api/internal/models"
	"github.com/rentease/rentease-api/internal/observability"
	"github.com/rentease/rentease-api/internal/repository"
	"github.com/rentease/rentease-api/pkg/mailer"
	"github.com/rentease/rentease-api/pkg/razorpay"
)

// ErrInvoiceNotPayable indicates the invoice is already settled or waived.
var ErrInvoiceNotPayable = errors.New("invoice not payable")

// ErrUnknownOrder indicates a webhook referenced an order we never created.
var ErrUnknownOrder = errors.New("unknown payment order")

// OrderGateway creates payment orders. Satisfied by the razorpay client.
type OrderGateway interface {
	CreateOrder(amountPaise int64, receipt string, notes map[string]interface{}) (razorpay.Order, error)
}

// PaymentAlertSink receives settlement events for alerting.
type PaymentAlertSink interface {
	PaymentSettled(invoice models.Invoice, captured bool)
}

// PaymentService handles gateway orders, UPI proof review, and webhook
// settlement.
type PaymentService interface {
	CreateOrder(ctx context.Context, student models.User, payload dto.CreateOrderRequest) (dto.OrderResponse, error)
	SubmitProof(ctx context.Context, student models.User, invoiceID uint, upiTxnID, proofURL string) (models.Invoice, error)
	Review(ctx context.Context, owner models.User, payload dto.PaymentReviewRequest) (models.Invoice, error)
	HandleWebhook(ctx context.Context, event dto.WebhookEvent) error
}

type paymentService struct {
	invoices    repository.InvoiceRepository
	payments    repository.PaymentRepository
	users       repository.UserRepository
	gateway     OrderGateway
	mail        *mailer.Mailer
	alerts      PaymentAlertSink
	platformFee float64
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewPaymentService builds the payment service. platformFee is a fraction,
// e.g. 0.01 for 1%.
func NewPaymentService(
	invoices repository.InvoiceRepository,
	payments repository.PaymentRepository,
	users repository.UserRepository,
	gateway OrderGateway,
	mail *mailer.Mailer,
	alerts PaymentAlertSink,
	platformFee float64,
	validate *validator.Validate,
	logger zerolog.Logger,
) PaymentService {
	return &paymentService{
		invoices:    invoices,
		payments:    payments,
		users:       users,
		gateway:     gateway,
		mail:        mail,
		alerts:      alerts,
		platformFee: platformFee,
		validator:   validate,
		logger:      logger.With().Str("component", "payment_service").Logger(),
		now:         time.Now,
	}
}

// CreateOrder returns a gateway order for an invoice, reusing any order
// created earlier so retried checkouts do not pile up orders.
func (s *paymentService) CreateOrder(ctx context.Context, student models.User, payload dto.CreateOrderRequest) (dto.OrderResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.OrderResponse{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	invoice, err := s.payableInvoice(ctx, student, payload.InvoiceID)
	if err != nil {
		return dto.OrderResponse{}, err
	}

	if invoice.RazorpayOrderID != "" {
		return dto.OrderResponse{
			OrderID:   invoice.RazorpayOrderID,
			Amount:    invoice.TotalAmount,
			Currency:  "INR",
			InvoiceID: invoice.ID,
		}, nil
	}

	order, err := s.gateway.CreateOrder(invoice.TotalAmount, fmt.Sprintf("inv-%d", invoice.ID), map[string]interface{}{
		"invoice_id": invoice.ID,
		"student_id": invoice.StudentID,
	})
	if err != nil {
		return dto.OrderResponse{}, err
	}

	invoice.RazorpayOrderID = order.ID
	if err := s.invoices.Save(ctx, &invoice); err != nil {
		return dto.OrderResponse{}, err
	}

	return dto.OrderResponse{
		OrderID:   order.ID,
		Amount:    order.Amount,
		Currency:  order.Currency,
		InvoiceID: invoice.ID,
	}, nil
}

// SubmitProof attaches a UPI transaction reference and proof image to an
// invoice and parks it for owner review.
func (s *paymentService) SubmitProof(ctx context.Context, student models.User, invoiceID uint, upiTxnID, proofURL string) (models.Invoice, error) {
	if upiTxnID == "" {
		return models.Invoice{}, fmt.Errorf("%w: upi transaction id required", ErrInvalidPayload)
	}

	invoice, err := s.payableInvoice(ctx, student, invoiceID)
	if err != nil {
		return models.Invoice{}, err
	}

	invoice.UPITxnID = upiTxnID
	invoice.PaymentProofURL = proofURL
	invoice.Status = models.InvoiceStatusUnderReview
	if err := s.invoices.Save(ctx, &invoice); err != nil {
		return models.Invoice{}, err
	}

	s.logger.Info().Uint("invoice_id", invoice.ID).Msg("payment proof submitted")

	return invoice, nil
}

// Review settles or rejects a UPI payment proof.
func (s *paymentService) Review(ctx context.Context, owner models.User, payload dto.PaymentReviewRequest) (models.Invoice, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.Invoice{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	invoice, err := s.invoices.GetByID(ctx, payload.InvoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Invoice{}, ErrInvoiceNotFound
		}
		return models.Invoice{}, err
	}
	if invoice.Property.OwnerID != owner.ID {
		return models.Invoice{}, ErrNotPropertyOwner
	}
	if invoice.Status != models.InvoiceStatusUnderReview {
		return models.Invoice{}, fmt.Errorf("%w: invoice is %s", ErrInvalidPayload, invoice.Status)
	}

	if payload.Action == "confirm" {
		if err := s.settle(ctx, &invoice, "", invoice.TotalAmount); err != nil {
			return models.Invoice{}, err
		}
	} else {
		invoice.Status = models.InvoiceStatusPending
		invoice.UPITxnID = ""
		invoice.PaymentProofURL = ""
		if err := s.invoices.Save(ctx, &invoice); err != nil {
			return models.Invoice{}, err
		}
	}

	return invoice, nil
}

// HandleWebhook applies a verified gateway event. Unknown event types are
// ignored so new gateway features cannot break settlement.
func (s *paymentService) HandleWebhook(ctx context.Context, event dto.WebhookEvent) error {
	switch event.Event {
	case "payment.captured":
		return s.handleCaptured(ctx, event.Payload.Payment.Entity)
	case "payment.failed":
		return s.handleFailed(ctx, event.Payload.Payment.Entity)
	case "refund.processed":
		return s.handleRefund(ctx, event.Payload.Refund.Entity)
	default:
		s.logger.Debug().Str("event", event.Event).Msg("ignoring webhook event")
		return nil
	}
}

func (s *paymentService) handleCaptured(ctx context.Context, entity dto.WebhookPaymentEntity) error {
	invoice, err := s.invoices.GetByOrderID(ctx, entity.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnknownOrder
		}
		return err
	}

	if invoice.Status == models.InvoiceStatusPaid {
		// Gateways redeliver webhooks; a settled invoice stays settled.
		return nil
	}

	return s.settle(ctx, &invoice, entity.ID, entity.Amount)
}

func (s *paymentService) handleFailed(ctx context.Context, entity dto.WebhookPaymentEntity) error {
	invoice, err := s.invoices.GetByOrderID(ctx, entity.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnknownOrder
		}
		return err
	}

	payment := models.Payment{
		InvoiceID:         &invoice.ID,
		StudentID:         &invoice.StudentID,
		PropertyID:        &invoice.PropertyID,
		Amount:            entity.Amount,
		Type:              models.PaymentTypeRent,
		RazorpayOrderID:   entity.OrderID,
		RazorpayPaymentID: entity.ID,
		Status:            models.PaymentStatusFailed,
	}
	if err := s.payments.Create(ctx, &payment); err != nil {
		return err
	}

	observability.PaymentsTotal().WithLabelValues(models.PaymentStatusFailed).Inc()

	if s.mail != nil {
		if student, err := s.users.GetByID(ctx, invoice.StudentID); err == nil && student.Email != "" {
			subject, body := mailer.PaymentFailedEmail(student.FullName, entity.Amount)
			if err := s.mail.Send(ctx, student.Email, subject, body); err != nil {
				s.logger.Warn().Err(err).Msg("payment failed email not delivered")
			}
		}
	}
	if s.alerts != nil {
		go s.alerts.PaymentSettled(invoice, false)
	}

	return nil
}

func (s *paymentService) handleRefund(ctx context.Context, entity dto.WebhookRefundEntity) error {
	payment := models.Payment{
		Amount:            entity.Amount,
		Type:              models.PaymentTypeRefund,
		RazorpayPaymentID: entity.PaymentID,
		Status:            models.PaymentStatusRefunded,
	}

	// The refund event only names the gateway payment id; attribute the
	// refund to the original settlement so owner revenue views see it.
	original, err := s.payments.GetByGatewayPaymentID(ctx, entity.PaymentID)
	if err == nil {
		payment.InvoiceID = original.InvoiceID
		payment.StudentID = original.StudentID
		payment.PropertyID = original.PropertyID
		payment.RazorpayOrderID = original.RazorpayOrderID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if err := s.payments.Create(ctx, &payment); err != nil {
		return err
	}

	observability.PaymentsTotal().WithLabelValues(models.PaymentStatusRefunded).Inc()
	s.logger.Info().Str("payment_id", entity.PaymentID).Int64("amount", entity.Amount).Msg("refund processed")

	return nil
}

func (s *paymentService) settle(ctx context.Context, invoice *models.Invoice, gatewayPaymentID string, amount int64) error {
	paidAt := s.now().UTC()
	invoice.Status = models.InvoiceStatusPaid
	invoice.RazorpayPaymentID = gatewayPaymentID
	invoice.PaidAt = &paidAt
	if err := s.invoices.Save(ctx, invoice); err != nil {
		return err
	}

	fee := int64(float64(amount) * s.platformFee)
	payment := models.Payment{
		InvoiceID:         &invoice.ID,
		StudentID:         &invoice.StudentID,
		PropertyID:        &invoice.PropertyID,
		Amount:            amount,
		Type:              models.PaymentTypeRent,
		RazorpayOrderID:   invoice.RazorpayOrderID,
		RazorpayPaymentID: gatewayPaymentID,
		Status:            models.PaymentStatusCaptured,
		PlatformFee:       fee,
		PaidAt:            &paidAt,
	}
	if err := s.payments.Create(ctx, &payment); err != nil {
		return err
	}

	// Owner revenue per day, net of the platform fee.
	day := paidAt.Format(models.BillingMonthLayout)
	if err := s.payments.AddDailyRevenue(ctx, invoice.PropertyID, day, amount-fee); err != nil {
		s.logger.Error().Err(err).Uint("property_id", invoice.PropertyID).Msg("revenue snapshot update failed")
	}

	observability.PaymentsTotal().WithLabelValues(models.PaymentStatusCaptured).Inc()

	if s.mail != nil {
		if student, err := s.users.GetByID(ctx, invoice.StudentID); err == nil && student.Email != "" {
			if month, perr := time.Parse(models.BillingMonthLayout, invoice.BillingMonth); perr == nil {
				subject, body := mailer.PaymentSuccessEmail(student.FullName, amount, month)
				if err := s.mail.Send(ctx, student.Email, subject, body); err != nil {
					s.logger.Warn().Err(err).Msg("payment success email not delivered")
				}
			}
		}
	}
	if s.alerts != nil {
		go s.alerts.PaymentSettled(*invoice, true)
	}

	s.logger.Info().Uint("invoice_id", invoice.ID).Int64("amount", amount).Msg("invoice settled")

	return nil
}

func (s *paymentService) payableInvoice(ctx context.Context, student models.User, invoiceID uint) (models.Invoice, error) {
	invoice, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Invoice{}, ErrInvoiceNotFound
		}
		return models.Invoice{}, err
	}
	if invoice.StudentID != student.ID {
		return models.Invoice{}, ErrForbidden
	}
	switch invoice.Status {
	case models.InvoiceStatusPending, models.InvoiceStatusOverdue:
		return invoice, nil
	default:
		return models.Invoice{}, ErrInvoiceNotPayable
	}
}
