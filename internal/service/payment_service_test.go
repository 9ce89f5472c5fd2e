package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rentease/rentease-api/internal/dto"
	"github.com/rentease/rentease-api/internal/models"
	"github.com/rentease/rentease-api/internal/repository"
	"github.com/rentease/rentease-api/pkg/razorpay"
)

type stubOrderGateway struct {
	calls int
	err   error
}

func (g *stubOrderGateway) CreateOrder(amountPaise int64, receipt string, _ map[string]interface{}) (razorpay.Order, error) {
	if g.err != nil {
		return razorpay.Order{}, g.err
	}
	g.calls++
	return razorpay.Order{
		ID:       fmt.Sprintf("order_%s_%d", receipt, g.calls),
		Amount:   amountPaise,
		Currency: "INR",
	}, nil
}

type settledPayment struct {
	invoice  models.Invoice
	captured bool
}

type capturePaymentSink struct {
	settled chan settledPayment
}

func (c *capturePaymentSink) PaymentSettled(invoice models.Invoice, captured bool) {
	c.settled <- settledPayment{invoice: invoice, captured: captured}
}

type paymentFixture struct {
	svc     PaymentService
	gateway *stubOrderGateway
	sink    *capturePaymentSink
	db      *gorm.DB
	owner   models.User
	student models.User
	invoice models.Invoice
}

func newPaymentFixture(t *testing.T, name string) paymentFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Property{}, &models.Room{}, &models.Enrollment{},
		&models.Invoice{}, &models.Payment{}, &models.RevenueSnapshot{},
	))

	owner := models.User{FullName: "Owner", Email: name + "-owner@example.com", Role: models.RoleOwner}
	require.NoError(t, db.Create(&owner).Error)
	student := models.User{FullName: "Ravi Kumar", Email: name + "-ravi@example.com", Role: models.RoleStudent}
	require.NoError(t, db.Create(&student).Error)

	property := models.Property{OwnerID: owner.ID, Name: "Hilltop PG", BasePrice: 750000, CurrentPrice: 750000, Status: models.PropertyStatusApproved}
	require.NoError(t, db.Create(&property).Error)

	enrollment := models.Enrollment{
		StudentID:   student.ID,
		PropertyID:  property.ID,
		RoomID:      1,
		MonthlyRent: 750000,
		Status:      models.EnrollmentStatusActive,
	}
	require.NoError(t, db.Create(&enrollment).Error)

	invoice := models.Invoice{
		EnrollmentID: enrollment.ID,
		StudentID:    student.ID,
		PropertyID:   property.ID,
		BillingMonth: "2026-06-01",
		BaseRent:     750000,
		TotalAmount:  750000,
		DueDate:      "2026-06-05",
		Status:       models.InvoiceStatusPending,
	}
	require.NoError(t, db.Create(&invoice).Error)

	gateway := &stubOrderGateway{}
	sink := &capturePaymentSink{settled: make(chan settledPayment, 4)}
	svc := NewPaymentService(
		repository.NewInvoiceRepository(db),
		repository.NewPaymentRepository(db),
		repository.NewUserRepository(db),
		gateway,
		nil,
		sink,
		0.01,
		validator.New(validator.WithRequiredStructEnabled()),
		zerolog.Nop(),
	)

	return paymentFixture{svc: svc, gateway: gateway, sink: sink, db: db, owner: owner, student: student, invoice: invoice}
}

func (fx paymentFixture) awaitSettled(t *testing.T) settledPayment {
	t.Helper()
	select {
	case settled := <-fx.sink.settled:
		return settled
	case <-time.After(2 * time.Second):
		t.Fatal("expected a settlement alert")
		return settledPayment{}
	}
}

func TestCreateOrderReusesExistingOrder(t *testing.T) {
	fx := newPaymentFixture(t, "payment_order")
	ctx := context.Background()

	order, err := fx.svc.CreateOrder(ctx, fx.student, dto.CreateOrderRequest{InvoiceID: fx.invoice.ID})
	require.NoError(t, err)
	require.NotEmpty(t, order.OrderID)
	require.Equal(t, int64(750000), order.Amount)
	require.Equal(t, "INR", order.Currency)

	// Retried checkout reuses the stored order instead of minting another.
	again, err := fx.svc.CreateOrder(ctx, fx.student, dto.CreateOrderRequest{InvoiceID: fx.invoice.ID})
	require.NoError(t, err)
	require.Equal(t, order.OrderID, again.OrderID)
	require.Equal(t, 1, fx.gateway.calls)

	_, err = fx.svc.CreateOrder(ctx, fx.student, dto.CreateOrderRequest{})
	require.ErrorIs(t, err, ErrInvalidPayload)

	_, err = fx.svc.CreateOrder(ctx, fx.student, dto.CreateOrderRequest{InvoiceID: 999})
	require.ErrorIs(t, err, ErrInvoiceNotFound)

	_, err = fx.svc.CreateOrder(ctx, fx.owner, dto.CreateOrderRequest{InvoiceID: fx.invoice.ID})
	require.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, fx.db.Model(&models.Invoice{}).Where("id = ?", fx.invoice.ID).
		Update("status", models.InvoiceStatusPaid).Error)
	_, err = fx.svc.CreateOrder(ctx, fx.student, dto.CreateOrderRequest{InvoiceID: fx.invoice.ID})
	require.ErrorIs(t, err, ErrInvoiceNotPayable)
}

func TestSubmitProofParksInvoiceForReview(t *testing.T) {
	fx := newPaymentFixture(t, "payment_proof")
	ctx := context.Background()

	_, err := fx.svc.SubmitProof(ctx, fx.student, fx.invoice.ID, "", "https://img.example.com/proof.jpg")
	require.ErrorIs(t, err, ErrInvalidPayload)

	invoice, err := fx.svc.SubmitProof(ctx, fx.student, fx.invoice.ID, "UPI123456", "https://img.example.com/proof.jpg")
	require.NoError(t, err)
	require.Equal(t, models.InvoiceStatusUnderReview, invoice.Status)
	require.Equal(t, "UPI123456", invoice.UPITxnID)

	// An invoice under review is no longer payable through the gateway.
	_, err = fx.svc.CreateOrder(ctx, fx.student, dto.CreateOrderRequest{InvoiceID: fx.invoice.ID})
	require.ErrorIs(t, err, ErrInvoiceNotPayable)
}

func TestReviewConfirmSettlesWithPlatformFee(t *testing.T) {
	fx := newPaymentFixture(t, "payment_confirm")
	ctx := context.Background()

	_, err := fx.svc.Review(ctx, fx.owner, dto.PaymentReviewRequest{InvoiceID: fx.invoice.ID, Action: "confirm"})
	require.ErrorIs(t, err, ErrInvalidPayload) // still pending, nothing to review

	_, err = fx.svc.SubmitProof(ctx, fx.student, fx.invoice.ID, "UPI123456", "")
	require.NoError(t, err)

	stranger := models.User{ID: 999, Role: models.RoleOwner}
	_, err = fx.svc.Review(ctx, stranger, dto.PaymentReviewRequest{InvoiceID: fx.invoice.ID, Action: "confirm"})
	require.ErrorIs(t, err, ErrNotPropertyOwner)

	invoice, err := fx.svc.Review(ctx, fx.owner, dto.PaymentReviewRequest{InvoiceID: fx.invoice.ID, Action: "confirm"})
	require.NoError(t, err)
	require.Equal(t, models.InvoiceStatusPaid, invoice.Status)
	require.NotNil(t, invoice.PaidAt)
	require.True(t, fx.awaitSettled(t).captured)

	var payment models.Payment
	require.NoError(t, fx.db.Where("invoice_id = ?", fx.invoice.ID).First(&payment).Error)
	require.Equal(t, models.PaymentStatusCaptured, payment.Status)
	require.Equal(t, int64(750000), payment.Amount)
	require.Equal(t, int64(7500), payment.PlatformFee)

	var snapshot models.RevenueSnapshot
	require.NoError(t, fx.db.Where("property_id = ?", fx.invoice.PropertyID).First(&snapshot).Error)
	require.Equal(t, int64(742500), snapshot.TotalRevenue)
}

func TestReviewRejectReopensInvoice(t *testing.T) {
	fx := newPaymentFixture(t, "payment_rejectproof")
	ctx := context.Background()

	_, err := fx.svc.SubmitProof(ctx, fx.student, fx.invoice.ID, "UPI123456", "https://img.example.com/proof.jpg")
	require.NoError(t, err)

	invoice, err := fx.svc.Review(ctx, fx.owner, dto.PaymentReviewRequest{InvoiceID: fx.invoice.ID, Action: "reject"})
	require.NoError(t, err)
	require.Equal(t, models.InvoiceStatusPending, invoice.Status)
	require.Empty(t, invoice.UPITxnID)
	require.Empty(t, invoice.PaymentProofURL)

	var count int64
	require.NoError(t, fx.db.Model(&models.Payment{}).Count(&count).Error)
	require.Zero(t, count)
}

func webhookEvent(event, orderID, paymentID string, amount int64) dto.WebhookEvent {
	var evt dto.WebhookEvent
	evt.Event = event
	evt.Payload.Payment.Entity = dto.WebhookPaymentEntity{ID: paymentID, OrderID: orderID, Amount: amount}
	return evt
}

func TestWebhookCapturedIsIdempotent(t *testing.T) {
	fx := newPaymentFixture(t, "payment_webhook")
	ctx := context.Background()

	order, err := fx.svc.CreateOrder(ctx, fx.student, dto.CreateOrderRequest{InvoiceID: fx.invoice.ID})
	require.NoError(t, err)

	require.ErrorIs(t,
		fx.svc.HandleWebhook(ctx, webhookEvent("payment.captured", "order_unknown", "pay_1", 750000)),
		ErrUnknownOrder)

	require.NoError(t, fx.svc.HandleWebhook(ctx, webhookEvent("payment.captured", order.OrderID, "pay_1", 750000)))
	settled := fx.awaitSettled(t)
	require.True(t, settled.captured)
	// The owner alert needs the invoice's property; a settlement arriving
	// with a zero-valued Property would silently skip it.
	require.Equal(t, fx.owner.ID, settled.invoice.Property.OwnerID)
	require.Equal(t, "Ravi Kumar", settled.invoice.Student.FullName)

	var invoice models.Invoice
	require.NoError(t, fx.db.First(&invoice, fx.invoice.ID).Error)
	require.Equal(t, models.InvoiceStatusPaid, invoice.Status)
	require.Equal(t, "pay_1", invoice.RazorpayPaymentID)

	// Gateways redeliver; the settled invoice must not double-book.
	require.NoError(t, fx.svc.HandleWebhook(ctx, webhookEvent("payment.captured", order.OrderID, "pay_1", 750000)))

	var count int64
	require.NoError(t, fx.db.Model(&models.Payment{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestWebhookFailedAndRefundEvents(t *testing.T) {
	fx := newPaymentFixture(t, "payment_webhook_misc")
	ctx := context.Background()

	order, err := fx.svc.CreateOrder(ctx, fx.student, dto.CreateOrderRequest{InvoiceID: fx.invoice.ID})
	require.NoError(t, err)

	require.NoError(t, fx.svc.HandleWebhook(ctx, webhookEvent("payment.failed", order.OrderID, "pay_f1", 750000)))
	require.False(t, fx.awaitSettled(t).captured)

	var failed models.Payment
	require.NoError(t, fx.db.Where("razorpay_payment_id = ?", "pay_f1").First(&failed).Error)
	require.Equal(t, models.PaymentStatusFailed, failed.Status)

	// A failed attempt leaves the invoice payable.
	var invoice models.Invoice
	require.NoError(t, fx.db.First(&invoice, fx.invoice.ID).Error)
	require.Equal(t, models.InvoiceStatusPending, invoice.Status)

	var refundEvt dto.WebhookEvent
	refundEvt.Event = "refund.processed"
	refundEvt.Payload.Refund.Entity = dto.WebhookRefundEntity{ID: "rfnd_1", PaymentID: "pay_f1", Amount: 750000}
	require.NoError(t, fx.svc.HandleWebhook(ctx, refundEvt))

	var refund models.Payment
	require.NoError(t, fx.db.Where("type = ?", models.PaymentTypeRefund).First(&refund).Error)
	require.Equal(t, models.PaymentStatusRefunded, refund.Status)

	// The refund inherits the original payment's attribution so the invoice,
	// student, and property stay linked to the returned money.
	require.NotNil(t, refund.InvoiceID)
	require.Equal(t, fx.invoice.ID, *refund.InvoiceID)
	require.NotNil(t, refund.StudentID)
	require.Equal(t, fx.student.ID, *refund.StudentID)
	require.NotNil(t, refund.PropertyID)
	require.Equal(t, fx.invoice.PropertyID, *refund.PropertyID)

	// Unrecognised event types are ignored.
	require.NoError(t, fx.svc.HandleWebhook(ctx, webhookEvent("payment.authorized", order.OrderID, "pay_a1", 750000)))
}
