package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rentease/rentease-api/internal/models"
	"github.com/rentease/rentease-api/internal/repository"
)

type captureInvoiceSink struct {
	generated chan models.Invoice
	overdue   chan models.Invoice
}

func newCaptureInvoiceSink() *captureInvoiceSink {
	return &captureInvoiceSink{
		generated: make(chan models.Invoice, 8),
		overdue:   make(chan models.Invoice, 8),
	}
}

func (c *captureInvoiceSink) InvoiceGenerated(invoice models.Invoice) { c.generated <- invoice }
func (c *captureInvoiceSink) InvoiceOverdue(invoice models.Invoice)   { c.overdue <- invoice }

type billingFixture struct {
	svc      BillingService
	sink     *captureInvoiceSink
	db       *gorm.DB
	student  models.User
	property models.Property
}

func newBillingFixture(t *testing.T, name string) billingFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Property{}, &models.Room{}, &models.Enrollment{},
		&models.Invoice{}, &models.ElectricityBill{},
	))

	owner := models.User{FullName: "Owner", Email: name + "-owner@example.com", Role: models.RoleOwner}
	require.NoError(t, db.Create(&owner).Error)
	student := models.User{FullName: "Ravi Kumar", Email: name + "-ravi@example.com", Role: models.RoleStudent}
	require.NoError(t, db.Create(&student).Error)

	property := models.Property{OwnerID: owner.ID, Name: "Hilltop PG", BasePrice: 750000, CurrentPrice: 750000, Status: models.PropertyStatusApproved}
	require.NoError(t, db.Create(&property).Error)
	room := models.Room{PropertyID: property.ID, RoomNumber: "1A", Capacity: 2, Occupied: 1}
	require.NoError(t, db.Create(&room).Error)

	activated := time.Now().UTC().AddDate(0, -1, 0)
	enrollment := models.Enrollment{
		StudentID:   student.ID,
		PropertyID:  property.ID,
		RoomID:      room.ID,
		MonthlyRent: 750000,
		Status:      models.EnrollmentStatusActive,
		ActivatedAt: &activated,
	}
	require.NoError(t, db.Create(&enrollment).Error)

	sink := newCaptureInvoiceSink()
	svc := NewBillingService(
		repository.NewInvoiceRepository(db),
		repository.NewEnrollmentRepository(db),
		repository.NewElectricityRepository(db),
		repository.NewPropertyRepository(db),
		repository.NewUserRepository(db),
		nil,
		sink,
		4, 2,
		zerolog.Nop(),
	)

	return billingFixture{svc: svc, sink: sink, db: db, student: student, property: property}
}

func TestMonthlyBillingIsIdempotent(t *testing.T) {
	fx := newBillingFixture(t, "billing_idem")
	ctx := context.Background()
	month := time.Date(2026, 4, 17, 12, 0, 0, 0, time.UTC)

	first, err := fx.svc.RunMonthlyBilling(ctx, month)
	require.NoError(t, err)
	require.Equal(t, "2026-04-01", first.BillingMonth)
	require.Equal(t, 1, first.Generated)
	require.Zero(t, first.Skipped)

	var invoice models.Invoice
	require.NoError(t, fx.db.First(&invoice).Error)
	require.EqualValues(t, 750000, invoice.BaseRent)
	require.EqualValues(t, 750000, invoice.TotalAmount)
	require.Equal(t, "2026-04-05", invoice.DueDate)
	require.Equal(t, models.InvoiceStatusPending, invoice.Status)

	// Re-running the same month generates nothing new.
	second, err := fx.svc.RunMonthlyBilling(ctx, month)
	require.NoError(t, err)
	require.Zero(t, second.Generated)
	require.Equal(t, 1, second.Skipped)

	var count int64
	require.NoError(t, fx.db.Model(&models.Invoice{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	select {
	case generated := <-fx.sink.generated:
		require.Equal(t, invoice.ID, generated.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("expected invoice generated alert")
	}
}

func TestMonthlyBillingSplitsElectricity(t *testing.T) {
	fx := newBillingFixture(t, "billing_elec")
	ctx := context.Background()

	// Second active tenant at the same property.
	other := models.User{FullName: "Meena Iyer", Email: "billing-elec-meena@example.com", Role: models.RoleStudent}
	require.NoError(t, fx.db.Create(&other).Error)
	activated := time.Now().UTC().AddDate(0, -1, 0)
	require.NoError(t, fx.db.Create(&models.Enrollment{
		StudentID:   other.ID,
		PropertyID:  fx.property.ID,
		RoomID:      1,
		MonthlyRent: 650000,
		Status:      models.EnrollmentStatusActive,
		ActivatedAt: &activated,
	}).Error)

	require.NoError(t, fx.db.Create(&models.ElectricityBill{
		PropertyID:    fx.property.ID,
		BillingMonth:  "2026-05-01",
		UnitsConsumed: 120,
		RatePerUnit:   800,
		TotalAmount:   96000,
	}).Error)

	result, err := fx.svc.RunMonthlyBilling(ctx, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 2, result.Generated)

	var invoices []models.Invoice
	require.NoError(t, fx.db.Order("id").Find(&invoices).Error)
	require.Len(t, invoices, 2)
	for _, invoice := range invoices {
		require.EqualValues(t, 48000, invoice.ElectricityAmount)
		require.Equal(t, invoice.BaseRent+48000, invoice.TotalAmount)
	}
}

func TestRemindersEscalationLadder(t *testing.T) {
	fx := newBillingFixture(t, "billing_ladder")
	ctx := context.Background()

	_, err := fx.svc.RunMonthlyBilling(ctx, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// Day 3: too early for any rung.
	result, err := fx.svc.RunReminders(ctx, time.Date(2026, 6, 3, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Zero(t, result.Reminders+result.LateFees+result.Flagged)

	// Day 5: reminder only.
	result, err = fx.svc.RunReminders(ctx, time.Date(2026, 6, 5, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 1, result.Reminders)
	require.Zero(t, result.LateFees)

	// Day 10: one-time 2% late fee, invoice goes overdue.
	result, err = fx.svc.RunReminders(ctx, time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 1, result.LateFees)

	var invoice models.Invoice
	require.NoError(t, fx.db.First(&invoice).Error)
	require.EqualValues(t, 15000, invoice.LateFee)
	require.EqualValues(t, 765000, invoice.TotalAmount)
	require.Equal(t, models.InvoiceStatusOverdue, invoice.Status)

	// Day 11: the fee is never applied twice.
	result, err = fx.svc.RunReminders(ctx, time.Date(2026, 6, 11, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Zero(t, result.LateFees)
	require.NoError(t, fx.db.First(&invoice).Error)
	require.EqualValues(t, 15000, invoice.LateFee)
	require.EqualValues(t, 765000, invoice.TotalAmount)

	// Day 15: the account is flagged once.
	result, err = fx.svc.RunReminders(ctx, time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 1, result.Flagged)

	var student models.User
	require.NoError(t, fx.db.First(&student, fx.student.ID).Error)
	require.True(t, student.AccountFlagged)

	result, err = fx.svc.RunReminders(ctx, time.Date(2026, 6, 16, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Zero(t, result.Flagged)
}

func TestRemindersSkipPaidInvoices(t *testing.T) {
	fx := newBillingFixture(t, "billing_paid")
	ctx := context.Background()

	_, err := fx.svc.RunMonthlyBilling(ctx, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	paidAt := time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, fx.db.Model(&models.Invoice{}).Where("1 = 1").Updates(map[string]interface{}{
		"status":  models.InvoiceStatusPaid,
		"paid_at": paidAt,
	}).Error)

	result, err := fx.svc.RunReminders(ctx, time.Date(2026, 7, 12, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Zero(t, result.Reminders+result.LateFees+result.Flagged)
}
