package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/rentease/rentease-api/internal/models"
)

// InvoiceRepository provides access to monthly invoices.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *models.Invoice) error
	GetByID(ctx context.Context, id uint) (models.Invoice, error)
	GetForEnrollmentMonth(ctx context.Context, enrollmentID uint, billingMonth string) (models.Invoice, error)
	GetByOrderID(ctx context.Context, orderID string) (models.Invoice, error)
	ListUnpaidForMonth(ctx context.Context, billingMonth string) ([]models.Invoice, error)
	ListForStudent(ctx context.Context, studentID uint) ([]models.Invoice, error)
	ListForProperties(ctx context.Context, propertyIDs []uint) ([]models.Invoice, error)
	Save(ctx context.Context, invoice *models.Invoice) error
}

type invoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository constructs an invoice repository.
func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *invoiceRepository) GetByID(ctx context.Context, id uint) (models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Property").
		First(&invoice, id).Error
	if err != nil {
		return models.Invoice{}, err
	}

	return invoice, nil
}

func (r *invoiceRepository) GetForEnrollmentMonth(ctx context.Context, enrollmentID uint, billingMonth string) (models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Where("enrollment_id = ? AND billing_month = ?", enrollmentID, billingMonth).
		First(&invoice).Error
	if err != nil {
		return models.Invoice{}, err
	}

	return invoice, nil
}

func (r *invoiceRepository) GetByOrderID(ctx context.Context, orderID string) (models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Property").
		Where("razorpay_order_id = ?", orderID).
		First(&invoice).Error
	if err != nil {
		return models.Invoice{}, err
	}

	return invoice, nil
}

func (r *invoiceRepository) ListUnpaidForMonth(ctx context.Context, billingMonth string) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("billing_month = ? AND status NOT IN ?", billingMonth,
			[]string{models.InvoiceStatusPaid, models.InvoiceStatusWaived}).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}

	return invoices, nil
}

func (r *invoiceRepository) ListForStudent(ctx context.Context, studentID uint) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Property").
		Where("student_id = ?", studentID).
		Order("billing_month DESC").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}

	return invoices, nil
}

func (r *invoiceRepository) ListForProperties(ctx context.Context, propertyIDs []uint) ([]models.Invoice, error) {
	if len(propertyIDs) == 0 {
		return []models.Invoice{}, nil
	}

	var invoices []models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("property_id IN ?", propertyIDs).
		Order("billing_month DESC").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}

	return invoices, nil
}

func (r *invoiceRepository) Save(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Save(invoice).Error
}
