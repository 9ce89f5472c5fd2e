package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rentease/rentease-api/internal/models"
)

// ElectricityRepository provides access to metered electricity bills.
type ElectricityRepository interface {
	Create(ctx context.Context, bill *models.ElectricityBill) error
	// TotalForPropertyMonth sums recorded electricity charges (in paise) for
	// the property in the given billing month.
	TotalForPropertyMonth(ctx context.Context, propertyID uint, billingMonth string) (int64, error)
	ListForProperty(ctx context.Context, propertyID uint) ([]models.ElectricityBill, error)
}

type electricityRepository struct {
	db *gorm.DB
}

// NewElectricityRepository constructs an electricity bill repository.
func NewElectricityRepository(db *gorm.DB) ElectricityRepository {
	return &electricityRepository{db: db}
}

func (r *electricityRepository) Create(ctx context.Context, bill *models.ElectricityBill) error {
	return r.db.WithContext(ctx).Create(bill).Error
}

func (r *electricityRepository) TotalForPropertyMonth(ctx context.Context, propertyID uint, billingMonth string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.ElectricityBill{}).
		Where("property_id = ? AND billing_month = ?", propertyID, billingMonth).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}

	return total, nil
}

func (r *electricityRepository) ListForProperty(ctx context.Context, propertyID uint) ([]models.ElectricityBill, error) {
	var bills []models.ElectricityBill
	err := r.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("billing_month DESC").
		Find(&bills).Error
	if err != nil {
		return nil, err
	}

	return bills, nil
}

// PaymentRepository records settlement attempts and revenue aggregates.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	// GetByGatewayPaymentID returns the most recent payment row carrying the
	// gateway's payment id. Refund events only reference that id.
	GetByGatewayPaymentID(ctx context.Context, razorpayPaymentID string) (models.Payment, error)
	// AddDailyRevenue upserts the per-property revenue snapshot for the day.
	AddDailyRevenue(ctx context.Context, propertyID uint, snapshotDate string, amount int64) error
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository constructs a payment repository.
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepository) GetByGatewayPaymentID(ctx context.Context, razorpayPaymentID string) (models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("razorpay_payment_id = ?", razorpayPaymentID).
		Order("id DESC").
		First(&payment).Error
	if err != nil {
		return models.Payment{}, err
	}

	return payment, nil
}

func (r *paymentRepository) AddDailyRevenue(ctx context.Context, propertyID uint, snapshotDate string, amount int64) error {
	snapshot := models.RevenueSnapshot{
		PropertyID:   propertyID,
		SnapshotDate: snapshotDate,
		TotalRevenue: amount,
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "property_id"}, {Name: "snapshot_date"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"total_revenue": gorm.Expr("revenue_snapshots.total_revenue + ?", amount),
			}),
		}).
		Create(&snapshot).Error
}
