package models

import "time"

// BillingMonthLayout is the canonical format for a billing month key: the
// first day of the month as a date string.
const BillingMonthLayout = "2006-01-02"

// Invoice statuses.
const (
	InvoiceStatusPending     = "pending"
	InvoiceStatusUnderReview = "under_review"
	InvoiceStatusPaid        = "paid"
	InvoiceStatusOverdue     = "overdue"
	InvoiceStatusWaived      = "waived"
)

// Invoice is one month's bill for an active enrollment. All amounts in paise.
type Invoice struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	EnrollmentID      uint       `gorm:"not null;uniqueIndex:idx_invoice_month,priority:1" json:"enrollment_id"`
	Enrollment        Enrollment `gorm:"foreignKey:EnrollmentID" json:"-"`
	StudentID         uint       `gorm:"not null;index" json:"student_id"`
	Student           User       `gorm:"foreignKey:StudentID" json:"-"`
	PropertyID        uint       `gorm:"not null;index" json:"property_id"`
	Property          Property   `gorm:"foreignKey:PropertyID" json:"-"`
	BillingMonth      string     `gorm:"size:10;not null;uniqueIndex:idx_invoice_month,priority:2" json:"billing_month"`
	BaseRent          int64      `gorm:"not null" json:"base_rent"`
	ElectricityAmount int64      `json:"electricity_amount"`
	LateFee           int64      `json:"late_fee"`
	Discount          int64      `json:"discount"`
	TotalAmount       int64      `gorm:"not null" json:"total_amount"`
	DueDate           string     `gorm:"size:10" json:"due_date"`
	Status            string     `gorm:"size:16;not null;default:pending;index" json:"status"`
	RazorpayOrderID   string     `gorm:"size:64;index" json:"razorpay_order_id,omitempty"`
	RazorpayPaymentID string     `gorm:"size:64" json:"razorpay_payment_id,omitempty"`
	UPITxnID          string     `gorm:"size:128" json:"upi_txn_id,omitempty"`
	PaymentProofURL   string     `gorm:"size:512" json:"payment_proof_url,omitempty"`
	PaidAt            *time.Time `json:"paid_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ElectricityBill is a metered reading for a property (optionally one room)
// in a billing month. RatePerUnit and TotalAmount in paise.
type ElectricityBill struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	PropertyID    uint      `gorm:"not null;index" json:"property_id"`
	RoomID        *uint     `json:"room_id,omitempty"`
	BillingMonth  string    `gorm:"size:10;not null;index" json:"billing_month"`
	PrevReading   int64     `json:"prev_reading"`
	CurrReading   int64     `json:"curr_reading"`
	UnitsConsumed int64     `json:"units_consumed"`
	RatePerUnit   int64     `json:"rate_per_unit"`
	TotalAmount   int64     `json:"total_amount"`
	CreatedAt     time.Time `json:"created_at"`
}

// Payment statuses and types.
const (
	PaymentStatusCaptured = "captured"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"

	PaymentTypeRent   = "rent"
	PaymentTypeRefund = "refund"
)

// Payment records one gateway or UPI settlement attempt. Amounts in paise.
type Payment struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	InvoiceID         *uint      `gorm:"index" json:"invoice_id,omitempty"`
	StudentID         *uint      `gorm:"index" json:"student_id,omitempty"`
	PropertyID        *uint      `gorm:"index" json:"property_id,omitempty"`
	Amount            int64      `gorm:"not null" json:"amount"`
	Type              string     `gorm:"size:16;not null" json:"type"`
	RazorpayOrderID   string     `gorm:"size:64;index" json:"razorpay_order_id,omitempty"`
	RazorpayPaymentID string     `gorm:"size:64" json:"razorpay_payment_id,omitempty"`
	Status            string     `gorm:"size:16;not null" json:"status"`
	PlatformFee       int64      `json:"platform_fee"`
	PaidAt            *time.Time `json:"paid_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// RevenueSnapshot accumulates captured revenue per property per day, in paise.
type RevenueSnapshot struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	PropertyID   uint      `gorm:"not null;uniqueIndex:idx_revenue_day,priority:1" json:"property_id"`
	SnapshotDate string    `gorm:"size:10;not null;uniqueIndex:idx_revenue_day,priority:2" json:"snapshot_date"`
	TotalRevenue int64     `json:"total_revenue"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
