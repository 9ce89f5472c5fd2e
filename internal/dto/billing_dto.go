package dto

// ElectricityReadingRequest is an owner-submitted meter reading. RatePerUnit
// in paise.
type ElectricityReadingRequest struct {
	PropertyID   uint   `json:"property_id" validate:"required"`
	RoomID       *uint  `json:"room_id"`
	BillingMonth string `json:"billing_month" validate:"required,len=10"`
	PrevReading  int64  `json:"prev_reading" validate:"gte=0"`
	CurrReading  int64  `json:"curr_reading" validate:"gtefield=PrevReading"`
	RatePerUnit  int64  `json:"rate_per_unit" validate:"required,gt=0"`
}

// ElectricityReadingResponse reports the stored bill plus invoice roll-in.
type ElectricityReadingResponse struct {
	BillID          uint  `json:"bill_id"`
	UnitsConsumed   int64 `json:"units_consumed"`
	TotalAmount     int64 `json:"total_amount"`
	InvoicesUpdated int   `json:"invoices_updated"`
}

// BillingRunResult summarises one idempotent monthly billing pass.
type BillingRunResult struct {
	BillingMonth string `json:"billing_month"`
	Generated    int    `json:"generated"`
	Skipped      int    `json:"skipped"`
	Failed       int    `json:"failed"`
}

// ReminderRunResult summarises one reminder escalation pass.
type ReminderRunResult struct {
	DayOfMonth int `json:"day_of_month"`
	Reminders  int `json:"reminders"`
	LateFees   int `json:"late_fees"`
	Flagged    int `json:"flagged"`
}
