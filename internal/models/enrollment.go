package models

import "time"

// Enrollment statuses. Only an active enrollment grants gate access.
const (
	EnrollmentStatusPending  = "pending"
	EnrollmentStatusActive   = "active"
	EnrollmentStatusRejected = "rejected"
	EnrollmentStatusEnded    = "ended"
)

// LiveEnrollmentStatuses are the states that block a student from requesting
// another booking.
var LiveEnrollmentStatuses = []string{EnrollmentStatusPending, EnrollmentStatusActive}

// Enrollment is a student's tenancy (or booking request) at a property.
// MonthlyRent is captured in paise at request time so later price changes do
// not affect an existing tenancy.
type Enrollment struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	StudentID   uint       `gorm:"not null;index:idx_enrollment_scope,priority:1" json:"student_id"`
	Student     User       `gorm:"foreignKey:StudentID" json:"-"`
	PropertyID  uint       `gorm:"not null;index:idx_enrollment_scope,priority:2" json:"property_id"`
	Property    Property   `gorm:"foreignKey:PropertyID" json:"-"`
	RoomID      uint       `gorm:"not null" json:"room_id"`
	Room        Room       `gorm:"foreignKey:RoomID" json:"-"`
	MonthlyRent int64      `gorm:"not null" json:"monthly_rent"`
	Status      string     `gorm:"size:16;not null;default:pending;index" json:"status"`
	Message     string     `gorm:"size:1024" json:"message,omitempty"`
	RequestedAt time.Time  `json:"requested_at"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
