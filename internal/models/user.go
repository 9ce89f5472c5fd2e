package models

import "time"

// Roles recognised across the platform.
const (
	RoleStudent = "student"
	RoleOwner   = "owner"
	RoleAdmin   = "admin"
)

// User is any human account in the system: students who are scanned at the
// gate, owners who operate properties, and platform admins.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	FullName       string    `gorm:"size:255;not null" json:"full_name"`
	Email          string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Phone          string    `gorm:"size:32" json:"phone,omitempty"`
	Role           string    `gorm:"size:16;not null;index" json:"role"`
	Gender         string    `gorm:"size:16" json:"gender,omitempty"`
	College        string    `gorm:"size:255" json:"college,omitempty"`
	CollegeLat     float64   `json:"college_lat,omitempty"`
	CollegeLng     float64   `json:"college_lng,omitempty"`
	QRToken        *string   `gorm:"size:64;uniqueIndex" json:"-"`
	AccountFlagged bool      `gorm:"not null;default:false" json:"account_flagged"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsOperator reports whether the user may trigger gate scans.
func (u User) IsOperator() bool {
	return u.Role == RoleOwner
}
