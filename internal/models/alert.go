package models

import (
	"time"

	"gorm.io/datatypes"
)

// Alert types published through the alert service.
const (
	AlertTypeScan       = "scan"
	AlertTypeCurfew     = "curfew"
	AlertTypeInvoice    = "invoice"
	AlertTypePayment    = "payment"
	AlertTypeDispute    = "dispute"
	AlertTypeEnrollment = "enrollment"
)

// Alert is a persisted in-app notification for a user.
type Alert struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	Type      string         `gorm:"size:24;not null" json:"type"`
	Message   string         `gorm:"size:1024;not null" json:"message"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`
	Read      bool           `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time      `json:"created_at"`
}
