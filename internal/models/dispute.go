package models

import (
	"time"

	"gorm.io/datatypes"
)

// Dispute statuses.
const (
	DisputeStatusOpen      = "open"
	DisputeStatusResolved  = "resolved"
	DisputeStatusEscalated = "escalated"
	DisputeStatusRejected  = "rejected"
)

// Dispute is a complaint raised by a student against a property or invoice.
type Dispute struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	RaisedByID   uint           `gorm:"not null;index" json:"raised_by"`
	RaisedBy     User           `gorm:"foreignKey:RaisedByID" json:"-"`
	PropertyID   *uint          `gorm:"index" json:"property_id,omitempty"`
	InvoiceID    *uint          `json:"invoice_id,omitempty"`
	Title        string         `gorm:"size:255;not null" json:"title"`
	Description  string         `gorm:"size:4096;not null" json:"description"`
	EvidenceURLs datatypes.JSON `json:"evidence_urls"`
	Status       string         `gorm:"size:16;not null;default:open;index" json:"status"`
	Resolution   string         `gorm:"size:2048" json:"resolution,omitempty"`
	ResolvedAt   *time.Time     `json:"resolved_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
