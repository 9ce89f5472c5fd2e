package models

import "time"

// Upload records a property photo stored on the CDN.
type Upload struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      *uint     `gorm:"index" json:"user_id,omitempty"`
	PropertyID  *uint     `gorm:"index" json:"property_id,omitempty"`
	FileName    string    `gorm:"size:255;not null" json:"file_name"`
	URL         string    `gorm:"size:512;not null" json:"url"`
	ContentType string    `gorm:"size:128" json:"content_type"`
	Size        int64     `json:"size"`
	Checksum    string    `gorm:"size:64" json:"checksum"`
	CreatedAt   time.Time `json:"created_at"`
}
