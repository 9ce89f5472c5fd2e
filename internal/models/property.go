package models

import (
	"time"

	"gorm.io/datatypes"
)

// Property listing statuses.
const (
	PropertyStatusPending   = "pending"
	PropertyStatusApproved  = "approved"
	PropertyStatusSuspended = "suspended"
)

// Gender restriction values for a property.
const (
	GenderAny    = "any"
	GenderMale   = "male"
	GenderFemale = "female"
)

// Property is a PG building listed by an owner. Prices are stored in paise.
type Property struct {
	ID                    uint           `gorm:"primaryKey" json:"id"`
	OwnerID               uint           `gorm:"not null;index" json:"owner_id"`
	Owner                 User           `gorm:"foreignKey:OwnerID" json:"-"`
	Name                  string         `gorm:"size:255;not null" json:"name"`
	Address               string         `gorm:"size:512" json:"address"`
	City                  string         `gorm:"size:128;index" json:"city"`
	Lat                   float64        `json:"lat"`
	Lng                   float64        `json:"lng"`
	DistanceKM            float64        `json:"distance_km"`
	TravelTimeWalk        int            `json:"travel_time_walk"`
	TravelTimeTransit     int            `json:"travel_time_transit"`
	BasePrice             int64          `gorm:"not null" json:"base_price"`
	CurrentPrice          int64          `gorm:"not null" json:"current_price"`
	GenderRestriction     string         `gorm:"size:16;default:any" json:"gender_restriction"`
	Amenities             datatypes.JSON `json:"amenities"`
	Images                datatypes.JSON `json:"images"`
	AvgRating             float64        `json:"avg_rating"`
	DynamicPricingEnabled bool           `gorm:"not null;default:false" json:"dynamic_pricing_enabled"`
	Status                string         `gorm:"size:16;not null;default:pending;index" json:"status"`
	Timezone              string         `gorm:"size:64;default:Asia/Kolkata" json:"timezone"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`

	Rooms []Room `json:"rooms,omitempty"`
}

// Room statuses.
const (
	RoomStatusAvailable   = "available"
	RoomStatusFilled      = "filled"
	RoomStatusMaintenance = "maintenance"
)

// Room is a bookable unit inside a property.
type Room struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PropertyID uint      `gorm:"not null;index" json:"property_id"`
	RoomNumber string    `gorm:"size:32;not null" json:"room_number"`
	Type       string    `gorm:"size:32" json:"type"`
	Capacity   int       `json:"capacity"`
	Occupied   int       `json:"occupied"`
	Status     string    `gorm:"size:16;not null;default:available" json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Dynamic pricing reasons recorded in the change history.
const (
	PricingReasonOccupancyHigh = "occupancy_high"
	PricingReasonOccupancyLow  = "occupancy_low"
)

// PricingChange is one dynamic-pricing adjustment applied to a property.
type PricingChange struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	PropertyID    uint      `gorm:"not null;index" json:"property_id"`
	OldPrice      int64     `json:"old_price"`
	NewPrice      int64     `json:"new_price"`
	Reason        string    `gorm:"size:32" json:"reason"`
	OccupancyRate float64   `json:"occupancy_rate"`
	CreatedAt     time.Time `json:"created_at"`
}
