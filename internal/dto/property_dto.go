package dto

import "github.com/rentease/rentease-api/internal/models"

// PropertyCreateRequest is an owner's new listing. Prices in paise.
type PropertyCreateRequest struct {
	Name                  string   `json:"name" validate:"required,max=255"`
	Address               string   `json:"address" validate:"required,max=512"`
	City                  string   `json:"city" validate:"required,max=128"`
	Lat                   float64  `json:"lat"`
	Lng                   float64  `json:"lng"`
	BasePrice             int64    `json:"base_price" validate:"required,gt=0"`
	GenderRestriction     string   `json:"gender_restriction" validate:"omitempty,oneof=any male female"`
	Amenities             []string `json:"amenities"`
	DynamicPricingEnabled bool     `json:"dynamic_pricing_enabled"`
	Timezone              string   `json:"timezone"`
}

// PropertySearchQuery captures student search filters.
type PropertySearchQuery struct {
	City        string
	MaxBudget   int64
	MaxDistance float64
	Gender      string
	Amenities   []string
}

// RankedProperty is a property with its recommendation score attached.
type RankedProperty struct {
	models.Property
	Score float64 `json:"score"`
}

// CategoryWinners highlights standout listings for a ranked result set.
type CategoryWinners struct {
	Closest   *RankedProperty `json:"closest,omitempty"`
	Cheapest  *RankedProperty `json:"cheapest,omitempty"`
	BestRated *RankedProperty `json:"best_rated,omitempty"`
	BestValue *RankedProperty `json:"best_value,omitempty"`
}

// PropertySearchResponse is the ranked listing returned to students.
type PropertySearchResponse struct {
	Properties []RankedProperty `json:"properties"`
	Winners    CategoryWinners  `json:"winners"`
	CacheHit   bool             `json:"cache_hit"`
}
