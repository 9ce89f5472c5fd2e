package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/rentease/rentease-api/internal/models"
	"github.com/rentease/rentease-api/internal/observability"
	"github.com/rentease/rentease-api/internal/repository"
)

// Occupancy thresholds and multipliers for automatic price adjustment.
// Above the high threshold the price rises 5%, below the low threshold it
// drops 3%, always anchored to the base price so repeated runs never
// compound.
const (
	occupancyHighThreshold = 0.80
	occupancyLowThreshold  = 0.40

	priceRaiseFactor = 1.05
	priceDropFactor  = 0.97
)

// PricingService applies occupancy-driven rent adjustments.
type PricingService interface {
	RunForProperty(ctx context.Context, propertyID uint) (*models.PricingChange, error)
	RunAll(ctx context.Context) (int, error)
	History(ctx context.Context, propertyID uint) ([]models.PricingChange, error)
}

type pricingService struct {
	properties repository.PropertyRepository
	rooms      repository.RoomRepository
	changes    repository.PricingRepository
	logger     zerolog.Logger
}

// NewPricingService builds the dynamic pricing service.
func NewPricingService(
	properties repository.PropertyRepository,
	rooms repository.RoomRepository,
	changes repository.PricingRepository,
	logger zerolog.Logger,
) PricingService {
	return &pricingService{
		properties: properties,
		rooms:      rooms,
		changes:    changes,
		logger:     logger.With().Str("component", "pricing_service").Logger(),
	}
}

// RunForProperty recomputes one property's price from room occupancy.
// Returns nil when no adjustment applies.
func (s *pricingService) RunForProperty(ctx context.Context, propertyID uint) (*models.PricingChange, error) {
	property, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}

	return s.adjust(ctx, property)
}

// RunAll adjusts every property that opted into dynamic pricing. Returns
// the number of applied changes; individual failures are logged and
// skipped so one bad listing cannot stall the sweep.
func (s *pricingService) RunAll(ctx context.Context) (int, error) {
	properties, err := s.properties.ListDynamicPricingEnabled(ctx)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, property := range properties {
		change, err := s.adjust(ctx, property)
		if err != nil {
			s.logger.Error().Err(err).Uint("property_id", property.ID).Msg("pricing adjustment failed")
			continue
		}
		if change != nil {
			applied++
		}
	}

	return applied, nil
}

func (s *pricingService) History(ctx context.Context, propertyID uint) ([]models.PricingChange, error) {
	return s.changes.ListForProperty(ctx, propertyID)
}

func (s *pricingService) adjust(ctx context.Context, property models.Property) (*models.PricingChange, error) {
	if !property.DynamicPricingEnabled {
		return nil, nil
	}

	capacity, occupied, err := s.rooms.Occupancy(ctx, property.ID)
	if err != nil {
		return nil, err
	}
	if capacity == 0 {
		return nil, nil
	}

	rate := float64(occupied) / float64(capacity)

	var target int64
	var reason string
	switch {
	case rate > occupancyHighThreshold:
		target = int64(float64(property.BasePrice) * priceRaiseFactor)
		reason = models.PricingReasonOccupancyHigh
	case rate < occupancyLowThreshold:
		target = int64(float64(property.BasePrice) * priceDropFactor)
		reason = models.PricingReasonOccupancyLow
	default:
		target = property.BasePrice
	}

	if target == property.CurrentPrice {
		return nil, nil
	}

	if err := s.properties.UpdateCurrentPrice(ctx, property.ID, target); err != nil {
		return nil, err
	}

	change := models.PricingChange{
		PropertyID:    property.ID,
		OldPrice:      property.CurrentPrice,
		NewPrice:      target,
		Reason:        reason,
		OccupancyRate: rate,
	}
	if reason == "" {
		change.Reason = "occupancy_normalized"
	}
	if err := s.changes.RecordChange(ctx, &change); err != nil {
		return nil, err
	}

	observability.PriceAdjustments().WithLabelValues(change.Reason).Inc()
	s.logger.Info().
		Uint("property_id", property.ID).
		Int64("old_price", change.OldPrice).
		Int64("new_price", change.NewPrice).
		Float64("occupancy", rate).
		Msg("price adjusted")

	return &change, nil
}
