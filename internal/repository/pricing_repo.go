package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/rentease/rentease-api/internal/models"
)

// PricingRepository records dynamic pricing history.
type PricingRepository interface {
	RecordChange(ctx context.Context, change *models.PricingChange) error
	ListForProperty(ctx context.Context, propertyID uint) ([]models.PricingChange, error)
}

type pricingRepository struct {
	db *gorm.DB
}

// NewPricingRepository constructs a pricing history repository.
func NewPricingRepository(db *gorm.DB) PricingRepository {
	return &pricingRepository{db: db}
}

func (r *pricingRepository) RecordChange(ctx context.Context, change *models.PricingChange) error {
	return r.db.WithContext(ctx).Create(change).Error
}

func (r *pricingRepository) ListForProperty(ctx context.Context, propertyID uint) ([]models.PricingChange, error) {
	var changes []models.PricingChange
	err := r.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("created_at DESC").
		Find(&changes).Error
	if err != nil {
		return nil, err
	}

	return changes, nil
}
