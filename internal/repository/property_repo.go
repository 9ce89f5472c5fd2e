package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/rentease/rentease-api/internal/models"
)

// PropertySearchFilter narrows the approved-property listing.
type PropertySearchFilter struct {
	City      string
	MaxBudget *int64
	Gender    string
}

// PropertyRepository provides access to property listings and rooms.
type PropertyRepository interface {
	Create(ctx context.Context, property *models.Property) error
	GetByID(ctx context.Context, id uint) (models.Property, error)
	GetByIDWithRooms(ctx context.Context, id uint) (models.Property, error)
	ListApproved(ctx context.Context, filter PropertySearchFilter) ([]models.Property, error)
	ListByOwner(ctx context.Context, ownerID uint) ([]models.Property, error)
	ListOwnerIDs(ctx context.Context, ownerID uint) ([]uint, error)
	ListDynamicPricingEnabled(ctx context.Context) ([]models.Property, error)
	Save(ctx context.Context, property *models.Property) error
	UpdateCurrentPrice(ctx context.Context, id uint, price int64) error
	UpdateStatus(ctx context.Context, id uint, status string) error
}

type propertyRepository struct {
	db *gorm.DB
}

// NewPropertyRepository constructs a property repository.
func NewPropertyRepository(db *gorm.DB) PropertyRepository {
	return &propertyRepository{db: db}
}

func (r *propertyRepository) Create(ctx context.Context, property *models.Property) error {
	return r.db.WithContext(ctx).Create(property).Error
}

func (r *propertyRepository) GetByID(ctx context.Context, id uint) (models.Property, error) {
	var property models.Property
	if err := r.db.WithContext(ctx).Preload("Owner").First(&property, id).Error; err != nil {
		return models.Property{}, err
	}

	return property, nil
}

func (r *propertyRepository) GetByIDWithRooms(ctx context.Context, id uint) (models.Property, error) {
	var property models.Property
	err := r.db.WithContext(ctx).Preload("Rooms").First(&property, id).Error
	if err != nil {
		return models.Property{}, err
	}

	return property, nil
}

func (r *propertyRepository) ListApproved(ctx context.Context, filter PropertySearchFilter) ([]models.Property, error) {
	query := r.db.WithContext(ctx).
		Preload("Rooms").
		Where("status = ?", models.PropertyStatusApproved)

	if filter.City != "" {
		query = query.Where("LOWER(city) LIKE ?", "%"+strings.ToLower(filter.City)+"%")
	}
	if filter.MaxBudget != nil {
		query = query.Where("current_price <= ?", *filter.MaxBudget)
	}
	if filter.Gender != "" && filter.Gender != models.GenderAny {
		query = query.Where("gender_restriction IN ?", []string{models.GenderAny, filter.Gender})
	}

	var properties []models.Property
	if err := query.Find(&properties).Error; err != nil {
		return nil, err
	}

	return properties, nil
}

func (r *propertyRepository) ListByOwner(ctx context.Context, ownerID uint) ([]models.Property, error) {
	var properties []models.Property
	err := r.db.WithContext(ctx).
		Preload("Rooms").
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&properties).Error
	if err != nil {
		return nil, err
	}

	return properties, nil
}

func (r *propertyRepository) ListOwnerIDs(ctx context.Context, ownerID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Property{}).
		Where("owner_id = ?", ownerID).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *propertyRepository) ListDynamicPricingEnabled(ctx context.Context) ([]models.Property, error) {
	var properties []models.Property
	err := r.db.WithContext(ctx).
		Where("dynamic_pricing_enabled = ? AND status = ?", true, models.PropertyStatusApproved).
		Find(&properties).Error
	if err != nil {
		return nil, err
	}

	return properties, nil
}

func (r *propertyRepository) Save(ctx context.Context, property *models.Property) error {
	return r.db.WithContext(ctx).Save(property).Error
}

func (r *propertyRepository) UpdateCurrentPrice(ctx context.Context, id uint, price int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Property{}).
		Where("id = ?", id).
		Update("current_price", price).Error
}

func (r *propertyRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	return r.db.WithContext(ctx).
		Model(&models.Property{}).
		Where("id = ?", id).
		Update("status", status).Error
}
