package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/rentease/rentease-api/internal/models"
)

// DisputeRepository provides access to dispute records.
type DisputeRepository interface {
	Create(ctx context.Context, dispute *models.Dispute) error
	GetByID(ctx context.Context, id uint) (models.Dispute, error)
	ListForRaiser(ctx context.Context, userID uint) ([]models.Dispute, error)
	ListForProperties(ctx context.Context, propertyIDs []uint) ([]models.Dispute, error)
	ListAll(ctx context.Context) ([]models.Dispute, error)
	Save(ctx context.Context, dispute *models.Dispute) error
}

type disputeRepository struct {
	db *gorm.DB
}

// NewDisputeRepository constructs a dispute repository.
func NewDisputeRepository(db *gorm.DB) DisputeRepository {
	return &disputeRepository{db: db}
}

func (r *disputeRepository) Create(ctx context.Context, dispute *models.Dispute) error {
	return r.db.WithContext(ctx).Create(dispute).Error
}

func (r *disputeRepository) GetByID(ctx context.Context, id uint) (models.Dispute, error) {
	var dispute models.Dispute
	if err := r.db.WithContext(ctx).First(&dispute, id).Error; err != nil {
		return models.Dispute{}, err
	}

	return dispute, nil
}

func (r *disputeRepository) ListForRaiser(ctx context.Context, userID uint) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.WithContext(ctx).
		Where("raised_by_id = ?", userID).
		Order("created_at DESC").
		Find(&disputes).Error
	if err != nil {
		return nil, err
	}

	return disputes, nil
}

func (r *disputeRepository) ListForProperties(ctx context.Context, propertyIDs []uint) ([]models.Dispute, error) {
	if len(propertyIDs) == 0 {
		return []models.Dispute{}, nil
	}

	var disputes []models.Dispute
	err := r.db.WithContext(ctx).
		Where("property_id IN ?", propertyIDs).
		Order("created_at DESC").
		Find(&disputes).Error
	if err != nil {
		return nil, err
	}

	return disputes, nil
}

func (r *disputeRepository) ListAll(ctx context.Context) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&disputes).Error
	if err != nil {
		return nil, err
	}

	return disputes, nil
}

func (r *disputeRepository) Save(ctx context.Context, dispute *models.Dispute) error {
	return r.db.WithContext(ctx).Save(dispute).Error
}
