package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/rentease/rentease-api/internal/models"
)

// AlertRepository provides access to persisted in-app alerts.
type AlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Alert, error)
	MarkRead(ctx context.Context, id, userID uint) (models.Alert, error)
}

type alertRepository struct {
	db *gorm.DB
}

// NewAlertRepository constructs an alert repository.
func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{db: db}
}

func (r *alertRepository) Create(ctx context.Context, alert *models.Alert) error {
	return r.db.WithContext(ctx).Create(alert).Error
}

func (r *alertRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Alert, error) {
	var alerts []models.Alert
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(normalizeLimit(limit)).
		Offset(offset).
		Find(&alerts).Error
	if err != nil {
		return nil, err
	}

	return alerts, nil
}

func (r *alertRepository) MarkRead(ctx context.Context, id, userID uint) (models.Alert, error) {
	var alert models.Alert
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&alert).Error
	if err != nil {
		return models.Alert{}, err
	}

	if !alert.Read {
		alert.Read = true
		if err := r.db.WithContext(ctx).Save(&alert).Error; err != nil {
			return models.Alert{}, err
		}
	}

	return alert, nil
}
