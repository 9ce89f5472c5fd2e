package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/rentease/rentease-api/internal/models"
)

// ReferralRepository provides access to referral records.
type ReferralRepository interface {
	Create(ctx context.Context, referral *models.Referral) error
	GetByCode(ctx context.Context, code string) (models.Referral, error)
	GetJoinedByReferred(ctx context.Context, referredID uint) (models.Referral, error)
	ListForReferrer(ctx context.Context, referrerID uint) ([]models.Referral, error)
	Save(ctx context.Context, referral *models.Referral) error
}

type referralRepository struct {
	db *gorm.DB
}

// NewReferralRepository constructs a referral repository.
func NewReferralRepository(db *gorm.DB) ReferralRepository {
	return &referralRepository{db: db}
}

func (r *referralRepository) Create(ctx context.Context, referral *models.Referral) error {
	return r.db.WithContext(ctx).Create(referral).Error
}

func (r *referralRepository) GetByCode(ctx context.Context, code string) (models.Referral, error) {
	var referral models.Referral
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&referral).Error; err != nil {
		return models.Referral{}, err
	}

	return referral, nil
}

func (r *referralRepository) GetJoinedByReferred(ctx context.Context, referredID uint) (models.Referral, error) {
	var referral models.Referral
	err := r.db.WithContext(ctx).
		Where("referred_id = ? AND status = ?", referredID, models.ReferralStatusJoined).
		First(&referral).Error
	if err != nil {
		return models.Referral{}, err
	}

	return referral, nil
}

func (r *referralRepository) ListForReferrer(ctx context.Context, referrerID uint) ([]models.Referral, error) {
	var referrals []models.Referral
	err := r.db.WithContext(ctx).
		Where("referrer_id = ?", referrerID).
		Order("created_at DESC").
		Find(&referrals).Error
	if err != nil {
		return nil, err
	}

	return referrals, nil
}

func (r *referralRepository) Save(ctx context.Context, referral *models.Referral) error {
	return r.db.WithContext(ctx).Save(referral).Error
}
