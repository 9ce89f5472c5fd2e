package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/rentease/rentease-api/internal/models"
)

// UserRepository provides access to user accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (models.User, error)
	GetByQRToken(ctx context.Context, token, role string) (models.User, error)
	SetQRToken(ctx context.Context, userID uint, token string) error
	SetAccountFlagged(ctx context.Context, userID uint, flagged bool) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (r *userRepository) GetByQRToken(ctx context.Context, token, role string) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("qr_token = ? AND role = ?", token, role).
		First(&user).Error
	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (r *userRepository) SetQRToken(ctx context.Context, userID uint, token string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("qr_token", token).Error
}

func (r *userRepository) SetAccountFlagged(ctx context.Context, userID uint, flagged bool) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("account_flagged", flagged).Error
}
