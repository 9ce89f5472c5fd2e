package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/rentease/rentease-api/internal/models"
)

// UploadRepository records stored property photos.
type UploadRepository interface {
	Create(ctx context.Context, upload *models.Upload) error
}

type uploadRepository struct {
	db *gorm.DB
}

// NewUploadRepository constructs an upload repository.
func NewUploadRepository(db *gorm.DB) UploadRepository {
	return &uploadRepository{db: db}
}

func (r *uploadRepository) Create(ctx context.Context, upload *models.Upload) error {
	return r.db.WithContext(ctx).Create(upload).Error
}
