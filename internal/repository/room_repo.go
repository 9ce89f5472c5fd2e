package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/rentease/rentease-api/internal/models"
)

// RoomRepository provides access to bookable rooms.
type RoomRepository interface {
	Create(ctx context.Context, room *models.Room) error
	GetByID(ctx context.Context, id uint) (models.Room, error)
	Occupancy(ctx context.Context, propertyID uint) (capacity int64, occupied int64, err error)
	SetOccupancy(ctx context.Context, id uint, occupied int, status string) error
	SetStatus(ctx context.Context, id uint, status string) error
}

type roomRepository struct {
	db *gorm.DB
}

// NewRoomRepository constructs a room repository.
func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) Create(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *roomRepository) GetByID(ctx context.Context, id uint) (models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).First(&room, id).Error; err != nil {
		return models.Room{}, err
	}

	return room, nil
}

// Occupancy returns bed-level totals for a property: summed capacity and
// summed occupied slots across its rooms.
func (r *roomRepository) Occupancy(ctx context.Context, propertyID uint) (int64, int64, error) {
	var totals struct {
		Capacity int64
		Occupied int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Room{}).
		Select("COALESCE(SUM(capacity), 0) AS capacity, COALESCE(SUM(occupied), 0) AS occupied").
		Where("property_id = ?", propertyID).
		Scan(&totals).Error
	if err != nil {
		return 0, 0, err
	}

	return totals.Capacity, totals.Occupied, nil
}

func (r *roomRepository) SetOccupancy(ctx context.Context, id uint, occupied int, status string) error {
	return r.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"occupied": occupied, "status": status}).Error
}

func (r *roomRepository) SetStatus(ctx context.Context, id uint, status string) error {
	return r.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ?", id).
		Update("status", status).Error
}
