package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/rentease/rentease-api/internal/models"
)

// EntryLogRepository is the append-only gate ledger. Nothing else in the
// system writes entry logs.
type EntryLogRepository interface {
	// Latest returns the most recent entry for the (student, property) pair,
	// or nil when the student has never been scanned there. Ordering is
	// scanned_at descending with id as the insertion-order tie breaker, so
	// clock skew between writers cannot reorder same-instant entries.
	Latest(ctx context.Context, studentID, propertyID uint) (*models.EntryLog, error)
	Append(ctx context.Context, entry *models.EntryLog) error
	ListForProperty(ctx context.Context, propertyID uint, limit, offset int) ([]models.EntryLog, error)
	ListForStudent(ctx context.Context, studentID uint, limit, offset int) ([]models.EntryLog, error)
	// CountInside derives the number of students currently inside a property
	// from the ledger itself; there is no stored occupancy flag to drift.
	CountInside(ctx context.Context, propertyID uint) (int64, error)
}

type entryLogRepository struct {
	db *gorm.DB
}

// NewEntryLogRepository constructs the gate ledger repository.
func NewEntryLogRepository(db *gorm.DB) EntryLogRepository {
	return &entryLogRepository{db: db}
}

func (r *entryLogRepository) Latest(ctx context.Context, studentID, propertyID uint) (*models.EntryLog, error) {
	var entry models.EntryLog
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND property_id = ?", studentID, propertyID).
		Order("scanned_at DESC, id DESC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &entry, nil
}

func (r *entryLogRepository) Append(ctx context.Context, entry *models.EntryLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *entryLogRepository) ListForProperty(ctx context.Context, propertyID uint, limit, offset int) ([]models.EntryLog, error) {
	var entries []models.EntryLog
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("property_id = ?", propertyID).
		Order("scanned_at DESC, id DESC").
		Limit(normalizeLimit(limit)).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *entryLogRepository) ListForStudent(ctx context.Context, studentID uint, limit, offset int) ([]models.EntryLog, error) {
	var entries []models.EntryLog
	err := r.db.WithContext(ctx).
		Preload("Property").
		Where("student_id = ?", studentID).
		Order("scanned_at DESC, id DESC").
		Limit(normalizeLimit(limit)).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *entryLogRepository) CountInside(ctx context.Context, propertyID uint) (int64, error) {
	// A student is inside when their latest entry at the property is "enter".
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.EntryLog{}).
		Where("property_id = ? AND direction = ?", propertyID, models.DirectionEnter).
		Where(`id IN (
			SELECT MAX(id) FROM entry_logs WHERE property_id = ? GROUP BY student_id
		)`, propertyID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}
