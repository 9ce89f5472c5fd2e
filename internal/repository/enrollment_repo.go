package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/rentease/rentease-api/internal/models"
)

// EnrollmentRepository provides access to tenancy records.
type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	GetByID(ctx context.Context, id uint) (models.Enrollment, error)
	// LiveForStudent returns the student's pending or active enrollment, if any.
	LiveForStudent(ctx context.Context, studentID uint) (models.Enrollment, error)
	// ActiveAt returns the student's active enrollment at the given property.
	// The gate ledger refuses scans when this lookup finds nothing.
	ActiveAt(ctx context.Context, studentID, propertyID uint) (models.Enrollment, error)
	ListForStudent(ctx context.Context, studentID uint) ([]models.Enrollment, error)
	ListForProperties(ctx context.Context, propertyIDs []uint, status string) ([]models.Enrollment, error)
	ListActive(ctx context.Context) ([]models.Enrollment, error)
	Save(ctx context.Context, enrollment *models.Enrollment) error
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository constructs an enrollment repository.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	return r.db.WithContext(ctx).Create(enrollment).Error
}

func (r *enrollmentRepository) GetByID(ctx context.Context, id uint) (models.Enrollment, error) {
	var enrollment models.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Property").
		Preload("Room").
		First(&enrollment, id).Error
	if err != nil {
		return models.Enrollment{}, err
	}

	return enrollment, nil
}

func (r *enrollmentRepository) LiveForStudent(ctx context.Context, studentID uint) (models.Enrollment, error) {
	var enrollment models.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Property").
		Where("student_id = ? AND status IN ?", studentID, models.LiveEnrollmentStatuses).
		First(&enrollment).Error
	if err != nil {
		return models.Enrollment{}, err
	}

	return enrollment, nil
}

func (r *enrollmentRepository) ActiveAt(ctx context.Context, studentID, propertyID uint) (models.Enrollment, error) {
	var enrollment models.Enrollment
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND property_id = ? AND status = ?", studentID, propertyID, models.EnrollmentStatusActive).
		First(&enrollment).Error
	if err != nil {
		return models.Enrollment{}, err
	}

	return enrollment, nil
}

func (r *enrollmentRepository) ListForStudent(ctx context.Context, studentID uint) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Property").
		Preload("Room").
		Where("student_id = ?", studentID).
		Order("requested_at DESC").
		Find(&enrollments).Error
	if err != nil {
		return nil, err
	}

	return enrollments, nil
}

func (r *enrollmentRepository) ListForProperties(ctx context.Context, propertyIDs []uint, status string) ([]models.Enrollment, error) {
	if len(propertyIDs) == 0 {
		return []models.Enrollment{}, nil
	}

	query := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Property").
		Preload("Room").
		Where("property_id IN ?", propertyIDs)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var enrollments []models.Enrollment
	if err := query.Order("requested_at DESC").Find(&enrollments).Error; err != nil {
		return nil, err
	}

	return enrollments, nil
}

func (r *enrollmentRepository) ListActive(ctx context.Context) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Property").
		Where("status = ?", models.EnrollmentStatusActive).
		Find(&enrollments).Error
	if err != nil {
		return nil, err
	}

	return enrollments, nil
}

func (r *enrollmentRepository) Save(ctx context.Context, enrollment *models.Enrollment) error {
	return r.db.WithContext(ctx).Save(enrollment).Error
}
