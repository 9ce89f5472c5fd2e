package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/rentease/rentease-api/internal/dto"
	"github.com/rentease/rentease-api/internal/models"
	"github.com/rentease/rentease-api/internal/repository"
	"github.com/rentease/rentease-api/pkg/mailer"
)

// ErrEnrollmentNotFound indicates the booking request does not exist.
var ErrEnrollmentNotFound = errors.New("enrollment not found")

// ErrAlreadyEnrolled indicates the student already has a live booking.
var ErrAlreadyEnrolled = errors.New("student already has a pending or active stay")

// ErrRoomUnavailable indicates the room is full or under maintenance.
var ErrRoomUnavailable = errors.New("room unavailable")

// ErrGenderRestricted indicates the listing does not admit the student.
var ErrGenderRestricted = errors.New("listing not available for this student")

// EnrollmentAlertSink receives tenancy lifecycle events for alerting.
type EnrollmentAlertSink interface {
	EnrollmentRequested(student models.User, property models.Property)
	EnrollmentDecided(enrollment models.Enrollment, approved bool)
}

// EnrollmentService runs the booking workflow: student request, owner
// decision, activation side effects, and move-out.
type EnrollmentService interface {
	Request(ctx context.Context, student models.User, payload dto.EnrollmentRequest) (models.Enrollment, error)
	Decide(ctx context.Context, owner models.User, enrollmentID uint, payload dto.EnrollmentDecisionRequest) (models.Enrollment, error)
	End(ctx context.Context, actor models.User, enrollmentID uint) (models.Enrollment, error)
	ListForStudent(ctx context.Context, studentID uint) ([]models.Enrollment, error)
	ListForOwner(ctx context.Context, ownerID uint, status string) ([]models.Enrollment, error)
}

type enrollmentService struct {
	enrollments repository.EnrollmentRepository
	properties  repository.PropertyRepository
	rooms       repository.RoomRepository
	referrals   ReferralService
	mail        *mailer.Mailer
	alerts      EnrollmentAlertSink
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewEnrollmentService builds the enrollment service.
func NewEnrollmentService(
	enrollments repository.EnrollmentRepository,
	properties repository.PropertyRepository,
	rooms repository.RoomRepository,
	referrals ReferralService,
	mail *mailer.Mailer,
	alerts EnrollmentAlertSink,
	validate *validator.Validate,
	logger zerolog.Logger,
) EnrollmentService {
	return &enrollmentService{
		enrollments: enrollments,
		properties:  properties,
		rooms:       rooms,
		referrals:   referrals,
		mail:        mail,
		alerts:      alerts,
		validator:   validate,
		logger:      logger.With().Str("component", "enrollment_service").Logger(),
		now:         time.Now,
	}
}

// Request files a booking for a room. Rent is frozen at the property's
// current price. One live booking per student.
func (s *enrollmentService) Request(ctx context.Context, student models.User, payload dto.EnrollmentRequest) (models.Enrollment, error) {
	if student.Role != models.RoleStudent {
		return models.Enrollment{}, ErrUnauthorized
	}
	if err := s.validator.Struct(payload); err != nil {
		return models.Enrollment{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if _, err := s.enrollments.LiveForStudent(ctx, student.ID); err == nil {
		return models.Enrollment{}, ErrAlreadyEnrolled
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Enrollment{}, err
	}

	property, err := s.properties.GetByID(ctx, payload.PropertyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Enrollment{}, ErrPropertyNotFound
		}
		return models.Enrollment{}, err
	}
	if property.Status != models.PropertyStatusApproved {
		return models.Enrollment{}, ErrPropertyNotApproved
	}
	if !genderAdmits(property.GenderRestriction, student) {
		return models.Enrollment{}, ErrGenderRestricted
	}

	room, err := s.rooms.GetByID(ctx, payload.RoomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Enrollment{}, ErrRoomUnavailable
		}
		return models.Enrollment{}, err
	}
	if room.PropertyID != property.ID || room.Status != models.RoomStatusAvailable || room.Occupied >= room.Capacity {
		return models.Enrollment{}, ErrRoomUnavailable
	}

	if payload.ReferralCode != "" {
		if err := s.referrals.Redeem(ctx, payload.ReferralCode, student.ID); err != nil {
			return models.Enrollment{}, err
		}
	}

	enrollment := models.Enrollment{
		StudentID:   student.ID,
		PropertyID:  property.ID,
		RoomID:      room.ID,
		MonthlyRent: property.CurrentPrice,
		Status:      models.EnrollmentStatusPending,
		Message:     payload.Message,
		RequestedAt: s.now().UTC(),
	}
	if err := s.enrollments.Create(ctx, &enrollment); err != nil {
		return models.Enrollment{}, err
	}

	if s.alerts != nil {
		go s.alerts.EnrollmentRequested(student, property)
	}

	s.logger.Info().Uint("student_id", student.ID).Uint("property_id", property.ID).Msg("booking requested")

	return enrollment, nil
}

// Decide approves or rejects a pending booking. Approval activates the
// tenancy, fills a room slot, credits any referral, and emails the tenant.
func (s *enrollmentService) Decide(ctx context.Context, owner models.User, enrollmentID uint, payload dto.EnrollmentDecisionRequest) (models.Enrollment, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.Enrollment{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	enrollment, err := s.enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Enrollment{}, ErrEnrollmentNotFound
		}
		return models.Enrollment{}, err
	}
	if enrollment.Property.OwnerID != owner.ID {
		return models.Enrollment{}, ErrNotPropertyOwner
	}
	if enrollment.Status != models.EnrollmentStatusPending {
		return models.Enrollment{}, fmt.Errorf("%w: booking already %s", ErrInvalidPayload, enrollment.Status)
	}

	approved := payload.Action == "approve"
	if approved {
		if err := s.activate(ctx, &enrollment); err != nil {
			return models.Enrollment{}, err
		}
	} else {
		enrollment.Status = models.EnrollmentStatusRejected
		if err := s.enrollments.Save(ctx, &enrollment); err != nil {
			return models.Enrollment{}, err
		}
	}

	if s.alerts != nil {
		go s.alerts.EnrollmentDecided(enrollment, approved)
	}

	s.logger.Info().Uint("enrollment_id", enrollment.ID).Str("action", payload.Action).Msg("booking decided")

	return enrollment, nil
}

// End closes an active tenancy and frees the room slot. Both the tenant
// and the property owner may end a stay.
func (s *enrollmentService) End(ctx context.Context, actor models.User, enrollmentID uint) (models.Enrollment, error) {
	enrollment, err := s.enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Enrollment{}, ErrEnrollmentNotFound
		}
		return models.Enrollment{}, err
	}
	if actor.ID != enrollment.StudentID && actor.ID != enrollment.Property.OwnerID && actor.Role != models.RoleAdmin {
		return models.Enrollment{}, ErrForbidden
	}
	if enrollment.Status != models.EnrollmentStatusActive {
		return models.Enrollment{}, fmt.Errorf("%w: booking is %s", ErrInvalidPayload, enrollment.Status)
	}

	endedAt := s.now().UTC()
	enrollment.Status = models.EnrollmentStatusEnded
	enrollment.EndedAt = &endedAt
	if err := s.enrollments.Save(ctx, &enrollment); err != nil {
		return models.Enrollment{}, err
	}

	if err := s.releaseRoomSlot(ctx, enrollment.RoomID); err != nil {
		s.logger.Error().Err(err).Uint("room_id", enrollment.RoomID).Msg("failed to release room slot")
	}

	return enrollment, nil
}

func (s *enrollmentService) ListForStudent(ctx context.Context, studentID uint) ([]models.Enrollment, error) {
	return s.enrollments.ListForStudent(ctx, studentID)
}

func (s *enrollmentService) ListForOwner(ctx context.Context, ownerID uint, status string) ([]models.Enrollment, error) {
	propertyIDs, err := s.properties.ListOwnerIDs(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(propertyIDs) == 0 {
		return []models.Enrollment{}, nil
	}
	return s.enrollments.ListForProperties(ctx, propertyIDs, status)
}

func (s *enrollmentService) activate(ctx context.Context, enrollment *models.Enrollment) error {
	room, err := s.rooms.GetByID(ctx, enrollment.RoomID)
	if err != nil {
		return err
	}
	if room.Occupied >= room.Capacity || room.Status == models.RoomStatusMaintenance {
		return ErrRoomUnavailable
	}

	room.Occupied++
	status := models.RoomStatusAvailable
	if room.Occupied >= room.Capacity {
		status = models.RoomStatusFilled
	}
	if err := s.rooms.SetOccupancy(ctx, room.ID, room.Occupied, status); err != nil {
		return err
	}

	activatedAt := s.now().UTC()
	enrollment.Status = models.EnrollmentStatusActive
	enrollment.ActivatedAt = &activatedAt
	if err := s.enrollments.Save(ctx, enrollment); err != nil {
		return err
	}

	if err := s.referrals.CreditOnActivation(ctx, enrollment.StudentID, enrollment.ID); err != nil {
		s.logger.Error().Err(err).Uint("student_id", enrollment.StudentID).Msg("referral credit failed")
	}

	if s.mail != nil && enrollment.Student.Email != "" {
		subject, body := mailer.WelcomeEmail(enrollment.Student.FullName, enrollment.Property.Name)
		if err := s.mail.Send(ctx, enrollment.Student.Email, subject, body); err != nil {
			s.logger.Warn().Err(err).Msg("welcome email failed")
		}
	}

	return nil
}

func (s *enrollmentService) releaseRoomSlot(ctx context.Context, roomID uint) error {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room.Occupied > 0 {
		room.Occupied--
	}
	status := room.Status
	if status == models.RoomStatusFilled && room.Occupied < room.Capacity {
		status = models.RoomStatusAvailable
	}
	return s.rooms.SetOccupancy(ctx, room.ID, room.Occupied, status)
}

func genderAdmits(restriction string, student models.User) bool {
	if restriction == "" || restriction == models.GenderAny {
		return true
	}
	return restriction == student.Gender
}
