package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/rentease/rentease-api/internal/dto"
	"github.com/rentease/rentease-api/internal/models"
	"github.com/rentease/rentease-api/internal/observability"
	"github.com/rentease/rentease-api/internal/repository"
	"github.com/rentease/rentease-api/pkg/qr"
)

// ErrPropertyNotFound indicates the scanned property does not exist.
var ErrPropertyNotFound = errors.New("property not found")

// ErrNotPropertyOwner indicates the operator does not own the property.
var ErrNotPropertyOwner = errors.New("property belongs to another owner")

// ErrStudentNotFound indicates the QR token resolves to no student.
var ErrStudentNotFound = errors.New("student not found, QR may be outdated")

// ErrNoActiveEnrollment indicates the student has no active stay at the
// scanned property.
var ErrNoActiveEnrollment = errors.New("no active enrollment")

// ErrEntryStoreFailed indicates the ledger append failed; the scan must not
// be reported as recorded.
var ErrEntryStoreFailed = errors.New("failed to record entry")

// CurfewPolicy defines the nightly window during which leaving is flagged.
// The window wraps midnight: an hour h violates when h >= StartHour or
// h < EndHour.
type CurfewPolicy struct {
	StartHour int
	EndHour   int
}

// Violates reports whether the given local time falls inside the curfew
// window.
func (p CurfewPolicy) Violates(t time.Time) bool {
	h := t.Hour()
	return h >= p.StartHour || h < p.EndHour
}

// ScanAlertSink receives completed scans for asynchronous alerting. Sink
// failures never affect the scan result.
type ScanAlertSink interface {
	ScanRecorded(student models.User, property models.Property, entry models.EntryLog)
}

// ScanService is the gate entry/exit ledger: it validates an operator's
// scan of a student QR code, derives the movement direction from the
// student's last recorded entry, and appends to the append-only log.
type ScanService interface {
	RecordScan(ctx context.Context, operator models.User, payload dto.ScanRequest) (dto.ScanResult, error)
	ListPropertyLog(ctx context.Context, operator models.User, propertyID uint, limit int) ([]dto.EntryLogResponse, error)
	ListStudentLog(ctx context.Context, studentID uint, limit int) ([]dto.EntryLogResponse, error)
	CountInside(ctx context.Context, operator models.User, propertyID uint) (int64, error)
}

type scanService struct {
	users       repository.UserRepository
	properties  repository.PropertyRepository
	enrollments repository.EnrollmentRepository
	entries     repository.EntryLogRepository
	throttle    ScanThrottle
	alerts      ScanAlertSink
	curfew      CurfewPolicy
	defaultTZ   string
	validator   *validator.Validate
	tracer      trace.Tracer
	logger      zerolog.Logger
	now         func() time.Time
}

// NewScanService builds the gate scan service.
func NewScanService(
	users repository.UserRepository,
	properties repository.PropertyRepository,
	enrollments repository.EnrollmentRepository,
	entries repository.EntryLogRepository,
	throttle ScanThrottle,
	alerts ScanAlertSink,
	curfew CurfewPolicy,
	defaultTZ string,
	validate *validator.Validate,
	logger zerolog.Logger,
) ScanService {
	return &scanService{
		users:       users,
		properties:  properties,
		enrollments: enrollments,
		entries:     entries,
		throttle:    throttle,
		alerts:      alerts,
		curfew:      curfew,
		defaultTZ:   defaultTZ,
		validator:   validate,
		tracer:      otel.Tracer("github.com/rentease/rentease-api/internal/service/scan"),
		logger:      logger.With().Str("component", "scan_service").Logger(),
		now:         time.Now,
	}
}

// RecordScan processes one gate scan end to end. Validation runs in a fixed
// order so callers always get the most specific rejection: role, payload,
// cooldown, property, identity, enrollment.
func (s *scanService) RecordScan(ctx context.Context, operator models.User, payload dto.ScanRequest) (dto.ScanResult, error) {
	ctx, span := s.tracer.Start(ctx, "scan.record", trace.WithAttributes(
		attribute.Int64("property_id", int64(payload.PropertyID)),
	))
	defer span.End()

	if !operator.IsOperator() {
		observability.ScansRejected().WithLabelValues("unauthorized").Inc()
		return dto.ScanResult{}, ErrUnauthorized
	}

	if err := s.validator.Struct(payload); err != nil {
		observability.ScansRejected().WithLabelValues("invalid_payload").Inc()
		return dto.ScanResult{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	token, ok := qr.ParsePayload(payload.QRRaw)
	if !ok {
		observability.ScansRejected().WithLabelValues("invalid_payload").Inc()
		return dto.ScanResult{}, fmt.Errorf("%w: not a recognised entry code", ErrInvalidPayload)
	}

	// Cooldown runs before identity resolution so a replayed code burns no
	// database work.
	allowed, err := s.throttle.Allow(ctx, token)
	if err != nil {
		return dto.ScanResult{}, err
	}
	if !allowed {
		observability.ScansRejected().WithLabelValues("throttled").Inc()
		return dto.ScanResult{}, fmt.Errorf("%w: please wait before scanning again", ErrThrottled)
	}

	property, err := s.properties.GetByID(ctx, payload.PropertyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.ScansRejected().WithLabelValues("property_not_found").Inc()
			return dto.ScanResult{}, ErrPropertyNotFound
		}
		return dto.ScanResult{}, err
	}
	if property.OwnerID != operator.ID {
		observability.ScansRejected().WithLabelValues("not_owner").Inc()
		return dto.ScanResult{}, ErrNotPropertyOwner
	}

	student, err := s.users.GetByQRToken(ctx, token, models.RoleStudent)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.ScansRejected().WithLabelValues("student_not_found").Inc()
			return dto.ScanResult{}, ErrStudentNotFound
		}
		return dto.ScanResult{}, err
	}

	if _, err := s.enrollments.ActiveAt(ctx, student.ID, property.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.ScansRejected().WithLabelValues("no_enrollment").Inc()
			return dto.ScanResult{}, fmt.Errorf("%w: %s has no active stay at %s", ErrNoActiveEnrollment, student.FullName, property.Name)
		}
		return dto.ScanResult{}, err
	}

	last, err := s.entries.Latest(ctx, student.ID, property.ID)
	if err != nil {
		return dto.ScanResult{}, err
	}

	direction := models.DirectionEnter
	if last != nil {
		direction = models.OppositeDirection(last.Direction)
	}

	scannedAt := s.now().UTC()
	flagged := direction == models.DirectionLeave && s.curfew.Violates(s.localTime(scannedAt, property.Timezone))

	entry := models.EntryLog{
		StudentID:       student.ID,
		PropertyID:      property.ID,
		Direction:       direction,
		CurfewViolation: flagged,
		ScannedAt:       scannedAt,
	}
	if err := s.entries.Append(ctx, &entry); err != nil {
		s.logger.Error().Err(err).Uint("student_id", student.ID).Uint("property_id", property.ID).Msg("ledger append failed")
		return dto.ScanResult{}, fmt.Errorf("%w: %v", ErrEntryStoreFailed, err)
	}

	observability.ScansTotal().WithLabelValues(direction).Inc()
	if flagged {
		observability.CurfewViolations().Inc()
	}

	if s.alerts != nil {
		go s.alerts.ScanRecorded(student, property, entry)
	}

	s.logger.Info().
		Uint("student_id", student.ID).
		Uint("property_id", property.ID).
		Str("direction", direction).
		Bool("curfew_violation", flagged).
		Msg("gate scan recorded")

	return dto.ScanResult{
		Success:    true,
		Direction:  direction,
		PersonName: student.FullName,
		Flagged:    flagged,
		Timestamp:  scannedAt,
		Message:    scanMessage(student.FullName, direction, flagged),
	}, nil
}

// ListPropertyLog returns recent ledger entries for a property the operator
// owns.
func (s *scanService) ListPropertyLog(ctx context.Context, operator models.User, propertyID uint, limit int) ([]dto.EntryLogResponse, error) {
	property, err := s.ownedProperty(ctx, operator, propertyID)
	if err != nil {
		return nil, err
	}

	entries, err := s.entries.ListForProperty(ctx, property.ID, limit, 0)
	if err != nil {
		return nil, err
	}

	return dto.NewEntryLogResponseSlice(entries), nil
}

// ListStudentLog returns a student's own recent ledger entries.
func (s *scanService) ListStudentLog(ctx context.Context, studentID uint, limit int) ([]dto.EntryLogResponse, error) {
	entries, err := s.entries.ListForStudent(ctx, studentID, limit, 0)
	if err != nil {
		return nil, err
	}

	return dto.NewEntryLogResponseSlice(entries), nil
}

// CountInside reports how many students are currently inside the property.
func (s *scanService) CountInside(ctx context.Context, operator models.User, propertyID uint) (int64, error) {
	property, err := s.ownedProperty(ctx, operator, propertyID)
	if err != nil {
		return 0, err
	}

	return s.entries.CountInside(ctx, property.ID)
}

func (s *scanService) ownedProperty(ctx context.Context, operator models.User, propertyID uint) (models.Property, error) {
	if !operator.IsOperator() {
		return models.Property{}, ErrUnauthorized
	}

	property, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Property{}, ErrPropertyNotFound
		}
		return models.Property{}, err
	}
	if property.OwnerID != operator.ID {
		return models.Property{}, ErrNotPropertyOwner
	}

	return property, nil
}

func (s *scanService) localTime(t time.Time, tz string) time.Time {
	if tz == "" {
		tz = s.defaultTZ
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.logger.Warn().Str("timezone", tz).Msg("unknown timezone, curfew evaluated in UTC")
		return t
	}
	return t.In(loc)
}

func scanMessage(name string, direction string, flagged bool) string {
	verb := "entered"
	if direction == models.DirectionLeave {
		verb = "left"
	}
	msg := fmt.Sprintf("%s %s", name, verb)
	if flagged {
		msg += " ⚠️ Curfew violation!"
	}
	return msg
}
