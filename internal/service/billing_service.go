package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/rentease/rentease-api/internal/dto"
	"github.com/rentease/rentease-api/internal/models"
	"github.com/rentease/rentease-api/internal/observability"
	"github.com/rentease/rentease-api/internal/repository"
	"github.com/rentease/rentease-api/pkg/mailer"
)

// Reminder escalation days within the billing month.
const (
	reminderDay = 5
	lateFeeDay  = 10
	flagDay     = 15
)

// ErrInvoiceNotFound indicates the invoice does not exist.
var ErrInvoiceNotFound = errors.New("invoice not found")

// InvoiceAlertSink receives billing lifecycle events for alerting.
type InvoiceAlertSink interface {
	InvoiceGenerated(invoice models.Invoice)
	InvoiceOverdue(invoice models.Invoice)
}

// BillingService generates monthly invoices and runs the reminder
// escalation ladder.
type BillingService interface {
	RunMonthlyBilling(ctx context.Context, month time.Time) (dto.BillingRunResult, error)
	RunReminders(ctx context.Context, today time.Time) (dto.ReminderRunResult, error)
	GetInvoice(ctx context.Context, id uint) (models.Invoice, error)
	ListForStudent(ctx context.Context, studentID uint) ([]models.Invoice, error)
	ListForOwner(ctx context.Context, ownerID uint) ([]models.Invoice, error)
}

type billingService struct {
	invoices    repository.InvoiceRepository
	enrollments repository.EnrollmentRepository
	electricity repository.ElectricityRepository
	properties  repository.PropertyRepository
	users       repository.UserRepository
	mail        *mailer.Mailer
	alerts      InvoiceAlertSink
	dueDays     int
	lateFeePct  int
	logger      zerolog.Logger
}

// NewBillingService builds the billing service.
func NewBillingService(
	invoices repository.InvoiceRepository,
	enrollments repository.EnrollmentRepository,
	electricity repository.ElectricityRepository,
	properties repository.PropertyRepository,
	users repository.UserRepository,
	mail *mailer.Mailer,
	alerts InvoiceAlertSink,
	dueDays, lateFeePct int,
	logger zerolog.Logger,
) BillingService {
	if dueDays <= 0 {
		dueDays = 4
	}
	if lateFeePct <= 0 {
		lateFeePct = 2
	}
	return &billingService{
		invoices:    invoices,
		enrollments: enrollments,
		electricity: electricity,
		properties:  properties,
		users:       users,
		mail:        mail,
		alerts:      alerts,
		dueDays:     dueDays,
		lateFeePct:  lateFeePct,
		logger:      logger.With().Str("component", "billing_service").Logger(),
	}
}

// RunMonthlyBilling generates one invoice per active enrollment for the
// given month. The run is idempotent: enrollments already invoiced for the
// month are skipped, so a crashed run can simply be repeated.
func (s *billingService) RunMonthlyBilling(ctx context.Context, month time.Time) (dto.BillingRunResult, error) {
	monthKey := monthStart(month).Format(models.BillingMonthLayout)
	result := dto.BillingRunResult{BillingMonth: monthKey}

	enrollments, err := s.enrollments.ListActive(ctx)
	if err != nil {
		return result, err
	}

	// Electricity splits per property: total metered amount divided evenly
	// across that property's active tenants.
	perProperty := make(map[uint][]models.Enrollment)
	for _, e := range enrollments {
		perProperty[e.PropertyID] = append(perProperty[e.PropertyID], e)
	}

	dueDate := monthStart(month).AddDate(0, 0, s.dueDays).Format(models.BillingMonthLayout)

	for propertyID, tenants := range perProperty {
		electricityTotal, err := s.electricity.TotalForPropertyMonth(ctx, propertyID, monthKey)
		if err != nil {
			s.logger.Error().Err(err).Uint("property_id", propertyID).Msg("electricity total lookup failed")
			electricityTotal = 0
		}
		share := int64(0)
		if len(tenants) > 0 {
			share = electricityTotal / int64(len(tenants))
		}

		for _, enrollment := range tenants {
			if _, err := s.invoices.GetForEnrollmentMonth(ctx, enrollment.ID, monthKey); err == nil {
				result.Skipped++
				observability.InvoicesGenerated().WithLabelValues("skipped").Inc()
				continue
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				result.Failed++
				observability.InvoicesGenerated().WithLabelValues("failed").Inc()
				continue
			}

			invoice := models.Invoice{
				EnrollmentID:      enrollment.ID,
				StudentID:         enrollment.StudentID,
				PropertyID:        enrollment.PropertyID,
				BillingMonth:      monthKey,
				BaseRent:          enrollment.MonthlyRent,
				ElectricityAmount: share,
				TotalAmount:       enrollment.MonthlyRent + share,
				DueDate:           dueDate,
				Status:            models.InvoiceStatusPending,
			}
			if err := s.invoices.Create(ctx, &invoice); err != nil {
				s.logger.Error().Err(err).Uint("enrollment_id", enrollment.ID).Msg("invoice creation failed")
				result.Failed++
				observability.InvoicesGenerated().WithLabelValues("failed").Inc()
				continue
			}

			result.Generated++
			observability.InvoicesGenerated().WithLabelValues("generated").Inc()

			s.notifyInvoice(ctx, invoice, enrollment.Student)
			if s.alerts != nil {
				go s.alerts.InvoiceGenerated(invoice)
			}
		}
	}

	s.logger.Info().
		Str("billing_month", monthKey).
		Int("generated", result.Generated).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("monthly billing run complete")

	return result, nil
}

// RunReminders escalates unpaid invoices for the current billing month:
// reminder email on day 5, a one-time late fee on day 10, account flagging
// on day 15. Days before the first rung are a no-op so the cron can run
// daily.
func (s *billingService) RunReminders(ctx context.Context, today time.Time) (dto.ReminderRunResult, error) {
	day := today.Day()
	result := dto.ReminderRunResult{DayOfMonth: day}
	if day < reminderDay {
		return result, nil
	}

	monthKey := monthStart(today).Format(models.BillingMonthLayout)
	unpaid, err := s.invoices.ListUnpaidForMonth(ctx, monthKey)
	if err != nil {
		return result, err
	}

	for _, invoice := range unpaid {
		student, err := s.users.GetByID(ctx, invoice.StudentID)
		if err != nil {
			s.logger.Error().Err(err).Uint("invoice_id", invoice.ID).Msg("student lookup failed during reminders")
			continue
		}

		switch {
		case day >= flagDay:
			if !student.AccountFlagged {
				if err := s.users.SetAccountFlagged(ctx, student.ID, true); err != nil {
					s.logger.Error().Err(err).Uint("student_id", student.ID).Msg("account flagging failed")
					continue
				}
				result.Flagged++
			}
			fallthrough
		case day >= lateFeeDay:
			if invoice.LateFee == 0 {
				invoice.LateFee = invoice.TotalAmount * int64(s.lateFeePct) / 100
				invoice.TotalAmount += invoice.LateFee
				invoice.Status = models.InvoiceStatusOverdue
				if err := s.invoices.Save(ctx, &invoice); err != nil {
					s.logger.Error().Err(err).Uint("invoice_id", invoice.ID).Msg("late fee application failed")
					continue
				}
				result.LateFees++

				if s.mail != nil && student.Email != "" {
					subject, body := mailer.LateFeeEmail(student.FullName, invoice.LateFee, invoice.TotalAmount)
					if err := s.mail.Send(ctx, student.Email, subject, body); err != nil {
						s.logger.Warn().Err(err).Msg("late fee email failed")
					}
				}
				if s.alerts != nil {
					go s.alerts.InvoiceOverdue(invoice)
				}
			}
		default:
			due, err := time.Parse(models.BillingMonthLayout, invoice.DueDate)
			if err != nil {
				due = monthStart(today)
			}
			if s.mail != nil && student.Email != "" {
				subject, body := mailer.ReminderEmail(student.FullName, invoice.TotalAmount, due)
				if err := s.mail.Send(ctx, student.Email, subject, body); err != nil {
					s.logger.Warn().Err(err).Msg("reminder email failed")
					continue
				}
			}
			result.Reminders++
		}
	}

	s.logger.Info().
		Int("day", day).
		Int("reminders", result.Reminders).
		Int("late_fees", result.LateFees).
		Int("flagged", result.Flagged).
		Msg("reminder run complete")

	return result, nil
}

func (s *billingService) GetInvoice(ctx context.Context, id uint) (models.Invoice, error) {
	invoice, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Invoice{}, ErrInvoiceNotFound
		}
		return models.Invoice{}, err
	}
	return invoice, nil
}

func (s *billingService) ListForStudent(ctx context.Context, studentID uint) ([]models.Invoice, error) {
	return s.invoices.ListForStudent(ctx, studentID)
}

func (s *billingService) ListForOwner(ctx context.Context, ownerID uint) ([]models.Invoice, error) {
	propertyIDs, err := s.properties.ListOwnerIDs(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(propertyIDs) == 0 {
		return []models.Invoice{}, nil
	}
	return s.invoices.ListForProperties(ctx, propertyIDs)
}

func (s *billingService) notifyInvoice(ctx context.Context, invoice models.Invoice, student models.User) {
	if s.mail == nil || student.Email == "" {
		return
	}

	month, err := time.Parse(models.BillingMonthLayout, invoice.BillingMonth)
	if err != nil {
		return
	}
	due, err := time.Parse(models.BillingMonthLayout, invoice.DueDate)
	if err != nil {
		due = month.AddDate(0, 0, s.dueDays)
	}

	subject, body := mailer.InvoiceEmail(student.FullName, month, invoice.TotalAmount, due)
	if err := s.mail.Send(ctx, student.Email, subject, body); err != nil {
		s.logger.Warn().Err(err).Uint("invoice_id", invoice.ID).Msg("invoice email failed")
	}
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
