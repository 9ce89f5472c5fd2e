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
)

// ElectricityService records meter readings and rolls the charge into any
// invoices already issued for the same month.
type ElectricityService interface {
	RecordReading(ctx context.Context, owner models.User, payload dto.ElectricityReadingRequest) (dto.ElectricityReadingResponse, error)
	ListForProperty(ctx context.Context, owner models.User, propertyID uint) ([]models.ElectricityBill, error)
}

type electricityService struct {
	electricity repository.ElectricityRepository
	properties  repository.PropertyRepository
	invoices    repository.InvoiceRepository
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewElectricityService builds the electricity service.
func NewElectricityService(
	electricity repository.ElectricityRepository,
	properties repository.PropertyRepository,
	invoices repository.InvoiceRepository,
	validate *validator.Validate,
	logger zerolog.Logger,
) ElectricityService {
	return &electricityService{
		electricity: electricity,
		properties:  properties,
		invoices:    invoices,
		validator:   validate,
		logger:      logger.With().Str("component", "electricity_service").Logger(),
	}
}

// RecordReading stores a meter reading for the owner's property. When
// invoices for the billing month already exist, the per-tenant share is
// added to each unpaid one, so readings submitted after the billing run
// still reach the tenants.
func (s *electricityService) RecordReading(ctx context.Context, owner models.User, payload dto.ElectricityReadingRequest) (dto.ElectricityReadingResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ElectricityReadingResponse{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if _, err := time.Parse(models.BillingMonthLayout, payload.BillingMonth); err != nil {
		return dto.ElectricityReadingResponse{}, fmt.Errorf("%w: billing month must be %s", ErrInvalidPayload, models.BillingMonthLayout)
	}

	property, err := s.properties.GetByID(ctx, payload.PropertyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ElectricityReadingResponse{}, ErrPropertyNotFound
		}
		return dto.ElectricityReadingResponse{}, err
	}
	if property.OwnerID != owner.ID {
		return dto.ElectricityReadingResponse{}, ErrNotPropertyOwner
	}

	units := payload.CurrReading - payload.PrevReading
	bill := models.ElectricityBill{
		PropertyID:    property.ID,
		RoomID:        payload.RoomID,
		BillingMonth:  payload.BillingMonth,
		PrevReading:   payload.PrevReading,
		CurrReading:   payload.CurrReading,
		UnitsConsumed: units,
		RatePerUnit:   payload.RatePerUnit,
		TotalAmount:   units * payload.RatePerUnit,
	}
	if err := s.electricity.Create(ctx, &bill); err != nil {
		return dto.ElectricityReadingResponse{}, err
	}

	updated, err := s.rollIntoInvoices(ctx, property.ID, payload.BillingMonth, bill.TotalAmount)
	if err != nil {
		s.logger.Error().Err(err).Uint("property_id", property.ID).Msg("electricity invoice roll-in failed")
	}

	s.logger.Info().
		Uint("property_id", property.ID).
		Int64("units", units).
		Int64("amount", bill.TotalAmount).
		Msg("electricity reading recorded")

	return dto.ElectricityReadingResponse{
		BillID:          bill.ID,
		UnitsConsumed:   units,
		TotalAmount:     bill.TotalAmount,
		InvoicesUpdated: updated,
	}, nil
}

func (s *electricityService) ListForProperty(ctx context.Context, owner models.User, propertyID uint) ([]models.ElectricityBill, error) {
	property, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}
	if property.OwnerID != owner.ID {
		return nil, ErrNotPropertyOwner
	}

	return s.electricity.ListForProperty(ctx, propertyID)
}

func (s *electricityService) rollIntoInvoices(ctx context.Context, propertyID uint, billingMonth string, amount int64) (int, error) {
	unpaid, err := s.invoices.ListUnpaidForMonth(ctx, billingMonth)
	if err != nil {
		return 0, err
	}

	var targets []models.Invoice
	for _, invoice := range unpaid {
		if invoice.PropertyID == propertyID {
			targets = append(targets, invoice)
		}
	}
	if len(targets) == 0 {
		return 0, nil
	}

	share := amount / int64(len(targets))
	updated := 0
	for _, invoice := range targets {
		invoice.ElectricityAmount += share
		invoice.TotalAmount += share
		if err := s.invoices.Save(ctx, &invoice); err != nil {
			s.logger.Error().Err(err).Uint("invoice_id", invoice.ID).Msg("invoice update failed")
			continue
		}
		updated++
	}

	return updated, nil
}
