package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/rentease/rentease-api/internal/dto"
	"github.com/rentease/rentease-api/internal/models"
	"github.com/rentease/rentease-api/internal/repository"
)

// ErrDisputeNotFound indicates the dispute does not exist.
var ErrDisputeNotFound = errors.New("dispute not found")

// ErrDisputeClosed indicates the dispute has already been decided.
var ErrDisputeClosed = errors.New("dispute already closed")

// DisputeAlertSink receives dispute lifecycle events for alerting.
type DisputeAlertSink interface {
	DisputeRaised(dispute models.Dispute)
	DisputeDecided(dispute models.Dispute)
}

// DisputeService handles complaints between tenants, owners, and the
// platform.
type DisputeService interface {
	Raise(ctx context.Context, actor models.User, payload dto.DisputeCreateRequest) (models.Dispute, error)
	Resolve(ctx context.Context, admin models.User, disputeID uint, payload dto.DisputeResolveRequest) (models.Dispute, error)
	ListForUser(ctx context.Context, userID uint) ([]models.Dispute, error)
	ListForOwner(ctx context.Context, ownerID uint) ([]models.Dispute, error)
	ListOpen(ctx context.Context) ([]models.Dispute, error)
}

type disputeService struct {
	disputes   repository.DisputeRepository
	properties repository.PropertyRepository
	sanitizer  *bluemonday.Policy
	alerts     DisputeAlertSink
	validator  *validator.Validate
	logger     zerolog.Logger
	now        func() time.Time
}

// NewDisputeService builds the dispute service.
func NewDisputeService(disputes repository.DisputeRepository, properties repository.PropertyRepository, alerts DisputeAlertSink, validate *validator.Validate, logger zerolog.Logger) DisputeService {
	return &disputeService{
		disputes:   disputes,
		properties: properties,
		sanitizer:  bluemonday.StrictPolicy(),
		alerts:     alerts,
		validator:  validate,
		logger:     logger.With().Str("component", "dispute_service").Logger(),
		now:        time.Now,
	}
}

// Raise files a new dispute. Free-text fields are sanitized since they are
// rendered in owner and admin dashboards.
func (s *disputeService) Raise(ctx context.Context, actor models.User, payload dto.DisputeCreateRequest) (models.Dispute, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.Dispute{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	evidence, err := json.Marshal(payload.EvidenceURLs)
	if err != nil {
		return models.Dispute{}, err
	}

	dispute := models.Dispute{
		RaisedByID:   actor.ID,
		PropertyID:   payload.PropertyID,
		InvoiceID:    payload.InvoiceID,
		Title:        s.sanitizer.Sanitize(payload.Title),
		Description:  s.sanitizer.Sanitize(payload.Description),
		EvidenceURLs: datatypes.JSON(evidence),
		Status:       models.DisputeStatusOpen,
	}
	if err := s.disputes.Create(ctx, &dispute); err != nil {
		return models.Dispute{}, err
	}

	if s.alerts != nil {
		go s.alerts.DisputeRaised(dispute)
	}

	s.logger.Info().Uint("dispute_id", dispute.ID).Uint("raised_by", actor.ID).Msg("dispute raised")

	return dispute, nil
}

// Resolve records an admin verdict on an open dispute.
func (s *disputeService) Resolve(ctx context.Context, admin models.User, disputeID uint, payload dto.DisputeResolveRequest) (models.Dispute, error) {
	if admin.Role != models.RoleAdmin {
		return models.Dispute{}, ErrForbidden
	}
	if err := s.validator.Struct(payload); err != nil {
		return models.Dispute{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	dispute, err := s.disputes.GetByID(ctx, disputeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Dispute{}, ErrDisputeNotFound
		}
		return models.Dispute{}, err
	}
	if dispute.Status != models.DisputeStatusOpen {
		return models.Dispute{}, ErrDisputeClosed
	}

	resolvedAt := s.now().UTC()
	dispute.Status = payload.Status
	dispute.Resolution = s.sanitizer.Sanitize(payload.Resolution)
	dispute.ResolvedAt = &resolvedAt
	if err := s.disputes.Save(ctx, &dispute); err != nil {
		return models.Dispute{}, err
	}

	if s.alerts != nil {
		go s.alerts.DisputeDecided(dispute)
	}

	s.logger.Info().Uint("dispute_id", dispute.ID).Str("status", dispute.Status).Msg("dispute decided")

	return dispute, nil
}

func (s *disputeService) ListForUser(ctx context.Context, userID uint) ([]models.Dispute, error) {
	return s.disputes.ListForRaiser(ctx, userID)
}

// ListForOwner returns disputes raised against any property the owner holds.
func (s *disputeService) ListForOwner(ctx context.Context, ownerID uint) ([]models.Dispute, error) {
	propertyIDs, err := s.properties.ListOwnerIDs(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(propertyIDs) == 0 {
		return []models.Dispute{}, nil
	}
	return s.disputes.ListForProperties(ctx, propertyIDs)
}

func (s *disputeService) ListOpen(ctx context.Context) ([]models.Dispute, error) {
	all, err := s.disputes.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	open := make([]models.Dispute, 0, len(all))
	for _, d := range all {
		if d.Status == models.DisputeStatusOpen {
			open = append(open, d)
		}
	}
	return open, nil
}
