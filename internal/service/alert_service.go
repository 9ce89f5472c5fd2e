package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/rentease/rentease-api/internal/dto"
	"github.com/rentease/rentease-api/internal/models"
	"github.com/rentease/rentease-api/internal/observability"
	"github.com/rentease/rentease-api/internal/repository"
	"github.com/rentease/rentease-api/pkg/mailer"
)

const alertBufferSize = 16

// AlertService persists in-app alerts and streams them live to connected
// clients. Cross-node fan-out rides redis pub/sub and NATS so a user's
// stream works regardless of which node holds their connection.
type AlertService interface {
	Publish(ctx context.Context, userID uint, alertType, message string, metadata map[string]interface{}) (dto.AlertResponse, error)
	List(ctx context.Context, userID uint, limit, offset int) ([]dto.AlertResponse, error)
	MarkRead(ctx context.Context, id, userID uint) (dto.AlertResponse, error)
	Subscribe(userID uint) (<-chan dto.AlertResponse, func())
	Start(ctx context.Context)

	ScanAlertSink
	EnrollmentAlertSink
	InvoiceAlertSink
	PaymentAlertSink
	DisputeAlertSink
}

type alertService struct {
	repo        repository.AlertRepository
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	mail        *mailer.Mailer
	sanitizer   *bluemonday.Policy
	tracer      trace.Tracer
	logger      zerolog.Logger
	broker      *alertBroker
	nodeID      string
}

type alertEvent struct {
	Source string            `json:"source"`
	Alert  dto.AlertResponse `json:"alert"`
	SentAt time.Time         `json:"sent_at"`
}

type alertBroker struct {
	mu          sync.RWMutex
	subscribers map[uint]map[chan dto.AlertResponse]struct{}
}

// NewAlertService constructs the alert service. channelBase namespaces the
// redis channel and NATS subject, e.g. "rentease".
func NewAlertService(repo repository.AlertRepository, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, mail *mailer.Mailer, logger zerolog.Logger) AlertService {
	stream := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":alerts"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".alerts"
	}

	return &alertService{
		repo:        repo,
		redis:       redisClient,
		redisStream: stream,
		nats:        natsConn,
		natsSubject: subject,
		mail:        mail,
		sanitizer:   bluemonday.StrictPolicy(),
		tracer:      otel.Tracer("github.com/rentease/rentease-api/internal/service/alert"),
		logger:      logger.With().Str("component", "alert_service").Logger(),
		broker: &alertBroker{
			subscribers: make(map[uint]map[chan dto.AlertResponse]struct{}),
		},
		nodeID: uuid.NewString(),
	}
}

// Start launches the cross-node consumers. Call once at boot.
func (s *alertService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

// Publish persists an alert and fans it out to the user's live streams.
func (s *alertService) Publish(ctx context.Context, userID uint, alertType, message string, metadata map[string]interface{}) (dto.AlertResponse, error) {
	clean := strings.TrimSpace(s.sanitizer.Sanitize(message))
	if clean == "" {
		return dto.AlertResponse{}, errors.New("alert message empty after sanitization")
	}

	spanCtx, span := s.tracer.Start(ctx, "alerts.publish", trace.WithAttributes(
		attribute.Int64("alert.user_id", int64(userID)),
		attribute.String("alert.type", alertType),
	))
	defer span.End()

	alert := models.Alert{
		UserID:  userID,
		Type:    alertType,
		Message: clean,
	}
	if metadata != nil {
		if raw, err := json.Marshal(metadata); err == nil {
			alert.Metadata = datatypes.JSON(raw)
		}
	}

	if err := s.repo.Create(spanCtx, &alert); err != nil {
		span.RecordError(err)
		return dto.AlertResponse{}, err
	}

	response := dto.NewAlertResponse(alert)
	s.broker.broadcast(userID, response)
	if err := s.fanOut(spanCtx, response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to fan out alert")
	}

	observability.AlertsPublished().WithLabelValues(alertType).Inc()

	return response, nil
}

func (s *alertService) List(ctx context.Context, userID uint, limit, offset int) ([]dto.AlertResponse, error) {
	alerts, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	return dto.NewAlertResponseSlice(alerts), nil
}

func (s *alertService) MarkRead(ctx context.Context, id, userID uint) (dto.AlertResponse, error) {
	alert, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return dto.AlertResponse{}, err
	}

	return dto.NewAlertResponse(alert), nil
}

// Subscribe opens a live stream of the user's alerts. The returned cleanup
// must be called when the client disconnects.
func (s *alertService) Subscribe(userID uint) (<-chan dto.AlertResponse, func()) {
	channel := make(chan dto.AlertResponse, alertBufferSize)

	s.broker.subscribe(userID, channel)
	observability.FeedClientsActive().Inc()

	cleanup := func() {
		s.broker.unsubscribe(userID, channel)
		observability.FeedClientsActive().Dec()
	}

	return channel, cleanup
}

// ScanRecorded alerts the property owner about a gate movement. Curfew
// violations additionally email the owner.
func (s *alertService) ScanRecorded(student models.User, property models.Property, entry models.EntryLog) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	message := scanMessage(student.FullName, entry.Direction, entry.CurfewViolation)
	alertType := models.AlertTypeScan
	if entry.CurfewViolation {
		alertType = models.AlertTypeCurfew
	}

	_, err := s.Publish(ctx, property.OwnerID, alertType, message, map[string]interface{}{
		"student_id":  student.ID,
		"property_id": property.ID,
		"direction":   entry.Direction,
		"scanned_at":  entry.ScannedAt,
	})
	if err != nil {
		s.logger.Error().Err(err).Uint("property_id", property.ID).Msg("scan alert publish failed")
	}

	if entry.CurfewViolation && s.mail != nil {
		owner := property.Owner
		if owner.Email != "" {
			subject, body := mailer.ScanAlertEmail(owner.FullName, student.FullName, property.Name, entry.ScannedAt)
			if err := s.mail.Send(ctx, owner.Email, subject, body); err != nil {
				s.logger.Warn().Err(err).Msg("curfew email failed")
			}
		}
	}
}

// EnrollmentRequested alerts the owner about a new booking request.
func (s *alertService) EnrollmentRequested(student models.User, property models.Property) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	message := fmt.Sprintf("%s requested to stay at %s", student.FullName, property.Name)
	if _, err := s.Publish(ctx, property.OwnerID, models.AlertTypeEnrollment, message, map[string]interface{}{
		"student_id":  student.ID,
		"property_id": property.ID,
	}); err != nil {
		s.logger.Error().Err(err).Msg("enrollment alert publish failed")
	}
}

// EnrollmentDecided alerts the student about the owner's verdict.
func (s *alertService) EnrollmentDecided(enrollment models.Enrollment, approved bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	verdict := "approved"
	if !approved {
		verdict = "rejected"
	}
	message := fmt.Sprintf("Your booking request was %s", verdict)
	if _, err := s.Publish(ctx, enrollment.StudentID, models.AlertTypeEnrollment, message, map[string]interface{}{
		"enrollment_id": enrollment.ID,
		"property_id":   enrollment.PropertyID,
	}); err != nil {
		s.logger.Error().Err(err).Msg("enrollment decision alert publish failed")
	}
}

// InvoiceGenerated alerts the tenant about a fresh invoice.
func (s *alertService) InvoiceGenerated(invoice models.Invoice) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	message := fmt.Sprintf("Rent invoice of %s is due by %s", mailer.FormatPaise(invoice.TotalAmount), invoice.DueDate)
	if _, err := s.Publish(ctx, invoice.StudentID, models.AlertTypeInvoice, message, map[string]interface{}{
		"invoice_id": invoice.ID,
	}); err != nil {
		s.logger.Error().Err(err).Msg("invoice alert publish failed")
	}
}

// InvoiceOverdue alerts the tenant that a late fee was applied.
func (s *alertService) InvoiceOverdue(invoice models.Invoice) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	message := fmt.Sprintf("Your rent is overdue. A late fee of %s was applied", mailer.FormatPaise(invoice.LateFee))
	if _, err := s.Publish(ctx, invoice.StudentID, models.AlertTypeInvoice, message, map[string]interface{}{
		"invoice_id": invoice.ID,
	}); err != nil {
		s.logger.Error().Err(err).Msg("overdue alert publish failed")
	}
}

// PaymentSettled alerts both the tenant and the owner about a settlement.
func (s *alertService) PaymentSettled(invoice models.Invoice, captured bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	metadata := map[string]interface{}{"invoice_id": invoice.ID}
	if captured {
		message := fmt.Sprintf("Payment of %s received", mailer.FormatPaise(invoice.TotalAmount))
		if _, err := s.Publish(ctx, invoice.StudentID, models.AlertTypePayment, message, metadata); err != nil {
			s.logger.Error().Err(err).Msg("payment alert publish failed")
		}
		if invoice.Property.OwnerID != 0 {
			ownerMessage := fmt.Sprintf("Rent of %s collected for %s", mailer.FormatPaise(invoice.TotalAmount), invoice.Property.Name)
			if _, err := s.Publish(ctx, invoice.Property.OwnerID, models.AlertTypePayment, ownerMessage, metadata); err != nil {
				s.logger.Error().Err(err).Msg("owner payment alert publish failed")
			}
		}
		return
	}

	if _, err := s.Publish(ctx, invoice.StudentID, models.AlertTypePayment, "Your rent payment failed, please retry", metadata); err != nil {
		s.logger.Error().Err(err).Msg("payment failure alert publish failed")
	}
}

// DisputeRaised confirms the filing to the raiser. Admins discover open
// disputes through the dashboard listing.
func (s *alertService) DisputeRaised(dispute models.Dispute) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := s.Publish(ctx, dispute.RaisedByID, models.AlertTypeDispute, "Your dispute was filed and is under review", map[string]interface{}{
		"dispute_id": dispute.ID,
	}); err != nil {
		s.logger.Error().Err(err).Msg("dispute alert publish failed")
	}
}

// DisputeDecided alerts the raiser about the verdict.
func (s *alertService) DisputeDecided(dispute models.Dispute) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	message := fmt.Sprintf("Your dispute %q was %s", dispute.Title, dispute.Status)
	if _, err := s.Publish(ctx, dispute.RaisedByID, models.AlertTypeDispute, message, map[string]interface{}{
		"dispute_id": dispute.ID,
	}); err != nil {
		s.logger.Error().Err(err).Msg("dispute decision alert publish failed")
	}
}

func (s *alertService) fanOut(ctx context.Context, alert dto.AlertResponse) error {
	event := alertEvent{
		Source: s.nodeID,
		Alert:  alert,
		SentAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(ctx, s.redisStream, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *alertService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("alert redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *alertService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "rentease-alerts", func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats alerts subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain alert nats subscription")
		}
	}()
}

func (s *alertService) handleEvent(payload []byte) {
	var event alertEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid alert event payload")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	s.broker.broadcast(event.Alert.UserID, event.Alert)
}

func (b *alertBroker) subscribe(userID uint, ch chan dto.AlertResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[userID]; !exists {
		b.subscribers[userID] = make(map[chan dto.AlertResponse]struct{})
	}
	b.subscribers[userID][ch] = struct{}{}
}

func (b *alertBroker) unsubscribe(userID uint, ch chan dto.AlertResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[userID]; ok {
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, userID)
		}
	}
}

func (b *alertBroker) broadcast(userID uint, alert dto.AlertResponse) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subscribers := b.subscribers[userID]
	for ch := range subscribers {
		select {
		case ch <- alert:
		default:
		}
	}
}
