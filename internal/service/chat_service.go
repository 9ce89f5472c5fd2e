package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/rentease/rentease-api/internal/dto"
	"github.com/rentease/rentease-api/internal/models"
	"github.com/rentease/rentease-api/internal/repository"
	"github.com/rentease/rentease-api/pkg/assistant"
	"github.com/rentease/rentease-api/pkg/mailer"
)

// ErrAssistantUnavailable indicates no completion provider is configured.
var ErrAssistantUnavailable = errors.New("assistant unavailable")

const assistantSystemPrompt = `You are RentBot, the in-app helper of a student housing platform.
You answer questions about the user's tenancy, rent invoices, entry QR codes, curfew rules, and booking flow.
Keep answers short and practical. If asked something outside housing, politely decline.`

// ChatService runs the tenancy assistant, grounding each conversation in
// the student's current stay and latest unpaid invoice.
type ChatService interface {
	Chat(ctx context.Context, user models.User, payload dto.ChatRequest) (dto.ChatResponse, error)
}

type chatService struct {
	provider    assistant.Provider
	enrollments repository.EnrollmentRepository
	invoices    repository.InvoiceRepository
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewChatService builds the assistant service. provider may be nil when no
// API key is configured.
func NewChatService(provider assistant.Provider, enrollments repository.EnrollmentRepository, invoices repository.InvoiceRepository, validate *validator.Validate, logger zerolog.Logger) ChatService {
	return &chatService{
		provider:    provider,
		enrollments: enrollments,
		invoices:    invoices,
		validator:   validate,
		logger:      logger.With().Str("component", "chat_service").Logger(),
	}
}

func (s *chatService) Chat(ctx context.Context, user models.User, payload dto.ChatRequest) (dto.ChatResponse, error) {
	if s.provider == nil {
		return dto.ChatResponse{}, ErrAssistantUnavailable
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.ChatResponse{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	messages := make([]assistant.Message, 0, len(payload.Messages))
	for _, msg := range payload.Messages {
		messages = append(messages, assistant.Message{Role: msg.Role, Content: msg.Content})
	}

	reply, err := s.provider.Complete(ctx, s.systemPrompt(ctx, user), messages)
	if err != nil {
		s.logger.Error().Err(err).Uint("user_id", user.ID).Msg("assistant completion failed")
		return dto.ChatResponse{}, ErrAssistantUnavailable
	}

	return dto.ChatResponse{Reply: reply}, nil
}

// systemPrompt enriches the base prompt with the student's tenancy facts so
// the model can answer "when is my rent due" style questions directly.
func (s *chatService) systemPrompt(ctx context.Context, user models.User) string {
	var b strings.Builder
	b.WriteString(assistantSystemPrompt)
	fmt.Fprintf(&b, "\n\nThe user's name is %s and their role is %s.", user.FullName, user.Role)

	if user.Role != models.RoleStudent {
		return b.String()
	}

	enrollment, err := s.enrollments.LiveForStudent(ctx, user.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn().Err(err).Msg("tenancy lookup for assistant failed")
		}
		b.WriteString("\nThe user has no active stay.")
		return b.String()
	}

	fmt.Fprintf(&b, "\nCurrent stay: %s (status %s), monthly rent %s.",
		enrollment.Property.Name, enrollment.Status, mailer.FormatPaise(enrollment.MonthlyRent))

	invoices, err := s.invoices.ListForStudent(ctx, user.ID)
	if err == nil {
		for _, invoice := range invoices {
			if invoice.Status == models.InvoiceStatusPending || invoice.Status == models.InvoiceStatusOverdue {
				fmt.Fprintf(&b, "\nUnpaid invoice: %s for month %s, due %s (status %s).",
					mailer.FormatPaise(invoice.TotalAmount), invoice.BillingMonth, invoice.DueDate, invoice.Status)
				break
			}
		}
	}

	return b.String()
}
