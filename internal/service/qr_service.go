package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/rentease/rentease-api/internal/dto"
	"github.com/rentease/rentease-api/internal/models"
	"github.com/rentease/rentease-api/internal/repository"
	"github.com/rentease/rentease-api/pkg/qr"
)

// ErrQRNotIssued indicates the student has no entry code yet.
var ErrQRNotIssued = errors.New("entry code not issued")

// ErrQRUserNotFound indicates the user does not exist or is not a student.
var ErrQRUserNotFound = errors.New("student account not found")

// QRService issues and serves student entry codes. Tokens are opaque bearer
// credentials minted once per student and rotated on demand.
type QRService interface {
	Issue(ctx context.Context, studentID uint) (dto.QRCodeResponse, error)
	Get(ctx context.Context, studentID uint) (dto.QRCodeResponse, error)
	Rotate(ctx context.Context, studentID uint) (dto.QRCodeResponse, error)
}

type qrService struct {
	users  repository.UserRepository
	logger zerolog.Logger
}

// NewQRService builds the entry code service.
func NewQRService(users repository.UserRepository, logger zerolog.Logger) QRService {
	return &qrService{
		users:  users,
		logger: logger.With().Str("component", "qr_service").Logger(),
	}
}

// Issue returns the student's entry code, minting one on first use.
func (s *qrService) Issue(ctx context.Context, studentID uint) (dto.QRCodeResponse, error) {
	student, err := s.student(ctx, studentID)
	if err != nil {
		return dto.QRCodeResponse{}, err
	}

	if student.QRToken == nil || *student.QRToken == "" {
		return s.mint(ctx, student)
	}

	return s.render(*student.QRToken)
}

// Get returns the existing entry code without minting a new one.
func (s *qrService) Get(ctx context.Context, studentID uint) (dto.QRCodeResponse, error) {
	student, err := s.student(ctx, studentID)
	if err != nil {
		return dto.QRCodeResponse{}, err
	}

	if student.QRToken == nil || *student.QRToken == "" {
		return dto.QRCodeResponse{}, ErrQRNotIssued
	}

	return s.render(*student.QRToken)
}

// Rotate replaces the student's token, invalidating any previously shared
// code image.
func (s *qrService) Rotate(ctx context.Context, studentID uint) (dto.QRCodeResponse, error) {
	student, err := s.student(ctx, studentID)
	if err != nil {
		return dto.QRCodeResponse{}, err
	}

	return s.mint(ctx, student)
}

func (s *qrService) student(ctx context.Context, studentID uint) (models.User, error) {
	user, err := s.users.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrQRUserNotFound
		}
		return models.User{}, err
	}
	if user.Role != models.RoleStudent {
		return models.User{}, ErrQRUserNotFound
	}
	return user, nil
}

func (s *qrService) mint(ctx context.Context, student models.User) (dto.QRCodeResponse, error) {
	token, err := qr.GenerateToken(student.ID)
	if err != nil {
		return dto.QRCodeResponse{}, err
	}

	if err := s.users.SetQRToken(ctx, student.ID, token); err != nil {
		return dto.QRCodeResponse{}, err
	}

	s.logger.Info().Uint("student_id", student.ID).Msg("entry code minted")

	return s.render(token)
}

func (s *qrService) render(token string) (dto.QRCodeResponse, error) {
	payload, err := qr.EncodePayload(token)
	if err != nil {
		return dto.QRCodeResponse{}, err
	}

	image, err := qr.ImageDataURL(token, 0)
	if err != nil {
		return dto.QRCodeResponse{}, err
	}

	return dto.QRCodeResponse{Token: payload, QRDataURL: image}, nil
}
