package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/rentease/rentease-api/internal/dto"
	"github.com/rentease/rentease-api/internal/models"
	"github.com/rentease/rentease-api/internal/observability"
	"github.com/rentease/rentease-api/internal/repository"
)

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the detected MIME type is not an image.
	ErrUploadTypeNotAllowed = errors.New("only image uploads are allowed")
)

// Property photos and payment proofs are the only upload surfaces, so the
// allow list stays image-only.
var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

// FileStorage abstracts the upload destination. scope groups assets, e.g.
// "property-42".
type FileStorage interface {
	Upload(ctx context.Context, scope, name string, reader io.Reader) (string, error)
}

// UploadService validates and stores user-submitted images.
type UploadService interface {
	UploadPropertyPhoto(ctx context.Context, owner models.User, propertyID uint, file *multipart.FileHeader) (dto.UploadResponse, error)
	UploadPaymentProof(ctx context.Context, student models.User, file *multipart.FileHeader) (dto.UploadResponse, error)
}

type uploadService struct {
	storage    FileStorage
	repo       repository.UploadRepository
	properties repository.PropertyRepository
	maxSize    int64
	tracer     trace.Tracer
	logger     zerolog.Logger
}

// NewUploadService constructs the upload service.
func NewUploadService(storage FileStorage, repo repository.UploadRepository, properties repository.PropertyRepository, maxSizeMB int, logger zerolog.Logger) UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &uploadService{
		storage:    storage,
		repo:       repo,
		properties: properties,
		maxSize:    int64(maxSizeMB) * 1024 * 1024,
		tracer:     otel.Tracer("github.com/rentease/rentease-api/internal/service/upload"),
		logger:     logger.With().Str("component", "upload_service").Logger(),
	}
}

// UploadPropertyPhoto stores a listing photo for the owner's property.
func (s *uploadService) UploadPropertyPhoto(ctx context.Context, owner models.User, propertyID uint, file *multipart.FileHeader) (dto.UploadResponse, error) {
	property, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UploadResponse{}, ErrPropertyNotFound
		}
		return dto.UploadResponse{}, err
	}
	if property.OwnerID != owner.ID {
		return dto.UploadResponse{}, ErrNotPropertyOwner
	}

	return s.store(ctx, file, fmt.Sprintf("property-%d", property.ID), &owner.ID, &property.ID)
}

// UploadPaymentProof stores a UPI payment screenshot for the student.
func (s *uploadService) UploadPaymentProof(ctx context.Context, student models.User, file *multipart.FileHeader) (dto.UploadResponse, error) {
	return s.store(ctx, file, fmt.Sprintf("proof-%d", student.ID), &student.ID, nil)
}

func (s *uploadService) store(ctx context.Context, file *multipart.FileHeader, scope string, userID, propertyID *uint) (dto.UploadResponse, error) {
	ctx, span := s.tracer.Start(ctx, "upload.store")
	defer span.End()

	start := time.Now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	if file == nil {
		err := errors.New("file is required")
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.UploadResponse{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	span.SetAttributes(
		attribute.String("upload.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("upload.request_size", file.Size),
	)

	if file.Size > s.maxSize {
		observability.UploadRejected().WithLabelValues("size").Inc()
		span.RecordError(ErrUploadTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return dto.UploadResponse{}, ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		return dto.UploadResponse{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		return dto.UploadResponse{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		observability.UploadRejected().WithLabelValues("size").Inc()
		span.RecordError(ErrUploadTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return dto.UploadResponse{}, ErrUploadTooLarge
	}

	detected := mimetype.Detect(buf.Bytes())
	contentType := detected.String()
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	span.SetAttributes(attribute.String("upload.detected_mime", contentType))
	if _, ok := allowedImageTypes[contentType]; !ok {
		observability.UploadRejected().WithLabelValues("type").Inc()
		span.RecordError(ErrUploadTypeNotAllowed)
		span.SetStatus(codes.Error, "type not allowed")
		return dto.UploadResponse{}, ErrUploadTypeNotAllowed
	}

	checksum := sha256.Sum256(buf.Bytes())
	name := sanitizeFileName(file.Filename)

	url, err := s.storage.Upload(ctx, scope, name, bytes.NewReader(buf.Bytes()))
	if err != nil {
		observability.UploadRejected().WithLabelValues("storage").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return dto.UploadResponse{}, err
	}

	record := models.Upload{
		UserID:      userID,
		PropertyID:  propertyID,
		FileName:    name,
		URL:         url,
		ContentType: contentType,
		Size:        int64(buf.Len()),
		Checksum:    hex.EncodeToString(checksum[:]),
	}
	if err := s.repo.Create(ctx, &record); err != nil {
		span.RecordError(err)
		return dto.UploadResponse{}, err
	}

	s.logger.Info().Str("scope", scope).Str("file", name).Int64("size", record.Size).Msg("image stored")

	return dto.UploadResponse{
		ID:          record.ID,
		FileName:    record.FileName,
		URL:         record.URL,
		ContentType: record.ContentType,
		Size:        record.Size,
	}, nil
}

func sanitizeFileName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, base)

	if base == "" || base == "." {
		base = "upload"
	}
	return base
}
