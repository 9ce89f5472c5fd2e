package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rentease/rentease-api/internal/service"
	"github.com/rentease/rentease-api/internal/utils"
)

// QRHandler serves the student's entry code.
type QRHandler struct {
	service service.QRService
	logger  zerolog.Logger
}

// NewQRHandler constructs the handler.
func NewQRHandler(service service.QRService, logger zerolog.Logger) *QRHandler {
	return &QRHandler{
		service: service,
		logger:  logger.With().Str("component", "qr_handler").Logger(),
	}
}

// Register attaches entry code endpoints to the student group.
func (h *QRHandler) Register(router fiber.Router) {
	router.Get("/me/qr", h.get)
	router.Post("/me/qr", h.issue)
	router.Post("/me/qr/rotate", h.rotate)
}

func (h *QRHandler) get(c *fiber.Ctx) error {
	code, err := h.service.Get(c.Context(), userIDFromContext(c))
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "entry code retrieved", code)
}

func (h *QRHandler) issue(c *fiber.Ctx) error {
	code, err := h.service.Issue(c.Context(), userIDFromContext(c))
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "entry code issued", code)
}

func (h *QRHandler) rotate(c *fiber.Ctx) error {
	code, err := h.service.Rotate(c.Context(), userIDFromContext(c))
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "entry code rotated", code)
}
