package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rentease/rentease-api/internal/dto"
	"github.com/rentease/rentease-api/internal/service"
	"github.com/rentease/rentease-api/internal/utils"
)

// ScanHandler wires the gate ledger HTTP routes.
type ScanHandler struct {
	service service.ScanService
	logger  zerolog.Logger
}

// NewScanHandler constructs the handler.
func NewScanHandler(service service.ScanService, logger zerolog.Logger) *ScanHandler {
	return &ScanHandler{
		service: service,
		logger:  logger.With().Str("component", "scan_handler").Logger(),
	}
}

// RegisterOperator attaches owner-facing scan endpoints.
func (h *ScanHandler) RegisterOperator(router fiber.Router) {
	router.Post("/scan", h.scan)
	router.Get("/properties/:id/entries", h.propertyLog)
	router.Get("/properties/:id/inside", h.countInside)
}

// RegisterStudent attaches the student's own ledger view.
func (h *ScanHandler) RegisterStudent(router fiber.Router) {
	router.Get("/me/entries", h.studentLog)
}

// scan responds with the flat result shape scanner devices expect rather
// than the standard envelope.
func (h *ScanHandler) scan(c *fiber.Ctx) error {
	var payload dto.ScanRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.RecordScan(c.Context(), sessionUser(c), payload)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *ScanHandler) propertyLog(c *fiber.Ctx) error {
	propertyID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	entries, err := h.service.ListPropertyLog(c.Context(), sessionUser(c), propertyID, limit)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "entries retrieved", entries)
}

func (h *ScanHandler) countInside(c *fiber.Ctx) error {
	propertyID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	count, err := h.service.CountInside(c.Context(), sessionUser(c), propertyID)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "occupancy retrieved", fiber.Map{"inside": count})
}

func (h *ScanHandler) studentLog(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	entries, err := h.service.ListStudentLog(c.Context(), userIDFromContext(c), limit)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "entries retrieved", entries)
}
