package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rentease/rentease-api/internal/dto"
	"github.com/rentease/rentease-api/internal/service"
	"github.com/rentease/rentease-api/internal/utils"
)

// DisputeHandler wires dispute routes.
type DisputeHandler struct {
	service service.DisputeService
	logger  zerolog.Logger
}

// NewDisputeHandler constructs the handler.
func NewDisputeHandler(service service.DisputeService, logger zerolog.Logger) *DisputeHandler {
	return &DisputeHandler{
		service: service,
		logger:  logger.With().Str("component", "dispute_handler").Logger(),
	}
}

// Register attaches dispute endpoints available to any signed-in user.
func (h *DisputeHandler) Register(router fiber.Router) {
	router.Post("/disputes", h.raise)
	router.Get("/me/disputes", h.listMine)
}

// RegisterOwner attaches the owner-scoped dispute listing.
func (h *DisputeHandler) RegisterOwner(router fiber.Router) {
	router.Get("/disputes", h.listForOwner)
}

// RegisterAdmin attaches moderation endpoints.
func (h *DisputeHandler) RegisterAdmin(router fiber.Router) {
	router.Get("/disputes/open", h.listOpen)
	router.Post("/disputes/:id/resolve", h.resolve)
}

func (h *DisputeHandler) raise(c *fiber.Ctx) error {
	var payload dto.DisputeCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	dispute, err := h.service.Raise(c.Context(), sessionUser(c), payload)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "dispute raised", dispute)
}

func (h *DisputeHandler) resolve(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.DisputeResolveRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	dispute, err := h.service.Resolve(c.Context(), sessionUser(c), id, payload)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "dispute decided", dispute)
}

func (h *DisputeHandler) listMine(c *fiber.Ctx) error {
	disputes, err := h.service.ListForUser(c.Context(), userIDFromContext(c))
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "disputes retrieved", disputes)
}

func (h *DisputeHandler) listForOwner(c *fiber.Ctx) error {
	disputes, err := h.service.ListForOwner(c.Context(), userIDFromContext(c))
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "disputes retrieved", disputes)
}

func (h *DisputeHandler) listOpen(c *fiber.Ctx) error {
	disputes, err := h.service.ListOpen(c.Context())
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "open disputes retrieved", disputes)
}
