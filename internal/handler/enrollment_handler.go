package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rentease/rentease-api/internal/dto"
	"github.com/rentease/rentease-api/internal/repository"
	"github.com/rentease/rentease-api/internal/service"
	"github.com/rentease/rentease-api/internal/utils"
)

// EnrollmentHandler wires the booking workflow routes.
type EnrollmentHandler struct {
	service service.EnrollmentService
	users   repository.UserRepository
	logger  zerolog.Logger
}

// NewEnrollmentHandler constructs the handler.
func NewEnrollmentHandler(service service.EnrollmentService, users repository.UserRepository, logger zerolog.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		service: service,
		users:   users,
		logger:  logger.With().Str("component", "enrollment_handler").Logger(),
	}
}

// RegisterStudent attaches student booking endpoints.
func (h *EnrollmentHandler) RegisterStudent(router fiber.Router) {
	router.Post("/enrollments", h.request)
	router.Get("/me/enrollments", h.listMine)
}

// RegisterOwner attaches owner decision endpoints.
func (h *EnrollmentHandler) RegisterOwner(router fiber.Router) {
	router.Get("/enrollments", h.listForOwner)
	router.Post("/enrollments/:id/decision", h.decide)
}

// RegisterShared attaches routes both parties use. The service checks that
// the caller is the tenant, the property owner, or an admin.
func (h *EnrollmentHandler) RegisterShared(router fiber.Router) {
	router.Post("/enrollments/:id/end", h.end)
}

func (h *EnrollmentHandler) request(c *fiber.Ctx) error {
	var payload dto.EnrollmentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	student, err := loadUser(c, h.users)
	if err != nil {
		return utils.SendError(c, fiber.StatusUnauthorized, "unknown user")
	}

	enrollment, err := h.service.Request(c.Context(), student, payload)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "booking requested", enrollment)
}

func (h *EnrollmentHandler) decide(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.EnrollmentDecisionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	enrollment, err := h.service.Decide(c.Context(), sessionUser(c), id, payload)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "booking decided", enrollment)
}

func (h *EnrollmentHandler) end(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	enrollment, err := h.service.End(c.Context(), sessionUser(c), id)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "stay ended", enrollment)
}

func (h *EnrollmentHandler) listMine(c *fiber.Ctx) error {
	enrollments, err := h.service.ListForStudent(c.Context(), userIDFromContext(c))
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "bookings retrieved", enrollments)
}

func (h *EnrollmentHandler) listForOwner(c *fiber.Ctx) error {
	status := strings.TrimSpace(c.Query("status"))

	enrollments, err := h.service.ListForOwner(c.Context(), userIDFromContext(c), status)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "bookings retrieved", enrollments)
}
