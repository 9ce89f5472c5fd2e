package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rentease/rentease-api/internal/dto"
	"github.com/rentease/rentease-api/internal/models"
	"github.com/rentease/rentease-api/internal/repository"
	"github.com/rentease/rentease-api/internal/service"
	"github.com/rentease/rentease-api/internal/utils"
)

// PropertyHandler wires listing, search, and moderation routes.
type PropertyHandler struct {
	service service.PropertyService
	pricing service.PricingService
	uploads service.UploadService
	users   repository.UserRepository
	logger  zerolog.Logger
}

// NewPropertyHandler constructs the handler.
func NewPropertyHandler(
	propertyService service.PropertyService,
	pricingService service.PricingService,
	uploadService service.UploadService,
	users repository.UserRepository,
	logger zerolog.Logger,
) *PropertyHandler {
	return &PropertyHandler{
		service: propertyService,
		pricing: pricingService,
		uploads: uploadService,
		users:   users,
		logger:  logger.With().Str("component", "property_handler").Logger(),
	}
}

// RegisterStudent attaches search and detail endpoints.
func (h *PropertyHandler) RegisterStudent(router fiber.Router) {
	router.Get("/properties/search", h.search)
	router.Get("/properties/:id", h.get)
}

// RegisterOwner attaches listing management endpoints.
func (h *PropertyHandler) RegisterOwner(router fiber.Router) {
	router.Post("/properties", h.create)
	router.Get("/properties", h.listMine)
	router.Post("/properties/:id/rooms", h.addRoom)
	router.Post("/properties/:id/photos", h.uploadPhoto)
	router.Get("/properties/:id/pricing-history", h.pricingHistory)
}

// RegisterAdmin attaches moderation endpoints.
func (h *PropertyHandler) RegisterAdmin(router fiber.Router) {
	router.Patch("/properties/:id/status", h.setStatus)
}

func (h *PropertyHandler) create(c *fiber.Ctx) error {
	var payload dto.PropertyCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	property, err := h.service.Create(c.Context(), sessionUser(c), payload)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "listing created", property)
}

func (h *PropertyHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	property, err := h.service.Get(c.Context(), id)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "listing retrieved", property)
}

func (h *PropertyHandler) listMine(c *fiber.Ctx) error {
	properties, err := h.service.ListByOwner(c.Context(), userIDFromContext(c))
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "listings retrieved", properties)
}

func (h *PropertyHandler) search(c *fiber.Ctx) error {
	query := dto.PropertySearchQuery{
		City:   strings.TrimSpace(c.Query("city")),
		Gender: strings.TrimSpace(c.Query("gender")),
	}
	if raw := c.Query("max_budget"); raw != "" {
		budget, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || budget < 0 {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid max_budget")
		}
		query.MaxBudget = budget
	}
	if raw := c.Query("max_distance"); raw != "" {
		dist, err := strconv.ParseFloat(raw, 64)
		if err != nil || dist < 0 {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid max_distance")
		}
		query.MaxDistance = dist
	}
	if raw := c.Query("amenities"); raw != "" {
		query.Amenities = splitAndTrim(raw)
	}

	student, err := loadUser(c, h.users)
	if err != nil {
		return utils.SendError(c, fiber.StatusUnauthorized, "unknown user")
	}

	results, err := h.service.Search(c.Context(), student, query)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "listings retrieved", results)
}

func (h *PropertyHandler) setStatus(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.SetStatus(c.Context(), id, payload.Status); err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "listing status updated", fiber.Map{"id": id, "status": payload.Status})
}

func (h *PropertyHandler) addRoom(c *fiber.Ctx) error {
	propertyID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var room models.Room
	if err := c.BodyParser(&room); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	created, err := h.service.AddRoom(c.Context(), sessionUser(c), propertyID, room)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "room added", created)
}

func (h *PropertyHandler) uploadPhoto(c *fiber.Ctx) error {
	propertyID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	upload, err := h.uploads.UploadPropertyPhoto(c.Context(), sessionUser(c), propertyID, file)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "photo uploaded", upload)
}

func (h *PropertyHandler) pricingHistory(c *fiber.Ctx) error {
	propertyID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	history, err := h.pricing.History(c.Context(), propertyID)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "pricing history retrieved", history)
}
