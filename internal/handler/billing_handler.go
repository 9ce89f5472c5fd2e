package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rentease/rentease-api/internal/dto"
	"github.com/rentease/rentease-api/internal/models"
	"github.com/rentease/rentease-api/internal/service"
	"github.com/rentease/rentease-api/internal/utils"
)

// BillingHandler wires invoice and electricity routes.
type BillingHandler struct {
	billing     service.BillingService
	electricity service.ElectricityService
	logger      zerolog.Logger
}

// NewBillingHandler constructs the handler.
func NewBillingHandler(billing service.BillingService, electricity service.ElectricityService, logger zerolog.Logger) *BillingHandler {
	return &BillingHandler{
		billing:     billing,
		electricity: electricity,
		logger:      logger.With().Str("component", "billing_handler").Logger(),
	}
}

// RegisterStudent attaches tenant invoice endpoints.
func (h *BillingHandler) RegisterStudent(router fiber.Router) {
	router.Get("/me/invoices", h.listMine)
}

// RegisterOwner attaches owner billing endpoints.
func (h *BillingHandler) RegisterOwner(router fiber.Router) {
	router.Get("/invoices", h.listForOwner)
	router.Post("/electricity", h.recordReading)
	router.Get("/properties/:id/electricity", h.listReadings)
}

// RegisterShared attaches routes both tenants and owners use. The service
// enforces per-caller visibility.
func (h *BillingHandler) RegisterShared(router fiber.Router) {
	router.Get("/invoices/:id", h.get)
}

func (h *BillingHandler) listMine(c *fiber.Ctx) error {
	invoices, err := h.billing.ListForStudent(c.Context(), userIDFromContext(c))
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "invoices retrieved", invoices)
}

func (h *BillingHandler) listForOwner(c *fiber.Ctx) error {
	invoices, err := h.billing.ListForOwner(c.Context(), userIDFromContext(c))
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "invoices retrieved", invoices)
}

func (h *BillingHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	invoice, err := h.billing.GetInvoice(c.Context(), id)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	// Invoices are visible to their tenant, the property owner, and admins.
	caller := sessionUser(c)
	if caller.ID != invoice.StudentID && caller.ID != invoice.Property.OwnerID && caller.Role != models.RoleAdmin {
		return utils.SendError(c, fiber.StatusForbidden, "forbidden")
	}

	return utils.SendSuccess(c, "invoice retrieved", invoice)
}

func (h *BillingHandler) recordReading(c *fiber.Ctx) error {
	var payload dto.ElectricityReadingRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.electricity.RecordReading(c.Context(), sessionUser(c), payload)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "reading recorded", result)
}

func (h *BillingHandler) listReadings(c *fiber.Ctx) error {
	propertyID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	bills, err := h.electricity.ListForProperty(c.Context(), sessionUser(c), propertyID)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "readings retrieved", bills)
}
