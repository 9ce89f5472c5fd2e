package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rentease/rentease-api/internal/dto"
	"github.com/rentease/rentease-api/internal/service"
	"github.com/rentease/rentease-api/internal/utils"
)

// PaymentHandler wires checkout and payment review routes.
type PaymentHandler struct {
	payments service.PaymentService
	uploads  service.UploadService
	logger   zerolog.Logger
}

// NewPaymentHandler constructs the handler.
func NewPaymentHandler(payments service.PaymentService, uploads service.UploadService, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		uploads:  uploads,
		logger:   logger.With().Str("component", "payment_handler").Logger(),
	}
}

// RegisterStudent attaches tenant payment endpoints.
func (h *PaymentHandler) RegisterStudent(router fiber.Router) {
	router.Post("/payments/order", h.createOrder)
	router.Post("/invoices/:id/proof", h.submitProof)
}

// RegisterOwner attaches the UPI proof review endpoint.
func (h *PaymentHandler) RegisterOwner(router fiber.Router) {
	router.Post("/payments/review", h.review)
}

func (h *PaymentHandler) createOrder(c *fiber.Ctx) error {
	var payload dto.CreateOrderRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	order, err := h.payments.CreateOrder(c.Context(), sessionUser(c), payload)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "order created", order)
}

// submitProof takes a multipart form with the UPI transaction reference and
// an optional screenshot.
func (h *PaymentHandler) submitProof(c *fiber.Ctx) error {
	invoiceID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	upiTxnID := c.FormValue("upi_txn_id")
	student := sessionUser(c)

	proofURL := ""
	if file, err := c.FormFile("file"); err == nil && file != nil {
		upload, err := h.uploads.UploadPaymentProof(c.Context(), student, file)
		if err != nil {
			return sendServiceError(c, requestLogger(h.logger, c), err)
		}
		proofURL = upload.URL
	}

	invoice, err := h.payments.SubmitProof(c.Context(), student, invoiceID, upiTxnID, proofURL)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "payment proof submitted", invoice)
}

func (h *PaymentHandler) review(c *fiber.Ctx) error {
	var payload dto.PaymentReviewRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	invoice, err := h.payments.Review(c.Context(), sessionUser(c), payload)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "payment reviewed", invoice)
}
