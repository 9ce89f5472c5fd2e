package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rentease/rentease-api/internal/service"
	"github.com/rentease/rentease-api/internal/utils"
)

// ReferralHandler wires invite code routes.
type ReferralHandler struct {
	service service.ReferralService
	logger  zerolog.Logger
}

// NewReferralHandler constructs the handler.
func NewReferralHandler(service service.ReferralService, logger zerolog.Logger) *ReferralHandler {
	return &ReferralHandler{
		service: service,
		logger:  logger.With().Str("component", "referral_handler").Logger(),
	}
}

// Register attaches referral endpoints to the student group.
func (h *ReferralHandler) Register(router fiber.Router) {
	router.Post("/referrals", h.issue)
	router.Get("/me/referrals", h.listMine)
}

func (h *ReferralHandler) issue(c *fiber.Ctx) error {
	referral, err := h.service.IssueCode(c.Context(), userIDFromContext(c))
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "referral code issued", referral)
}

func (h *ReferralHandler) listMine(c *fiber.Ctx) error {
	referrals, err := h.service.ListForReferrer(c.Context(), userIDFromContext(c))
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "referrals retrieved", referrals)
}
