package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rentease/rentease-api/internal/service"
	"github.com/rentease/rentease-api/internal/utils"
)

// CronHandler exposes the scheduler-invoked maintenance jobs. The routes sit
// behind the cron secret middleware, not the JWT stack.
type CronHandler struct {
	billing service.BillingService
	pricing service.PricingService
	logger  zerolog.Logger
}

// NewCronHandler constructs the cron handler.
func NewCronHandler(billing service.BillingService, pricing service.PricingService, logger zerolog.Logger) *CronHandler {
	return &CronHandler{
		billing: billing,
		pricing: pricing,
		logger:  logger.With().Str("component", "cron_handler").Logger(),
	}
}

// Register binds the cron job routes.
func (h *CronHandler) Register(router fiber.Router) {
	router.Post("/monthly-billing", h.runBilling)
	router.Post("/send-reminders", h.runReminders)
	router.Post("/dynamic-pricing", h.runPricing)
}

func (h *CronHandler) runBilling(c *fiber.Ctx) error {
	month := time.Now().UTC()
	if raw := c.Query("month"); raw != "" {
		parsed, err := time.Parse("2006-01", raw)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid month, want YYYY-MM")
		}
		month = parsed
	}

	result, err := h.billing.RunMonthlyBilling(c.Context(), month)
	if err != nil {
		h.logger.Error().Err(err).Msg("monthly billing run failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "billing run failed")
	}

	h.logger.Info().
		Str("billing_month", result.BillingMonth).
		Int("generated", result.Generated).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("monthly billing run completed")
	return utils.SendSuccess(c, "billing run completed", result)
}

func (h *CronHandler) runReminders(c *fiber.Ctx) error {
	result, err := h.billing.RunReminders(c.Context(), time.Now().UTC())
	if err != nil {
		h.logger.Error().Err(err).Msg("reminder run failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "reminder run failed")
	}

	h.logger.Info().
		Int("day_of_month", result.DayOfMonth).
		Int("reminders", result.Reminders).
		Int("late_fees", result.LateFees).
		Int("flagged", result.Flagged).
		Msg("reminder run completed")
	return utils.SendSuccess(c, "reminder run completed", result)
}

func (h *CronHandler) runPricing(c *fiber.Ctx) error {
	adjusted, err := h.pricing.RunAll(c.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("pricing sweep failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "pricing sweep failed")
	}

	h.logger.Info().Int("properties_adjusted", adjusted).Msg("pricing sweep completed")
	return utils.SendSuccess(c, "pricing sweep completed", fiber.Map{"properties_adjusted": adjusted})
}
