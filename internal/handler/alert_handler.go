package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rentease/rentease-api/internal/dto"
	"github.com/rentease/rentease-api/internal/middleware"
	"github.com/rentease/rentease-api/internal/service"
	"github.com/rentease/rentease-api/internal/utils"
)

// AlertHandler manages the alert listing, read marks, and SSE stream.
type AlertHandler struct {
	service   service.AlertService
	keepAlive time.Duration
	logger    zerolog.Logger
}

// NewAlertHandler constructs the handler.
func NewAlertHandler(service service.AlertService, keepAlive time.Duration, logger zerolog.Logger) *AlertHandler {
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}
	return &AlertHandler{
		service:   service,
		keepAlive: keepAlive,
		logger:    logger.With().Str("component", "alert_handler").Logger(),
	}
}

// Register binds the alert routes.
func (h *AlertHandler) Register(router fiber.Router) {
	router.Get("/alerts", h.list)
	router.Get("/alerts/stream", h.stream)
	router.Patch("/alerts/:id/read", h.markRead)
}

func (h *AlertHandler) list(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	offset, err := parseQueryInt(c, "offset")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid offset")
	}

	alerts, err := h.service.List(c.Context(), userID, limit, offset)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "alerts retrieved", alerts)
}

func (h *AlertHandler) stream(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
	ctx, cancel := context.WithCancel(ctx)

	stream, cleanup := h.service.Subscribe(userID)

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			cleanup()
			cancel()
		}()

		ticker := time.NewTicker(h.keepAlive / 2)
		defer ticker.Stop()

		for {
			select {
			case alert, ok := <-stream:
				if !ok {
					return
				}
				if err := writeAlertEvent(w, alert); err != nil {
					h.logger.Debug().Err(err).Msg("failed to write alert event")
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					h.logger.Debug().Err(err).Msg("failed to write alert keepalive")
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})

	return nil
}

func (h *AlertHandler) markRead(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	alert, err := h.service.MarkRead(c.Context(), id, userID)
	if err != nil {
		return utils.SendError(c, fiber.StatusNotFound, "alert not found")
	}

	return utils.SendSuccess(c, "alert marked read", alert)
}

func writeAlertEvent(w *bufio.Writer, alert dto.AlertResponse) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: alert\ndata: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
		return err
	}
	return w.Flush()
}
