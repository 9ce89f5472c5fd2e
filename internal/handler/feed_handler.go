package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/rentease/rentease-api/internal/middleware"
	"github.com/rentease/rentease-api/internal/models"
	"github.com/rentease/rentease-api/internal/service"
)

// FeedHandler streams gate scan alerts to owners over a websocket so the
// dashboard can show entries and exits as they are recorded.
type FeedHandler struct {
	alerts   service.AlertService
	pingTime time.Duration
	logger   zerolog.Logger
}

// NewFeedHandler constructs the live feed handler.
func NewFeedHandler(alerts service.AlertService, pingTime time.Duration, logger zerolog.Logger) *FeedHandler {
	if pingTime <= 0 {
		pingTime = 30 * time.Second
	}
	return &FeedHandler{
		alerts:   alerts,
		pingTime: pingTime,
		logger:   logger.With().Str("component", "feed_handler").Logger(),
	}
}

// RegisterOwner binds the websocket feed under an owner-scoped group.
func (h *FeedHandler) RegisterOwner(router fiber.Router) {
	router.Use("/feed", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			ctx := c.UserContext()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
			c.Locals("request_ctx", ctx)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/feed", websocket.New(h.handleConnection))
}

func (h *FeedHandler) handleConnection(conn *websocket.Conn) {
	defer func() { _ = conn.Close() }()

	userID := websocketUserID(conn)
	if userID == 0 {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "user id missing"))
		return
	}

	stream, cleanup := h.alerts.Subscribe(userID)
	defer cleanup()

	h.logger.Info().Uint("user_id", userID).Msg("feed websocket connected")
	defer h.logger.Info().Uint("user_id", userID).Msg("feed websocket disconnected")

	// Drain the read side so close frames and pongs are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pingTime)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case alert, ok := <-stream:
			if !ok {
				return
			}
			if alert.Type != models.AlertTypeScan && alert.Type != models.AlertTypeCurfew {
				continue
			}
			payload, err := json.Marshal(alert)
			if err != nil {
				h.logger.Error().Err(err).Msg("marshal feed alert")
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// websocketUserID pulls the authenticated user id out of the connection
// locals, tolerating the numeric types the JWT middleware may have stored.
func websocketUserID(conn *websocket.Conn) uint {
	switch v := conn.Locals("user_id").(type) {
	case uint:
		return v
	case int:
		if v > 0 {
			return uint(v)
		}
	case float64:
		if v > 0 {
			return uint(v)
		}
	}
	return 0
}
