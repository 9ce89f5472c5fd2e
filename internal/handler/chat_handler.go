package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rentease/rentease-api/internal/dto"
	"github.com/rentease/rentease-api/internal/repository"
	"github.com/rentease/rentease-api/internal/service"
	"github.com/rentease/rentease-api/internal/utils"
)

// ChatHandler wires the tenancy assistant endpoint.
type ChatHandler struct {
	service service.ChatService
	users   repository.UserRepository
	logger  zerolog.Logger
}

// NewChatHandler constructs the handler.
func NewChatHandler(service service.ChatService, users repository.UserRepository, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		users:   users,
		logger:  logger.With().Str("component", "chat_handler").Logger(),
	}
}

// Register attaches the assistant endpoint.
func (h *ChatHandler) Register(router fiber.Router) {
	router.Post("/assistant/chat", h.chat)
}

func (h *ChatHandler) chat(c *fiber.Ctx) error {
	var payload dto.ChatRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := loadUser(c, h.users)
	if err != nil {
		return utils.SendError(c, fiber.StatusUnauthorized, "unknown user")
	}

	response, err := h.service.Chat(c.Context(), user, payload)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "assistant replied", response)
}
