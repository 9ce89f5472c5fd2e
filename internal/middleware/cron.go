package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/rentease/rentease-api/internal/utils"
)

// CronProtected guards scheduler-invoked endpoints with a static bearer secret.
func CronProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "cron endpoint disabled")
		}

		authorization := strings.TrimSpace(c.Get("Authorization"))
		expected := "Bearer " + secret
		if subtle.ConstantTimeCompare([]byte(authorization), []byte(expected)) != 1 {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid cron secret")
		}

		return c.Next()
	}
}
