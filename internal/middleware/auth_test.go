package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/rentease/rentease-api/internal/middleware"
)

const testSecret = "test-jwt-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newProtectedApp() *fiber.App {
	app := fiber.New()
	app.Get("/", middleware.JWTProtected(testSecret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id":   c.Locals("user_id"),
			"user_role": c.Locals("user_role"),
		})
	})
	return app
}

func perform(t *testing.T, app *fiber.App, authorization string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestJWTProtectedBindsIdentity(t *testing.T) {
	app := newProtectedApp()
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":  "42",
		"role": "owner",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	resp := perform(t, app, "Bearer "+token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTProtectedRejectsBadTokens(t *testing.T) {
	app := newProtectedApp()

	resp := perform(t, app, "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = perform(t, app, "Basic abc123")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	forged := signToken(t, "wrong-secret", jwt.MapClaims{"sub": "42"})
	resp = perform(t, app, "Bearer "+forged)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	expired := signToken(t, testSecret, jwt.MapClaims{
		"sub": "42",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	resp = perform(t, app, "Bearer "+expired)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireRole(t *testing.T) {
	newApp := func(role interface{}, allowed ...string) *fiber.App {
		app := fiber.New()
		app.Use(func(c *fiber.Ctx) error {
			if role != nil {
				c.Locals("user_role", role)
			}
			return c.Next()
		})
		app.Get("/", middleware.RequireRole(allowed...), func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusNoContent)
		})
		return app
	}

	resp := perform(t, newApp("owner", "owner", "admin"), "")
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	// Role matching is case-insensitive.
	resp = perform(t, newApp("Admin", "owner", "admin"), "")
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp = perform(t, newApp("student", "owner", "admin"), "")
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = perform(t, newApp(nil, "owner"), "")
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestCronProtected(t *testing.T) {
	newApp := func(secret string) *fiber.App {
		app := fiber.New()
		app.Post("/cron", middleware.CronProtected(secret), func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusNoContent)
		})
		return app
	}

	post := func(app *fiber.App, authorization string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/cron", nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	app := newApp("scheduler-secret")

	resp := post(app, "Bearer scheduler-secret")
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp = post(app, "Bearer wrong")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = post(app, "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// Endpoints stay closed when no secret is configured.
	resp = post(newApp(""), "Bearer anything")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
