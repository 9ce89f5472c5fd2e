package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/rentease/rentease-api/internal/config"
	"github.com/rentease/rentease-api/internal/handler"
	"github.com/rentease/rentease-api/internal/middleware"
	"github.com/rentease/rentease-api/internal/models"
	"github.com/rentease/rentease-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ScanHandler       *handler.ScanHandler
	QRHandler         *handler.QRHandler
	PropertyHandler   *handler.PropertyHandler
	EnrollmentHandler *handler.EnrollmentHandler
	BillingHandler    *handler.BillingHandler
	PaymentHandler    *handler.PaymentHandler
	WebhookHandler    *handler.WebhookHandler
	DisputeHandler    *handler.DisputeHandler
	ReferralHandler   *handler.ReferralHandler
	ChatHandler       *handler.ChatHandler
	AlertHandler      *handler.AlertHandler
	FeedHandler       *handler.FeedHandler
	CronHandler       *handler.CronHandler
	JWTMiddleware     fiber.Handler
}

// guarded is a router whose guard chain runs ahead of every handler
// registered through it. Role checks cannot live on a fiber group: group
// middleware mounts on the shared path prefix, so stacking role groups on
// the same prefix would apply every role's check to every route.
type guarded struct {
	fiber.Router
	guards []fiber.Handler
}

func (g guarded) chain(handlers []fiber.Handler) []fiber.Handler {
	merged := make([]fiber.Handler, 0, len(g.guards)+len(handlers))
	merged = append(merged, g.guards...)
	return append(merged, handlers...)
}

func (g guarded) Get(path string, handlers ...fiber.Handler) fiber.Router {
	g.Router.Get(path, g.chain(handlers)...)
	return g
}

func (g guarded) Post(path string, handlers ...fiber.Handler) fiber.Router {
	g.Router.Post(path, g.chain(handlers)...)
	return g
}

func (g guarded) Put(path string, handlers ...fiber.Handler) fiber.Router {
	g.Router.Put(path, g.chain(handlers)...)
	return g
}

func (g guarded) Patch(path string, handlers ...fiber.Handler) fiber.Router {
	g.Router.Patch(path, g.chain(handlers)...)
	return g
}

func (g guarded) Delete(path string, handlers ...fiber.Handler) fiber.Router {
	g.Router.Delete(path, g.chain(handlers)...)
	return g
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	// Gateway webhooks authenticate via signature, not bearer token.
	if deps.WebhookHandler != nil {
		deps.WebhookHandler.Register(api.Group("/webhooks"))
	}

	if deps.CronHandler != nil {
		deps.CronHandler.Register(api.Group("/cron", middleware.CronProtected(cfg.CronSecret)))
	}

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	authed := guarded{Router: api, guards: []fiber.Handler{jwtMiddleware}}
	student := guarded{Router: api, guards: []fiber.Handler{jwtMiddleware, middleware.RequireRole(models.RoleStudent)}}
	owner := guarded{Router: api, guards: []fiber.Handler{jwtMiddleware, middleware.RequireRole(models.RoleOwner, models.RoleAdmin)}}
	admin := guarded{Router: api, guards: []fiber.Handler{jwtMiddleware, middleware.RequireRole(models.RoleAdmin)}}

	if deps.ScanHandler != nil {
		deps.ScanHandler.RegisterOperator(owner)
		deps.ScanHandler.RegisterStudent(student)
	}

	if deps.QRHandler != nil {
		deps.QRHandler.Register(student)
	}

	if deps.PropertyHandler != nil {
		deps.PropertyHandler.RegisterStudent(student)
		deps.PropertyHandler.RegisterOwner(owner)
		deps.PropertyHandler.RegisterAdmin(admin)
	}

	if deps.EnrollmentHandler != nil {
		deps.EnrollmentHandler.RegisterStudent(student)
		deps.EnrollmentHandler.RegisterOwner(owner)
		deps.EnrollmentHandler.RegisterShared(authed)
	}

	if deps.BillingHandler != nil {
		deps.BillingHandler.RegisterStudent(student)
		deps.BillingHandler.RegisterOwner(owner)
		deps.BillingHandler.RegisterShared(authed)
	}

	if deps.PaymentHandler != nil {
		deps.PaymentHandler.RegisterStudent(student)
		deps.PaymentHandler.RegisterOwner(owner)
	}

	if deps.DisputeHandler != nil {
		deps.DisputeHandler.Register(authed)
		deps.DisputeHandler.RegisterOwner(owner)
		deps.DisputeHandler.RegisterAdmin(admin)
	}

	if deps.ReferralHandler != nil {
		deps.ReferralHandler.Register(student)
	}

	if deps.ChatHandler != nil {
		assistant := guarded{Router: api, guards: []fiber.Handler{
			jwtMiddleware,
			middleware.RateLimit("assistant", 5, time.Minute),
		}}
		deps.ChatHandler.Register(assistant)
	}

	if deps.AlertHandler != nil {
		deps.AlertHandler.Register(authed)
	}

	if deps.FeedHandler != nil {
		deps.FeedHandler.RegisterOwner(owner)
	}
}
