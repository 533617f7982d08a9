package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/support-hub/internal/api/http/handlers"
	"github.com/spec-kit/support-hub/internal/auth"
	"github.com/spec-kit/support-hub/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Agents         *handlers.AgentsHandler
	Tickets        *handlers.TicketsHandler
	Sessions       *handlers.SessionsHandler
	Hub            fiber.Handler
	Metrics        *observability.Metrics
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	app.Post("/auth/agents/login", cfg.Agents.Login)

	if cfg.Hub != nil {
		app.Get("/hub", cfg.AuthMiddleware.HandleUpgrade, cfg.Hub)
	}

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Patch("/:id/assign", cfg.Tickets.AssignTicket)
	tickets.Get("/:id/history", cfg.Tickets.ListHistory)

	agents := app.Group("/agents", cfg.AuthMiddleware.Handle)
	agents.Get("/", cfg.Agents.ListAgents)
	agents.Get("/me", cfg.Agents.Me)

	sessions := app.Group("/sessions", cfg.AuthMiddleware.Handle)
	sessions.Post("/", cfg.Sessions.CreateSession)
	sessions.Get("/:id", cfg.Sessions.GetSession)
	sessions.Post("/:id/close", cfg.Sessions.CloseSession)
	sessions.Post("/:id/messages", cfg.Sessions.PostMessage)
	sessions.Get("/:id/messages", cfg.Sessions.ListMessages)
}
