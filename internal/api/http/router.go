package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/workitem-gateway/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	Tickets   *handlers.TicketsHandler
	Reversals *handlers.ReversalsHandler
	Teams     *handlers.TeamsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	tickets := app.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Put("/:id/move", cfg.Tickets.MoveTicket)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Post("/:id/attachments", cfg.Tickets.AttachFiles)
	tickets.Delete("/:id/attachments", cfg.Tickets.RemoveAttachment)

	reversals := app.Group("/reversals")
	reversals.Post("/", cfg.Reversals.CreateReversal)
	reversals.Get("/:id", cfg.Reversals.GetReversal)
	reversals.Put("/:id/move", cfg.Reversals.MoveReversal)
	reversals.Post("/:id/attachments", cfg.Reversals.AttachFiles)

	teams := app.Group("/teams/:team")
	teams.Get("/members", cfg.Teams.GetMembers)
	teams.Get("/members/assigned", cfg.Teams.GetAllAssigned)
	teams.Get("/members/:email/assigned", cfg.Teams.GetAssigned)
	teams.Put("/members/:email/assign/:ticketId", cfg.Teams.Assign)
}
