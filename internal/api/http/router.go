package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/caosaude/solicitacoes/internal/api/http/handlers"
	"github.com/caosaude/solicitacoes/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Attachments    *handlers.AttachmentsHandler
	Queue          *handlers.QueueHandler
	Reports        *handlers.ReportsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        http.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	api := app.Group("/api/v1")
	api.Post("/auth/login", cfg.Auth.Login)

	protected := api.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	manager := auth.RequireManager()

	protected.Get("/auth/me", cfg.Auth.Me)
	protected.Post("/auth/password", cfg.Auth.ChangePassword)
	protected.Post("/auth/register", manager, cfg.Auth.Register)
	protected.Get("/profiles", manager, cfg.Auth.ListProfiles)
	protected.Delete("/profiles/:id", manager, cfg.Auth.DeleteProfile)

	protected.Get("/vocabularies", cfg.Tickets.Vocabularies)

	tickets := protected.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/summary", cfg.Tickets.Summary)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", manager, cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", manager, cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/status", manager, cfg.Tickets.ChangeStatus)
	tickets.Get("/:id/timeline", cfg.Tickets.Timeline)
	tickets.Post("/:id/timeline", manager, cfg.Tickets.AddNote)

	tickets.Get("/:id/attachments", cfg.Attachments.List)
	tickets.Post("/:id/attachments", cfg.Attachments.Upload)
	tickets.Get("/:id/attachments/:attachmentId", cfg.Attachments.Download)
	tickets.Delete("/:id/attachments/:attachmentId", cfg.Attachments.Delete)

	protected.Post("/queue/recompute", manager, cfg.Queue.Recompute)

	protected.Get("/reports/stats", manager, cfg.Reports.Stats)
	protected.Get("/reports/export", cfg.Reports.Export)
}
