package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	protected := app.Group("/api", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	protected.Get("/auth/me", cfg.Users.Me)
	protected.Post("/auth/password/change", cfg.Users.ChangePassword)

	tickets := protected.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	// fixed segments must register before the :ref routes
	tickets.Get("/stats/dashboard", cfg.Tickets.DashboardStats)
	tickets.Post("/import", auth.RequireRole(domain.RoleAdmin), cfg.Tickets.ImportTickets)
	tickets.Get("/:ref", cfg.Tickets.GetTicket)
	tickets.Put("/:ref", cfg.Tickets.UpdateTicket)
	tickets.Post("/:ref/comments", cfg.Tickets.AddComment)
	tickets.Post("/:ref/approve", cfg.Tickets.ApproveTicket)
	tickets.Post("/:ref/reject", cfg.Tickets.RejectTicket)

	admin := protected.Group("/admin", auth.RequireRole(domain.RoleAdmin))
	admin.Post("/organizations", cfg.Admin.CreateOrganization)
	admin.Get("/organizations", cfg.Admin.ListOrganizations)
	admin.Put("/organizations/:id", cfg.Admin.UpdateOrganization)
	admin.Post("/departments", cfg.Admin.CreateDepartment)
	admin.Get("/departments", cfg.Admin.ListDepartments)
	admin.Put("/departments/:id", cfg.Admin.UpdateDepartment)
	admin.Post("/categories", cfg.Admin.CreateCategory)
	admin.Get("/categories", cfg.Admin.ListCategories)
}
