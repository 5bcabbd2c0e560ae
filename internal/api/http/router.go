package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/bug-tracker/internal/api/http/handlers"
	"github.com/spec-kit/bug-tracker/internal/auth"
	"github.com/spec-kit/bug-tracker/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Items          *handlers.ItemsHandler
	Comments       *handlers.CommentsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// itemRoutes maps URL prefixes to item kinds.
var itemRoutes = []struct {
	prefix string
	kind   domain.ItemKind
}{
	{prefix: "/bugs", kind: domain.KindBug},
	{prefix: "/bug_reports", kind: domain.KindBugReport},
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	api := app.Group("/api", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	api.Get("/me", cfg.Users.Me)
	api.Put("/users/:id/roles", auth.RequireRole(domain.RoleAdmin), cfg.Users.AssignRoles)

	api.Patch("/comments/:id", cfg.Comments.Edit)
	api.Delete("/comments/:id", cfg.Comments.Delete)

	qaOnly := auth.RequireRole(domain.RoleQA)
	for _, r := range itemRoutes {
		group := api.Group(r.prefix)
		group.Post("/", qaOnly, cfg.Items.Create(r.kind))
		group.Get("/", cfg.Items.List(r.kind))
		group.Get("/:id", cfg.Items.Get(r.kind))
		group.Get("/:id/history", cfg.Items.History(r.kind))
		group.Get("/:id/transitions", cfg.Items.Transitions(r.kind))
		group.Get("/:id/comments", cfg.Comments.List(r.kind))
		group.Post("/:id/comments", cfg.Comments.Add(r.kind))
		group.Patch("/:id/priority", qaOnly, cfg.Items.ChangePriority(r.kind))
		group.Patch("/:id/responsible_person", qaOnly, cfg.Items.ChangeResponsiblePerson(r.kind))
		if r.kind == domain.KindBugReport {
			group.Patch("/:id/undo_status_change", cfg.Items.UndoStatusChange(r.kind))
		}
		// Must stay last: it matches any single segment after the id.
		group.Patch("/:id/:transition", cfg.Items.Transition(r.kind))
	}
}
