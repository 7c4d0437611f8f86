package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/blogkit/blog-service/internal/api/http/handlers"
	"github.com/blogkit/blog-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Posts          *handlers.PostsHandler
	Tags           *handlers.TagsHandler
	Comments       *handlers.CommentsHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)

	protectedAuth := authGroup.Group("", cfg.AuthMiddleware.Handle)
	protectedAuth.Get("/me", cfg.Auth.Me)
	protectedAuth.Post("/change-password", cfg.Auth.ChangePassword)
	protectedAuth.Post("/logout", cfg.Auth.Logout)

	// Public browsing by slug/tag.
	app.Get("/posts/:slug", cfg.Posts.GetBySlug)
	app.Get("/tags", cfg.Tags.List)
	app.Get("/tags/:slug/posts", cfg.Tags.PostsByTag)

	api := app.Group("/api")
	api.Get("/posts", cfg.AuthMiddleware.Optional, cfg.Posts.List)
	api.Get("/posts/:id", cfg.Posts.Get)
	api.Get("/posts/:id/comments", cfg.Comments.ListForPost)
	api.Post("/posts/:id/comments", cfg.AuthMiddleware.Optional, cfg.Comments.Create)

	apiProtected := api.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	apiProtected.Post("/posts", cfg.Posts.Create)
	apiProtected.Put("/posts/:id", cfg.Posts.Update)
	apiProtected.Delete("/posts/:id", cfg.Posts.Delete)
	apiProtected.Post("/tags", cfg.Tags.Create)

	admin := api.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Get("/accounts", cfg.Admin.ListAccounts)
	admin.Get("/comments", cfg.Admin.ListComments)
	admin.Post("/comments/:id/approve", cfg.Admin.ApproveComment)
}
