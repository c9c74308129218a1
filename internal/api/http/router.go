package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/authenticity-service/internal/api/http/handlers"
	"github.com/spec-kit/authenticity-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	QRCodes        *handlers.QRCodesHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Verification is public; issuance and
// reporting require an admin bearer token.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")

	api.Post("/auth/login", cfg.Admin.Login)
	api.Post("/auth/password/change", cfg.AuthMiddleware.Handle, cfg.Admin.ChangePassword)

	qrcodes := api.Group("/qrcodes")
	qrcodes.Post("/verify", cfg.QRCodes.Verify)
	qrcodes.Post("/generate", cfg.AuthMiddleware.Handle, cfg.QRCodes.Generate)
	qrcodes.Get("/stats", cfg.AuthMiddleware.Handle, cfg.QRCodes.Stats)
	qrcodes.Get("/attempts", cfg.AuthMiddleware.Handle, cfg.QRCodes.Attempts)
	qrcodes.Get("/", cfg.AuthMiddleware.Handle, cfg.QRCodes.List)
}
