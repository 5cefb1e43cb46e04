// handlers/session.go
package handlers

import (
	"session-stats-service/middleware"
	"session-stats-service/services"

	"github.com/gofiber/fiber/v2"
)

func SetupSessionRoutes(app *fiber.App, sessionService *services.SessionService, visionService *services.VisionService, auth services.AuthGate) {
	// 🔓 Public reads — no user context, but still behind Gateway auth
	app.Get("/sessions", sessionService.GetSessions)
	app.Get("/sessions/:id", sessionService.GetSessionByID)

	// 🔐 Admin surface — session ingestion and screenshot analysis
	admin := app.Group("/admin", middleware.AdminContextMiddleware(auth))

	admin.Post("/sessions", sessionService.CreateSession)
	admin.Post("/sessions/thumbnail", sessionService.UploadThumbnail)
	admin.Post("/vision/analyze", visionService.AnalyzeScreenshotHandler)
}
