package routes

import (
	"github.com/gigline/backstage/internal/handlers"
	"github.com/gigline/backstage/internal/middleware"
	"github.com/gigline/backstage/internal/services"
	"github.com/gofiber/fiber/v3"
)

func SetupRoutes(app *fiber.App, jwtService *services.JWTService, authService *services.AuthService, scavengerService *services.ScavengerService) {
	// Initialize services
	flagService := services.NewFlagService()
	noteService := services.NewNoteService()
	triageService := services.NewTriageService()
	errorLogService := services.NewErrorLogService()
	diagnosticsService := services.NewDiagnosticsService()
	roleService := services.NewRoleService()
	mockService := services.NewMockDataService()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, jwtService)
	scavengerHandler := handlers.NewScavengerHandler(scavengerService)
	flagHandler := handlers.NewFlagHandler(flagService)
	noteHandler := handlers.NewNoteHandler(noteService)
	triageHandler := handlers.NewTriageHandler(triageService)
	errorLogHandler := handlers.NewErrorLogHandler(errorLogService)
	diagnosticsHandler := handlers.NewDiagnosticsHandler(diagnosticsService)
	roleHandler := handlers.NewRoleHandler(roleService)
	mockHandler := handlers.NewMockDataHandler(mockService)

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Backstage API is running",
		})
	})

	// API group
	api := app.Group("/api")

	// Health check
	api.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Backstage API is running",
		})
	})

	// ==================
	// Public Auth Routes
	// ==================
	api.Post("/auth/login", authHandler.Login)

	// ==================
	// Protected Routes (JWT bearer)
	// ==================
	protected := api.Group("", middleware.AuthMiddleware(jwtService))

	// Auth routes
	protected.Post("/auth/logout", authHandler.Logout)
	protected.Get("/auth/me", authHandler.Me)

	// Scavenger routes. Claims are rate limited: a phone camera retrying a
	// scan is the one client that can hammer us.
	protected.Post("/scavenger/claim", scavengerHandler.Claim, middleware.ClaimRateLimitMiddleware())
	protected.Post("/scavenger/claim-legacy", scavengerHandler.ClaimLegacy, middleware.ClaimRateLimitMiddleware())
	protected.Get("/scavenger/leaderboard", scavengerHandler.Leaderboard)

	admin := protected.Group("", middleware.RequireAdmin())
	admin.Get("/scavenger/locations", scavengerHandler.ListLocations)
	admin.Post("/scavenger/locations", scavengerHandler.CreateLocation)
	admin.Post("/scavenger/locations/:id/code", scavengerHandler.MintCode)

	// Feature flag routes
	protected.Get("/flags", flagHandler.List)
	admin.Post("/flags", flagHandler.Create)
	admin.Patch("/flags/:key", flagHandler.Update)
	admin.Delete("/flags/:key", flagHandler.Delete)

	// Dev note routes
	protected.Get("/notes", noteHandler.GetNotes)
	protected.Post("/notes", noteHandler.CreateNote)
	protected.Put("/notes/:id", noteHandler.UpdateNote)
	protected.Delete("/notes/:id", noteHandler.DeleteNote)

	// Admin request triage routes
	protected.Get("/admin-requests", triageHandler.List)
	protected.Post("/admin-requests", triageHandler.Create)
	admin.Post("/admin-requests/:id/approve", triageHandler.Approve)
	admin.Post("/admin-requests/:id/reject", triageHandler.Reject)

	// Error log routes
	protected.Post("/errors", errorLogHandler.Ingest)
	protected.Get("/errors", errorLogHandler.List)
	protected.Get("/errors/export", errorLogHandler.Export)
	admin.Delete("/errors/:id", errorLogHandler.Delete)

	// Page diagnostics routes
	protected.Post("/diagnostics", diagnosticsHandler.Record)
	protected.Get("/diagnostics", diagnosticsHandler.List)
	protected.Get("/diagnostics/summary", diagnosticsHandler.Summary)

	// Role simulation routes
	protected.Post("/roles/simulate", roleHandler.Start)
	protected.Get("/roles/simulate", roleHandler.Current)
	protected.Delete("/roles/simulate", roleHandler.Stop)

	// Mock data routes
	protected.Post("/mock/generate", mockHandler.Generate)
	protected.Get("/mock/batches", mockHandler.ListBatches)
	protected.Delete("/mock/batches/:id", mockHandler.DeleteBatch)
}
