package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"badge-studio/internal/assets"
	"badge-studio/internal/handlers"
	"badge-studio/internal/templates"
)

func main() {
	// Get port from environment or default
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	// Optional template catalog override
	catalogPath := os.Getenv("TEMPLATE_CATALOG")

	// Initialize template catalog, asset cache and measurement fonts
	templates.Init(catalogPath)
	assets.Init()
	handlers.Init()

	// Create Fiber app with optimized config
	app := fiber.New(fiber.Config{
		Prefork:      false,
		ServerHeader: "Badge-Studio",
		AppName:      "Badge Layout & Render Engine v1.0.0",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    50 * 1024 * 1024, // 50MB max body size for batch requests
		Concurrency:  256 * 1024,       // Max concurrent connections
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	// CORS
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Routes
	setupRoutes(app)

	// Start server
	fmt.Printf("🚀 Badge Studio starting on port %s\n", port)
	if catalogPath != "" {
		fmt.Printf("📁 Template catalog: %s\n", catalogPath)
	}

	if err := app.Listen(":" + port); err != nil {
		fmt.Printf("❌ Failed to start server: %v\n", err)
		os.Exit(1)
	}
}

func setupRoutes(app *fiber.App) {
	// Health check
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "Badge Layout & Render Engine",
			"version": "1.0.0",
			"status":  "running",
		})
	})

	app.Get("/health", handlers.HealthCheck)

	// API routes
	api := app.Group("/api")

	// Template catalog
	api.Get("/templates", handlers.ListTemplates)
	api.Get("/templates/:id", handlers.GetTemplate)
	api.Get("/templates/:id/proof.png", handlers.TemplateProof)

	// Badge layout and rendering
	api.Post("/badge/layout", handlers.ComputeBadgeLayout)
	api.Post("/badge/preview.svg", handlers.PreviewSVG)
	api.Post("/badge/export.svg", handlers.ExportSVG)
	api.Post("/badge/render.:format", handlers.RenderRaster)
	api.Post("/badge/thumbnail.png", handlers.Thumbnail)
	api.Post("/badge/export.pdf", handlers.ExportPDF)
	api.Post("/badge/batch", handlers.RenderBatch)

	// Cache management
	api.Get("/cache/stats", handlers.GetCacheStats)
	api.Post("/cache/clear", handlers.ClearCache)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).JSON(fiber.Map{
			"error": "Not found",
			"path":  c.Path(),
		})
	})
}
