package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/gigline/backstage/config"
	"github.com/gigline/backstage/internal/database"
	"github.com/gigline/backstage/internal/middleware"
	"github.com/gigline/backstage/internal/rabbitmq"
	"github.com/gigline/backstage/internal/routes"
	"github.com/gigline/backstage/internal/services"
	workers "github.com/gigline/backstage/internal/worker"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	log.Printf("Connected to database successfully")

	if err := database.CreateSchema(context.Background(), db); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}

	// Initialize services
	jwtService := services.NewJWTService(cfg.JWTSecret, int(cfg.TokenExpiry.Hours()))
	authService := services.NewAuthService(jwtService)
	codeCipher := services.NewCodeCipher(cfg.CodeSecret)

	// Setup RabbitMQ; reward emails degrade gracefully without it
	var mailer services.RewardMailer
	if cfg.RabbitMQURL != "" {
		if err := rabbitmq.SetupRabbitMQ(cfg.RabbitMQURL); err != nil {
			log.Printf("Failed to connect to RabbitMQ: %v", err)
		} else {
			mailer = rabbitmq.NewMailer()

			// Context for worker cancellation
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			go func() {
				emailService := services.NewEmailService()
				mailWorker := workers.NewRewardMailWorker(emailService)
				if err := mailWorker.StartWorker(ctx); err != nil {
					log.Printf("Worker failed: %v", err)
				}
			}()

			defer rabbitmq.Close()
		}
	}

	scavengerService := services.NewScavengerService(codeCipher, cfg.CodeMaxAge, mailer)

	// Maintenance jobs
	scheduler, err := services.NewScheduler(services.NewErrorLogService(), services.NewRoleService(), cfg.ErrorRetention)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:       "Backstage API",
		CaseSensitive: true,
		StrictRouting: false,
		ServerHeader:  "Backstage",
		ErrorHandler:  customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			log.Printf("PANIC RECOVERED: %v", e)
			log.Printf("Request: %s %s", c.Method(), c.Path())
			log.Printf("Stack Trace:\n%s", string(debug.Stack()))
		},
	}))
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${method} ${path} (${latency})\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	// Setup routes
	routes.SetupRoutes(app, jwtService, authService, scavengerService)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down server...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Error shutting down: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting server on %s", addr)
	log.Printf("Environment: %s", cfg.Env)
	log.Printf("Allowed origins: %v", cfg.AllowedOrigins)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func customErrorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   "Error",
		"message": err.Error(),
	})
}
