package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"shopgate/internal/config"
	"shopgate/internal/database"
	"shopgate/internal/handlers"
	"shopgate/internal/middleware"
	"shopgate/internal/ratelimit"
	"shopgate/internal/repositories"
	"shopgate/internal/services"
	"shopgate/internal/tenant"
	"shopgate/pkg/rabbitmq"
)

// application bundles the Fiber app with the resources it owns.
type application struct {
	app         *fiber.App
	authService *services.AuthService
	mqClient    *rabbitmq.Client
	closers     []func() error
}

// Close releases every resource opened by newApplication.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}
}

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	a, err := newApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer a.Close()

	// --- Start RabbitMQ Consumer in a Goroutine ---
	if a.mqClient != nil {
		go func() {
			log.Println("Starting RabbitMQ consumer for account events...")
			if consumerErr := a.mqClient.ConsumeAccountEvents(logAccountEvent); consumerErr != nil {
				log.Printf("Failed to start RabbitMQ consumer: %v", consumerErr)
			}
		}()
	}

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", cfg.AppPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := a.app.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	log.Println("Shutting down server...")

	if err := a.app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}

// newApplication wires repositories, services and handlers from cfg.
func newApplication(cfg config.Config) (*application, error) {
	a := &application{}

	// --- Credential Store ---
	var store repositories.CredentialStore
	if cfg.DatabaseDriver == database.DriverMemory {
		log.Println("Using in-memory credential store; data is lost on restart")
		store = repositories.NewMockCredentialStore()
	} else {
		db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
		gormStore := repositories.NewGORMCredentialStore(db, cfg.StoreTimeout)
		if err := gormStore.Migrate(); err != nil {
			a.Close()
			return nil, err
		}
		store = gormStore
	}

	// --- Event publishing (optional) ---
	var events services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize RabbitMQ client: %w", err)
		}
		a.mqClient = mqClient
		a.closers = append(a.closers, mqClient.Close)
		events = mqClient
	}

	// --- Signin rate limiting ---
	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter(nil)
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisLimiter, err := ratelimit.NewRedisLimiter(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, redisLimiter.Close)
		limiter = redisLimiter
	}

	// --- Services ---
	hasher, err := services.NewBcryptHasher(cfg.BcryptCost)
	if err != nil {
		a.Close()
		return nil, err
	}
	registry := services.NewTenantRegistry(store)
	tokens := services.NewTokenService(store, cfg.JWTSecret)
	a.authService = services.NewAuthService(store, hasher, tokens, registry, events)
	resolver := tenant.NewResolver(a.authService, registry, cfg.BaseDomain)

	// --- Handlers ---
	authHandler := handlers.NewAuthHandler(a.authService, cfg.SessionTransport, cfg.CookieSecure)
	tenantHandler := handlers.NewTenantHandler(resolver, cfg.SessionTransport)

	app := fiber.New(fiber.Config{
		AppName:      "shopgate",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${host}${path} ${latency}\n",
	}))
	if len(cfg.CORSAllowedOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Join(cfg.CORSAllowedOrigins, ","),
			AllowCredentials: true,
		}))
	}

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// --- Routes ---
	signinLimit := middleware.RateLimit(limiter, cfg.SigninRateLimit, cfg.SigninRateWindow)
	authHandler.RegisterRoutes(app, signinLimit)
	tenantHandler.RegisterRoutes(app, middleware.AuthRequired(a.authService, cfg.SessionTransport))

	a.app = app
	return a, nil
}

// logAccountEvent handles account events from the queue. Provisioning of shop
// resources hangs off this hook.
func logAccountEvent(ev rabbitmq.Event) error {
	log.Printf("Received %s event at %s: %s", ev.Type, ev.OccurredAt.Format(time.RFC3339), string(ev.Payload))
	return nil
}
