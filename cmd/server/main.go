package main

import (
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/joho/godotenv"
	"github.com/solvemyproblem/core/internal/config"
	"github.com/solvemyproblem/core/internal/database"
	"github.com/solvemyproblem/core/internal/handlers"
	"github.com/solvemyproblem/core/internal/middleware"
	"github.com/solvemyproblem/core/internal/services"
	"github.com/solvemyproblem/core/internal/types"

	_ "github.com/solvemyproblem/core/docs/api" // Swagger docs
)

// @title solveMyProblem Core API
// @version 1.0.0
// @description Submission lifecycle and credit metering service for the solveMyProblem platform

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// Load optional .env, then configuration
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize the Authorizer client used for bearer token validation
	if err := services.InitAuthorizer(cfg, "http", "localhost:"+cfg.Port); err != nil {
		log.Fatalf("Failed to initialize Authorizer: %v", err)
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: false,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())
	app.Use(cors.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("solvemyproblem_core")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Create handlers
	intake := &services.Intake{
		DB:   db,
		Cost: services.FlatCostPolicy(cfg.SubmissionBaseCost, cfg.SubmissionCostPerLocation),
	}
	if cfg.SolverURL != "" {
		intake.Dispatcher = &services.Dispatcher{
			SolverURL: cfg.SolverURL,
			APIKey:    cfg.SolverAPIKey,
			Timeout:   time.Duration(cfg.SolverDispatchTimeoutMS) * time.Millisecond,
		}
	} else {
		log.Printf("SOLVER_URL not set, solver dispatch disabled")
	}

	userHandler := &handlers.UserHandler{DB: db}
	creditHandler := &handlers.CreditHandler{DB: db}
	submissionHandler := &handlers.SubmissionHandler{DB: db}
	solutionHandler := &handlers.SolutionHandler{DB: db}
	intakeHandler := &handlers.IntakeHandler{Intake: intake}
	solverHandler := &handlers.SolverHandler{DB: db, APIKey: cfg.SolverAPIKey}
	adminHandler := &handlers.AdminHandler{DB: db}
	healthHandler := &handlers.HealthHandler{Cfg: cfg, DB: db}

	app.Get("/health", healthHandler.Health)

	// API routes under /api
	api := app.Group("/api")

	// User management
	api.Post("/checkUser", middleware.AuthUser(), userHandler.CheckUser)
	api.Post("/getRole", middleware.AuthUser(), userHandler.GetRole)
	api.Get("/userDetails", middleware.AuthUser(), userHandler.UserDetails)
	api.Post("/changeName/:name", middleware.AuthUser(), userHandler.ChangeName)
	api.Post("/admin/changeName/:name", middleware.AuthAdmin(), userHandler.AdminChangeName)
	api.Get("/allUsers", middleware.AuthAdmin(), userHandler.AllUsers)

	// Credit ledger
	api.Get("/user/credits", middleware.AuthUser(), creditHandler.GetCredits)
	api.Post("/user/add/credits/:amount", middleware.AuthUser(), creditHandler.AddCredits)
	api.Get("/user/getTopCredits", middleware.AuthAdmin(), creditHandler.TopCredits)
	api.Get("/user/getTotalCredits", middleware.AuthAdmin(), creditHandler.TotalCredits)

	// Submission intake
	api.Post("/upload/file", middleware.AuthUser(), middleware.IdempotencyKey(), intakeHandler.UploadFile)

	// Submission store + rollups. The static rollup segments are registered
	// before the :id route so they never shadow each other.
	api.Get("/user/submissions/topusers", middleware.AuthAdmin(), submissionHandler.TopUsers)
	api.Get("/user/submissions/monthly", middleware.AuthAdmin(), submissionHandler.Monthly)
	api.Get("/user/submissions/total", middleware.AuthAdmin(), submissionHandler.Total)
	api.Get("/user/submissions", middleware.AuthUser(), submissionHandler.ListMine)
	api.Get("/user/submission/:id", middleware.AuthUser(), submissionHandler.GetMine)
	api.Get("/allSubmissions", middleware.AuthAdmin(), submissionHandler.ListAll)

	// Solution store
	api.Get("/user/solutions", middleware.AuthUser(), solutionHandler.ListMine)
	api.Get("/user/solution/:id", middleware.AuthUser(), solutionHandler.GetMine)
	api.Get("/allSolutions", middleware.AuthAdmin(), solutionHandler.ListAll)

	// Solver worker write path (shared key, no bearer token)
	api.Post("/solver/solution/:id", solverHandler.RecordSolution)

	// Combined admin rollup
	api.Get("/admin/overview", middleware.AuthAdmin(), adminHandler.Overview)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":    fiber.StatusNotFound,
			"message":   "[404] Resource Not Found",
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
		})
	})

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	port := cfg.Port
	log.Printf("Starting server on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server stopped")
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	errorType := "unknown"

	// Errors from the middleware and services carry the stable taxonomy
	var custom *types.CustomError
	if errors.As(err, &custom) {
		code = custom.Code
		message = custom.Message
		errorType = custom.Type
	} else if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    code,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}
