package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/postpulse/postpulse/configs"
	"github.com/postpulse/postpulse/internal/api/handlers"
	"github.com/postpulse/postpulse/internal/api/middleware"
	job "github.com/postpulse/postpulse/internal/jobs"
	"github.com/postpulse/postpulse/internal/platforms"
	"github.com/postpulse/postpulse/internal/queue"
	"github.com/postpulse/postpulse/internal/repository"
	"github.com/postpulse/postpulse/internal/service"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	postRepo := repository.NewPostRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	postPlatformRepo := repository.NewPostPlatformRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	metricEventRepo := repository.NewMetricEventRepository(db)

	registry := platforms.NewRegistry(*cfg)

	connectService := service.NewConnectService(*cfg, registry, socialAccountRepo)
	tokenService := service.NewTokenService(*cfg, registry, socialAccountRepo)
	accountService := service.NewAccountService(registry, tokenService, socialAccountRepo)
	assetService := service.NewAssetService(*cfg, mediaAssetRepo)
	postService := service.NewPostService(db, postRepo, postPlatformRepo, socialAccountRepo, assetService)
	publishService := service.NewPublishService(registry, tokenService, postPlatformRepo)
	analyticsService := service.NewAnalyticsService(postRepo, postPlatformRepo, metricEventRepo)
	metricService := service.NewMetricService(postPlatformRepo, metricEventRepo)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	platform := handlers.NewPlatformHandler(connectService, registry, *cfg)
	app.Get("/auth/:platform", authMiddleware.AuthMiddleware(), platform.Connect)
	app.Get("/auth/:platform/callback", platform.CallbackHandler)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	api.Get("/platforms", platform.ListSupported)

	account := handlers.NewAccountHandler(accountService)
	api.Get("/accounts", account.ListAccounts)
	api.Post("/accounts/toggle", account.ToggleAccount)
	api.Get("/accounts/:id/info", account.AccountInfo)
	api.Post("/accounts/remove", account.DisconnectAccount)

	post := handlers.NewPostHandler(postService, client)
	api.Post("/posts/create", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/remove", post.RemovePost)

	analytics := handlers.NewAnalyticsHandler(analyticsService, metricService)
	api.Get("/analytics/overview", analytics.Overview)
	api.Get("/analytics/platforms", analytics.PlatformBreakdown)
	api.Get("/analytics/top-posts", analytics.TopPosts)
	api.Get("/analytics/trends", analytics.Trends)
	api.Get("/analytics/dashboard", analytics.Dashboard)
	api.Post("/metrics", analytics.RecordMetric)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(socialAccountRepo, tokenService)

	//queue
	queueW := queue.NewQueue(postRepo, postPlatformRepo, socialAccountRepo, mediaAssetRepo, publishService)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishPost, queueW.HandlePublishPostTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
