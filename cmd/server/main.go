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
	"github.com/robfig/cron"

	config "github.com/sagarpkr/multipost/configs"
	"github.com/sagarpkr/multipost/internal/accounts"
	"github.com/sagarpkr/multipost/internal/api/handlers"
	"github.com/sagarpkr/multipost/internal/api/middleware"
	"github.com/sagarpkr/multipost/internal/media"
	"github.com/sagarpkr/multipost/internal/orchestrator"
	"github.com/sagarpkr/multipost/internal/publisher"
	"github.com/sagarpkr/multipost/internal/queue"
	"github.com/sagarpkr/multipost/internal/repository"
	"github.com/sagarpkr/multipost/internal/scheduler"
	"github.com/sagarpkr/multipost/internal/service"
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
	asynqClient := asynq.NewClient(redisConn)
	defer asynqClient.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
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
	targetRepo := repository.NewPublishTargetRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	mediaRepo := repository.NewMediaAttachmentRepository(db)
	apiKeyRepository := repository.NewApiKeyRepository(db)

	accountRegistry := accounts.NewRegistry(*cfg, socialAccountRepo)
	mediaStore := media.NewStore(*cfg, mediaRepo)

	registry := publisher.NewRegistry()
	registry.Register(publisher.ProviderFacebook, publisher.NewRESTPublisher(publisher.ProviderFacebook, cfg.Providers.FacebookEndpoint))
	registry.Register(publisher.ProviderInstagram, publisher.NewRESTPublisher(publisher.ProviderInstagram, cfg.Providers.InstagramEndpoint))
	registry.Register(publisher.ProviderTiktok, publisher.NewRESTPublisher(publisher.ProviderTiktok, cfg.Providers.TiktokEndpoint))

	enqueuer := queue.NewClient(asynqClient)

	orch := orchestrator.New(orchestrator.Config{
		Workers:          cfg.Publish.Workers,
		AttemptTimeout:   cfg.Publish.AttemptTimeout,
		MediaWaitTimeout: cfg.Publish.MediaWaitTimeout,
		MediaPollEvery:   cfg.Publish.MediaPollEvery,
		Retry: orchestrator.RetryPolicy{
			MaxAttempts: cfg.Publish.MaxAttempts,
			BaseDelay:   cfg.Publish.RetryBaseDelay,
			MaxDelay:    cfg.Publish.RetryMaxDelay,
		},
	}, postRepo, targetRepo, accountRegistry, mediaStore, registry, enqueuer)

	postService := service.NewPostService(db, postRepo, targetRepo, mediaRepo, socialAccountRepo, orch)
	apiKeyService := service.NewApiKeyService(apiKeyRepository)

	authMiddleware := middleware.NewAuthMiddleware(*cfg, apiKeyService)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	apiKeys := handlers.NewApiKeyHandler(apiKeyService)
	api.Post("/api_key/new", apiKeys.CreateApiKey)
	api.Get("/api_key/list", apiKeys.ListKeys)
	api.Post("/api_key/remove", apiKeys.RemoveAPIKey)

	post := handlers.NewPostHandler(postService)
	api.Post("/posts/create", post.CreatePost)
	api.Post("/posts/publish", post.PublishPost)
	api.Post("/posts/cancel", post.CancelPost)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/remove", post.RemovePost)

	mediaHandler := handlers.NewMediaHandler(mediaStore)
	api.Post("/media/register", mediaHandler.RegisterMedia)
	api.Get("/media", mediaHandler.ListMedia)

	account := handlers.NewAccountHandler(accountRegistry)
	api.Get("/accounts", account.ListSocialAccounts)
	api.Post("/accounts/revoke", account.RevokeSocialAccount)
	api.Post("/accounts/remove", account.DeleteSocialAccount)

	// cron sweep for scheduled posts
	sweeper := scheduler.NewSweeper(postRepo, orch, enqueuer)

	c := cron.New()
	c.AddFunc(cfg.SweepInterval, sweeper.Sweep)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		worker := queue.NewWorker(orch)

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypeDispatchPost, worker.HandleDispatchPostTask)

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
