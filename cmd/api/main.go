package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	_ "github.com/joho/godotenv/autoload"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/sajinavi2006/servicing-api/docs" // Swagger docs
	"github.com/sajinavi2006/servicing-api/internal/config"
	"github.com/sajinavi2006/servicing-api/internal/database"
	"github.com/sajinavi2006/servicing-api/internal/handlers"
	"github.com/sajinavi2006/servicing-api/internal/jobs"
	"github.com/sajinavi2006/servicing-api/internal/middleware"
	"github.com/sajinavi2006/servicing-api/internal/repository"
	"github.com/sajinavi2006/servicing-api/internal/services"
	"github.com/sajinavi2006/servicing-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// @title Servicing API
// @version 1.0
// @description REST API for loan servicing: repayments, reversals and wallet reconciliation

// @contact.name API Support

// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Setup(cfg.Environment)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	if cfg.ResendAPIKey == "" || cfg.FromEmail == "" {
		logger.Warn("Resend email disabled: RESEND_API_KEY or FROM_EMAIL not set")
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.Environment)
	if err != nil {
		logger.Error("Failed to connect to primary database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to primary database")

	collectionDB, err := database.Connect(cfg.CollectionDatabaseURL, cfg.Environment)
	if err != nil {
		logger.Error("Failed to connect to collection database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to collection database")

	repos := repository.NewRepositories(db, collectionDB)

	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	svcs := services.NewServices(repos, worker, cfg, db)

	scheduleJobs(worker, svcs)

	h := handlers.NewHandlers(svcs, repos)

	router := setupRouter(h, cfg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	worker.Shutdown()
	logger.Info("Background worker stopped")

	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func setupRouter(h *handlers.Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	v1 := router.Group("/api/v1")
	{
		router.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
		})

		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

		// Health check (public)
		v1.GET("/health", h.Health.Index)

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret))
		{
			// Reversals mutate ledgers; operators only
			admin := protected.Group("")
			admin.Use(middleware.RequireRole("admin", "operator"))
			{
				admin.POST("/transactions/:transaction_id/reverse", h.Transaction.Reverse)
				admin.POST("/transactions/:transaction_id/chained-reverse", h.Transaction.ChainedReverse)
				admin.POST("/transactions/:transaction_id/waive-late-fee", h.Transaction.WaiveLateFee)
				admin.POST("/repayments", h.Repayment.Create)
				admin.GET("/audit-logs", h.Audit.Index)
			}

			// Read-side access for operators and agents
			protected.GET("/accounts/:account_id/transactions", h.Transaction.Index)
			protected.GET("/accounts/:account_id/transactions/export", h.Transaction.Export)
			protected.GET("/transactions/:transaction_id", h.Transaction.Show)
			protected.GET("/transactions/:transaction_id/events", h.Transaction.Events)
			protected.GET("/transactions/:transaction_id/events/export", h.Transaction.ExportEvents)
			protected.GET("/transactions/:transaction_id/receipt", h.Transaction.Receipt)

			// Notifications (customers manage their own)
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", h.Notification.Index)
				notifications.PATCH("/:id/read", h.Notification.MarkRead)
			}
		}
	}

	return router
}

func scheduleJobs(worker *jobs.Worker, svcs *services.Services) {
	// Nightly sweep regrades unpaid obligations and repairs aggregates
	worker.ScheduleDailyAt(2, 0, func(ctx context.Context) error {
		logger.Info("[Job] Running nightly consistency sweep...")
		return svcs.Consistency.SweepAll(ctx)
	})

	logger.Info("Scheduled recurring jobs")
}
