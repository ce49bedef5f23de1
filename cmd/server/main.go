package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/relist-market/backend/internal/auth"
	"github.com/relist-market/backend/internal/cache"
	"github.com/relist-market/backend/internal/config"
	"github.com/relist-market/backend/internal/database"
	"github.com/relist-market/backend/internal/email"
	"github.com/relist-market/backend/internal/handlers"
	"github.com/relist-market/backend/internal/logger"
	"github.com/relist-market/backend/internal/metrics"
	"github.com/relist-market/backend/internal/middleware"
	"github.com/relist-market/backend/internal/storage"
	"github.com/relist-market/backend/internal/telemetry"
	"github.com/relist-market/backend/internal/web"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Log.Info("Relist server starting", zap.String("environment", cfg.Environment))

	if err := database.Initialize(); err != nil {
		logger.FatalWithFields("Failed to initialize database", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		logger.FatalWithFields("Failed to run migrations", err)
	}

	metrics.Initialize()

	redisClient, err := cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
	if err != nil {
		logger.Log.Warn("Redis unavailable, listing cache disabled", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	tp, err := telemetry.InitTracer(telemetry.Config{
		ServiceName:  "relist-backend",
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTLPEndpoint,
		Enabled:      cfg.TracingEnabled,
		SamplingRate: 0.25,
	})
	if err != nil {
		logger.Log.Warn("Tracing disabled", zap.Error(err))
	} else if tp != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(ctx)
		}()
	}

	authService := auth.NewService(cfg.JWTSecret, config.LoadGoogleOAuth(cfg.BaseURL))

	var mailer email.Sender
	if cfg.EmailFrom != "" {
		sesMailer, err := email.NewSESService(cfg.AWSRegion, cfg.EmailFrom, cfg.EmailFromName, cfg.BaseURL)
		if err != nil {
			logger.FatalWithFields("Failed to initialize SES", err)
		}
		mailer = sesMailer
	} else {
		logger.Log.Warn("EMAIL_FROM not set, emails will only be logged")
		mailer = email.LogSender{}
	}

	var images storage.ImageStore
	if cfg.S3Bucket != "" {
		s3Store, err := storage.NewS3Uploader(cfg.AWSRegion, cfg.S3Bucket, cfg.CDNBase)
		if err != nil {
			logger.FatalWithFields("Failed to initialize S3 uploader", err)
		}
		images = s3Store
	} else {
		localStore, err := storage.NewLocalStore("media")
		if err != nil {
			logger.FatalWithFields("Failed to initialize local image store", err)
		}
		logger.Log.Warn("S3_BUCKET not set, storing images on local disk")
		images = localStore
	}

	h := handlers.NewHandlers(authService, mailer, images)
	h.SetSecureCookies(cfg.Environment == "production")
	if redisClient != nil {
		h.SetRedisClient(redisClient)
	}

	r := buildRouter(cfg, h, authService)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Log.Info("Relist backend listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithFields("Failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.FatalWithFields("Server forced to shutdown", err)
	}

	logger.Log.Info("Server exited")
}

func buildRouter(cfg *config.Config, h *handlers.Handlers, authService *auth.Service) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	if cfg.TracingEnabled {
		r.Use(middleware.TracingMiddleware("relist-backend"))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.BaseURL}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-CSRFToken"}
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(middleware.EnsureCSRFCookie())

	templates, err := web.Templates()
	if err != nil {
		logger.FatalWithFields("Failed to parse templates", err)
	}
	r.SetHTMLTemplate(templates)

	staticAssets, err := web.StaticFS()
	if err != nil {
		logger.FatalWithFields("Failed to load static assets", err)
	}
	r.StaticFS("/static", staticAssets)
	r.Static("/media", "media")

	r.GET("/healthz", func(c *gin.Context) {
		status := http.StatusOK
		dbState := "ok"
		if err := database.Health(); err != nil {
			status = http.StatusServiceUnavailable
			dbState = "down"
		}
		c.JSON(status, gin.H{
			"status":    dbState,
			"timestamp": time.Now().UTC(),
			"service":   "relist-backend",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Server-rendered pages. The profile gate runs after optional auth
	// so incomplete profiles get parked on the setup page.
	pages := r.Group("/")
	pages.Use(middleware.OptionalAuth(authService))
	pages.Use(middleware.ProfileGate())
	{
		pages.GET("", h.IndexPage)
		pages.GET("items/:id", h.ItemDetailPage)
		pages.GET("users/:id", h.ProfilePage)
		pages.GET("login", h.LoginPage)
		pages.GET("signup", h.SignupPage)
		pages.GET("forgot-password", h.PasswordResetPage)
		pages.GET("reset-password", h.PasswordResetPage)
		pages.GET("verify-email", h.VerifyEmailPage)
	}

	authedPages := r.Group("/")
	authedPages.Use(middleware.PageAuth(authService))
	authedPages.Use(middleware.ProfileGate())
	{
		authedPages.GET("items/new", h.ItemFormPage)
		authedPages.GET("items/:id/edit", h.ItemFormPage)
		authedPages.GET("profile", h.ProfilePage)
		authedPages.GET("profile/setup", h.ProfileSetupPage)
	}

	// OAuth browser flow
	r.GET("/auth/google", h.GoogleLogin)
	r.GET("/auth/google/callback", h.GoogleCallback)

	api := r.Group("/api/v1")
	api.Use(middleware.CSRF())
	{
		authGroup := api.Group("/auth")
		authGroup.Use(middleware.RateLimitAuth())
		{
			authGroup.POST("/register", h.Register)
			authGroup.POST("/login", h.Login)
			authGroup.POST("/logout", h.Logout)
			authGroup.POST("/verify-email", h.VerifyEmail)
			authGroup.POST("/forgot-password", h.ForgotPassword)
			authGroup.POST("/reset-password", h.ResetPassword)
			authGroup.GET("/me", middleware.Auth(authService), h.Me)
			authGroup.POST("/resend-verification", middleware.Auth(authService), h.ResendVerification)
		}

		items := api.Group("/items")
		{
			items.GET("", middleware.OptionalAuth(authService), h.ListItems)
			items.GET("/:id", middleware.OptionalAuth(authService), h.GetItem)
			items.GET("/:id/comments", h.ListComments)

			items.POST("", middleware.Auth(authService), h.CreateItem)
			items.PUT("/:id", middleware.Auth(authService), h.UpdateItem)
			items.DELETE("/:id", middleware.Auth(authService), h.DeleteItem)
			items.POST("/:id/sold", middleware.Auth(authService), h.SetItemSold)
			items.POST("/:id/images", middleware.Auth(authService), middleware.RateLimitUpload(), h.UploadItemImage)
			items.POST("/:id/comments", middleware.Auth(authService), h.CreateComment)
		}

		likes := api.Group("/likes")
		likes.Use(middleware.AuthForbidden(authService))
		likes.Use(middleware.RateLimitLikes())
		{
			likes.POST("/:target_type/:target_id/toggle", h.ToggleLike)
		}

		comments := api.Group("/comments")
		comments.Use(middleware.Auth(authService))
		{
			comments.PUT("/:id", h.UpdateComment)
			comments.DELETE("/:id", h.DeleteComment)
		}

		users := api.Group("/users")
		{
			users.GET("/:id", h.GetUser)
			users.GET("/:id/items", h.ListUserItems)
			users.GET("/:id/likes", h.ListUserLikes)
			users.GET("/:id/commented", h.ListCommentedItems)
		}

		api.PUT("/profile", middleware.Auth(authService), h.UpdateProfile)
	}

	r.NoRoute(middleware.OptionalAuth(authService), h.NotFoundPage)

	return r
}
