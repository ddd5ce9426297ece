package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"shopback/internal/config"
	"shopback/internal/middleware"
	"shopback/internal/model"
	"shopback/internal/repository"
	"shopback/internal/service"
	"shopback/internal/util"
	"shopback/internal/websocket"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Handlers groups everything registerRoutes mounts.
type Handlers struct {
	Auth    *AuthHandler
	Item    *ItemHandler
	Comment *CommentHandler
	Like    *LikeHandler
	Admin   *AdminHandler
	Feed    http.HandlerFunc
}

func NewRouter(cfg *config.Config) (*gin.Engine, func()) {
	gin.SetMode(cfg.GinMode)

	r := gin.Default()

	// CORS whitelist is fixed for the process lifetime
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	// Rate limiting middleware (if enabled)
	if cfg.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		r.Use(rateLimiter.Middleware())
		log.Printf("Rate limiting enabled: %d req/sec, burst: %d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		panic("Failed to connect to database: " + err.Error())
	}

	// Auto migrate
	if err := db.AutoMigrate(&model.User{}, &model.Item{}, &model.Comment{}, &model.Like{}); err != nil {
		panic("Failed to migrate database: " + err.Error())
	}

	// Initialize Redis with retry logic
	redisClient := initRedisWithRetry(cfg)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	itemRepo := repository.NewItemRepository(db, redisClient)
	commentRepo := repository.NewCommentRepository(db, redisClient)
	likeRepo := repository.NewLikeRepository(db)

	// Initialize image storage
	images, err := initImageStore(context.Background(), cfg)
	if err != nil {
		panic("Failed to initialize image storage: " + err.Error())
	}

	// Initialize RabbitMQ with retry logic; without it orphaned images are only logged
	rabbitMQ := initRabbitMQWithRetry(cfg)
	janitor := service.NewAssetJanitor(images, rabbitMQ, cfg.AssetRetryDelay, cfg.AssetRetryAttempts)
	if err := janitor.Start(); err != nil {
		log.Printf("Warning: Failed to start asset janitor: %v", err)
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Initialize services
	itemService := service.NewItemService(itemRepo, commentRepo, likeRepo, images)
	itemService.SetNotifier(wsHub)
	itemService.SetOrphanQueue(janitor)
	commentService := service.NewCommentService(commentRepo, likeRepo, itemRepo)
	likeService := service.NewLikeService(likeRepo, commentRepo)
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiration, cfg.AdminEmails)

	sweeper := service.NewSweeper(commentRepo, likeRepo)
	sweeper.Start(cfg.SweepInterval)

	registerRoutes(r, Handlers{
		Auth:    NewAuthHandler(authService, cfg.JWTSecret),
		Item:    NewItemHandler(itemService),
		Comment: NewCommentHandler(commentService),
		Like:    NewLikeHandler(likeService),
		Admin:   NewAdminHandler(sweeper),
		Feed:    websocket.ServeWS(wsHub, cfg.JWTSecret, cfg.CORSAllowedOrigins),
	})

	// Stop background work first, then release connections
	shutdown := func() {
		sweeper.Stop()
		janitor.Stop()
		wsHub.Stop()
		if rabbitMQ != nil {
			if err := rabbitMQ.Close(); err != nil {
				log.Printf("Warning: failed to close RabbitMQ: %v", err)
			}
		}
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				log.Printf("Warning: failed to close Redis: %v", err)
			}
		}
		if closer, ok := images.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				log.Printf("Warning: failed to close image storage: %v", err)
			}
		}
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	return r, shutdown
}

func registerRoutes(r *gin.Engine, h Handlers) {
	requireUser := h.Auth.AuthMiddleware()
	requireAdmin := h.Auth.AdminMiddleware()

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.GET("/me", requireUser, h.Auth.Me)
		}

		items := api.Group("/items")
		{
			items.GET("", h.Item.ListItems)
			items.GET("/search", h.Item.SearchItems)
			items.GET("/:id", h.Item.GetItem)
			items.GET("/:id/comments", h.Comment.GetCommentsByItem)

			items.Use(requireUser, requireAdmin)
			{
				items.POST("", h.Item.CreateItem)
				items.PUT("/:id", h.Item.UpdateItem)
				items.DELETE("/:id", h.Item.DeleteItem)
			}
		}

		comments := api.Group("/comments")
		{
			comments.Use(requireUser)
			{
				comments.POST("", h.Comment.CreateComment)
				comments.DELETE("/:id", h.Comment.DeleteComment)
				comments.POST("/:id/like", h.Like.LikeComment)
				comments.DELETE("/:id/like", h.Like.UnlikeComment)
			}
		}

		admin := api.Group("/admin")
		{
			admin.Use(requireUser, requireAdmin)
			{
				admin.POST("/sweep", h.Admin.Sweep)
			}
		}
	}

	// WebSocket catalog feed
	if h.Feed != nil {
		r.GET("/ws", gin.WrapF(h.Feed))
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func initDB(cfg *config.Config) (*gorm.DB, error) {
	// stores are kept consistent by the deletion cascade and the sweeper, not by FKs
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// initImageStore picks the blob backend named by IMAGE_STORE
func initImageStore(ctx context.Context, cfg *config.Config) (service.ImageStore, error) {
	switch cfg.ImageStore {
	case "gcs":
		return util.NewGCSClient(ctx, cfg)
	case "cloudinary":
		return util.NewCloudinaryClient(cfg)
	default:
		return nil, fmt.Errorf("unknown image store %q", cfg.ImageStore)
	}
}

// connectWithRetry calls connect with exponential backoff and reports whether it succeeded.
func connectWithRetry[T any](name string, connect func() (T, error)) (T, bool) {
	const maxRetries = 10
	initialDelay := 2 * time.Second
	maxDelay := 30 * time.Second

	var zero T
	for attempt := 1; attempt <= maxRetries; attempt++ {
		client, err := connect()
		if err == nil {
			log.Printf("%s connected successfully on attempt %d", name, attempt)
			return client, true
		}

		if attempt == maxRetries {
			log.Printf("Warning: Failed to connect to %s after %d attempts: %v", name, maxRetries, err)
			break
		}

		delay := initialDelay * time.Duration(1<<uint(attempt-1))
		if delay > maxDelay {
			delay = maxDelay
		}
		log.Printf("Failed to connect to %s (attempt %d/%d): %v. Retrying in %v...", name, attempt, maxRetries, err, delay)
		time.Sleep(delay)
	}
	return zero, false
}

func initRabbitMQWithRetry(cfg *config.Config) *util.RabbitMQClient {
	client, ok := connectWithRetry("RabbitMQ", func() (*util.RabbitMQClient, error) {
		return util.NewRabbitMQClient(cfg)
	})
	if !ok {
		log.Println("Note: orphaned images will only be logged")
		return nil
	}
	return client
}

func initRedisWithRetry(cfg *config.Config) *util.RedisClient {
	client, ok := connectWithRetry("Redis", func() (*util.RedisClient, error) {
		return util.NewRedisClient(cfg)
	})
	if !ok {
		log.Println("Note: Application will continue without Redis caching")
		return nil
	}
	return client
}
