package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/carhorizon/carhorizon/internal/api"
	"github.com/carhorizon/carhorizon/internal/config"
	"github.com/carhorizon/carhorizon/internal/db"
	"github.com/carhorizon/carhorizon/internal/middleware"
	"github.com/carhorizon/carhorizon/internal/observ"
	"github.com/carhorizon/carhorizon/internal/realtime"
	"github.com/carhorizon/carhorizon/internal/repository/postgres"
	"github.com/carhorizon/carhorizon/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	// Startup has no deadline; per-request contexts take over once the
	// server is serving.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	hub := realtime.NewHub(logger)

	// Redis is optional: without it events stay instance-local, which is
	// correct for a single server. With it, every instance replays the
	// same stream.
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		defer rdb.Close()

		bridge := realtime.NewBridge(rdb, logger)
		hub.UseRemote(bridge)
		go bridge.Listen(ctx, hub)
		logger.Info("event bridge enabled")
	}

	pool := database.Pool()
	userRepo := postgres.NewUserStore(pool)
	carRepo := postgres.NewCarStore(pool)
	followRepo := postgres.NewFollowStore(pool)
	chatRepo := postgres.NewChatStore(pool)
	messageRepo := postgres.NewMessageStore(pool)
	readRepo := postgres.NewChatReadStore(pool)
	notificationRepo := postgres.NewNotificationStore(pool)
	postRepo := postgres.NewPostStore(pool)

	garage := service.NewGarage(carRepo, followRepo, postRepo, logger)
	notifications := service.NewNotifications(notificationRepo, carRepo, garage, hub, logger)
	followGraph := service.NewFollowGraph(followRepo, garage, notifications, logger)
	chats := service.NewChats(chatRepo, messageRepo, readRepo, garage, hub, logger)
	engagement := service.NewEngagement(postRepo, garage, notifications, hub, logger)

	authHandler := api.NewAuthHandler(userRepo, cfg.JWTSecret, logger)
	userHandler := api.NewUserHandler(userRepo, logger)
	carHandler := api.NewCarHandler(garage, followGraph, logger)
	chatHandler := api.NewChatHandler(chats, logger)
	notificationHandler := api.NewNotificationHandler(notifications, logger)
	postHandler := api.NewPostHandler(engagement, logger)
	wsHandler := api.NewWSHandler(hub, cfg.JWTSecret, cfg.ClientOrigin, logger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.CORS(cfg.ClientOrigin))

	router.GET("/api/health", func(c *gin.Context) {
		if err := database.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"connections": hub.ConnectionCount(),
		})
	})

	router.POST("/api/auth/register", authHandler.Register)
	router.POST("/api/auth/login", authHandler.Login)

	router.GET("/ws", wsHandler.Serve)

	authed := router.Group("/api")
	authed.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	authed.GET("/users/me", userHandler.Me)

	authed.POST("/cars", carHandler.Create)
	authed.GET("/cars/my", carHandler.My)
	authed.GET("/cars/search", carHandler.Search)
	authed.PUT("/cars/active", carHandler.SetActive)
	authed.GET("/cars/:carId", carHandler.Get)
	authed.DELETE("/cars/:carId", carHandler.Delete)
	authed.PUT("/cars/:carId/bio", carHandler.UpdateBio)
	authed.PUT("/cars/:carId/avatar", carHandler.SetAvatar)
	authed.GET("/cars/:carId/stats", carHandler.Stats)
	authed.GET("/cars/:carId/followers", carHandler.Followers)
	authed.GET("/cars/:carId/following", carHandler.Following)
	authed.GET("/cars/:carId/follow-status", carHandler.FollowStatus)
	authed.POST("/cars/:carId/follow", carHandler.Follow)
	authed.POST("/cars/:carId/unfollow", carHandler.Unfollow)

	authed.POST("/chats/open", chatHandler.Open)
	authed.GET("/chats/inbox", chatHandler.Inbox)
	authed.GET("/chats/:chatId/messages", chatHandler.Messages)
	authed.POST("/chats/:chatId/messages", chatHandler.Send)
	authed.POST("/chats/:chatId/read", chatHandler.MarkRead)
	authed.GET("/chats/:chatId/read-status", chatHandler.ReadStatus)

	authed.GET("/notifications", notificationHandler.List)
	authed.PUT("/notifications/read-all", notificationHandler.MarkAllRead)
	authed.PUT("/notifications/:notificationId/read", notificationHandler.MarkRead)

	authed.POST("/posts", postHandler.Create)
	authed.GET("/posts/:postId", postHandler.Get)
	authed.DELETE("/posts/:postId", postHandler.Delete)
	authed.POST("/posts/:postId/like", postHandler.Like)
	authed.POST("/posts/:postId/comments", postHandler.AddComment)
	authed.GET("/posts/:postId/comments", postHandler.Comments)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("starting CarHorizon",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
