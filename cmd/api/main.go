package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"chathub/internal/auth"
	"chathub/internal/config"
	"chathub/internal/dispatcher"
	"chathub/internal/domain/conversation"
	"chathub/internal/domain/message"
	"chathub/internal/domain/notification"
	"chathub/internal/events"
	"chathub/internal/handler"
	"chathub/internal/middleware"
	"chathub/internal/profile"
	"chathub/internal/proxy"
	"chathub/internal/redis"
	"chathub/internal/registry"
	"chathub/internal/repository"
	"chathub/internal/server"
	"chathub/internal/services"
	"chathub/pkg/database"
	"chathub/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	mode := logger.DevelopmentMode
	if cfg.Server.Environment == "production" {
		mode = logger.ProductionMode
		gin.SetMode(gin.ReleaseMode)
	}
	log := logger.New(mode)
	defer func() { _ = log.Logger.Sync() }()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Logger.Fatal("database connection failed", zap.Error(err))
	}
	if err := db.AutoMigrate(
		&conversation.Conversation{},
		&conversation.Participant{},
		&message.Message{},
		&message.Thread{},
		&message.Reaction{},
		&message.ScheduledMessage{},
		&notification.Notification{},
	); err != nil {
		log.Logger.Fatal("migrations failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := redis.NewClient(cfg.Redis)
	defer func() { _ = redisClient.Close() }()
	bridge := events.NewRedisBridge(redisClient, log)
	typingStore := redis.NewTypingStore(redisClient)

	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	threadRepo := repository.NewThreadRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	notifRepo := repository.NewNotificationRepository(db)

	access := proxy.NewAccessControl(convRepo, msgRepo, threadRepo)
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)
	profiles := profile.NewClient(cfg.Profile.BaseURL, cfg.Profile.Timeout)

	reg := registry.New()
	hub := server.NewHub(reg, bridge, log)
	go hub.Run(ctx)
	go bridge.Run(ctx, hub)

	notifService := services.NewNotificationService(notifRepo, hub, log)
	chatService := services.NewChatService(db, convRepo, msgRepo, access, profiles, notifService, hub, log)
	convService := services.NewConversationService(db, convRepo, access, hub, log)
	reactionService := services.NewReactionService(msgRepo, access, hub)
	threadService := services.NewThreadService(convRepo, msgRepo, threadRepo, access, hub)
	scheduleService := services.NewScheduleService(db, scheduleRepo, access, chatService, notifService, log)

	disp := dispatcher.New(scheduleService, cfg.Dispatcher.Period, cfg.Dispatcher.BatchSize, log)
	go disp.Run(ctx)

	wsHandler := server.NewHandler(hub, verifier, access, chatService, convService, typingStore, reg, log)
	convHandler := handler.NewConversationHandler(convService)
	msgHandler := handler.NewMessageHandler(chatService, reactionService)
	threadHandler := handler.NewThreadHandler(threadService)
	scheduleHandler := handler.NewScheduleHandler(scheduleService)
	notifHandler := handler.NewNotificationHandler(notifService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ws", wsHandler.Connect)

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(verifier))
	{
		api.POST("/conversations/direct", convHandler.CreateDirect)
		api.POST("/conversations/group", convHandler.CreateGroup)
		api.GET("/conversations", convHandler.List)
		api.GET("/conversations/:id", convHandler.Get)
		api.POST("/conversations/:id/leave", convHandler.Leave)
		api.POST("/conversations/:id/read", convHandler.MarkRead)
		api.PUT("/conversations/:id/admin-only", convHandler.SetAdminOnlyChat)
		api.GET("/conversations/:id/participants", convHandler.Participants)
		api.POST("/conversations/:id/participants", convHandler.AddParticipant)
		api.DELETE("/conversations/:id/participants/:userId", convHandler.RemoveParticipant)
		api.PUT("/conversations/:id/participants/:userId/role", convHandler.UpdateRole)

		api.POST("/conversations/:id/messages", msgHandler.Send)
		api.GET("/conversations/:id/messages", msgHandler.List)

		api.POST("/conversations/:id/threads", threadHandler.Create)
		api.GET("/conversations/:id/threads", threadHandler.List)
		api.GET("/threads/:threadId/messages", threadHandler.Messages)
		api.GET("/threads/:threadId/unread", threadHandler.UnreadCount)

		api.POST("/messages/:messageId/reactions", msgHandler.AddReaction)
		api.DELETE("/messages/:messageId/reactions", msgHandler.RemoveReaction)
		api.GET("/messages/:messageId/reactions", msgHandler.ListReactions)

		api.POST("/scheduled-messages", scheduleHandler.Create)
		api.GET("/scheduled-messages", scheduleHandler.List)
		api.DELETE("/scheduled-messages/:id", scheduleHandler.Cancel)

		api.GET("/notifications", notifHandler.List)
		api.GET("/notifications/unread-count", notifHandler.UnreadCount)
		api.PUT("/notifications/:id/read", notifHandler.MarkRead)
		api.PUT("/notifications/read-all", notifHandler.MarkAllRead)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Logger.Error("shutdown incomplete", zap.Error(err))
	}
}
