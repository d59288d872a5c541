package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/fundlink/chat-service/internal/auth"
	"github.com/fundlink/chat-service/internal/cache"
	"github.com/fundlink/chat-service/internal/config"
	"github.com/fundlink/chat-service/internal/domain"
	"github.com/fundlink/chat-service/internal/events"
	"github.com/fundlink/chat-service/internal/handler"
	"github.com/fundlink/chat-service/internal/hub"
	"github.com/fundlink/chat-service/internal/repository"
	"github.com/fundlink/chat-service/internal/service"
	"github.com/fundlink/chat-service/pkg/database"
	"github.com/fundlink/chat-service/pkg/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log)
	l := log.L()

	db, err := database.New(cfg.DatabaseConfig())
	if err != nil {
		l.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db, &domain.Message{}, &domain.Notification{}, &domain.Proposal{}); err != nil {
		l.Fatal().Err(err).Msg("failed to migrate database")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		cancelPing()
		l.Fatal().Err(err).Msg("failed to connect to redis")
	}
	cancelPing()

	redisCache := cache.NewRedisCache(redisClient, cfg.Cache.ChatTTL, cfg.Cache.NotificationTTL)
	validator := auth.NewValidator(cfg.Auth.JWTSecret, redisClient, cfg.Auth.SessionKeyPrefix)

	connHub := hub.NewHub(cfg.WebSocket)
	go connHub.Run()

	messageRepo := repository.NewGormMessageRepository(db)
	notificationRepo := repository.NewGormNotificationRepository(db)
	proposalRepo := repository.NewGormProposalRepository(db)

	chatService := service.NewChatService(connHub, validator, messageRepo, proposalRepo, redisCache)
	notificationService := service.NewNotificationService(connHub, notificationRepo, redisCache)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	subscriber := events.NewSubscriber(redisClient, cfg.Events.Channel, notificationService)
	go subscriber.Run(ctx)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(log.GinMiddleware(l))

	handler.NewWSHandler(connHub, chatService, cfg.WebSocket).RegisterRoutes(router)
	handler.NewHTTPHandler(chatService, notificationService, validator).RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		l.Info().Str("addr", srv.Addr).Msg("chat service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("forced shutdown")
	}

	select {
	case <-subscriber.Done():
	case <-time.After(2 * time.Second):
	}

	if err := redisClient.Close(); err != nil {
		l.Warn().Err(err).Msg("redis close error")
	}

	l.Info().Msg("stopped")
}
