package handler

import (
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fundlink/chat-service/internal/auth"
	"github.com/fundlink/chat-service/internal/cache"
	"github.com/fundlink/chat-service/internal/config"
	"github.com/fundlink/chat-service/internal/domain"
	"github.com/fundlink/chat-service/internal/hub"
	"github.com/fundlink/chat-service/internal/repository"
	"github.com/fundlink/chat-service/internal/service"
)

const testSecret = "test-secret"

// testEnv wires the full stack against miniredis and in-memory sqlite.
type testEnv struct {
	router        *gin.Engine
	redis         *miniredis.Miniredis
	db            *gorm.DB
	hub           *hub.Hub
	messages      repository.MessageRepository
	notifications repository.NotificationRepository
	notifService  service.NotificationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Message{}, &domain.Notification{}, &domain.Proposal{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM messages")
		db.Exec("DELETE FROM notifications")
		db.Exec("DELETE FROM proposals")
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	wsCfg := config.WebSocketConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 4096,
	}

	redisCache := cache.NewRedisCache(redisClient, time.Hour, 5*time.Minute)
	validator := auth.NewValidator(testSecret, redisClient, "token:")

	connHub := hub.NewHub(wsCfg)
	go connHub.Run()

	messageRepo := repository.NewGormMessageRepository(db)
	notificationRepo := repository.NewGormNotificationRepository(db)
	proposalRepo := repository.NewGormProposalRepository(db)

	chatService := service.NewChatService(connHub, validator, messageRepo, proposalRepo, redisCache)
	notifService := service.NewNotificationService(connHub, notificationRepo, redisCache)

	router := gin.New()
	NewWSHandler(connHub, chatService, wsCfg).RegisterRoutes(router)
	NewHTTPHandler(chatService, notifService, validator).RegisterRoutes(router)

	return &testEnv{
		router:        router,
		redis:         mr,
		db:            db,
		hub:           connHub,
		messages:      messageRepo,
		notifications: notificationRepo,
		notifService:  notifService,
	}
}

// issueToken signs a JWT and stores it as the active session, the same way
// the marketplace auth layer does on login.
func (e *testEnv) issueToken(t *testing.T, userID int64, role, name string) string {
	t.Helper()

	claims := &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID: userID,
		Role:   role,
		Name:   name,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	e.redis.Set("token:"+strconv.FormatInt(userID, 10), token)
	return token
}
