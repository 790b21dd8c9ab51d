package bootstrap

import (
	"context"
	"log"
	"time"

	"github.com/akvekariya/AIChatBot/internal/config"
	"github.com/akvekariya/AIChatBot/internal/constant"
	"github.com/akvekariya/AIChatBot/internal/controller"
	"github.com/akvekariya/AIChatBot/internal/handler"
	"github.com/akvekariya/AIChatBot/internal/pkg/logger"
	"github.com/akvekariya/AIChatBot/internal/repository/memory"
	"github.com/akvekariya/AIChatBot/internal/repository/unitofwork"
	"github.com/akvekariya/AIChatBot/internal/service"
	"github.com/akvekariya/AIChatBot/internal/websocket"
	"github.com/akvekariya/AIChatBot/pkg/ai/router"
	"github.com/akvekariya/AIChatBot/pkg/llm/factory"

	pktNats "github.com/akvekariya/AIChatBot/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController controller.IChatController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	ChatWsHandler *handler.ChatWsHandler
	WebSocketHub  *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// AI Backends (ordered fallback chain)
	backends, err := factory.NewBackends(factory.BackendConfig{
		OllamaBaseURL:      cfg.Ai.OllamaBaseURL,
		OllamaModel:        cfg.Ai.OllamaModel,
		HuggingFaceAPIKey:  cfg.Ai.HuggingFaceAPIKey,
		HuggingFaceBaseURL: cfg.Ai.HuggingFaceBaseURL,
		HuggingFaceModel:   cfg.Ai.HuggingFaceModel,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize AI backends: %v", err)
	}

	aiRouter, err := router.New(
		backends,
		router.Policy(constant.DefaultTopicPolicy),
		time.Duration(cfg.Ai.GenerateTimeoutSec)*time.Second,
		sysLogger,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize model router: %v", err)
	}

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		rdb = nil
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger(cfg.App.WsLogFilePath)
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 3. Services
	contextCache := memory.NewContextCache()

	var eventPublisher service.EventPublisher
	if natsPub != nil {
		eventPublisher = natsPub
	}

	chatService := service.NewChatService(uowFactory, eventPublisher, sysLogger)
	memoryService := service.NewMemoryService(uowFactory, contextCache, sysLogger)

	publisherService := service.NewPublisherService(constant.UtteranceTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		constant.UtteranceTopic,
		memoryService,
		sysLogger,
	)

	// 3.5 Realtime Coordinator
	coordinator := websocket.NewCoordinator(
		wsHub,
		chatService,
		memoryService,
		publisherService,
		aiRouter,
		time.Duration(cfg.Ai.GenerateTimeoutSec)*time.Second,
		wsLogger,
	)
	wsHandler := handler.NewChatWsHandler(wsHub, coordinator, wsLogger)

	// 4. Controllers
	return &Container{
		ChatController:  controller.NewChatController(chatService, memoryService, aiRouter),
		ConsumerService: consumerService,
		ChatWsHandler:   wsHandler,
		WebSocketHub:    wsHub,
	}
}
