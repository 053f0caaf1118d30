package bootstrap

import (
	"log"

	"school-chat-be/internal/cache"
	"school-chat-be/internal/config"
	"school-chat-be/internal/controller"
	"school-chat-be/internal/handler"
	"school-chat-be/internal/pkg/logger"
	"school-chat-be/internal/ratelimit"
	"school-chat-be/internal/repository/memory"
	"school-chat-be/internal/repository/unitofwork"
	"school-chat-be/internal/service"
	"school-chat-be/internal/websocket"
	"school-chat-be/pkg/inference"
	pktNats "school-chat-be/pkg/nats"
	"school-chat-be/pkg/responder"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController controller.IChatController

	// Background services (exposed for main.go to run)
	EnrichmentConsumer service.IEnrichmentConsumer

	// WebSockets
	ChatHandler  *handler.ChatHandler
	WebSocketHub *websocket.Hub

	// Shared infrastructure, exposed for health checks and shutdown.
	Logger            logger.ILogger
	ConversationCache *cache.ConversationCache
	SendLimiter       *ratelimit.Limiter
	HistoryLimiter    *ratelimit.Limiter
	NatsPublisher     *pktNats.Publisher
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Inference + responder
	provider := inference.NewClient(cfg.Inference.APIKey, cfg.Inference.BaseURL, cfg.Inference.Model)
	generator := responder.NewGenerator(provider, sysLogger)
	if cfg.Inference.APIKey == "" {
		log.Println("[WARN] No inference API key configured, assistant runs on fallback replies only")
	}

	// 4. Infra: NATS, cache, limiters, presence
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS publisher: %v", err)
	}

	convCache := cache.NewConversationCache(cfg.Chat.Cache, sysLogger)
	sendLimiter := ratelimit.NewLimiter(cfg.Chat.APILimit, sysLogger)
	historyLimiter := ratelimit.NewLimiter(cfg.Chat.HistoryLimit, sysLogger)
	presenceRepo := memory.NewPresenceRepository()

	// 5. Services
	chatService := service.NewChatService(uowFactory, convCache, natsPub, sysLogger, cfg.App.PublicUploadsURL)
	responderService := service.NewResponderService(chatService, generator, pubSub, sysLogger)
	enrichmentConsumer := service.NewEnrichmentConsumer(
		pubSub,
		service.EnrichmentTopic,
		uowFactory,
		generator,
		sysLogger,
	)

	// 6. WebSocket hub + gateway
	wsLogger := logger.NewIsolatedLogger("logs/chat_ws.log")
	wsHub := websocket.NewHub(wsLogger)
	go wsHub.Run()

	gateway := websocket.NewGateway(
		wsHub,
		chatService,
		responderService,
		presenceRepo,
		sendLimiter,
		historyLimiter,
		wsLogger,
	)
	chatHandler := handler.NewChatHandler(wsHub, gateway, wsLogger)

	return &Container{
		ChatController:     controller.NewChatController(chatService, responderService, sendLimiter, historyLimiter),
		EnrichmentConsumer: enrichmentConsumer,
		ChatHandler:        chatHandler,
		WebSocketHub:       wsHub,
		Logger:             sysLogger,
		ConversationCache:  convCache,
		SendLimiter:        sendLimiter,
		HistoryLimiter:     historyLimiter,
		NatsPublisher:      natsPub,
	}
}

// Shutdown stops the container's background workers.
func (c *Container) Shutdown() {
	c.ConversationCache.Dispose()
	c.SendLimiter.Dispose()
	c.HistoryLimiter.Dispose()
	c.NatsPublisher.Close()
}
