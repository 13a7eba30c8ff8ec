package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"market-chat-service/internal/config"
	"market-chat-service/internal/conversations"
	"market-chat-service/internal/db"
	"market-chat-service/internal/handlers"
	"market-chat-service/internal/media"
	"market-chat-service/internal/middleware"
	"market-chat-service/internal/observability"
	"market-chat-service/internal/presence"
	"market-chat-service/internal/queue"
	"market-chat-service/internal/rabbitmq"
	"market-chat-service/internal/repositories"
	"market-chat-service/internal/telemetry"
	"market-chat-service/internal/ws"
)

func main() {
	cfg := config.Load()

	shutdownTracing, err := observability.InitTracing(context.Background(), "market-chat-service", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown error: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))
	if reason := rabbitmq.PublisherNoopReason(publisher); reason != "" {
		log.Printf("event publisher noop reason: %s", reason)
	}

	roomRepo := repositories.NewRoomRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	labelRepo := repositories.NewLabelRepo(database)
	monitorRepo := repositories.NewMonitorRepo(database)

	conversationSvc := conversations.NewService(roomRepo, messageRepo)
	secondaryQueue := queue.NewSecondaryQueue(publisher, "chat.messages", "market-chat-service")
	audit := telemetry.NewAuditEmitter(publisher, cfg.AuditRouting, "market-chat-service", cfg.Environment)

	hub := ws.NewHub()
	registry := presence.NewRegistry()
	inspector := middleware.NewTokenInspector(cfg.JWTSecret)

	gateway := ws.NewGateway(hub, roomRepo, messageRepo, secondaryQueue, registry, inspector)
	roomHandler := handlers.NewRoomHandler(conversationSvc, labelRepo, monitorRepo, hub, audit)
	messageHandler := handlers.NewMessageHandler(roomRepo, messageRepo, hub, secondaryQueue)
	callHandler := handlers.NewCallHandler(media.NewHTTPTokenClient(cfg.MediaTokenURL))

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("market-chat-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	authRequired := middleware.AuthRequired(inspector)

	router.GET("/conversations", authRequired, roomHandler.ListConversations)
	router.GET("/conversations/with/:participant_id", authRequired, roomHandler.GetConversation)
	router.POST("/rooms", authRequired, roomHandler.CreateRoom)
	router.POST("/rooms/:room_id/messages", authRequired, messageHandler.PostMessage)
	router.POST("/rooms/:room_id/read", authRequired, roomHandler.MarkRead)
	router.POST("/rooms/:room_id/archive", authRequired, roomHandler.Archive)
	router.POST("/rooms/:room_id/unarchive", authRequired, roomHandler.Unarchive)
	router.DELETE("/rooms/:room_id", authRequired, roomHandler.DeleteRoom)
	router.PUT("/rooms/:room_id/label", authRequired, roomHandler.PutLabel)
	router.GET("/rooms/:room_id/label", authRequired, roomHandler.GetLabel)
	router.DELETE("/rooms/:room_id/label", authRequired, roomHandler.DeleteLabel)
	router.POST("/rooms/:room_id/monitor", authRequired, roomHandler.RecordMonitorView)
	router.GET("/rooms/:room_id/monitor", authRequired, roomHandler.ListMonitorViews)
	router.POST("/blocks/:participant_id", authRequired, roomHandler.Block)
	router.DELETE("/blocks/:participant_id", authRequired, roomHandler.Unblock)
	router.GET("/calls/token", authRequired, callHandler.GetToken)

	router.GET("/ws", gateway.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
