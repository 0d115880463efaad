package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"studio-backend/internal/api"
	"studio-backend/internal/api/router"
	"studio-backend/internal/audit"
	"studio-backend/internal/cache"
	"studio-backend/internal/env"
	internaljwt "studio-backend/internal/jwt"
	"studio-backend/internal/logger"
	"studio-backend/internal/queue"
	"studio-backend/internal/service/session"
	"studio-backend/internal/websocket"

	"go.uber.org/zap"
)

// The feed server only verifies access tokens, so it needs Redis but no
// DynamoDB.
func main() {
	if err := env.Load(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	cfg := env.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	if _, err := logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: "audit-feed",
	}); err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.L().Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.L().Fatal("redis init failed", zap.Error(err))
	}
	defer redisClient.Close()

	hub := websocket.NewHub(audit.ImpersonationChannel)
	go hub.Run(ctx)
	handler := websocket.NewHandler(hub, redisClient, cfg.HTTP.AllowedOrigins)
	go handler.Relay(ctx, audit.ImpersonationChannel)

	sessions := session.New(session.Dependencies{
		Tokens: internaljwt.NewIssuer(cfg.Auth, redisClient),
	})

	queueManager := queue.NewRequestQueueManager(cfg.HTTP.QueueSize, cfg.HTTP.Workers)
	defer queueManager.Shutdown()

	server := api.NewAPIServer(
		api.Options{ListenAddr: cfg.HTTP.FeedListenAddr, AllowedOrigins: cfg.HTTP.AllowedOrigins},
		queueManager,
		api.Services{Sessions: sessions, Feed: handler},
		router.UtilsRoutes("/api/ws/v1"),
		router.FeedRoutes("/api/ws/v1"),
	)

	if err := server.Run(ctx); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}
