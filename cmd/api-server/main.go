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
	"studio-backend/internal/database"
	"studio-backend/internal/directory"
	"studio-backend/internal/env"
	internaljwt "studio-backend/internal/jwt"
	"studio-backend/internal/logger"
	"studio-backend/internal/mailer"
	"studio-backend/internal/queue"
	"studio-backend/internal/scope"
	"studio-backend/internal/service/impersonation"
	"studio-backend/internal/service/session"
	"studio-backend/internal/service/tenant"
	"studio-backend/internal/service/workspace"
	"studio-backend/internal/verification"

	"go.uber.org/zap"
)

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
		ServiceName: "api-server",
	}); err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.L().Sync()
	logger.L().Info("starting", cfg.LogFields()...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDatabase(ctx, cfg.AWS)
	if err != nil {
		logger.L().Fatal("db init failed", zap.Error(err))
	}
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.L().Fatal("redis init failed", zap.Error(err))
	}
	defer redisClient.Close()

	mail, err := mailer.NewSender(cfg.MailTransport, redisClient)
	if err != nil {
		logger.L().Fatal("mailer init failed", zap.Error(err))
	}

	store := scope.NewDynamoStore(db)
	repo := directory.NewDynamoRepository(db)
	codes := verification.NewRedisStore(redisClient, nil)
	tokens := internaljwt.NewIssuer(cfg.Auth, redisClient)
	auditLog := audit.NewDynamoSink(db)

	services := api.Services{
		Sessions: session.New(session.Dependencies{
			Repo:     repo,
			Codes:    codes,
			Tokens:   tokens,
			Mail:     mail,
			LoginTTL: cfg.Auth.LoginCodeTTL,
		}),
		Tenants: tenant.New(repo, nil),
		Workspace: workspace.New(workspace.Dependencies{
			Store: store,
			Repo:  repo,
			Mail:  mail,
		}),
		Impersonation: impersonation.New(impersonation.Dependencies{
			Repo:  repo,
			Codes: codes,
			Sink: audit.Fanout{
				Primary: auditLog,
				Notify:  []audit.Sink{audit.NewRedisPublisher(redisClient)},
			},
			Reader: auditLog,
		}),
	}

	queueManager := queue.NewRequestQueueManager(cfg.HTTP.QueueSize, cfg.HTTP.Workers)
	defer queueManager.Shutdown()

	server := api.NewAPIServer(
		api.Options{ListenAddr: cfg.HTTP.APIListenAddr, AllowedOrigins: cfg.HTTP.AllowedOrigins},
		queueManager,
		services,
		router.UtilsRoutes("/api/v1"),
		router.AuthRoutes("/api/v1"),
		router.TenantRoutes("/api/v1"),
		router.WorkspaceRoutes("/api/v1"),
		router.PlatformRoutes("/api/v1"),
	)

	if err := server.Run(ctx); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}
