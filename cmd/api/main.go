package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lostfound-api/internal/application/notification"
	"github.com/lostfound-api/internal/application/sweeper"
	"github.com/lostfound-api/internal/config"
	"github.com/lostfound-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/lostfound-api/internal/infrastructure/jwt"
	redisinfra "github.com/lostfound-api/internal/infrastructure/redis"
	"github.com/lostfound-api/internal/infrastructure/smtp"
	"github.com/lostfound-api/internal/infrastructure/sns"
	"github.com/lostfound-api/internal/pkg/logger"
	"github.com/lostfound-api/internal/pkg/sse"
	transporthttp "github.com/lostfound-api/internal/transport/http"
)

type ssePublisher interface {
	Publish(ctx context.Context, userID string, ev sse.Event) error
}

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()
	logger.New(cfg.LogLevel, cfg.LogFormat)
	if envErr != nil {
		slog.Info("no .env file found, reading from environment")
	}

	rootCtx, stopRoot := context.WithCancel(context.Background())
	defer stopRoot()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(rootCtx, dynamoClient, cfg.DynamoTables)

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		slog.Error("jwt provider not available", "err", err)
		os.Exit(1)
	}

	userRepo := dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users)
	itemRepo := dynamo.NewItemRepo(dynamoClient, cfg.DynamoTables.LostItems, cfg.DynamoTables.FoundItems)
	notificationRepo := dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications)

	// Live push: process-local hub, bridged through Redis when configured.
	hub := sse.NewHub()
	var publisher ssePublisher = hub
	var locker sweeper.Locker
	redisClient, err := redisinfra.NewClient(rootCtx, cfg)
	switch {
	case err != nil:
		slog.Warn("redis not available, running single-instance", "err", err)
	case redisClient != nil:
		defer redisClient.Close()
		bridge := redisinfra.NewBridge(redisClient, redisinfra.DefaultChannel, hub)
		go func() {
			if err := bridge.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("sse bridge stopped", "err", err)
			}
		}()
		publisher = bridge
		locker = redisinfra.NewLocker(redisClient, "lostfound:")
	}

	var channels []notification.Channel
	if cfg.SMTPEnabled {
		channels = append(channels, notification.NewEmailChannel(smtp.NewMailer(cfg)))
	}
	if cfg.SNSEnabled {
		if sender, err := sns.NewSender(rootCtx, cfg); err == nil {
			channels = append(channels, notification.NewSMSChannel(sender))
		} else {
			slog.Warn("sns sender not available", "err", err)
		}
	}

	dispatcher := notification.NewDispatcher(notification.DispatcherDeps{
		Store:     notificationRepo,
		Pusher:    publisher,
		Users:     userRepo,
		Channels:  channels,
		QueueSize: cfg.Notifier.QueueSize,
	})
	stopDispatcher := dispatcher.Start(cfg.Notifier.Workers)

	deps := &transporthttp.Deps{
		UserRepo:         userRepo,
		SessionRepo:      dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions),
		CategoryRepo:     dynamo.NewCategoryRepo(dynamoClient, cfg.DynamoTables.Categories),
		ItemRepo:         itemRepo,
		ClaimRepo:        dynamo.NewClaimRepo(dynamoClient, cfg.DynamoTables.Claims, itemRepo),
		NotificationRepo: notificationRepo,
		Notifier:         dispatcher,
		Hub:              hub,
		JWTProvider:      jwtProvider,
	}
	svcs := transporthttp.NewServices(cfg, deps)

	stopScheduler := func(context.Context) error { return nil }
	if cfg.Sweeper.Enabled {
		stopScheduler = sweeper.NewScheduler(svcs.Sweeper, svcs.Item, locker, cfg.Sweeper).Start()
	}

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.AppPort),
		Handler:     transporthttp.NewRouter(cfg, deps, svcs),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: notification streams stay open.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "err", err)
	}
	if err := stopScheduler(ctx); err != nil {
		slog.Warn("scheduler stop", "err", err)
	}
	if err := stopDispatcher(ctx); err != nil {
		slog.Warn("dispatcher stop", "err", err)
	}
	stopRoot()
	slog.Info("server stopped")
}
