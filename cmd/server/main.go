package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/fathima-sithara/conversation-service/internal/api"
	"github.com/fathima-sithara/conversation-service/internal/config"
	"github.com/fathima-sithara/conversation-service/internal/events"
	"github.com/fathima-sithara/conversation-service/internal/logger"
	"github.com/fathima-sithara/conversation-service/internal/metrics"
	"github.com/fathima-sithara/conversation-service/internal/middleware"
	"github.com/fathima-sithara/conversation-service/internal/presence"
	"github.com/fathima-sithara/conversation-service/internal/repository"
	"github.com/fathima-sithara/conversation-service/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	zl, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	metrics.Init()

	mc, err := repository.NewMongoClient(cfg)
	if err != nil {
		zl.Fatalf("mongo init: %v", err)
	}
	defer func() { _ = mc.Disconnect(context.Background()) }()

	db := mc.Database(cfg.Mongo.DB)
	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)

	var limiter *middleware.RateLimiter
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		limiter = middleware.NewRateLimiter(rdb, "conv-rl", cfg.App.RateLimitPerMin, time.Minute)
	}

	var sink service.Sink
	var pub *events.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		pub = events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() { _ = pub.Close() }()
		sink = pub
	}

	tracker := presence.NewTracker(presence.DefaultTypingTTL)
	defer tracker.Close()

	convSvc := service.NewConversations(convRepo)
	coord := service.NewCoordinator(convRepo, msgRepo, sink, zl)

	h := api.NewHandlers(convSvc, coord, tracker)
	app := api.NewServer(h, limiter)

	go func() {
		addr := ":" + cfg.App.PortString()
		if err := app.Listen(addr); err != nil {
			zl.Fatalf("server listen: %v", err)
		}
	}()
	zl.Infof("conversation-service started on :%s", cfg.App.PortString())

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		addr := ":" + strconv.Itoa(cfg.App.MetricsPort)
		if err := http.ListenAndServe(addr, mux); err != nil {
			zl.Warnf("metrics listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(ctx)
	zl.Info("conversation-service stopped")
}
