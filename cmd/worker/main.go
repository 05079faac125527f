package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/date-engine/internal/config"
	"github.com/jwebster45206/date-engine/internal/logger"
	"github.com/jwebster45206/date-engine/internal/services/events"
	"github.com/jwebster45206/date-engine/internal/services/queue"
	"github.com/jwebster45206/date-engine/internal/services/video"
	"github.com/jwebster45206/date-engine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Date Engine Worker",
		"environment", cfg.Environment,
		"redis_url", cfg.RedisURL,
		"worker_id", cfg.WorkerID,
		"video_enabled", cfg.VideoEnabled())

	queueClient, err := queue.NewClient(cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to create queue client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			log.Error("Error closing queue client", "error", err)
		}
	}()

	redisClient := queueClient.GetRedisClient()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("Redis connection established successfully")

	streamQueue := queue.NewStreamQueue(queueClient)

	var factory video.Factory
	if cfg.VideoEnabled() {
		factory = video.NewWebSocketFactory(video.WebSocketConfig{
			URL:    cfg.VideoWSURL,
			APIKey: cfg.VideoAPIKey,
		}, log)
	} else {
		log.Warn("No video credentials configured, stream requests are acknowledged and dropped")
		factory = func() video.Client { return video.NewDisabledClient() }
	}

	broadcaster := events.NewBroadcaster(redisClient, log)
	processor := worker.NewStreamProcessor(factory, broadcaster, log)

	// games expire after SessionTTL; their sessions go with them
	w := worker.New(streamQueue, processor, redisClient, log, cfg.WorkerID).
		WithIdleTTL(cfg.SessionTTL)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := w.Start(); err != nil {
			log.Error("Worker error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("Worker started, waiting for stream requests...")

	<-quit
	log.Info("Worker shutdown signal received")

	w.Stop()

	// let the in-flight request and session teardown finish
	time.Sleep(2 * time.Second)

	log.Info("Worker exited")
}
