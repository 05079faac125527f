package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/date-engine/internal/config"
	"github.com/jwebster45206/date-engine/internal/content"
	"github.com/jwebster45206/date-engine/internal/handlers"
	"github.com/jwebster45206/date-engine/internal/logger"
	"github.com/jwebster45206/date-engine/internal/middleware"
	"github.com/jwebster45206/date-engine/internal/services"
	"github.com/jwebster45206/date-engine/internal/services/evaluator"
	"github.com/jwebster45206/date-engine/internal/services/events"
	"github.com/jwebster45206/date-engine/internal/services/queue"
	"github.com/jwebster45206/date-engine/internal/storage"
)

// lockSlack covers saving and enqueueing after the evaluator returns.
const lockSlack = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Date Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName,
		"video_enabled", cfg.VideoEnabled())

	catalog, err := content.LoadCatalog()
	if err != nil {
		log.Error("Failed to load content catalog", "error", err)
		os.Exit(1)
	}

	redisStorage, err := storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, log)
	if err != nil {
		log.Error("Failed to create storage", "error", err)
		os.Exit(1)
	}
	redisStorage.WithSessionTTL(cfg.SessionTTL)

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if err := redisStorage.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	// A missing key is not fatal: free-form responses fall back to a
	// neutral reply.
	initCtx, initCancel := context.WithTimeout(context.Background(), time.Minute)
	defer initCancel()
	llmService, err := services.NewLLMService(initCtx, cfg.LLMProvider, cfg.LLMAPIKey(), cfg.ModelName, log)
	switch {
	case errors.Is(err, services.ErrMissingAPIKey):
		log.Warn("No LLM API key configured, free-form responses use fallback replies", "provider", cfg.LLMProvider)
		llmService = nil
	case err != nil:
		log.Error("Failed to create LLM service", "error", err)
		os.Exit(1)
	default:
		// OpenAI-compatible hosts such as Venice
		if openai, ok := llmService.(*services.OpenAIService); ok && cfg.OpenAIBaseURL != "" {
			openai.WithBaseURL(cfg.OpenAIBaseURL)
		}
		if err := llmService.InitModel(initCtx, cfg.ModelName); err != nil {
			log.Error("Failed to initialize LLM model", "error", err, "model", cfg.ModelName)
			os.Exit(1)
		}
	}
	eval := evaluator.New(llmService, log).WithTimeout(cfg.EvaluateTimeout)

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
	streams := queue.NewStreamRequester(queue.NewStreamQueue(queueClient), log)
	broadcaster := events.NewBroadcaster(redisStorage.Client(), log)

	mux := http.NewServeMux()

	mux.Handle("/health", handlers.NewHealthHandler(redisStorage, eval.Available(), cfg.VideoEnabled(), log))
	mux.Handle("/v1/setup", handlers.NewSetupHandler(catalog, log))

	episodesHandler := handlers.NewEpisodesHandler(redisStorage, log)
	mux.Handle("/v1/episodes", episodesHandler)
	mux.Handle("/v1/episodes/", episodesHandler)

	gameStateHandler := handlers.NewGameStateHandler(log, redisStorage, catalog, eval).
		WithStreams(streams).
		WithEvents(broadcaster).
		WithStrict(cfg.IsDevelopment()).
		WithLockTTL(cfg.EvaluateTimeout + lockSlack).
		WithVideoEnabled(cfg.VideoEnabled())
	mux.Handle("/v1/gamestate", gameStateHandler)
	mux.Handle("/v1/gamestate/", gameStateHandler)

	mux.Handle("/v1/results", handlers.NewResultsHandler(redisStorage, log))
	mux.Handle("/v1/events/gamestate/", handlers.NewEventsHandler(redisStorage.Client(), log))

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: SSE connections stay open
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := redisStorage.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
