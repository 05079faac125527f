package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/jwebster45206/date-engine/internal/services/queue"
	pkgqueue "github.com/jwebster45206/date-engine/pkg/queue"
)

// Enqueues a start, an interact and a stop for one game so the worker can be
// exercised without the API.
func main() {
	redisURL := flag.String("redis", "localhost:6379", "Redis address")
	gameID := flag.String("game", "00000000-0000-0000-0000-000000000001", "game state id")
	prompt := flag.String("prompt", "A person sits across a small cafe table, warm light, cinematic realism.", "initial prompt")
	reaction := flag.String("reaction", "They laugh and lean in.", "interact prompt")
	noStop := flag.Bool("no-stop", false, "leave the stream running")
	flag.Parse()

	id, err := uuid.Parse(*gameID)
	if err != nil {
		log.Fatal("Invalid game id:", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	client, err := queue.NewClient(*redisURL, logger)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	sq := queue.NewStreamQueue(client)

	reqs := []*pkgqueue.Request{
		pkgqueue.NewRequest(pkgqueue.RequestTypeStreamStart, id, *prompt, ""),
		pkgqueue.NewRequest(pkgqueue.RequestTypeStreamInteract, id, *reaction, pkgqueue.ReasonChoice),
	}
	if !*noStop {
		reqs = append(reqs, pkgqueue.NewRequest(pkgqueue.RequestTypeStreamStop, id, "", pkgqueue.ReasonLeave))
	}

	for _, req := range reqs {
		if err := sq.EnqueueRequest(ctx, req); err != nil {
			log.Fatal("Failed to enqueue request:", err)
		}
		fmt.Printf("Enqueued %s request %s\n", req.Type, req.RequestID)
	}

	depth, err := sq.RequestQueueDepth(ctx)
	if err != nil {
		log.Fatal("Failed to get queue depth:", err)
	}
	fmt.Printf("\nQueue depth: %d requests\n", depth)
	fmt.Printf("Watch events: curl -N localhost:8080/v1/events/gamestate/%s\n", id)
}
