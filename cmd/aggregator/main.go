package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"votepipeline/internal/app/bootstrap"
)

// Aggregator process entrypoint.
// Data flow:
// 1) Load config.
// 2) Build app wiring (tally store, bus).
// 3) Run the batching consumer against the aggregation stream until
//    signaled to stop, flushing any partial batch on the way out.
func main() {
	log.Println("vote-processing aggregator starting")
	app, err := bootstrap.BuildAggregator()
	if err != nil {
		log.Fatalf("bootstrap aggregator failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("aggregator shutdown close failed: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("vote-processing aggregator stopped with error: %v", err)
	}
}
