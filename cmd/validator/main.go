package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"votepipeline/internal/app/bootstrap"
)

// Validator process entrypoint.
// Data flow:
// 1) Load config.
// 2) Build app wiring (credential store, audit/tally store, bus).
// 3) Run the validation worker against the law and election streams until
//    signaled to stop.
func main() {
	log.Println("vote-processing validator starting")
	app, err := bootstrap.BuildValidator()
	if err != nil {
		log.Fatalf("bootstrap validator failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("validator shutdown close failed: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("vote-processing validator stopped with error: %v", err)
	}
}
