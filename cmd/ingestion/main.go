package main

import (
	"context"
	"log"

	"votepipeline/internal/app/bootstrap"
)

// Ingestion process entrypoint.
// Data flow:
// 1) Load config.
// 2) Build app wiring (ports + adapters + use cases).
// 3) Start HTTP server.
func main() {
	log.Println("vote-processing ingestion starting")
	app, err := bootstrap.BuildIngestion()
	if err != nil {
		log.Fatalf("bootstrap ingestion failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("ingestion shutdown close failed: %v", err)
		}
	}()

	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("vote-processing ingestion stopped with error: %v", err)
	}
}
