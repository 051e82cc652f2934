// hashloader bulk-loads a precomputed credential list into Redis ahead of
// a voting window. It reads one fingerprint per line from a file and
// pipelines SADD calls into the valid_hashes set the validator's
// CredentialStore reads from.
package main

import (
	"bufio"
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"votepipeline/contexts/voteprocessing/domain/entities"
)

const validHashesKey = "valid_hashes"

func main() {
	redisAddr := flag.String("redis-addr", "localhost:6379", "Redis address")
	inputPath := flag.String("input", "", "path to a newline-delimited file of precomputed fingerprints")
	pipelineSize := flag.Int("pipeline-size", 1000, "number of SADD commands per pipeline flush")
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("hashloader: -input is required")
	}

	file, err := os.Open(*inputPath)
	if err != nil {
		log.Fatalf("hashloader: open input: %v", err)
	}
	defer file.Close()

	client := redis.NewClient(&redis.Options{Addr: *redisAddr})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("hashloader: redis ping failed: %v", err)
	}

	var (
		loaded   int64
		skipped  int64
		pipeline = client.Pipeline()
		pending  int
	)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		f := entities.Fingerprint(strings.ToLower(line))
		if !f.Valid() {
			skipped++
			continue
		}
		pipeline.SAdd(ctx, validHashesKey, f.String())
		pending++
		loaded++

		if pending >= *pipelineSize {
			if _, err := pipeline.Exec(ctx); err != nil {
				log.Fatalf("hashloader: pipeline exec failed: %v", err)
			}
			pending = 0
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("hashloader: scan input: %v", err)
	}
	if pending > 0 {
		if _, err := pipeline.Exec(ctx); err != nil {
			log.Fatalf("hashloader: final pipeline exec failed: %v", err)
		}
	}

	log.Printf("hashloader: loaded %d fingerprints into %s (skipped %d malformed lines)", loaded, validHashesKey, skipped)
}
