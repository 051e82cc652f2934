// smoketest fires a configurable burst of law ballot submissions at a
// running ingestion instance and reports the response status breakdown.
// It is an operator tool, not a load-test harness: it exists to give a
// quick yes/no on whether a freshly deployed ingestion process is
// actually accepting and forwarding ballots.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

type submitLawVoteRequest struct {
	NAS      string `json:"nas"`
	Code     string `json:"code"`
	BallotID string `json:"ballot_id"`
	Choice   string `json:"choice"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "ingestion base URL")
	ballotID := flag.String("ballot-id", "smoketest-ballot", "ballot_id to submit against")
	count := flag.Int("count", 50, "number of submissions to fire")
	concurrency := flag.Int("concurrency", 10, "concurrent in-flight requests")
	timeout := flag.Duration("timeout", 10*time.Second, "per-request timeout")
	flag.Parse()

	client := &http.Client{Timeout: *timeout}

	var accepted, rejected, errored int64
	var wg sync.WaitGroup
	sem := make(chan struct{}, *concurrency)

	for i := 0; i < *count; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			req := submitLawVoteRequest{
				NAS:      fmt.Sprintf("%09d", i),
				Code:     fmt.Sprintf("SMOK%02d", i%100),
				BallotID: *ballotID,
				Choice:   "yes",
			}
			status, err := submit(client, *baseURL, req)
			switch {
			case err != nil:
				atomic.AddInt64(&errored, 1)
			case status == http.StatusAccepted:
				atomic.AddInt64(&accepted, 1)
			default:
				atomic.AddInt64(&rejected, 1)
			}
		}(i)
	}
	wg.Wait()

	log.Printf("smoketest: accepted=%d rejected=%d errored=%d total=%d", accepted, rejected, errored, *count)
}

func submit(client *http.Client, baseURL string, req submitLawVoteRequest) (int, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), client.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/vote", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}
