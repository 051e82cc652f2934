// Package aggregation implements the batching consumer that turns a stream
// of accepted envelopes into tally upserts: it is the only component that
// writes to the law and election tally tables.
package aggregation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"votepipeline/contexts/voteprocessing/application"
	"votepipeline/contexts/voteprocessing/domain/entities"
	"votepipeline/contexts/voteprocessing/ports"
	"votepipeline/internal/platform/retry"
)

// Aggregator consumes accepted envelopes from the aggregation stream,
// batches them by size or interval, and applies each flush as one additive
// upsert per tally key, all law keys in one transaction and all election
// keys in another. A batch that fails every retry attempt is moved to
// review wholesale and nacked without requeue, rather than replayed
// indefinitely against a store that keeps rejecting it.
type Aggregator struct {
	Tallies ports.TallyRepository
	Bus     ports.MessageBus

	BatchSize     int
	BatchInterval time.Duration
	RetryPolicy   retry.Policy

	ConfirmTimeout time.Duration
	Logger         *slog.Logger

	mu      sync.Mutex
	pending []pendingEnvelope
}

type pendingEnvelope struct {
	delivery ports.Delivery
	envelope entities.Envelope
}

// Run drives one Consume loop against the aggregation stream, buffering
// deliveries and flushing on BatchSize, BatchInterval, or ctx cancellation
// (a graceful-shutdown flush).
func (a *Aggregator) Run(ctx context.Context, stream string, prefetch int) error {
	batchSize := a.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	interval := a.BatchInterval
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	consumeErr := make(chan error, 1)
	go func() {
		consumeErr <- a.Bus.Consume(ctx, stream, prefetch, func(delivery ports.Delivery) {
			a.enqueue(ctx, delivery, batchSize)
		})
	}()

	for {
		select {
		case <-ticker.C:
			a.flush(ctx)
		case err := <-consumeErr:
			a.flush(context.Background())
			return err
		case <-ctx.Done():
			a.flush(context.Background())
			return ctx.Err()
		}
	}
}

func (a *Aggregator) enqueue(ctx context.Context, delivery ports.Delivery, batchSize int) {
	logger := application.ResolveLogger(a.Logger)

	envelope, err := application.DecodeEnvelope(delivery.Envelope.Data)
	if err != nil {
		logger.Error("malformed envelope on aggregation stream",
			"event", "aggregation_envelope_malformed",
			"module", "contexts/voteprocessing/application/aggregation",
			"layer", "worker",
			"error", err.Error(),
		)
		a.forwardToReview(ctx, delivery, err)
		return
	}
	if envelope.Status != entities.StatusAccepted {
		logger.Warn("non-accepted envelope on aggregation stream",
			"event", "aggregation_envelope_unexpected_status",
			"module", "contexts/voteprocessing/application/aggregation",
			"layer", "worker",
			"fingerprint", envelope.Fingerprint.String(),
			"status", string(envelope.Status),
		)
		_ = delivery.Nack(ctx, false)
		return
	}

	var flushNow bool
	a.mu.Lock()
	a.pending = append(a.pending, pendingEnvelope{delivery: delivery, envelope: envelope})
	flushNow = len(a.pending) >= batchSize
	a.mu.Unlock()

	if flushNow {
		a.flush(ctx)
	}
}

func (a *Aggregator) flush(ctx context.Context) {
	a.mu.Lock()
	batch := a.pending
	a.pending = nil
	a.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	logger := application.ResolveLogger(a.Logger)
	lawDeltas, electionDeltas := buildDeltas(batch)

	policy := a.RetryPolicy
	if policy.MaxAttempts <= 0 {
		policy = retry.DefaultPolicy()
	}

	err := policy.Do(ctx, func(attempt int) error {
		if len(lawDeltas) > 0 {
			if err := a.Tallies.ApplyLawDeltas(ctx, lawDeltas); err != nil {
				return err
			}
		}
		if len(electionDeltas) > 0 {
			if err := a.Tallies.ApplyElectionDeltas(ctx, electionDeltas); err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		logger.Error("tally batch exhausted retries, moving to review",
			"event", "aggregation_batch_failed",
			"module", "contexts/voteprocessing/application/aggregation",
			"layer", "worker",
			"batch_size", len(batch),
			"error", err.Error(),
		)
		for _, item := range batch {
			a.forwardToReview(ctx, item.delivery, err)
		}
		return
	}

	logger.Info("tally batch applied",
		"event", "aggregation_batch_applied",
		"module", "contexts/voteprocessing/application/aggregation",
		"layer", "worker",
		"batch_size", len(batch),
		"law_keys", len(lawDeltas),
		"election_keys", len(electionDeltas),
	)

	// Ack only after the commit succeeds, so a crash mid-flush leaves every
	// envelope in the batch unacked and redelivered rather than silently
	// dropped.
	for _, item := range batch {
		if err := item.delivery.Ack(ctx); err != nil {
			logger.Error("ack failed after tally commit",
				"event", "aggregation_ack_failed",
				"module", "contexts/voteprocessing/application/aggregation",
				"layer", "worker",
				"fingerprint", item.envelope.Fingerprint.String(),
				"error", err.Error(),
			)
		}
	}
}

func (a *Aggregator) forwardToReview(ctx context.Context, delivery ports.Delivery, cause error) {
	logger := application.ResolveLogger(a.Logger)
	timeout := a.ConfirmTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if err := a.Bus.Publish(ctx, application.StreamReview, delivery.Envelope, timeout); err != nil {
		logger.Error("review forward failed after batch failure",
			"event", "aggregation_review_forward_failed",
			"module", "contexts/voteprocessing/application/aggregation",
			"layer", "worker",
			"error", err.Error(),
			"cause", cause.Error(),
		)
	}
	_ = delivery.Nack(ctx, false)
}

// buildDeltas groups a batch into one delta per (ballot_id) for law
// ballots and one per (election_id, region_id, candidate_id) for election
// ballots, so the aggregator issues a single additive upsert per key per
// flush instead of one statement per envelope.
func buildDeltas(batch []pendingEnvelope) ([]entities.LawTallyDelta, []entities.ElectionTallyDelta) {
	lawByBallot := make(map[string]*entities.LawTallyDelta)
	electionByKey := make(map[electionKey]*entities.ElectionTallyDelta)

	for _, item := range batch {
		switch item.envelope.Kind {
		case entities.KindLaw:
			if item.envelope.Law == nil {
				continue
			}
			delta, ok := lawByBallot[item.envelope.Law.BallotID]
			if !ok {
				delta = &entities.LawTallyDelta{BallotID: item.envelope.Law.BallotID}
				lawByBallot[item.envelope.Law.BallotID] = delta
			}
			switch item.envelope.Law.Choice {
			case entities.ChoiceYes:
				delta.DeltaYes++
			case entities.ChoiceNo:
				delta.DeltaNo++
			}
		case entities.KindElection:
			if item.envelope.Election == nil {
				continue
			}
			candidateID, ok := item.envelope.Election.FirstPreference()
			if !ok {
				continue
			}
			key := electionKey{
				electionID:  item.envelope.Election.ElectionID,
				regionID:    item.envelope.Election.RegionID,
				candidateID: candidateID,
			}
			delta, exists := electionByKey[key]
			if !exists {
				delta = &entities.ElectionTallyDelta{
					ElectionID:  key.electionID,
					RegionID:    key.regionID,
					CandidateID: key.candidateID,
				}
				electionByKey[key] = delta
			}
			delta.Delta++
		}
	}

	lawDeltas := make([]entities.LawTallyDelta, 0, len(lawByBallot))
	for _, delta := range lawByBallot {
		lawDeltas = append(lawDeltas, *delta)
	}
	electionDeltas := make([]entities.ElectionTallyDelta, 0, len(electionByKey))
	for _, delta := range electionByKey {
		electionDeltas = append(electionDeltas, *delta)
	}
	return lawDeltas, electionDeltas
}

type electionKey struct {
	electionID  int64
	regionID    int64
	candidateID int64
}
