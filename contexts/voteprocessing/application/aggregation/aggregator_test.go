package aggregation

import (
	"context"
	"testing"
	"time"

	"votepipeline/contexts/voteprocessing/adapters/memory"
	"votepipeline/contexts/voteprocessing/application"
	"votepipeline/contexts/voteprocessing/domain/entities"
	"votepipeline/contexts/voteprocessing/ports"
)

func acceptedLawDelivery(t *testing.T, ballotID string, choice entities.Choice) (ports.Delivery, *bool) {
	t.Helper()
	envelope := entities.Envelope{
		Kind:        entities.KindLaw,
		Fingerprint: entities.ComputeFingerprint("123456789", "abc123", ballotID),
		ReceivedAt:  time.Now().UTC(),
		Law:         &entities.LawPayload{BallotID: ballotID, Choice: choice},
		Status:      entities.StatusAccepted,
	}
	data, err := application.EncodeEnvelope(envelope, time.Now().UTC())
	if err != nil {
		t.Fatalf("encode envelope: %v", err)
	}

	acked := false
	delivery := ports.Delivery{
		Envelope: ports.EventEnvelope{Data: data},
		Ack:      func(ctx context.Context) error { acked = true; return nil },
		Nack:     func(ctx context.Context, requeue bool) error { t.Fatalf("unexpected nack, requeue=%v", requeue); return nil },
	}
	return delivery, &acked
}

func TestAggregatorFlushAppliesBatchedDeltas(t *testing.T) {
	store := memory.NewAuditTallyStore()
	bus := memory.NewBus()

	a := &Aggregator{Tallies: store, Bus: bus, BatchSize: 10, BatchInterval: time.Hour}

	yes1, acked1 := acceptedLawDelivery(t, "ballot-1", entities.ChoiceYes)
	yes2, acked2 := acceptedLawDelivery(t, "ballot-1", entities.ChoiceYes)
	no1, acked3 := acceptedLawDelivery(t, "ballot-1", entities.ChoiceNo)

	a.enqueue(context.Background(), yes1, 10)
	a.enqueue(context.Background(), yes2, 10)
	a.enqueue(context.Background(), no1, 10)
	a.flush(context.Background())

	if !*acked1 || !*acked2 || !*acked3 {
		t.Fatalf("expected every batched delivery to be acked after a successful flush")
	}

	tally, err := store.GetLawTally(context.Background(), "ballot-1")
	if err != nil {
		t.Fatalf("get law tally: %v", err)
	}
	if tally.YesCount != 2 || tally.NoCount != 1 {
		t.Fatalf("expected yes=2 no=1, got yes=%d no=%d", tally.YesCount, tally.NoCount)
	}
}

func TestAggregatorEnqueueFlushesAtBatchSize(t *testing.T) {
	store := memory.NewAuditTallyStore()
	bus := memory.NewBus()

	a := &Aggregator{Tallies: store, Bus: bus, BatchSize: 2, BatchInterval: time.Hour}

	first, acked1 := acceptedLawDelivery(t, "ballot-2", entities.ChoiceYes)
	second, acked2 := acceptedLawDelivery(t, "ballot-2", entities.ChoiceYes)

	a.enqueue(context.Background(), first, 2)
	if *acked1 {
		t.Fatalf("expected first delivery to stay pending below batch size")
	}

	a.enqueue(context.Background(), second, 2)
	if !*acked1 || !*acked2 {
		t.Fatalf("expected batch-size threshold to trigger an automatic flush")
	}

	tally, err := store.GetLawTally(context.Background(), "ballot-2")
	if err != nil {
		t.Fatalf("get law tally: %v", err)
	}
	if tally.YesCount != 2 {
		t.Fatalf("expected yes=2, got %d", tally.YesCount)
	}
}

func TestAggregatorEnqueueRejectsNonAcceptedEnvelope(t *testing.T) {
	store := memory.NewAuditTallyStore()
	bus := memory.NewBus()
	a := &Aggregator{Tallies: store, Bus: bus}

	envelope := entities.Envelope{
		Kind:        entities.KindLaw,
		Fingerprint: entities.ComputeFingerprint("123456789", "abc123", "ballot-3"),
		Law:         &entities.LawPayload{BallotID: "ballot-3", Choice: entities.ChoiceYes},
		Status:      entities.StatusInvalid,
	}
	data, err := application.EncodeEnvelope(envelope, time.Now().UTC())
	if err != nil {
		t.Fatalf("encode envelope: %v", err)
	}

	var nackedRequeue *bool
	delivery := ports.Delivery{
		Envelope: ports.EventEnvelope{Data: data},
		Ack:      func(ctx context.Context) error { t.Fatalf("non-accepted envelope should not be acked"); return nil },
		Nack:     func(ctx context.Context, requeue bool) error { nackedRequeue = &requeue; return nil },
	}

	a.enqueue(context.Background(), delivery, 10)

	if nackedRequeue == nil {
		t.Fatalf("expected non-accepted envelope to be nacked")
	}
	if *nackedRequeue {
		t.Fatalf("expected non-accepted envelope nack without requeue, got requeue=true")
	}
}

func TestBuildDeltasGroupsElectionBallotsByFirstPreference(t *testing.T) {
	single := int64(5)
	ranked := []int64{9, 3}

	batch := []pendingEnvelope{
		{envelope: entities.Envelope{
			Kind: entities.KindElection,
			Election: &entities.ElectionPayload{
				ElectionID: 1, RegionID: 1, Method: entities.MethodSingle, SingleChoice: &single,
			},
		}},
		{envelope: entities.Envelope{
			Kind: entities.KindElection,
			Election: &entities.ElectionPayload{
				ElectionID: 1, RegionID: 1, Method: entities.MethodSingle, SingleChoice: &single,
			},
		}},
		{envelope: entities.Envelope{
			Kind: entities.KindElection,
			Election: &entities.ElectionPayload{
				ElectionID: 1, RegionID: 1, Method: entities.MethodRanked, RankedChoices: ranked,
			},
		}},
	}

	lawDeltas, electionDeltas := buildDeltas(batch)
	if len(lawDeltas) != 0 {
		t.Fatalf("expected no law deltas, got %d", len(lawDeltas))
	}
	if len(electionDeltas) != 2 {
		t.Fatalf("expected 2 distinct candidate keys, got %d", len(electionDeltas))
	}

	byCandidate := make(map[int64]int64, len(electionDeltas))
	for _, d := range electionDeltas {
		byCandidate[d.CandidateID] = d.Delta
	}
	if byCandidate[5] != 2 {
		t.Fatalf("expected candidate 5 to receive 2 first-preference votes, got %d", byCandidate[5])
	}
	if byCandidate[9] != 1 {
		t.Fatalf("expected candidate 9 (first rank) to receive 1 vote, got %d", byCandidate[9])
	}
}
