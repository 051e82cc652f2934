package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"votepipeline/contexts/voteprocessing/adapters/memory"
	"votepipeline/contexts/voteprocessing/application"
	"votepipeline/contexts/voteprocessing/domain/entities"
	domainerrors "votepipeline/contexts/voteprocessing/domain/errors"
	"votepipeline/contexts/voteprocessing/ports"
)

func TestSubmitLawPublishesToValidationLawStream(t *testing.T) {
	bus := memory.NewBus()
	uc := SubmitUseCase{Bus: bus, Clock: ports.SystemClock{}, IDGen: memory.IDGenerator{}, ConfirmTimeout: time.Second}

	result, err := uc.SubmitLaw(context.Background(), entities.LawBallotInput{
		NAS:      "123456789",
		Code:     "abc123",
		BallotID: "ballot-1",
		Choice:   entities.ChoiceYes,
	})
	if err != nil {
		t.Fatalf("submit law: %v", err)
	}
	if result.RequestID == "" {
		t.Fatalf("expected a non-empty request id")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	var published bool
	_ = bus.Consume(ctx, application.StreamValidationLaw, 1, func(d ports.Delivery) {
		published = true
		_ = d.Ack(ctx)
		cancel()
	})
	if !published {
		t.Fatalf("expected a message on stream %s", application.StreamValidationLaw)
	}
}

func TestSubmitElectionRejectsClosedWindow(t *testing.T) {
	elections := memory.NewAuditTallyStore()
	elections.SeedElection(entities.Election{
		ID:      7,
		Method:  entities.MethodSingle,
		StartAt: time.Now().Add(-2 * time.Hour),
		EndAt:   time.Now().Add(-1 * time.Hour),
	})
	bus := memory.NewBus()
	uc := SubmitUseCase{Bus: bus, Elections: elections, Clock: ports.SystemClock{}, IDGen: memory.IDGenerator{}, ConfirmTimeout: time.Second}

	choice := int64(3)
	_, err := uc.SubmitElection(context.Background(), entities.ElectionBallotInput{
		NAS:          "123456789",
		Code:         "abc123",
		ElectionID:   7,
		RegionID:     1,
		Method:       entities.MethodSingle,
		SingleChoice: &choice,
	})
	if !errors.Is(err, domainerrors.ErrElectionClosed) {
		t.Fatalf("expected ErrElectionClosed, got %v", err)
	}
}

func TestReconciliationReportsDriftAfterAuditWithoutTally(t *testing.T) {
	store := memory.NewAuditTallyStore()
	ctx := context.Background()

	if err := store.InsertAudit(ctx, entities.AuditRecord{
		Fingerprint: entities.ComputeFingerprint("123456789", "abc123", "ballot-9"),
		BallotScope: "ballot-9",
		Status:      entities.StatusAccepted,
		ReceivedAt:  time.Now().UTC(),
		ProcessedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("insert audit: %v", err)
	}

	uc := ReconciliationUseCase{Audit: store, Tallies: store}
	report, err := uc.LawReconciliation(ctx, "ballot-9")
	if err != nil {
		t.Fatalf("law reconciliation: %v", err)
	}
	if report.AcceptedAudits != 1 {
		t.Fatalf("expected 1 accepted audit, got %d", report.AcceptedAudits)
	}
	if report.Drift != 1 {
		t.Fatalf("expected drift of 1 (audited but not yet tallied), got %d", report.Drift)
	}

	if err := store.ApplyLawDeltas(ctx, []entities.LawTallyDelta{{BallotID: "ballot-9", DeltaYes: 1}}); err != nil {
		t.Fatalf("apply law deltas: %v", err)
	}
	report, err = uc.LawReconciliation(ctx, "ballot-9")
	if err != nil {
		t.Fatalf("law reconciliation after tally: %v", err)
	}
	if report.Drift != 0 {
		t.Fatalf("expected zero drift once the tally catches up, got %d", report.Drift)
	}
}
