package httpadapter_test

import (
	"context"
	"errors"
	"testing"

	voteprocessing "votepipeline/contexts/voteprocessing"
	"votepipeline/contexts/voteprocessing/domain/entities"
	domainerrors "votepipeline/contexts/voteprocessing/domain/errors"
	httptransport "votepipeline/contexts/voteprocessing/transport/http"
)

func TestHandlerSubmitLawVoteRejectsInvalidShape(t *testing.T) {
	module, _, _, _ := voteprocessing.NewInMemoryModule(nil)
	ctx := context.Background()

	_, err := module.Handler.SubmitLawVoteHandler(ctx, httptransport.SubmitLawVoteRequest{
		NAS:      "not-nine-digits",
		Code:     "abc123",
		BallotID: "ballot-1",
		Choice:   "yes",
	})
	if !errors.Is(err, domainerrors.ErrInvalidNAS) {
		t.Fatalf("expected ErrInvalidNAS, got %v", err)
	}
}

func TestHandlerSubmitLawVoteAccepted(t *testing.T) {
	module, _, _, _ := voteprocessing.NewInMemoryModule(nil)
	ctx := context.Background()

	resp, err := module.Handler.SubmitLawVoteHandler(ctx, httptransport.SubmitLawVoteRequest{
		NAS:      "123456789",
		Code:     "abc123",
		BallotID: "ballot-1",
		Choice:   "yes",
	})
	if err != nil {
		t.Fatalf("submit law vote: %v", err)
	}
	if resp.RequestID == "" {
		t.Fatalf("expected a non-empty request id")
	}
	if resp.Status != "accepted" {
		t.Fatalf("expected status accepted, got %q", resp.Status)
	}
}

func TestHandlerSubmitElectionVoteRejectsMismatchedPayload(t *testing.T) {
	module, _, _, _ := voteprocessing.NewInMemoryModule(nil)
	ctx := context.Background()

	_, err := module.Handler.SubmitElectionVoteHandler(ctx, httptransport.SubmitElectionVoteRequest{
		NAS:           "123456789",
		Code:          "abc123",
		ElectionID:    1,
		RegionID:      1,
		Method:        "single",
		RankedChoices: []int64{1, 2},
	})
	if !errors.Is(err, domainerrors.ErrInvalidChoicePayload) {
		t.Fatalf("expected ErrInvalidChoicePayload, got %v", err)
	}
}

func TestHandlerLawResultsDefaultsToZeroForUnknownBallot(t *testing.T) {
	module, _, _, _ := voteprocessing.NewInMemoryModule(nil)
	ctx := context.Background()

	resp, err := module.Handler.LawResultsHandler(ctx, "ballot-never-voted")
	if err != nil {
		t.Fatalf("law results: %v", err)
	}
	if resp.BallotID != "ballot-never-voted" {
		t.Fatalf("expected echoed ballot id, got %q", resp.BallotID)
	}
	if resp.YesCount != 0 || resp.NoCount != 0 {
		t.Fatalf("expected zero tally for a ballot with no votes, got yes=%d no=%d", resp.YesCount, resp.NoCount)
	}
}

func TestHandlerElectionResultsComputesPercentageOfTotal(t *testing.T) {
	module, _, store, _ := voteprocessing.NewInMemoryModule(nil)
	ctx := context.Background()

	if err := store.ApplyElectionDeltas(ctx, []entities.ElectionTallyDelta{
		{ElectionID: 9, RegionID: 1, CandidateID: 1, Delta: 3},
		{ElectionID: 9, RegionID: 1, CandidateID: 2, Delta: 1},
	}); err != nil {
		t.Fatalf("apply election deltas: %v", err)
	}

	resp, err := module.Handler.ElectionResultsHandler(ctx, 9, 1)
	if err != nil {
		t.Fatalf("election results: %v", err)
	}
	if len(resp.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(resp.Candidates))
	}
	for _, c := range resp.Candidates {
		switch c.CandidateID {
		case 1:
			if c.Percentage != 75 {
				t.Fatalf("expected candidate 1 at 75%%, got %v", c.Percentage)
			}
		case 2:
			if c.Percentage != 25 {
				t.Fatalf("expected candidate 2 at 25%%, got %v", c.Percentage)
			}
		default:
			t.Fatalf("unexpected candidate id %d", c.CandidateID)
		}
	}
}

func TestHandlerElectionResultsUnknownPairReturnsNoCandidates(t *testing.T) {
	module, _, _, _ := voteprocessing.NewInMemoryModule(nil)
	resp, err := module.Handler.ElectionResultsHandler(context.Background(), 404, 1)
	if err != nil {
		t.Fatalf("election results: %v", err)
	}
	if len(resp.Candidates) != 0 {
		t.Fatalf("expected no candidates for an unknown election/region pair, got %d", len(resp.Candidates))
	}
}

func TestHandlerHealthReportsReachability(t *testing.T) {
	module, _, _, _ := voteprocessing.NewInMemoryModule(nil)
	resp := module.Handler.HealthHandler(context.Background())
	if !resp.BusReachable {
		t.Fatalf("expected bus to be reachable against the in-memory module")
	}
	if !resp.CredentialsReachable {
		t.Fatalf("expected credential store to be reachable against the in-memory module")
	}
}
